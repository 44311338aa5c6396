package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	affiliatedomain "github.com/smallbiznis/affiliate/internal/affiliate/domain"
)

func (s *Server) ListAffiliates(c *gin.Context) {
	page, err := parsePagination(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.affiliateSvc.List(c.Request.Context(), affiliatedomain.ListAffiliateRequest{
		Pagination: page,
		Status:     queryStatus(c),
		Search:     queryString(c, "search", "q"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) CreateAffiliate(c *gin.Context) {
	var req affiliatedomain.CreateAffiliateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.affiliateSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetAffiliate(c *gin.Context) {
	resp, err := s.affiliateSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// UpdateAffiliate applies a status transition and/or field changes.
func (s *Server) UpdateAffiliate(c *gin.Context) {
	var req affiliatedomain.UpdateAffiliateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.affiliateSvc.Update(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetAffiliateBalance(c *gin.Context) {
	resp, err := s.payoutSvc.Balance(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
