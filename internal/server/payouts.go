package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	payoutdomain "github.com/smallbiznis/affiliate/internal/payout/domain"
)

func (s *Server) ListPayouts(c *gin.Context) {
	page, err := parsePagination(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.payoutSvc.List(c.Request.Context(), payoutdomain.ListPayoutRequest{
		Pagination:  page,
		Status:      queryStatus(c),
		AffiliateID: queryString(c, "affiliateId", "affiliate_id"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) CreatePayout(c *gin.Context) {
	var req payoutdomain.CreatePayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.payoutSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetPayout(c *gin.Context) {
	resp, err := s.payoutSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AdvancePayout(c *gin.Context) {
	resp, err := s.payoutSvc.Advance(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) MarkPayoutPaid(c *gin.Context) {
	resp, err := s.payoutSvc.MarkPaid(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) PayoutStatement(c *gin.Context) {
	statement, err := s.payoutSvc.Statement(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+statement.Filename+`"`)
	c.Data(http.StatusOK, statement.ContentType, statement.Content)
}
