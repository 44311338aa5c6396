package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	conversiondomain "github.com/smallbiznis/affiliate/internal/conversion/domain"
)

type rejectConversionRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) ListConversions(c *gin.Context) {
	page, err := parsePagination(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.conversionSvc.List(c.Request.Context(), conversiondomain.ListConversionRequest{
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

func (s *Server) RecordConversion(c *gin.Context) {
	var req conversiondomain.RecordConversionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.conversionSvc.Record(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

// RecordOrder attributes a completed order. The attribution cookie is used
// when the body carries no token.
func (s *Server) RecordOrder(c *gin.Context) {
	var req conversiondomain.RecordOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.AttributionToken) == "" {
		if token, err := c.Cookie(s.cfg.Attribution.CookieName); err == nil {
			req.AttributionToken = token
		}
	}

	resp, err := s.conversionSvc.RecordOrder(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusOK
	if resp.Attributed {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"data": resp})
}

func (s *Server) GetConversion(c *gin.Context) {
	resp, err := s.conversionSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ApproveConversion(c *gin.Context) {
	resp, err := s.conversionSvc.Approve(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RejectConversion(c *gin.Context) {
	var req rejectConversionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.conversionSvc.Reject(c.Request.Context(), strings.TrimSpace(c.Param("id")), req.Reason)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
