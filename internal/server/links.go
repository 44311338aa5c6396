package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	linkdomain "github.com/smallbiznis/affiliate/internal/link/domain"
)

type updateLinkRequest struct {
	Active *bool `json:"active"`
}

func (s *Server) ListLinks(c *gin.Context) {
	page, err := parsePagination(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.linkSvc.ListLinks(c.Request.Context(), linkdomain.ListLinkRequest{
		Pagination:  page,
		AffiliateID: queryString(c, "affiliateId", "affiliate_id"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) CreateLink(c *gin.Context) {
	var req linkdomain.CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.linkSvc.CreateLink(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) UpdateLink(c *gin.Context) {
	var req updateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "active is required"))
		return
	}

	resp, err := s.linkSvc.SetActive(c.Request.Context(), strings.TrimSpace(c.Param("id")), *req.Active)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ResolveClick records a click without redirecting and returns the issued
// attribution token. Used by storefronts that track clicks server side.
func (s *Server) ResolveClick(c *gin.Context) {
	resp, err := s.linkSvc.ResolveClick(c.Request.Context(), c.Param("slug"), visitorFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func visitorFrom(c *gin.Context) linkdomain.Visitor {
	return linkdomain.Visitor{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Referrer:  c.Request.Referer(),
	}
}
