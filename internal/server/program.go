package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/affiliate/internal/audit/domain"
	"github.com/smallbiznis/affiliate/internal/export"
	settingsdomain "github.com/smallbiznis/affiliate/internal/settings/domain"
)

func (s *Server) GetSettings(c *gin.Context) {
	resp, err := s.settingsSvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateSettings(c *gin.Context) {
	var req settingsdomain.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.settingsSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetStats(c *gin.Context) {
	resp, err := s.statsSvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListAuditLogs(c *gin.Context) {
	page, err := parsePagination(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.auditSvc.List(c.Request.Context(), auditdomain.ListAuditLogRequest{
		Pagination: page,
		Action:     queryString(c, "action"),
		TargetType: queryString(c, "targetType", "target_type"),
		TargetID:   queryString(c, "targetId", "target_id"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) ExportConversions(c *gin.Context) {
	file, err := s.exportSvc.Conversions(c.Request.Context(), queryStatus(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	writeFile(c, file)
}

func (s *Server) ExportPayouts(c *gin.Context) {
	file, err := s.exportSvc.Payouts(c.Request.Context(), queryStatus(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	writeFile(c, file)
}

func writeFile(c *gin.Context, file export.File) {
	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
