package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/affiliate/internal/observability/context"
	"github.com/smallbiznis/affiliate/internal/orgcontext"
)

const HeaderOrg = "X-Org-ID"

// OrgContext reads the tenant from the X-Org-ID header and scopes the
// request context to it.
func OrgContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderOrg))
		orgID, err := snowflake.ParseString(raw)
		if raw == "" || err != nil || orgID <= 0 {
			AbortWithError(c, newValidationError("organization", "invalid_organization", "missing or invalid "+HeaderOrg+" header"))
			return
		}

		ctx := orgcontext.WithOrgID(c.Request.Context(), int64(orgID))
		ctx = obscontext.WithOrgID(ctx, orgID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
