package orgcontext

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// ErrOrgMissing is returned when a tenant-scoped operation runs without an org.
var ErrOrgMissing = errors.New("organization_required")

// OrgContextKey is the request context key for the active organization ID.
type OrgContextKey struct{}

// WithOrgID stores the org ID in the context.
func WithOrgID(ctx context.Context, orgID int64) context.Context {
	return context.WithValue(ctx, OrgContextKey{}, orgID)
}

// OrgIDFromContext returns the org ID from context, if set.
func OrgIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}

	switch typed := ctx.Value(OrgContextKey{}).(type) {
	case int64:
		return snowflake.ID(typed), typed != 0
	case snowflake.ID:
		return typed, typed != 0
	case string:
		parsed, err := snowflake.ParseString(strings.TrimSpace(typed))
		if err == nil && parsed != 0 {
			return parsed, true
		}
	}
	return 0, false
}

// Require returns the org ID from context or ErrOrgMissing.
func Require(ctx context.Context) (snowflake.ID, error) {
	orgID, ok := OrgIDFromContext(ctx)
	if !ok {
		return 0, ErrOrgMissing
	}
	return orgID, nil
}
