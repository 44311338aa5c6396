package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/affiliate/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListAuditLogRequest struct {
	pagination.Pagination
	Action     string
	TargetType string
	TargetID   string
}

type Service interface {
	// Record appends an entry using tx so it commits or rolls back with the
	// state change it describes.
	Record(ctx context.Context, tx *gorm.DB, action, targetType, targetID string, metadata map[string]any) error
	List(ctx context.Context, req ListAuditLogRequest) (pagination.Page[AuditLog], error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidAction       = errors.New("invalid_action")
)
