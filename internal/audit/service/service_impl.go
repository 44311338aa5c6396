package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/affiliate/internal/audit/domain"
	"github.com/smallbiznis/affiliate/internal/audit/masking"
	"github.com/smallbiznis/affiliate/internal/clock"
	obscontext "github.com/smallbiznis/affiliate/internal/observability/context"
	"github.com/smallbiznis/affiliate/internal/orgcontext"
	"github.com/smallbiznis/affiliate/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, tx *gorm.DB, action, targetType, targetID string, metadata map[string]any) error {
	action = strings.TrimSpace(action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}
	orgID, err := orgcontext.Require(ctx)
	if err != nil {
		return auditdomain.ErrInvalidOrganization
	}
	if tx == nil {
		tx = s.db
	}

	actorType, actorID := obscontext.ActorFromContext(ctx)
	if actorType == "" {
		actorType = string(auditdomain.ActorTypeSystem)
	}

	entry := auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		OrgID:      orgID,
		ActorType:  actorType,
		ActorID:    optional(actorID),
		Action:     action,
		TargetType: strings.TrimSpace(targetType),
		TargetID:   strings.TrimSpace(targetID),
		Metadata:   datatypes.JSONMap(masking.MaskMetadata(metadata)),
		RequestID:  optional(obscontext.RequestIDFromContext(ctx)),
		CreatedAt:  s.clock.Now(),
	}

	if err := s.repo.Insert(ctx, tx, &entry); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (pagination.Page[auditdomain.AuditLog], error) {
	orgID, err := orgcontext.Require(ctx)
	if err != nil {
		return pagination.Page[auditdomain.AuditLog]{}, auditdomain.ErrInvalidOrganization
	}

	page := req.Pagination.Normalize()
	items, total, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		OrgID:      orgID,
		Action:     req.Action,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
	}, page)
	if err != nil {
		return pagination.Page[auditdomain.AuditLog]{}, err
	}
	return pagination.NewPage(items, page, total), nil
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
