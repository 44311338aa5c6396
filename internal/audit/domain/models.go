package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	OrgID      snowflake.ID      `gorm:"not null;index:ix_audit_logs_target,priority:1" json:"-"`
	ActorType  string            `gorm:"not null" json:"actorType"`
	ActorID    *string           `json:"actorId,omitempty"`
	Action     string            `gorm:"not null" json:"action"`
	TargetType string            `gorm:"not null;index:ix_audit_logs_target,priority:2" json:"targetType"`
	TargetID   string            `gorm:"not null;index:ix_audit_logs_target,priority:3" json:"targetId"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty"`
	RequestID  *string           `json:"requestId,omitempty"`
	CreatedAt  time.Time         `gorm:"not null" json:"createdAt"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type ActorType string

const (
	ActorTypeSystem ActorType = "system"
	ActorTypeAdmin  ActorType = "admin"
)

// Actions written by the affiliate program.
const (
	ActionAffiliateCreated       = "affiliate.created"
	ActionAffiliateStatusChanged = "affiliate.status_changed"
	ActionAffiliateUpdated       = "affiliate.updated"
	ActionLinkCreated            = "link.created"
	ActionLinkToggled            = "link.toggled"
	ActionConversionRecorded     = "conversion.recorded"
	ActionConversionApproved     = "conversion.approved"
	ActionConversionRejected     = "conversion.rejected"
	ActionPayoutCreated          = "payout.created"
	ActionPayoutProcessing       = "payout.processing"
	ActionPayoutPaid             = "payout.paid"
	ActionSettingsUpdated        = "settings.updated"
)
