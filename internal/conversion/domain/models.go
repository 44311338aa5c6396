package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

func ParseStatus(value string) (Status, bool) {
	switch s := Status(value); s {
	case StatusPending, StatusApproved, StatusRejected:
		return s, true
	}
	return "", false
}

// Source records how a conversion was attributed.
type Source string

const (
	SourceManual       Source = "MANUAL"
	SourceToken        Source = "TOKEN"
	SourceReferralCode Source = "REFERRAL_CODE"
)

type Conversion struct {
	ID               snowflake.ID    `gorm:"primaryKey;autoIncrement:false" json:"id"`
	OrgID            snowflake.ID    `gorm:"not null;uniqueIndex:ux_affiliate_conversions_org_order,priority:1" json:"-"`
	AffiliateID      snowflake.ID    `gorm:"not null;index" json:"affiliateId"`
	LinkID           *snowflake.ID   `json:"linkId,omitempty"`
	OrderID          string          `gorm:"not null;uniqueIndex:ux_affiliate_conversions_org_order,priority:2" json:"orderId"`
	OrderAmount      decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"orderAmount"`
	CommissionRate   decimal.Decimal `gorm:"type:numeric(7,4);not null" json:"commissionRate"`
	CommissionAmount decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"commissionAmount"`
	Status           Status          `gorm:"type:varchar(16);not null;index" json:"status"`
	Source           Source          `gorm:"type:varchar(16);not null" json:"source"`
	RejectionReason  *string         `json:"rejectionReason,omitempty"`
	AttributedAt     *time.Time      `json:"attributedAt,omitempty"`
	ApprovedAt       *time.Time      `json:"approvedAt,omitempty"`
	RejectedAt       *time.Time      `json:"rejectedAt,omitempty"`
	CreatedAt        time.Time       `gorm:"not null" json:"createdAt"`
	UpdatedAt        time.Time       `gorm:"not null" json:"updatedAt"`
}

func (Conversion) TableName() string { return "affiliate_conversions" }

// OrderResult is the outcome of processing a completed order.
type OrderResult struct {
	Attributed bool        `json:"attributed"`
	Source     Source      `json:"source,omitempty"`
	Conversion *Conversion `json:"conversion,omitempty"`
}
