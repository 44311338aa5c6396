package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusRejected  Status = "REJECTED"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusActive, StatusRejected},
	StatusActive:    {StatusSuspended},
	StatusSuspended: {StatusActive},
}

func ParseStatus(value string) (Status, bool) {
	switch s := Status(value); s {
	case StatusPending, StatusActive, StatusSuspended, StatusRejected:
		return s, true
	}
	return "", false
}

// CanTransition reports whether an affiliate may move from s to next.
// Self-transitions are not allowed.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Affiliate struct {
	ID              snowflake.ID        `gorm:"primaryKey;autoIncrement:false" json:"id"`
	OrgID           snowflake.ID        `gorm:"not null;uniqueIndex:ux_affiliates_org_email,priority:1;uniqueIndex:ux_affiliates_org_code,priority:1" json:"-"`
	Name            string              `gorm:"not null" json:"name"`
	Email           string              `gorm:"not null;uniqueIndex:ux_affiliates_org_email,priority:2" json:"email"`
	Phone           *string             `json:"phone,omitempty"`
	Document        *string             `json:"document,omitempty"`
	ReferralCode    string              `gorm:"not null;uniqueIndex:ux_affiliates_org_code,priority:2" json:"referralCode"`
	CommissionRate  decimal.NullDecimal `gorm:"type:numeric(7,4)" json:"commissionRate"`
	PixKey          *string             `json:"pixKey,omitempty"`
	Status          Status              `gorm:"type:varchar(16);not null;index" json:"status"`
	TotalClicks     int64               `gorm:"not null;default:0" json:"totalClicks"`
	TotalOrders     int64               `gorm:"not null;default:0" json:"totalOrders"`
	TotalRevenue    decimal.Decimal     `gorm:"type:numeric(20,2);not null;default:0" json:"totalRevenue"`
	TotalCommission decimal.Decimal     `gorm:"type:numeric(20,2);not null;default:0" json:"totalCommission"`
	Notes           *string             `json:"notes,omitempty"`
	CreatedAt       time.Time           `gorm:"not null" json:"createdAt"`
	UpdatedAt       time.Time           `gorm:"not null" json:"updatedAt"`
}

func (Affiliate) TableName() string { return "affiliates" }
