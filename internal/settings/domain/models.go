package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Settings is the per-org affiliate program configuration.
type Settings struct {
	OrgID          snowflake.ID    `gorm:"primaryKey;autoIncrement:false" json:"-"`
	Enabled        bool            `gorm:"not null" json:"enabled"`
	CommissionRate decimal.Decimal `gorm:"type:numeric(7,4);not null" json:"commissionRate"`
	CookieDays     int             `gorm:"not null" json:"cookieDays"`
	MinPayout      decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"minPayout"`
	PayoutDay      int             `gorm:"not null" json:"payoutDay"`
	AutoApprove    bool            `gorm:"not null" json:"autoApprove"`
	TermsURL       *string         `json:"termsUrl,omitempty"`
	UpdatedAt      time.Time       `gorm:"not null" json:"updatedAt"`
}

func (Settings) TableName() string { return "affiliate_program_settings" }

// CookieWindow is the attribution window derived from CookieDays.
func (s Settings) CookieWindow() time.Duration {
	return time.Duration(s.CookieDays) * 24 * time.Hour
}
