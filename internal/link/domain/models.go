package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Link struct {
	ID               snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	OrgID            snowflake.ID `gorm:"not null;uniqueIndex:ux_affiliate_links_org_slug,priority:1" json:"-"`
	AffiliateID      snowflake.ID `gorm:"not null;index" json:"affiliateId"`
	Slug             string       `gorm:"not null;uniqueIndex:ux_affiliate_links_org_slug,priority:2" json:"slug"`
	DestinationURL   string       `gorm:"column:destination_url;not null" json:"destinationUrl"`
	UTMSource        *string      `gorm:"column:utm_source" json:"utmSource,omitempty"`
	UTMMedium        *string      `gorm:"column:utm_medium" json:"utmMedium,omitempty"`
	UTMCampaign      *string      `gorm:"column:utm_campaign" json:"utmCampaign,omitempty"`
	TotalClicks      int64        `gorm:"not null;default:0" json:"totalClicks"`
	TotalConversions int64        `gorm:"not null;default:0" json:"totalConversions"`
	Active           bool         `gorm:"not null" json:"active"`
	CreatedAt        time.Time    `gorm:"not null" json:"createdAt"`
	UpdatedAt        time.Time    `gorm:"not null" json:"updatedAt"`
}

func (Link) TableName() string { return "affiliate_links" }

// Click is one resolved visit to a tracked link. Rows are append-only.
type Click struct {
	ID          string       `gorm:"primaryKey;type:varchar(26)" json:"id"`
	OrgID       snowflake.ID `gorm:"not null;index:ix_affiliate_clicks_link,priority:1" json:"-"`
	LinkID      snowflake.ID `gorm:"not null;index:ix_affiliate_clicks_link,priority:2" json:"linkId"`
	AffiliateID snowflake.ID `gorm:"not null;index" json:"affiliateId"`
	VisitorHash string       `gorm:"type:varchar(64);not null" json:"visitorHash"`
	Referrer    *string      `json:"referrer,omitempty"`
	ClickedAt   time.Time    `gorm:"not null;index:ix_affiliate_clicks_link,priority:3" json:"clickedAt"`
}

func (Click) TableName() string { return "affiliate_clicks" }

// Visitor describes the shopper following a link.
type Visitor struct {
	IP        string
	UserAgent string
	Referrer  string
}

// ClickResult is returned by a successful click resolution.
type ClickResult struct {
	Link        Link      `json:"link"`
	RedirectURL string    `json:"redirectUrl"`
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expiresAt"`
	MaxAge      int       `json:"-"`
}
