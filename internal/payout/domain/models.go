package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusPaid       Status = "PAID"
)

func ParseStatus(value string) (Status, bool) {
	switch s := Status(value); s {
	case StatusPending, StatusProcessing, StatusPaid:
		return s, true
	}
	return "", false
}

type Method string

const (
	MethodPix          Method = "PIX"
	MethodBankTransfer Method = "BANK_TRANSFER"
	MethodOther        Method = "OTHER"
)

func ParseMethod(value string) (Method, bool) {
	switch m := Method(value); m {
	case MethodPix, MethodBankTransfer, MethodOther:
		return m, true
	}
	return "", false
}

type Payout struct {
	ID           snowflake.ID    `gorm:"primaryKey;autoIncrement:false" json:"id"`
	OrgID        snowflake.ID    `gorm:"not null;index:ix_affiliate_payouts_affiliate,priority:1" json:"-"`
	AffiliateID  snowflake.ID    `gorm:"not null;index:ix_affiliate_payouts_affiliate,priority:2" json:"affiliateId"`
	Amount       decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	Method       Method          `gorm:"type:varchar(16);not null" json:"method"`
	Reference    *string         `json:"reference,omitempty"`
	Notes        *string         `json:"notes,omitempty"`
	Status       Status          `gorm:"type:varchar(16);not null;index" json:"status"`
	ProcessingAt *time.Time      `json:"processingAt,omitempty"`
	PaidAt       *time.Time      `json:"paidAt,omitempty"`
	CreatedAt    time.Time       `gorm:"not null" json:"createdAt"`
	UpdatedAt    time.Time       `gorm:"not null" json:"updatedAt"`
}

func (Payout) TableName() string { return "affiliate_payouts" }

// Balance is an affiliate's commission position reconstructed from the
// conversion and payout ledgers. Reserved covers PENDING and PROCESSING
// payouts.
type Balance struct {
	AffiliateID snowflake.ID    `json:"affiliateId"`
	Approved    decimal.Decimal `json:"approved"`
	Reserved    decimal.Decimal `json:"reserved"`
	Paid        decimal.Decimal `json:"paid"`
	Available   decimal.Decimal `json:"available"`
}

// Statement is a rendered payout statement document.
type Statement struct {
	Filename    string
	ContentType string
	Content     []byte
}
