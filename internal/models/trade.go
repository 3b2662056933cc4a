package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeRecord is a persisted trade row. Result, R:R and ROI are derived on read
// and have no column.
type TradeRecord struct {
	ID            string              `gorm:"primaryKey;size:36" json:"id"`
	OwnerID       string              `gorm:"index;not null" json:"-"`
	AccountID     string              `gorm:"index;size:36;not null" json:"account_id"`
	Account       *AccountRecord      `gorm:"foreignKey:AccountID" json:"account,omitempty"`
	Timestamp     time.Time           `gorm:"index;not null" json:"timestamp"`
	Symbol        string              `gorm:"not null" json:"symbol"`
	Direction     string              `gorm:"not null" json:"direction"` // "Long" or "Short"
	EntryPrice    decimal.NullDecimal `gorm:"type:text" json:"entry_price"`
	ExitPrice     decimal.NullDecimal `gorm:"type:text" json:"exit_price"`
	PositionSize  decimal.Decimal     `gorm:"type:text" json:"position_size"`
	LotSize       decimal.NullDecimal `gorm:"type:text" json:"lot_size"`
	Pips          decimal.NullDecimal `gorm:"type:text" json:"pips"`
	Risk          decimal.Decimal     `gorm:"type:text;not null" json:"risk"`
	PnL           decimal.Decimal     `gorm:"column:pnl;type:text;not null" json:"pnl"`
	Commission    decimal.Decimal     `gorm:"type:text" json:"commission"`
	ExtraFees     decimal.Decimal     `gorm:"type:text" json:"extra_fees"`
	ExitReason    string              `json:"exit_reason"`
	Tags          string              `json:"tags"` // comma separated
	Notes         string              `json:"notes"`
	ScreenshotURL string              `json:"screenshot_url"`
	CreatedAt     time.Time           `json:"created_at"`
}

// OwnedBy reports whether the trade belongs to owner.
func (t TradeRecord) OwnedBy(owner string) bool {
	return t.OwnerID == owner
}
