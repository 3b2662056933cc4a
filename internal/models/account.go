package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountRecord is a persisted trading account owned by one user.
type AccountRecord struct {
	ID                 string          `gorm:"primaryKey;size:36" json:"id"`
	OwnerID            string          `gorm:"not null;uniqueIndex:idx_owner_name" json:"-"`
	Name               string          `gorm:"not null;uniqueIndex:idx_owner_name" json:"name"`
	Type               string          `gorm:"not null" json:"type"`
	Balance            decimal.Decimal `gorm:"type:text;not null" json:"balance"`
	Firm               string          `json:"firm"`
	DailyDrawdownLimit decimal.Decimal `gorm:"type:text" json:"daily_drawdown_limit"`
	CreatedAt          time.Time       `json:"created_at"`
}

// OwnedBy reports whether the account belongs to owner.
func (a AccountRecord) OwnedBy(owner string) bool {
	return a.OwnerID == owner
}
