package backup

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"trading-journal-go/internal/journal"
)

// Unversioned backups carry camelCase keys, the instrument as pair, the
// trade time as date and tags as one comma separated string. Their derived
// rr, roi and result values are dropped.
type legacyFile struct {
	Accounts []legacyAccount `json:"accounts"`
	Trades   []legacyTrade   `json:"trades"`
}

type legacyAccount struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Balance   decimal.Decimal `json:"balance"`
	Firm      string          `json:"firm"`
	CreatedAt time.Time       `json:"createdAt"`
}

type legacyTrade struct {
	ID            string          `json:"id"`
	AccountID     string          `json:"accountId"`
	Date          time.Time       `json:"date"`
	Pair          string          `json:"pair"`
	Direction     string          `json:"direction"`
	EntrySizeUSD  decimal.Decimal `json:"entrySizeUSD"`
	Risk          decimal.Decimal `json:"risk"`
	PnL           decimal.Decimal `json:"pnl"`
	Tags          *string         `json:"tags"`
	Notes         *string         `json:"notes"`
	ScreenshotURL *string         `json:"screenshotUrl"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func decodeLegacy(raw []byte) (Snapshot, error) {
	var f legacyFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return Snapshot{}, unreadable(err)
	}
	if f.Accounts == nil || f.Trades == nil {
		return Snapshot{}, invalidf("backup", "accounts and trades are required")
	}

	accounts := make([]journal.Account, 0, len(f.Accounts))
	for _, a := range f.Accounts {
		accounts = append(accounts, journal.Account{
			ID:        a.ID,
			Name:      a.Name,
			Type:      journal.AccountType(a.Type),
			Balance:   a.Balance,
			Firm:      a.Firm,
			CreatedAt: a.CreatedAt,
		})
	}

	trades := make([]journal.Trade, 0, len(f.Trades))
	for _, t := range f.Trades {
		trades = append(trades, journal.Trade{
			ID:            t.ID,
			AccountID:     t.AccountID,
			Timestamp:     t.Date,
			Symbol:        t.Pair,
			Direction:     journal.Direction(t.Direction),
			PositionSize:  t.EntrySizeUSD,
			Risk:          t.Risk,
			PnL:           t.PnL,
			Tags:          journal.SplitTags(deref(t.Tags)),
			Notes:         deref(t.Notes),
			ScreenshotURL: deref(t.ScreenshotURL),
			CreatedAt:     t.CreatedAt,
		})
	}

	return Snapshot{Accounts: accounts, Trades: trades}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
