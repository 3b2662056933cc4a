package store

import (
	"sort"

	"github.com/shopspring/decimal"

	"trading-journal-go/internal/journal"
	"trading-journal-go/internal/models"
)

const unknownAccount = "Unknown"

func accountFromRecord(r models.AccountRecord) journal.Account {
	return journal.Account{
		ID:                 r.ID,
		Name:               r.Name,
		Type:               accountType(r.Type),
		Balance:            r.Balance,
		Firm:               r.Firm,
		DailyDrawdownLimit: r.DailyDrawdownLimit,
		CreatedAt:          journal.NormalizeTime(r.CreatedAt),
	}
}

func accountType(s string) journal.AccountType {
	t, err := journal.ParseAccountType(s)
	if err != nil {
		return journal.AccountPersonal
	}
	return t
}

// tradeFromRecord converts a row. The account name comes from names, then from
// the joined account, then falls back to Unknown.
func tradeFromRecord(r models.TradeRecord, names map[string]string) journal.Trade {
	name, ok := names[r.AccountID]
	if !ok {
		name = unknownAccount
		if r.Account != nil && r.Account.Name != "" {
			name = r.Account.Name
		}
	}

	dir, err := journal.ParseDirection(r.Direction)
	if err != nil {
		dir = journal.Long
	}
	reason, err := journal.ParseExitReason(r.ExitReason)
	if err != nil {
		reason = journal.ExitManual
	}

	return journal.Trade{
		ID:            r.ID,
		AccountID:     r.AccountID,
		AccountName:   name,
		Timestamp:     journal.NormalizeTime(r.Timestamp),
		Symbol:        r.Symbol,
		Direction:     dir,
		EntryPrice:    decimalPtr(r.EntryPrice),
		ExitPrice:     decimalPtr(r.ExitPrice),
		PositionSize:  r.PositionSize,
		LotSize:       decimalPtr(r.LotSize),
		Pips:          decimalPtr(r.Pips),
		Risk:          r.Risk,
		PnL:           r.PnL,
		Commission:    r.Commission,
		ExtraFees:     r.ExtraFees,
		ExitReason:    reason,
		Tags:          journal.SplitTags(r.Tags),
		Notes:         r.Notes,
		ScreenshotURL: r.ScreenshotURL,
		CreatedAt:     journal.NormalizeTime(r.CreatedAt),
	}
}

func accountNames(accounts []journal.Account) map[string]string {
	names := make(map[string]string, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.Name
	}
	return names
}

func accountToRecord(a journal.Account) models.AccountRecord {
	return models.AccountRecord{
		ID:                 a.ID,
		Name:               a.Name,
		Type:               string(a.Type),
		Balance:            a.Balance,
		Firm:               a.Firm,
		DailyDrawdownLimit: a.DailyDrawdownLimit,
		CreatedAt:          a.CreatedAt,
	}
}

func tradeToRecord(t journal.Trade) models.TradeRecord {
	return models.TradeRecord{
		ID:            t.ID,
		AccountID:     t.AccountID,
		Timestamp:     journal.NormalizeTime(t.Timestamp),
		Symbol:        t.Symbol,
		Direction:     string(t.Direction),
		EntryPrice:    nullDecimal(t.EntryPrice),
		ExitPrice:     nullDecimal(t.ExitPrice),
		PositionSize:  t.PositionSize,
		LotSize:       nullDecimal(t.LotSize),
		Pips:          nullDecimal(t.Pips),
		Risk:          t.Risk,
		PnL:           t.PnL,
		Commission:    t.Commission,
		ExtraFees:     t.ExtraFees,
		ExitReason:    string(t.ExitReason),
		Tags:          journal.JoinTags(t.Tags),
		Notes:         t.Notes,
		ScreenshotURL: t.ScreenshotURL,
		CreatedAt:     t.CreatedAt,
	}
}

// sortMostRecentFirst orders trades by timestamp, newest first, keeping the
// input order for equal timestamps.
func sortMostRecentFirst(trades []journal.Trade) {
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].Timestamp.After(trades[j].Timestamp)
	})
}

func decimalPtr(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := n.Decimal
	return &d
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}
