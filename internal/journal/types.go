package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies who funds an account.
type AccountType string

const (
	AccountPersonal  AccountType = "Personal"
	AccountFunding   AccountType = "Funding"
	AccountChallenge AccountType = "Challenge"
)

// ParseAccountType accepts the canonical names plus the aliases older clients send.
func ParseAccountType(s string) (AccountType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "personal":
		return AccountPersonal, nil
	case "funding", "funded", "prop", "prop-firm", "propfirm":
		return AccountFunding, nil
	case "challenge":
		return AccountChallenge, nil
	}
	return "", fmt.Errorf("unknown account type %q", s)
}

// Direction is the side a position was opened on.
type Direction string

const (
	Long  Direction = "Long"
	Short Direction = "Short"
)

// ParseDirection accepts Long/Short and the Buy/Sell spellings brokers export.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long", "buy":
		return Long, nil
	case "short", "sell":
		return Short, nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

// Sign is +1 for Long and -1 for Short.
func (d Direction) Sign() int64 {
	if d == Short {
		return -1
	}
	return 1
}

// ExitReason records why a position was closed.
type ExitReason string

const (
	ExitTakeProfit ExitReason = "TakeProfit"
	ExitStopLoss   ExitReason = "StopLoss"
	ExitBreakEven  ExitReason = "BreakEven"
	ExitManual     ExitReason = "Manual"
)

// ParseExitReason maps free text onto an ExitReason. An empty value means Manual.
func ParseExitReason(s string) (ExitReason, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "")) {
	case "", "manual":
		return ExitManual, nil
	case "takeprofit", "tp":
		return ExitTakeProfit, nil
	case "stoploss", "sl":
		return ExitStopLoss, nil
	case "breakeven", "be":
		return ExitBreakEven, nil
	}
	return "", fmt.Errorf("unknown exit reason %q", s)
}

// Result is the outcome classification of a trade.
type Result string

const (
	Win       Result = "Win"
	Loss      Result = "Loss"
	Breakeven Result = "Breakeven"
)

// Account is a trading account trades are logged against.
// Balance is the initial balance and the denominator for ROI.
type Account struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Type               AccountType     `json:"type"`
	Balance            decimal.Decimal `json:"balance"`
	Firm               string          `json:"firm,omitempty"`
	DailyDrawdownLimit decimal.Decimal `json:"daily_drawdown_limit"`
	CreatedAt          time.Time       `json:"created_at"`
}

// Trade is a single logged operation. Result, realized R:R and ROI are not
// stored on it; use Derive.
type Trade struct {
	ID            string           `json:"id"`
	AccountID     string           `json:"account_id"`
	AccountName   string           `json:"account"`
	Timestamp     time.Time        `json:"timestamp"`
	Symbol        string           `json:"symbol"`
	Direction     Direction        `json:"direction"`
	EntryPrice    *decimal.Decimal `json:"entry_price,omitempty"`
	ExitPrice     *decimal.Decimal `json:"exit_price,omitempty"`
	PositionSize  decimal.Decimal  `json:"position_size"`
	LotSize       *decimal.Decimal `json:"lot_size,omitempty"`
	Pips          *decimal.Decimal `json:"pips,omitempty"`
	Risk          decimal.Decimal  `json:"risk"`
	PnL           decimal.Decimal  `json:"pnl"`
	Commission    decimal.Decimal  `json:"commission"`
	ExtraFees     decimal.Decimal  `json:"extra_fees"`
	ExitReason    ExitReason       `json:"exit_reason"`
	Tags          []string         `json:"tags"`
	Notes         string           `json:"notes,omitempty"`
	ScreenshotURL string           `json:"screenshot_url,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// Costs is commission plus extra fees.
func (t Trade) Costs() decimal.Decimal {
	return t.Commission.Add(t.ExtraFees)
}
