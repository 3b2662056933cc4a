package journal

import (
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
)

var strictPolicy = bluemonday.StrictPolicy()

// SanitizeText strips all markup from user supplied free text. The policy
// escapes the text it keeps, so entities are decoded again afterwards.
func SanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

// SplitTags turns the comma separated boundary form into an ordered tag list.
func SplitTags(s string) []string {
	tags := []string{}
	for _, part := range strings.Split(s, ",") {
		if tag := SanitizeText(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// JoinTags is the inverse of SplitTags.
func JoinTags(tags []string) string {
	return strings.Join(tags, ",")
}

// Defaults carries the configuration trade validation depends on.
type Defaults struct {
	CommissionPerLot decimal.Decimal
	Now              func() time.Time
}

// TradeInput is a trade as submitted by a form or an importer. Numeric fields
// are raw strings; Validate parses them.
type TradeInput struct {
	AccountID     string `json:"account_id"`
	AccountName   string `json:"account"`
	Timestamp     string `json:"timestamp"`
	Symbol        string `json:"symbol"`
	Direction     string `json:"direction"`
	EntryPrice    string `json:"entry_price"`
	ExitPrice     string `json:"exit_price"`
	PositionSize  string `json:"position_size"`
	LotSize       string `json:"lot_size"`
	Pips          string `json:"pips"`
	Risk          string `json:"risk"`
	PnL           string `json:"pnl"`
	Commission    string `json:"commission"`
	ExtraFees     string `json:"extra_fees"`
	ExitReason    string `json:"exit_reason"`
	Tags          string `json:"tags"`
	Notes         string `json:"notes"`
	ScreenshotURL string `json:"screenshot_url"`
}

// TradeDraft is a validated trade not yet persisted.
type TradeDraft struct {
	AccountID           string
	AccountName         string
	Timestamp           time.Time
	Symbol              string
	Direction           Direction
	EntryPrice          *decimal.Decimal
	ExitPrice           *decimal.Decimal
	PositionSize        decimal.Decimal
	LotSize             *decimal.Decimal
	Pips                *decimal.Decimal
	Risk                decimal.Decimal
	PnL                 decimal.Decimal
	Commission          decimal.Decimal
	CommissionEstimated bool
	ExtraFees           decimal.Decimal
	ExitReason          ExitReason
	Tags                []string
	Notes               string
	ScreenshotURL       string
}

// Validate parses and checks every field. Nothing is returned unless the whole
// input is valid.
func (in TradeInput) Validate(d Defaults) (TradeDraft, error) {
	var draft TradeDraft

	draft.AccountID = strings.TrimSpace(in.AccountID)
	draft.AccountName = SanitizeText(in.AccountName)
	if draft.AccountID == "" && draft.AccountName == "" {
		return TradeDraft{}, invalid("account", "an account id or name is required")
	}

	if strings.TrimSpace(in.Timestamp) == "" {
		now := time.Now
		if d.Now != nil {
			now = d.Now
		}
		draft.Timestamp = NormalizeTime(now())
	} else {
		ts, err := ParseTimestamp(in.Timestamp)
		if err != nil {
			return TradeDraft{}, invalid("timestamp", "%v", err)
		}
		draft.Timestamp = ts
	}

	draft.Symbol = strings.ToUpper(strings.TrimSpace(in.Symbol))
	if draft.Symbol == "" {
		return TradeDraft{}, invalid("symbol", "is required")
	}

	dir, err := ParseDirection(in.Direction)
	if err != nil {
		return TradeDraft{}, invalid("direction", "%v", err)
	}
	draft.Direction = dir

	reason, err := ParseExitReason(in.ExitReason)
	if err != nil {
		return TradeDraft{}, invalid("exit_reason", "%v", err)
	}
	draft.ExitReason = reason

	if draft.Risk, err = requiredDecimal("risk", in.Risk); err != nil {
		return TradeDraft{}, err
	}
	if draft.Risk.Sign() < 0 {
		return TradeDraft{}, invalid("risk", "must not be negative")
	}
	if draft.PnL, err = requiredDecimal("pnl", in.PnL); err != nil {
		return TradeDraft{}, err
	}

	if draft.EntryPrice, err = optionalDecimal("entry_price", in.EntryPrice, false); err != nil {
		return TradeDraft{}, err
	}
	if draft.ExitPrice, err = optionalDecimal("exit_price", in.ExitPrice, false); err != nil {
		return TradeDraft{}, err
	}
	if draft.LotSize, err = optionalDecimal("lot_size", in.LotSize, true); err != nil {
		return TradeDraft{}, err
	}
	if draft.Pips, err = optionalDecimal("pips", in.Pips, false); err != nil {
		return TradeDraft{}, err
	}
	size, err := optionalDecimal("position_size", in.PositionSize, true)
	if err != nil {
		return TradeDraft{}, err
	}
	if size != nil {
		draft.PositionSize = *size
	}
	fees, err := optionalDecimal("extra_fees", in.ExtraFees, true)
	if err != nil {
		return TradeDraft{}, err
	}
	if fees != nil {
		draft.ExtraFees = *fees
	}

	commission, err := optionalDecimal("commission", in.Commission, true)
	if err != nil {
		return TradeDraft{}, err
	}
	switch {
	case commission != nil:
		draft.Commission = *commission
	case draft.LotSize != nil && d.CommissionPerLot.Sign() > 0:
		draft.Commission = EstimateCommission(*draft.LotSize, d.CommissionPerLot)
		draft.CommissionEstimated = true
	}

	if draft.Pips == nil && draft.EntryPrice != nil && draft.ExitPrice != nil {
		p := PipDistance(draft.Symbol, draft.Direction, *draft.EntryPrice, *draft.ExitPrice)
		draft.Pips = &p
	}

	draft.Tags = SplitTags(in.Tags)
	draft.Notes = SanitizeText(in.Notes)

	if raw := strings.TrimSpace(in.ScreenshotURL); raw != "" {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return TradeDraft{}, invalid("screenshot_url", "must be an http(s) URL")
		}
		draft.ScreenshotURL = u.String()
	}

	return draft, nil
}

// AccountInput is an account as submitted by a form.
type AccountInput struct {
	Name               string `json:"name"`
	Type               string `json:"type"`
	Balance            string `json:"balance"`
	Firm               string `json:"firm"`
	DailyDrawdownLimit string `json:"daily_drawdown_limit"`
}

// AccountDraft is a validated account not yet persisted.
type AccountDraft struct {
	Name               string
	Type               AccountType
	Balance            decimal.Decimal
	Firm               string
	DailyDrawdownLimit decimal.Decimal
}

// Validate parses and checks the account fields.
func (in AccountInput) Validate() (AccountDraft, error) {
	var draft AccountDraft

	draft.Name = SanitizeText(in.Name)
	if len([]rune(draft.Name)) < 2 {
		return AccountDraft{}, invalid("name", "must be at least 2 characters")
	}

	t, err := ParseAccountType(in.Type)
	if err != nil {
		return AccountDraft{}, invalid("type", "%v", err)
	}
	draft.Type = t

	if draft.Balance, err = requiredDecimal("balance", in.Balance); err != nil {
		return AccountDraft{}, err
	}
	if draft.Balance.Sign() <= 0 {
		return AccountDraft{}, invalid("balance", "must be greater than zero")
	}

	draft.Firm = SanitizeText(in.Firm)
	if draft.Type != AccountPersonal && draft.Firm == "" {
		return AccountDraft{}, invalid("firm", "is required for %s accounts", draft.Type)
	}

	limit, err := optionalDecimal("daily_drawdown_limit", in.DailyDrawdownLimit, true)
	if err != nil {
		return AccountDraft{}, err
	}
	if limit != nil {
		draft.DailyDrawdownLimit = *limit
	}

	return draft, nil
}

func requiredDecimal(field, raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, invalid(field, "is required")
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, invalid(field, "%q is not a number", raw)
	}
	return v, nil
}

func optionalDecimal(field, raw string, nonNegative bool) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, invalid(field, "%q is not a number", raw)
	}
	if nonNegative && v.Sign() < 0 {
		return nil, invalid(field, "must not be negative")
	}
	return &v, nil
}
