package mentor

import (
	"encoding/json"
	"fmt"
	"strings"

	"trading-journal-go/internal/journal"
)

// MaxWindow is the most trades ever sent for one review.
const MaxWindow = 20

// Window returns the first n trades of a most-recent-first list, capped at MaxWindow.
func Window(trades []journal.Trade, n int) []journal.Trade {
	if n <= 0 || n > MaxWindow {
		n = MaxWindow
	}
	if len(trades) < n {
		n = len(trades)
	}
	out := make([]journal.Trade, n)
	copy(out, trades[:n])
	return out
}

type promptTrade struct {
	Date       string         `json:"date"`
	Pair       string         `json:"pair"`
	Direction  string         `json:"direction"`
	Result     journal.Result `json:"result"`
	PnL        string         `json:"pnl"`
	Risk       string         `json:"risk"`
	EntryPrice string         `json:"entry_price,omitempty"`
	ExitPrice  string         `json:"exit_price,omitempty"`
	ExitReason string         `json:"exit_reason"`
	Notes      string         `json:"notes,omitempty"`
}

const promptTemplate = `You are an experienced forex trading mentor and risk manager.
Review the recent trades below from the account %q.

Trades (most recent first):
%s

Write a short, direct review with three parts:
1. **Psychology**: signs of revenge trading, oversizing after losses or hesitation.
2. **Performance**: win rate measured against realized risk:reward.
3. **Next session**: two or three concrete points to work on.

Answer in Markdown, bold the key points and stay under 200 words.`

// BuildPrompt renders the review request for trades.
func BuildPrompt(label string, trades []journal.Trade) (string, error) {
	rows := make([]promptTrade, 0, len(trades))
	for _, t := range trades {
		row := promptTrade{
			Date:       journal.NormalizeTime(t.Timestamp).Format("2006-01-02 15:04"),
			Pair:       t.Symbol,
			Direction:  string(t.Direction),
			Result:     journal.Classify(t.PnL),
			PnL:        t.PnL.String(),
			Risk:       t.Risk.String(),
			ExitReason: string(t.ExitReason),
			Notes:      t.Notes,
		}
		if t.EntryPrice != nil {
			row.EntryPrice = t.EntryPrice.String()
		}
		if t.ExitPrice != nil {
			row.ExitPrice = t.ExitPrice.String()
		}
		rows = append(rows, row)
	}

	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode trades: %w", err)
	}
	return fmt.Sprintf(promptTemplate, label, data), nil
}

// PlainText drops Markdown bold markers for displays that cannot render them.
func PlainText(markdown string) string {
	return strings.ReplaceAll(markdown, "**", "")
}
