package metrics

import (
	"sort"

	"github.com/shopspring/decimal"

	"trading-journal-go/internal/journal"
)

var hundred = decimal.NewFromInt(100)

// AggregateStats summarizes a set of trades. Every field is zero for an empty set.
type AggregateStats struct {
	TotalTrades       int             `json:"total_trades"`
	WinCount          int             `json:"win_count"`
	LossCount         int             `json:"loss_count"`
	BreakevenCount    int             `json:"breakeven_count"`
	WinRate           decimal.Decimal `json:"win_rate"`
	GrossProfit       decimal.Decimal `json:"gross_profit"`
	GrossLoss         decimal.Decimal `json:"gross_loss"`
	ProfitFactor      decimal.Decimal `json:"profit_factor"`
	AverageWin        decimal.Decimal `json:"average_win"`
	AverageLoss       decimal.Decimal `json:"average_loss"`
	AverageRealizedRR decimal.Decimal `json:"average_rr"`
	NetPnL            decimal.Decimal `json:"net_pnl"`
	NetPnLPercent     decimal.Decimal `json:"net_pnl_percent"`
	MaxWin            decimal.Decimal `json:"max_win"`
	MaxLoss           decimal.Decimal `json:"max_loss"`
	TotalCommission   decimal.Decimal `json:"total_commission"`
}

// StreakStats holds the longest chronological runs of wins and losses.
type StreakStats struct {
	MaxConsecutiveWins   int `json:"max_consecutive_wins"`
	MaxConsecutiveLosses int `json:"max_consecutive_losses"`
}

// Summary bundles both views for callers that want everything at once.
type Summary struct {
	Aggregate AggregateStats `json:"aggregate"`
	Streaks   StreakStats    `json:"streaks"`
}

// Aggregate computes order-independent statistics over trades. NetPnLPercent is
// relative to referenceBalance and is zero when the balance is not positive.
func Aggregate(trades []journal.Trade, referenceBalance decimal.Decimal) AggregateStats {
	var s AggregateStats
	s.TotalTrades = len(trades)

	for _, t := range trades {
		s.NetPnL = s.NetPnL.Add(t.PnL)
		s.TotalCommission = s.TotalCommission.Add(t.Costs())

		switch journal.Classify(t.PnL) {
		case journal.Win:
			s.WinCount++
			s.GrossProfit = s.GrossProfit.Add(t.PnL)
			if t.PnL.GreaterThan(s.MaxWin) {
				s.MaxWin = t.PnL
			}
		case journal.Loss:
			s.LossCount++
			s.GrossLoss = s.GrossLoss.Add(t.PnL.Abs())
			if t.PnL.LessThan(s.MaxLoss) {
				s.MaxLoss = t.PnL
			}
		default:
			s.BreakevenCount++
		}
	}

	if s.TotalTrades > 0 {
		s.WinRate = ratio(decimal.NewFromInt(int64(s.WinCount)).Mul(hundred), decimal.NewFromInt(int64(s.TotalTrades)))
	}
	if s.WinCount > 0 {
		s.AverageWin = ratio(s.GrossProfit, decimal.NewFromInt(int64(s.WinCount)))
	}
	if s.LossCount > 0 {
		s.AverageLoss = ratio(s.GrossLoss, decimal.NewFromInt(int64(s.LossCount)))
	}

	switch {
	case s.GrossLoss.Sign() > 0:
		s.ProfitFactor = ratio(s.GrossProfit, s.GrossLoss)
	case s.GrossProfit.Sign() > 0:
		// No losses: report gross profit rather than an infinite factor.
		s.ProfitFactor = s.GrossProfit
	}

	if s.AverageLoss.Sign() > 0 {
		s.AverageRealizedRR = ratio(s.AverageWin, s.AverageLoss)
	}
	if referenceBalance.Sign() > 0 {
		s.NetPnLPercent = ratio(s.NetPnL.Mul(hundred), referenceBalance)
	}

	return s
}

// Streaks walks trades in chronological order and returns the longest win and
// loss runs. A breakeven trade ends both runs.
func Streaks(trades []journal.Trade) StreakStats {
	ordered := make([]journal.Trade, len(trades))
	copy(ordered, trades)
	sort.SliceStable(ordered, func(i, j int) bool {
		return journal.NormalizeTime(ordered[i].Timestamp).Before(journal.NormalizeTime(ordered[j].Timestamp))
	})

	var s StreakStats
	wins, losses := 0, 0
	for _, t := range ordered {
		switch journal.Classify(t.PnL) {
		case journal.Win:
			wins++
			losses = 0
		case journal.Loss:
			losses++
			wins = 0
		default:
			wins, losses = 0, 0
		}
		s.MaxConsecutiveWins = max(s.MaxConsecutiveWins, wins)
		s.MaxConsecutiveLosses = max(s.MaxConsecutiveLosses, losses)
	}
	return s
}

// Summarize runs Aggregate and Streaks over the same trades.
func Summarize(trades []journal.Trade, referenceBalance decimal.Decimal) Summary {
	return Summary{
		Aggregate: Aggregate(trades, referenceBalance),
		Streaks:   Streaks(trades),
	}
}

func ratio(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.Div(den).Round(journal.RatioPlaces)
}
