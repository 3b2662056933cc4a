package metrics

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-journal-go/internal/journal"
)

var day0 = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

// tradesFromPnL builds one trade per value, an hour apart, in the given order.
func tradesFromPnL(values ...string) []journal.Trade {
	trades := make([]journal.Trade, 0, len(values))
	for i, v := range values {
		trades = append(trades, journal.Trade{
			ID:        string(rune('a' + i)),
			Timestamp: day0.Add(time.Duration(i) * time.Hour),
			Symbol:    "EURUSD",
			Direction: journal.Long,
			Risk:      decimal.NewFromInt(50),
			PnL:       decimal.RequireFromString(v),
		})
	}
	return trades
}

func asJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestAggregate_Empty(t *testing.T) {
	s := Aggregate(nil, decimal.NewFromInt(10000))

	assert.Equal(t, 0, s.TotalTrades)
	assert.Equal(t, 0, s.WinCount+s.LossCount+s.BreakevenCount)
	for _, v := range []decimal.Decimal{
		s.WinRate, s.GrossProfit, s.GrossLoss, s.ProfitFactor, s.AverageWin,
		s.AverageLoss, s.AverageRealizedRR, s.NetPnL, s.NetPnLPercent,
		s.MaxWin, s.MaxLoss, s.TotalCommission,
	} {
		assert.True(t, v.IsZero())
	}
}

func TestAggregate_Mixed(t *testing.T) {
	// Arrange
	trades := tradesFromPnL("100", "-50", "-30", "200", "-10", "0")
	trades[0].Commission = decimal.NewFromInt(7)
	trades[3].ExtraFees = decimal.RequireFromString("1.5")

	// Act
	s := Aggregate(trades, decimal.NewFromInt(10000))

	// Assert
	assert.Equal(t, 6, s.TotalTrades)
	assert.Equal(t, 2, s.WinCount)
	assert.Equal(t, 3, s.LossCount)
	assert.Equal(t, 1, s.BreakevenCount)
	assert.Equal(t, "33.33333333", s.WinRate.String())
	assert.Equal(t, "300", s.GrossProfit.String())
	assert.Equal(t, "90", s.GrossLoss.String())
	assert.Equal(t, "3.33333333", s.ProfitFactor.String())
	assert.Equal(t, "150", s.AverageWin.String())
	assert.Equal(t, "30", s.AverageLoss.String())
	assert.Equal(t, "5", s.AverageRealizedRR.String())
	assert.Equal(t, "210", s.NetPnL.String())
	assert.Equal(t, "2.1", s.NetPnLPercent.String())
	assert.Equal(t, "200", s.MaxWin.String())
	assert.Equal(t, "-50", s.MaxLoss.String())
	assert.Equal(t, "8.5", s.TotalCommission.String())
}

func TestAggregate_ProfitFactorPolicy(t *testing.T) {
	testCases := []struct {
		name     string
		pnl      []string
		expected string
	}{
		{name: "All wins reports gross profit", pnl: []string{"100", "50"}, expected: "150"},
		{name: "All losses is zero", pnl: []string{"-100", "-50"}, expected: "0"},
		{name: "Only breakevens is zero", pnl: []string{"0", "0"}, expected: "0"},
		{name: "Single win", pnl: []string{"42"}, expected: "42"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := Aggregate(tradesFromPnL(tc.pnl...), decimal.Zero)

			assert.Equal(t, tc.expected, s.ProfitFactor.String())
			assert.True(t, s.ProfitFactor.Sign() >= 0)
			assert.True(t, s.NetPnLPercent.IsZero())
		})
	}
}

func TestAggregate_PartitionsEveryTrade(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for n := 1; n <= 50; n++ {
		values := make([]string, n)
		for i := range values {
			values[i] = decimal.NewFromInt(int64(rng.Intn(401) - 200)).String()
		}

		s := Aggregate(tradesFromPnL(values...), decimal.NewFromInt(5000))

		assert.Equal(t, n, s.WinCount+s.LossCount+s.BreakevenCount)
		assert.True(t, s.ProfitFactor.Sign() >= 0)
	}
}

func TestAggregate_ShuffleInvariant(t *testing.T) {
	// Arrange
	trades := tradesFromPnL("100.25", "-50.5", "-30", "200", "-10.125", "0", "75.3")
	balance := decimal.NewFromInt(25000)
	expected := asJSON(t, Aggregate(trades, balance))
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 20; i++ {
		shuffled := make([]journal.Trade, len(trades))
		copy(shuffled, trades)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		// Act / Assert
		assert.JSONEq(t, expected, asJSON(t, Aggregate(shuffled, balance)))
	}
}

func TestStreaks_Scenario(t *testing.T) {
	s := Streaks(tradesFromPnL("100", "-50", "-30", "200", "-10"))

	assert.Equal(t, 1, s.MaxConsecutiveWins)
	assert.Equal(t, 2, s.MaxConsecutiveLosses)
}

func TestStreaks_SortsChronologically(t *testing.T) {
	// Arrange: same scenario, stored most-recent-first as the store keeps it.
	trades := tradesFromPnL("100", "-50", "-30", "200", "-10")
	for i, j := 0, len(trades)-1; i < j; i, j = i+1, j-1 {
		trades[i], trades[j] = trades[j], trades[i]
	}

	// Act
	s := Streaks(trades)

	// Assert
	assert.Equal(t, 1, s.MaxConsecutiveWins)
	assert.Equal(t, 2, s.MaxConsecutiveLosses)
	assert.Equal(t, "-10", trades[0].PnL.String(), "input must not be reordered")
}

func TestStreaks_BreakevenResetsBothRuns(t *testing.T) {
	s := Streaks(tradesFromPnL("10", "10", "0", "10", "-5", "0", "-5", "-5"))

	assert.Equal(t, 2, s.MaxConsecutiveWins)
	assert.Equal(t, 2, s.MaxConsecutiveLosses)
}

func TestStreaks_TiesKeepInputOrder(t *testing.T) {
	trades := tradesFromPnL("10", "-5", "10")
	for i := range trades {
		trades[i].Timestamp = day0
	}

	s := Streaks(trades)

	assert.Equal(t, 1, s.MaxConsecutiveWins)
	assert.Equal(t, 1, s.MaxConsecutiveLosses)
}

func TestStreaks_Idempotent(t *testing.T) {
	trades := tradesFromPnL("5", "6", "-1", "0", "-2", "-3", "-4", "9")

	first := Streaks(trades)
	second := Streaks(trades)

	assert.Equal(t, first, second)
	assert.Equal(t, StreakStats{MaxConsecutiveWins: 2, MaxConsecutiveLosses: 3}, first)
}

func TestStreaks_Empty(t *testing.T) {
	assert.Equal(t, StreakStats{}, Streaks(nil))
}

func TestSummarize(t *testing.T) {
	trades := tradesFromPnL("250")

	s := Summarize(trades, decimal.NewFromInt(10000))

	assert.Equal(t, "2.5", s.Aggregate.NetPnLPercent.String())
	assert.Equal(t, 1, s.Streaks.MaxConsecutiveWins)
}
