package calendar

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"trading-journal-go/internal/journal"
)

// Weeks start on Sunday: a month whose 1st is a Wednesday gets three blank cells.

// DayCell is one square of the month grid. Blank cells pad the first week.
type DayCell struct {
	Blank      bool            `json:"blank"`
	Day        int             `json:"day,omitempty"`
	TradeCount int             `json:"trade_count"`
	PnL        decimal.Decimal `json:"pnl"`
	HasTrades  bool            `json:"has_trades"`
}

// Month is the day grid for one calendar month.
type Month struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Cells []DayCell  `json:"cells"`
}

// WeekdayBucket totals trades taken on one weekday across all months.
type WeekdayBucket struct {
	Weekday    time.Weekday    `json:"weekday"`
	Label      string          `json:"label"`
	TradeCount int             `json:"trade_count"`
	PnL        decimal.Decimal `json:"pnl"`
}

// MonthBucket totals trades for one year and month.
type MonthBucket struct {
	Year       int             `json:"year"`
	Month      time.Month      `json:"month"`
	Label      string          `json:"label"`
	TradeCount int             `json:"trade_count"`
	PnL        decimal.Decimal `json:"pnl"`
}

// MonthView lays out the trades of year/month on a Sunday-first grid.
func MonthView(trades []journal.Trade, year int, month time.Month) Month {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	days := first.AddDate(0, 1, -1).Day()
	padding := int(first.Weekday())

	cells := make([]DayCell, padding, padding+days)
	for i := range cells {
		cells[i] = DayCell{Blank: true}
	}
	for d := 1; d <= days; d++ {
		cells = append(cells, DayCell{Day: d})
	}

	for _, t := range trades {
		ts := journal.NormalizeTime(t.Timestamp)
		if ts.Year() != year || ts.Month() != month {
			continue
		}
		c := &cells[padding+ts.Day()-1]
		c.TradeCount++
		c.PnL = c.PnL.Add(t.PnL)
		c.HasTrades = true
	}

	return Month{Year: year, Month: month, Cells: cells}
}

// tradingDays are the weekday buckets, in display order. Weekend trades are left
// out of this view since the FX market is closed then.
var tradingDays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

// Weekdays returns five buckets, Monday through Friday.
func Weekdays(trades []journal.Trade) []WeekdayBucket {
	buckets := make([]WeekdayBucket, len(tradingDays))
	index := make(map[time.Weekday]int, len(tradingDays))
	for i, wd := range tradingDays {
		buckets[i] = WeekdayBucket{Weekday: wd, Label: wd.String()}
		index[wd] = i
	}

	for _, t := range trades {
		i, ok := index[journal.NormalizeTime(t.Timestamp).Weekday()]
		if !ok {
			continue
		}
		buckets[i].TradeCount++
		buckets[i].PnL = buckets[i].PnL.Add(t.PnL)
	}
	return buckets
}

// Monthly groups trades by year and month, oldest first. Labels look like "Jan 26".
func Monthly(trades []journal.Trade) []MonthBucket {
	type key struct {
		year  int
		month time.Month
	}
	byMonth := make(map[key]*MonthBucket)
	for _, t := range trades {
		ts := journal.NormalizeTime(t.Timestamp)
		k := key{ts.Year(), ts.Month()}
		b, ok := byMonth[k]
		if !ok {
			b = &MonthBucket{Year: k.year, Month: k.month, Label: ts.Format("Jan 06")}
			byMonth[k] = b
		}
		b.TradeCount++
		b.PnL = b.PnL.Add(t.PnL)
	}

	buckets := make([]MonthBucket, 0, len(byMonth))
	for _, b := range byMonth {
		buckets = append(buckets, *b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Year != buckets[j].Year {
			return buckets[i].Year < buckets[j].Year
		}
		return buckets[i].Month < buckets[j].Month
	})
	return buckets
}
