package journal

import (
	"strings"

	"github.com/shopspring/decimal"
)

// RatioPlaces is the precision ratios and percentages are rounded to.
const RatioPlaces = 8

var hundred = decimal.NewFromInt(100)

// pipMultipliers is checked in order; the first substring found in the symbol wins.
var pipMultipliers = []struct {
	substr     string
	multiplier decimal.Decimal
}{
	{"JPY", decimal.NewFromInt(100)},
}

var defaultPipMultiplier = decimal.NewFromInt(10000)

// Derived holds the values computed from a trade and a reference balance.
type Derived struct {
	Result      Result           `json:"result"`
	RealizedRR  decimal.Decimal  `json:"rr"`
	ROI         decimal.Decimal  `json:"roi"`
	PipDistance *decimal.Decimal `json:"pip_distance,omitempty"`
	NetPnL      decimal.Decimal  `json:"net_pnl"`
}

// TradeView is a trade together with its derived values.
type TradeView struct {
	Trade
	Derived
}

// Classify returns Win for positive pnl, Loss for negative and Breakeven for zero.
func Classify(pnl decimal.Decimal) Result {
	switch pnl.Sign() {
	case 1:
		return Win
	case -1:
		return Loss
	}
	return Breakeven
}

// RealizedRR is |pnl|/risk signed by the outcome. A non-positive risk yields 0.
func RealizedRR(pnl, risk decimal.Decimal) decimal.Decimal {
	if risk.Sign() <= 0 {
		return decimal.Zero
	}
	rr := pnl.Abs().Div(risk)
	if pnl.Sign() < 0 {
		rr = rr.Neg()
	}
	return rr.Round(RatioPlaces)
}

// ROI is pnl as a percentage of balance. A non-positive balance yields 0.
func ROI(pnl, balance decimal.Decimal) decimal.Decimal {
	if balance.Sign() <= 0 {
		return decimal.Zero
	}
	return pnl.Div(balance).Mul(hundred).Round(RatioPlaces)
}

// PipMultiplier returns 100 for pairs quoted to two decimals (JPY) and 10000 otherwise.
func PipMultiplier(symbol string) decimal.Decimal {
	s := strings.ToUpper(symbol)
	for _, m := range pipMultipliers {
		if strings.Contains(s, m.substr) {
			return m.multiplier
		}
	}
	return defaultPipMultiplier
}

// PipDistance is (exit - entry) * direction sign * pip multiplier.
func PipDistance(symbol string, dir Direction, entry, exit decimal.Decimal) decimal.Decimal {
	return exit.Sub(entry).
		Mul(decimal.NewFromInt(dir.Sign())).
		Mul(PipMultiplier(symbol)).
		Round(RatioPlaces)
}

// EstimateCommission is lotSize * ratePerLot. It is an estimate and must not
// replace a commission the user entered.
func EstimateCommission(lotSize, ratePerLot decimal.Decimal) decimal.Decimal {
	return lotSize.Mul(ratePerLot)
}

// Derive computes the derived values of t against referenceBalance.
func Derive(t Trade, referenceBalance decimal.Decimal) Derived {
	d := Derived{
		Result:      Classify(t.PnL),
		RealizedRR:  RealizedRR(t.PnL, t.Risk),
		ROI:         ROI(t.PnL, referenceBalance),
		NetPnL:      t.PnL.Sub(t.Costs()),
		PipDistance: t.Pips,
	}
	if d.PipDistance == nil && t.EntryPrice != nil && t.ExitPrice != nil {
		p := PipDistance(t.Symbol, t.Direction, *t.EntryPrice, *t.ExitPrice)
		d.PipDistance = &p
	}
	return d
}

// View pairs t with its derived values.
func View(t Trade, referenceBalance decimal.Decimal) TradeView {
	return TradeView{Trade: t, Derived: Derive(t, referenceBalance)}
}
