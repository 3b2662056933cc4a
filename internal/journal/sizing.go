package journal

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Approximate value of one pip for one standard lot, in account currency.
// Quote-currency conversion is not modelled.
var pipValues = []struct {
	substr string
	value  decimal.Decimal
}{
	{"JPY", decimal.NewFromInt(7)},
	{"CHF", decimal.NewFromInt(11)},
}

var defaultPipValue = decimal.NewFromInt(10)

// PipValue returns the per-lot pip value used by LotSize.
func PipValue(symbol string) decimal.Decimal {
	s := strings.ToUpper(symbol)
	for _, v := range pipValues {
		if strings.Contains(s, v.substr) {
			return v.value
		}
	}
	return defaultPipValue
}

// LotSize returns the position size in lots that risks riskPercent of balance
// over a stop of stopPips, rounded to two decimals.
func LotSize(balance, riskPercent, stopPips decimal.Decimal, symbol string) (decimal.Decimal, error) {
	switch {
	case balance.Sign() <= 0:
		return decimal.Zero, invalid("balance", "must be greater than zero")
	case riskPercent.Sign() <= 0:
		return decimal.Zero, invalid("risk_percent", "must be greater than zero")
	case stopPips.Sign() <= 0:
		return decimal.Zero, invalid("stop_pips", "must be greater than zero")
	}
	riskAmount := balance.Mul(riskPercent).Div(hundred)
	return riskAmount.Div(stopPips.Mul(PipValue(symbol))).Round(2), nil
}
