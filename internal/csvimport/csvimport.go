package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"trading-journal-go/internal/journal"
)

// DefaultNotes is used for rows without a comment column value.
const DefaultNotes = "Imported via CSV"

// Row is one trade read from a file, in the same raw form a form submits.
type Row = journal.TradeInput

// RowError reports a data row that could not be mapped. Line is 1-based and
// counts the header.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

type column int

const (
	colSymbol column = iota
	colDirection
	colPnL
	colLot
	colCommission
	colDate
	colNotes
	colRisk
	colEntry
	colExit
	colExitReason
	colTags
)

// headerAliases maps lower-cased header names from common broker exports.
var headerAliases = map[string]column{
	"symbol":      colSymbol,
	"pair":        colSymbol,
	"instrument":  colSymbol,
	"type":        colDirection,
	"direction":   colDirection,
	"side":        colDirection,
	"profit":      colPnL,
	"p/l":         colPnL,
	"pnl":         colPnL,
	"amount":      colPnL,
	"size":        colLot,
	"lot":         colLot,
	"volume":      colLot,
	"quantity":    colLot,
	"commission":  colCommission,
	"comm":        colCommission,
	"fee":         colCommission,
	"date":        colDate,
	"time":        colDate,
	"comment":     colNotes,
	"notes":       colNotes,
	"risk":        colRisk,
	"entry":       colEntry,
	"entry price": colEntry,
	"open price":  colEntry,
	"exit":        colExit,
	"exit price":  colExit,
	"close price": colExit,
	"exit reason": colExitReason,
	"tags":        colTags,
}

// Parse reads a CSV export with a header row. Values missing from a row are
// taken from defaults, which is where the target account and a default risk go.
// Rows are not validated here; they go through the same path as manual entries.
func Parse(r io.Reader, defaults Row) ([]Row, []RowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, &journal.ValidationError{Field: "csv", Reason: "file is empty"}
	}
	if err != nil {
		return nil, nil, &journal.ValidationError{Field: "csv", Reason: err.Error()}
	}

	index := make(map[column]int)
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if c, ok := headerAliases[key]; ok {
			if _, seen := index[c]; !seen {
				index[c] = i
			}
		}
	}
	if _, ok := index[colSymbol]; !ok {
		return nil, nil, &journal.ValidationError{Field: "csv", Reason: "no Symbol, Pair or Instrument column"}
	}

	var rows []Row
	var rowErrs []RowError
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Reason: err.Error()})
			continue
		}
		if blank(record) {
			continue
		}

		get := func(c column) string {
			i, ok := index[c]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		symbol := get(colSymbol)
		if symbol == "" {
			rowErrs = append(rowErrs, RowError{Line: line, Reason: "missing symbol"})
			continue
		}

		row := defaults
		row.Symbol = strings.ToUpper(symbol)
		row.Direction = direction(get(colDirection))
		row.PnL = or(get(colPnL), or(defaults.PnL, "0"))
		row.Risk = or(get(colRisk), or(defaults.Risk, "0"))
		row.LotSize = or(get(colLot), defaults.LotSize)
		row.Commission = absolute(or(get(colCommission), defaults.Commission))
		row.Timestamp = or(get(colDate), defaults.Timestamp)
		row.Notes = or(get(colNotes), or(defaults.Notes, DefaultNotes))
		row.EntryPrice = or(get(colEntry), defaults.EntryPrice)
		row.ExitPrice = or(get(colExit), defaults.ExitPrice)
		row.ExitReason = or(get(colExitReason), defaults.ExitReason)
		row.Tags = or(get(colTags), defaults.Tags)
		rows = append(rows, row)
	}

	return rows, rowErrs, nil
}

// direction reads Short from anything mentioning short or sell; everything else is Long.
func direction(s string) string {
	s = strings.ToLower(s)
	if strings.Contains(s, "short") || strings.Contains(s, "sell") {
		return string(journal.Short)
	}
	return string(journal.Long)
}

// absolute makes a numeric commission non-negative. Unparseable values are left
// for validation to reject.
func absolute(s string) string {
	if s == "" {
		return s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return s
	}
	return d.Abs().String()
}

func or(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
