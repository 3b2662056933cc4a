package backup

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"trading-journal-go/internal/journal"
)

// CurrentVersion is written into every new snapshot.
const CurrentVersion = 2

type (
	AccountEntry = journal.Account
	TradeEntry   = journal.Trade
)

// Snapshot is the full contents of one owner's journal as written to a backup
// file. Derived trade values (rr, roi, result) found in older files are ignored
// on decode and recomputed when read.
type Snapshot struct {
	Version    int            `json:"version"`
	ExportedAt time.Time      `json:"exported_at"`
	Accounts   []AccountEntry `json:"accounts"`
	Trades     []TradeEntry   `json:"trades"`
}

// New builds a snapshot stamped with at.
func New(accounts []journal.Account, trades []journal.Trade, at time.Time) Snapshot {
	if accounts == nil {
		accounts = []journal.Account{}
	}
	if trades == nil {
		trades = []journal.Trade{}
	}
	return Snapshot{
		Version:    CurrentVersion,
		ExportedAt: at.UTC(),
		Accounts:   accounts,
		Trades:     trades,
	}
}

// Encode writes s as indented JSON.
func Encode(w io.Writer, s Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	return nil
}

// Decode reads a snapshot, normalizes it and checks it with Validate. Files
// without a version field use the legacy camelCase layout.
func Decode(r io.Reader) (Snapshot, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read backup: %w", err)
	}
	var header struct {
		Version *int `json:"version"`
	}
	if err := json.Unmarshal(raw, &header); err != nil {
		return Snapshot{}, unreadable(err)
	}

	var s Snapshot
	if header.Version == nil {
		if s, err = decodeLegacy(raw); err != nil {
			return Snapshot{}, err
		}
	} else if err := json.Unmarshal(raw, &s); err != nil {
		return Snapshot{}, unreadable(err)
	}

	if s, err = s.Normalize(); err != nil {
		return Snapshot{}, err
	}
	if err := s.Validate(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// Normalize returns a copy of s in canonical form: UTC timestamps, upper-case
// symbols and canonical enum spellings. Unknown directions, exit reasons and
// account types are rejected.
func (s Snapshot) Normalize() (Snapshot, error) {
	out := s
	out.Accounts = make([]AccountEntry, len(s.Accounts))
	for i, a := range s.Accounts {
		t, err := journal.ParseAccountType(string(a.Type))
		if err != nil {
			return Snapshot{}, invalidf(fmt.Sprintf("accounts[%d].type", i), "%v", err)
		}
		a.Type = t
		a.Name = strings.TrimSpace(a.Name)
		a.CreatedAt = journal.NormalizeTime(a.CreatedAt)
		out.Accounts[i] = a
	}

	out.Trades = make([]TradeEntry, len(s.Trades))
	for i, t := range s.Trades {
		dir, err := journal.ParseDirection(string(t.Direction))
		if err != nil {
			return Snapshot{}, invalidf(fmt.Sprintf("trades[%d].direction", i), "%v", err)
		}
		reason, err := journal.ParseExitReason(string(t.ExitReason))
		if err != nil {
			return Snapshot{}, invalidf(fmt.Sprintf("trades[%d].exit_reason", i), "%v", err)
		}
		t.Direction, t.ExitReason = dir, reason
		t.Symbol = strings.ToUpper(strings.TrimSpace(t.Symbol))
		t.Timestamp = journal.NormalizeTime(t.Timestamp)
		t.CreatedAt = journal.NormalizeTime(t.CreatedAt)
		if t.Tags == nil {
			t.Tags = []string{}
		}
		out.Trades[i] = t
	}
	return out, nil
}

// Validate checks ids are present and unique, balances are positive and every
// trade references an account in the snapshot.
func (s Snapshot) Validate() error {
	accounts := make(map[string]struct{}, len(s.Accounts))
	for i, a := range s.Accounts {
		if a.ID == "" {
			return invalidf(fmt.Sprintf("accounts[%d].id", i), "is required")
		}
		if _, dup := accounts[a.ID]; dup {
			return invalidf(fmt.Sprintf("accounts[%d].id", i), "duplicates %s", a.ID)
		}
		if a.Balance.Sign() <= 0 {
			return invalidf(fmt.Sprintf("accounts[%d].balance", i), "must be greater than zero")
		}
		accounts[a.ID] = struct{}{}
	}

	trades := make(map[string]struct{}, len(s.Trades))
	for i, t := range s.Trades {
		if t.ID == "" {
			return invalidf(fmt.Sprintf("trades[%d].id", i), "is required")
		}
		if _, dup := trades[t.ID]; dup {
			return invalidf(fmt.Sprintf("trades[%d].id", i), "duplicates %s", t.ID)
		}
		if _, ok := accounts[t.AccountID]; !ok {
			return invalidf(fmt.Sprintf("trades[%d].account_id", i), "references unknown account %q", t.AccountID)
		}
		trades[t.ID] = struct{}{}
	}
	return nil
}

func unreadable(err error) error {
	return &journal.ValidationError{Field: "backup", Reason: fmt.Sprintf("unreadable file: %v", err)}
}

func invalidf(field, format string, args ...any) error {
	return &journal.ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
