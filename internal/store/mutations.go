package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"trading-journal-go/internal/backup"
	"trading-journal-go/internal/journal"
	"trading-journal-go/internal/models"
)

// AddTrade validates in, resolves its account and persists it. On success the
// trade is put at the front of the list. If the repository had to create a
// fallback account, that account is added too.
func (s *Store) AddTrade(ctx context.Context, in journal.TradeInput) (journal.Trade, error) {
	draft, err := in.Validate(s.defaults)
	if err != nil {
		return journal.Trade{}, err
	}

	if draft.AccountID == "" {
		s.mu.RLock()
		if a := s.accountByNameLocked(draft.AccountName); a != nil {
			draft.AccountID = a.ID
		}
		s.mu.RUnlock()
	}
	if draft.AccountID == "" {
		rec, err := s.repo.FindAccountByName(ctx, draft.AccountName)
		switch journal.KindOf(err) {
		case journal.KindUnknown:
			if err != nil {
				return journal.Trade{}, fmt.Errorf("resolve account: %w", journal.AsTransient(err))
			}
			draft.AccountID = rec.ID
		case journal.KindNotFound:
			// Left to the repository, which creates the fallback account.
		default:
			return journal.Trade{}, fmt.Errorf("resolve account: %w", err)
		}
	}

	rec, err := s.repo.CreateTrade(ctx, draft)
	if err != nil {
		return journal.Trade{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.Account != nil && s.accountLocked(rec.Account.ID) == nil {
		s.accounts = append(s.accounts, accountFromRecord(*rec.Account))
		s.log.Info("Fallback account added", zap.String("account", rec.Account.Name))
	}
	trade := tradeFromRecord(rec, accountNames(s.accounts))
	s.trades = append([]journal.Trade{trade}, s.trades...)
	return trade, nil
}

// AddAccount validates and persists a new account, then appends it.
func (s *Store) AddAccount(ctx context.Context, in journal.AccountInput) (journal.Account, error) {
	draft, err := in.Validate()
	if err != nil {
		return journal.Account{}, err
	}
	rec, err := s.repo.CreateAccount(ctx, draft)
	if err != nil {
		return journal.Account{}, err
	}

	account := accountFromRecord(rec)
	s.mu.Lock()
	s.accounts = append(s.accounts, account)
	s.mu.Unlock()
	return account, nil
}

// RemoveAccount deletes an account and, with it, its trades.
func (s *Store) RemoveAccount(ctx context.Context, id string) error {
	if err := s.repo.DeleteAccount(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := s.accounts[:0:0]
	for _, a := range s.accounts {
		if a.ID != id {
			accounts = append(accounts, a)
		}
	}
	trades := s.trades[:0:0]
	for _, t := range s.trades {
		if t.AccountID != id {
			trades = append(trades, t)
		}
	}
	s.accounts, s.trades = accounts, trades
	if s.selected == id {
		s.selected = AllAccounts
	}
	return nil
}

// RemoveTrade deletes one trade.
func (s *Store) RemoveTrade(ctx context.Context, id string) error {
	if err := s.repo.DeleteTrade(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	trades := s.trades[:0:0]
	for _, t := range s.trades {
		if t.ID != id {
			trades = append(trades, t)
		}
	}
	s.trades = trades
	return nil
}

// ImportFailure is a row ImportTrades could not add.
type ImportFailure struct {
	Index int    `json:"index"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// ImportReport summarizes an ImportTrades call.
type ImportReport struct {
	Imported int             `json:"imported"`
	Failed   []ImportFailure `json:"failed"`
}

// ImportTrades adds each input through AddTrade. A failing row does not stop the
// rest.
func (s *Store) ImportTrades(ctx context.Context, inputs []journal.TradeInput) ImportReport {
	report := ImportReport{Failed: []ImportFailure{}}
	for i, in := range inputs {
		if _, err := s.AddTrade(ctx, in); err != nil {
			report.Failed = append(report.Failed, ImportFailure{
				Index: i,
				Kind:  journal.KindOf(err).String(),
				Error: err.Error(),
			})
			continue
		}
		report.Imported++
	}
	s.log.Info("Import finished", zap.Int("imported", report.Imported), zap.Int("failed", len(report.Failed)))
	return report
}

// Backup reads the persisted journal and returns it as a snapshot.
func (s *Store) Backup(ctx context.Context) (backup.Snapshot, error) {
	accountRecs, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return backup.Snapshot{}, fmt.Errorf("backup accounts: %w", err)
	}
	tradeRecs, err := s.repo.ListTrades(ctx)
	if err != nil {
		return backup.Snapshot{}, fmt.Errorf("backup trades: %w", err)
	}

	accounts := make([]journal.Account, 0, len(accountRecs))
	for _, r := range accountRecs {
		accounts = append(accounts, accountFromRecord(r))
	}
	names := accountNames(accounts)
	trades := make([]journal.Trade, 0, len(tradeRecs))
	for _, r := range tradeRecs {
		trades = append(trades, tradeFromRecord(r, names))
	}
	sortMostRecentFirst(trades)

	return backup.New(accounts, trades, s.now()), nil
}

// Restore replaces the persisted journal with snap and then replaces memory
// wholesale. A rejected snapshot changes nothing.
func (s *Store) Restore(ctx context.Context, snap backup.Snapshot) error {
	snap, err := snap.Normalize()
	if err != nil {
		return err
	}
	if err := snap.Validate(); err != nil {
		return err
	}

	accountRecs := make([]models.AccountRecord, 0, len(snap.Accounts))
	for _, a := range snap.Accounts {
		accountRecs = append(accountRecs, accountToRecord(a))
	}
	tradeRecs := make([]models.TradeRecord, 0, len(snap.Trades))
	for _, t := range snap.Trades {
		tradeRecs = append(tradeRecs, tradeToRecord(t))
	}
	if err := s.repo.ReplaceAll(ctx, accountRecs, tradeRecs); err != nil {
		return err
	}

	accounts := make([]journal.Account, 0, len(accountRecs))
	for _, r := range accountRecs {
		accounts = append(accounts, accountFromRecord(r))
	}
	names := accountNames(accounts)
	trades := make([]journal.Trade, 0, len(tradeRecs))
	for _, r := range tradeRecs {
		trades = append(trades, tradeFromRecord(r, names))
	}
	sortMostRecentFirst(trades)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts, s.trades = accounts, trades
	s.selected = AllAccounts
	// Fetches started before the restore are stale now.
	s.issued++
	s.published = s.issued
	s.log.Info("Journal restored", zap.Int("accounts", len(accounts)), zap.Int("trades", len(trades)))
	return nil
}
