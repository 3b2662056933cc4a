package store

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"trading-journal-go/internal/journal"
	"trading-journal-go/internal/models"
)

// ErrSuperseded is returned by a FetchAll whose results arrived after those of
// a later call. Nothing was published.
var ErrSuperseded = errors.New("fetch superseded by a newer one")

// FetchError reports which half of a FetchAll failed. The other half, if it
// succeeded, was still published.
type FetchError struct {
	Accounts error
	Trades   error
}

func (e *FetchError) Error() string {
	var parts []string
	if e.Accounts != nil {
		parts = append(parts, "accounts: "+e.Accounts.Error())
	}
	if e.Trades != nil {
		parts = append(parts, "trades: "+e.Trades.Error())
	}
	return "fetch failed: " + strings.Join(parts, "; ")
}

// Partial reports whether one half was still loaded.
func (e *FetchError) Partial() bool {
	return e.Accounts == nil || e.Trades == nil
}

func (e *FetchError) Unwrap() []error {
	var errs []error
	if e.Accounts != nil {
		errs = append(errs, e.Accounts)
	}
	if e.Trades != nil {
		errs = append(errs, e.Trades)
	}
	return errs
}

// FetchAll loads accounts and trades concurrently and publishes both results
// together. A collection whose fetch failed keeps its previous contents. When
// calls overlap the most recently issued one wins.
func (s *Store) FetchAll(ctx context.Context) error {
	s.mu.Lock()
	s.issued++
	seq := s.issued
	s.mu.Unlock()

	var (
		wg          sync.WaitGroup
		accountRecs []models.AccountRecord
		tradeRecs   []models.TradeRecord
		accountsErr error
		tradesErr   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		accountRecs, accountsErr = s.repo.ListAccounts(ctx)
	}()
	go func() {
		defer wg.Done()
		tradeRecs, tradesErr = s.repo.ListTrades(ctx)
	}()
	wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq < s.published {
		s.log.Debug("Discarding stale fetch", zap.Uint64("seq", seq), zap.Uint64("published", s.published))
		return ErrSuperseded
	}
	s.published = seq

	if accountsErr == nil {
		accounts := make([]journal.Account, 0, len(accountRecs))
		for _, r := range accountRecs {
			accounts = append(accounts, accountFromRecord(r))
		}
		s.accounts = accounts
		if s.selected != AllAccounts && s.accountLocked(s.selected) == nil {
			s.selected = AllAccounts
		}
	}
	if tradesErr == nil {
		names := accountNames(s.accounts)
		trades := make([]journal.Trade, 0, len(tradeRecs))
		for _, r := range tradeRecs {
			trades = append(trades, tradeFromRecord(r, names))
		}
		sortMostRecentFirst(trades)
		s.trades = trades
	}

	if accountsErr != nil || tradesErr != nil {
		s.log.Warn("Fetch incomplete", zap.NamedError("accounts", accountsErr), zap.NamedError("trades", tradesErr))
		return &FetchError{Accounts: accountsErr, Trades: tradesErr}
	}
	s.log.Debug("Fetched journal", zap.Int("accounts", len(s.accounts)), zap.Int("trades", len(s.trades)))
	return nil
}
