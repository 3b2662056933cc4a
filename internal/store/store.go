package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"trading-journal-go/internal/calendar"
	"trading-journal-go/internal/journal"
	"trading-journal-go/internal/mentor"
	"trading-journal-go/internal/metrics"
	"trading-journal-go/internal/models"
)

// AllAccounts selects every account.
const AllAccounts = "ALL"

// Repository is the persistence boundary the store mutates through. All calls
// are scoped to one owner by the implementation.
type Repository interface {
	ListAccounts(ctx context.Context) ([]models.AccountRecord, error)
	ListTrades(ctx context.Context) ([]models.TradeRecord, error)
	CreateAccount(ctx context.Context, draft journal.AccountDraft) (models.AccountRecord, error)
	DeleteAccount(ctx context.Context, id string) error
	CreateTrade(ctx context.Context, draft journal.TradeDraft) (models.TradeRecord, error)
	DeleteTrade(ctx context.Context, id string) error
	FindAccountByName(ctx context.Context, name string) (models.AccountRecord, error)
	ReplaceAll(ctx context.Context, accounts []models.AccountRecord, trades []models.TradeRecord) error
}

// Options tunes a Store.
type Options struct {
	CommissionPerLot decimal.Decimal
	BaseAccountSize  decimal.Decimal
	MentorWindow     int
	Now              func() time.Time
}

// Store is the in-memory journal of one session. Trades are kept most recent
// first. Mutations only touch memory after the repository confirmed them.
type Store struct {
	repo     Repository
	log      *zap.Logger
	defaults journal.Defaults
	window   int
	now      func() time.Time

	mu        sync.RWMutex
	accounts  []journal.Account
	trades    []journal.Trade
	selected  string
	override  decimal.Decimal
	issued    uint64
	published uint64
}

// New creates an empty store. Call FetchAll to load it.
func New(repo Repository, opts Options, log *zap.Logger) *Store {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		repo:     repo,
		log:      log.Named("store"),
		defaults: journal.Defaults{CommissionPerLot: opts.CommissionPerLot, Now: now},
		window:   opts.MentorWindow,
		now:      now,
		accounts: []journal.Account{},
		trades:   []journal.Trade{},
		selected: AllAccounts,
		override: opts.BaseAccountSize,
	}
}

// Accounts returns a copy of the loaded accounts.
func (s *Store) Accounts() []journal.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]journal.Account(nil), s.accounts...)
}

// Trades returns a copy of all loaded trades, most recent first.
func (s *Store) Trades() []journal.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]journal.Trade(nil), s.trades...)
}

// SelectAccount narrows the visible trades to one account, or to all with AllAccounts.
func (s *Store) SelectAccount(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" || id == AllAccounts {
		s.selected = AllAccounts
		return nil
	}
	if s.accountLocked(id) == nil {
		return journal.ErrNotFound
	}
	s.selected = id
	return nil
}

// SelectedAccountID returns the selected account id or AllAccounts.
func (s *Store) SelectedAccountID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// SetReferenceBalanceOverride sets the what-if account size used for ROI. Zero
// or a negative value turns it off.
func (s *Store) SetReferenceBalanceOverride(balance decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if balance.Sign() < 0 {
		balance = decimal.Zero
	}
	s.override = balance
}

// ReferenceBalance is the balance percentages are taken against: the override
// when set, the selected account's balance, or the sum of all balances.
func (s *Store) ReferenceBalance() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.referenceBalanceLocked()
}

func (s *Store) referenceBalanceLocked() decimal.Decimal {
	if s.override.Sign() > 0 {
		return s.override
	}
	if s.selected != AllAccounts {
		if a := s.accountLocked(s.selected); a != nil {
			return a.Balance
		}
		return decimal.Zero
	}
	total := decimal.Zero
	for _, a := range s.accounts {
		total = total.Add(a.Balance)
	}
	return total
}

// VisibleTrades returns the trades of the selected account, most recent first.
func (s *Store) VisibleTrades() []journal.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.visibleLocked()
}

func (s *Store) visibleLocked() []journal.Trade {
	out := make([]journal.Trade, 0, len(s.trades))
	for _, t := range s.trades {
		if s.selected == AllAccounts || t.AccountID == s.selected {
			out = append(out, t)
		}
	}
	return out
}

// TradeViews returns the visible trades with derived values. Each trade's ROI
// uses the override when set, else its own account's balance.
func (s *Store) TradeViews() []journal.TradeView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	visible := s.visibleLocked()
	views := make([]journal.TradeView, 0, len(visible))
	for _, t := range visible {
		views = append(views, journal.View(t, s.tradeBalanceLocked(t)))
	}
	return views
}

// View derives t the way TradeViews does.
func (s *Store) View(t journal.Trade) journal.TradeView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return journal.View(t, s.tradeBalanceLocked(t))
}

func (s *Store) tradeBalanceLocked(t journal.Trade) decimal.Decimal {
	if s.override.Sign() > 0 {
		return s.override
	}
	if a := s.accountLocked(t.AccountID); a != nil {
		return a.Balance
	}
	return decimal.Zero
}

// Stats summarizes the visible trades against ReferenceBalance.
func (s *Store) Stats() metrics.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return metrics.Summarize(s.visibleLocked(), s.referenceBalanceLocked())
}

// MonthView lays out the visible trades of one month.
func (s *Store) MonthView(year int, month time.Month) calendar.Month {
	return calendar.MonthView(s.VisibleTrades(), year, month)
}

// Weekdays buckets the visible trades by weekday.
func (s *Store) Weekdays() []calendar.WeekdayBucket {
	return calendar.Weekdays(s.VisibleTrades())
}

// Monthly buckets the visible trades by month.
func (s *Store) Monthly() []calendar.MonthBucket {
	return calendar.Monthly(s.VisibleTrades())
}

// MentorWindow returns the label and recent trades a review should cover.
func (s *Store) MentorWindow() (string, []journal.Trade) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	label := "All accounts"
	if a := s.accountLocked(s.selected); a != nil {
		label = a.Name
	}
	return label, mentor.Window(s.visibleLocked(), s.window)
}

func (s *Store) accountLocked(id string) *journal.Account {
	for i := range s.accounts {
		if s.accounts[i].ID == id {
			return &s.accounts[i]
		}
	}
	return nil
}

func (s *Store) accountByNameLocked(name string) *journal.Account {
	for i := range s.accounts {
		if strings.EqualFold(s.accounts[i].Name, name) {
			return &s.accounts[i]
		}
	}
	return nil
}
