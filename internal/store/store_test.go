package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trading-journal-go/internal/backup"
	"trading-journal-go/internal/journal"
	"trading-journal-go/internal/models"
)

// MockRepository is a mock implementation of Repository.
type MockRepository struct {
	mock.Mock
}

var _ Repository = (*MockRepository)(nil)

func (m *MockRepository) ListAccounts(ctx context.Context) ([]models.AccountRecord, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.AccountRecord), args.Error(1)
}

func (m *MockRepository) ListTrades(ctx context.Context) ([]models.TradeRecord, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.TradeRecord), args.Error(1)
}

func (m *MockRepository) CreateAccount(ctx context.Context, draft journal.AccountDraft) (models.AccountRecord, error) {
	args := m.Called(ctx, draft)
	return args.Get(0).(models.AccountRecord), args.Error(1)
}

func (m *MockRepository) DeleteAccount(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRepository) CreateTrade(ctx context.Context, draft journal.TradeDraft) (models.TradeRecord, error) {
	args := m.Called(ctx, draft)
	if fn, ok := args.Get(0).(func(journal.TradeDraft) models.TradeRecord); ok {
		return fn(draft), args.Error(1)
	}
	return args.Get(0).(models.TradeRecord), args.Error(1)
}

func (m *MockRepository) DeleteTrade(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRepository) FindAccountByName(ctx context.Context, name string) (models.AccountRecord, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(models.AccountRecord), args.Error(1)
}

func (m *MockRepository) ReplaceAll(ctx context.Context, accounts []models.AccountRecord, trades []models.TradeRecord) error {
	return m.Called(ctx, accounts, trades).Error(0)
}

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func accountRec(id, name string, balance int64) models.AccountRecord {
	return models.AccountRecord{ID: id, Name: name, Type: "Personal", Balance: decimal.NewFromInt(balance)}
}

func tradeRec(id, accountID string, hoursAgo int, pnl int64) models.TradeRecord {
	return models.TradeRecord{
		ID:        id,
		AccountID: accountID,
		Timestamp: t0.Add(-time.Duration(hoursAgo) * time.Hour),
		Symbol:    "EURUSD",
		Direction: "Long",
		Risk:      decimal.NewFromInt(50),
		PnL:       decimal.NewFromInt(pnl),
		Tags:      " london, a+ ",
	}
}

// recordFromDraft plays the repository's part in CreateTrade.
func recordFromDraft(id string, account models.AccountRecord) func(journal.TradeDraft) models.TradeRecord {
	return func(d journal.TradeDraft) models.TradeRecord {
		return models.TradeRecord{
			ID:         id,
			AccountID:  account.ID,
			Account:    &account,
			Timestamp:  d.Timestamp,
			Symbol:     d.Symbol,
			Direction:  string(d.Direction),
			Risk:       d.Risk,
			PnL:        d.PnL,
			Commission: d.Commission,
			ExitReason: string(d.ExitReason),
			Tags:       journal.JoinTags(d.Tags),
		}
	}
}

func newTestStore(repo Repository) *Store {
	return New(repo, Options{MentorWindow: 20, Now: func() time.Time { return t0 }}, zap.NewNop())
}

// loadedStore returns a store holding two accounts and three trades.
func loadedStore(t *testing.T) (*Store, *MockRepository) {
	repo := new(MockRepository)
	repo.On("ListAccounts", mock.Anything).Return([]models.AccountRecord{
		accountRec("acc-1", "Main", 10000),
		accountRec("acc-2", "FTMO", 100000),
	}, nil).Once()
	repo.On("ListTrades", mock.Anything).Return([]models.TradeRecord{
		tradeRec("tr-3", "acc-2", 1, -40),
		tradeRec("tr-1", "acc-1", 30, 100),
		tradeRec("tr-2", "acc-1", 5, 250),
	}, nil).Once()

	s := newTestStore(repo)
	require.NoError(t, s.FetchAll(context.Background()))
	return s, repo
}

func ids(trades []journal.Trade) []string {
	out := make([]string, 0, len(trades))
	for _, t := range trades {
		out = append(out, t.ID)
	}
	return out
}

func TestStore_FetchAll(t *testing.T) {
	// Arrange / Act
	s, repo := loadedStore(t)

	// Assert
	trades := s.Trades()
	assert.Equal(t, []string{"tr-3", "tr-2", "tr-1"}, ids(trades), "most recent first")
	assert.Equal(t, "FTMO", trades[0].AccountName)
	assert.Equal(t, []string{"london", "a+"}, trades[0].Tags)
	assert.Len(t, s.Accounts(), 2)
	assert.Equal(t, AllAccounts, s.SelectedAccountID())
	repo.AssertExpectations(t)
}

func TestStore_FetchAll_AccountsFailure(t *testing.T) {
	// Arrange
	repo := new(MockRepository)
	repo.On("ListAccounts", mock.Anything).Return([]models.AccountRecord(nil), fmt.Errorf("list accounts: %w", journal.ErrTransient))
	joined := accountRec("acc-1", "Joined Name", 10000)
	withJoin := tradeRec("tr-1", "acc-1", 1, 100)
	withJoin.Account = &joined
	repo.On("ListTrades", mock.Anything).Return([]models.TradeRecord{withJoin, tradeRec("tr-2", "acc-9", 2, -5)}, nil)
	s := newTestStore(repo)

	// Act
	err := s.FetchAll(context.Background())

	// Assert
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Error(t, fetchErr.Accounts)
	assert.NoError(t, fetchErr.Trades)
	assert.ErrorIs(t, err, journal.ErrTransient)

	trades := s.Trades()
	require.Len(t, trades, 2)
	assert.Equal(t, "Joined Name", trades[0].AccountName)
	assert.Equal(t, "Unknown", trades[1].AccountName)
	assert.Empty(t, s.Accounts())
}

func TestStore_FetchAll_FailureKeepsPriorState(t *testing.T) {
	// Arrange
	s, repo := loadedStore(t)
	repo.On("ListAccounts", mock.Anything).Return([]models.AccountRecord{accountRec("acc-1", "Main", 10000)}, nil).Once()
	repo.On("ListTrades", mock.Anything).Return([]models.TradeRecord(nil), errors.New("connection reset")).Once()

	// Act
	err := s.FetchAll(context.Background())

	// Assert
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.NoError(t, fetchErr.Accounts)
	assert.Len(t, s.Trades(), 3, "trades kept from the previous fetch")
	assert.Len(t, s.Accounts(), 1, "accounts replaced by the successful half")
}

type gateKey struct{}

// gatedRepo blocks ListTrades for contexts carrying a gate until it is closed.
type gatedRepo struct {
	*MockRepository
	entered chan struct{}
	stale   []models.TradeRecord
}

func (g *gatedRepo) ListTrades(ctx context.Context) ([]models.TradeRecord, error) {
	if gate, ok := ctx.Value(gateKey{}).(chan struct{}); ok {
		g.entered <- struct{}{}
		<-gate
		return g.stale, nil
	}
	return g.MockRepository.ListTrades(ctx)
}

func TestStore_FetchAll_LatestIssuedWins(t *testing.T) {
	// Arrange
	mockRepo := new(MockRepository)
	mockRepo.On("ListAccounts", mock.Anything).Return([]models.AccountRecord{accountRec("acc-1", "Main", 10000)}, nil)
	mockRepo.On("ListTrades", mock.Anything).Return([]models.TradeRecord{tradeRec("fresh", "acc-1", 1, 10)}, nil)
	repo := &gatedRepo{
		MockRepository: mockRepo,
		entered:        make(chan struct{}),
		stale:          []models.TradeRecord{tradeRec("stale", "acc-1", 2, 20)},
	}
	s := newTestStore(repo)

	gate := make(chan struct{})
	firstDone := make(chan error, 1)
	go func() {
		firstDone <- s.FetchAll(context.WithValue(context.Background(), gateKey{}, gate))
	}()
	<-repo.entered

	// Act
	secondErr := s.FetchAll(context.Background())
	close(gate)
	firstErr := <-firstDone

	// Assert
	assert.NoError(t, secondErr)
	assert.ErrorIs(t, firstErr, ErrSuperseded)
	assert.Equal(t, []string{"fresh"}, ids(s.Trades()))
}

func TestStore_AddTrade_RoundTrip(t *testing.T) {
	// Arrange
	s, repo := loadedStore(t)
	main := accountRec("acc-1", "Main", 10000)
	repo.On("CreateTrade", mock.Anything, mock.MatchedBy(func(d journal.TradeDraft) bool {
		return d.AccountID == "acc-1"
	})).Return(recordFromDraft("tr-new", main), nil).Once()

	// Act
	trade, err := s.AddTrade(context.Background(), journal.TradeInput{
		AccountName: "main",
		Symbol:      "gbpusd",
		Direction:   "Long",
		Risk:        "50",
		PnL:         "150",
		Timestamp:   "2025-01-01T10:00:00Z",
	})

	// Assert
	require.NoError(t, err)
	view := journal.View(trade, decimal.NewFromInt(10000))
	assert.Equal(t, journal.Win, view.Result)
	assert.Equal(t, "3", view.RealizedRR.String())
	assert.Equal(t, "tr-new", s.Trades()[0].ID, "new trade is prepended")
	assert.Equal(t, "Main", s.Trades()[0].AccountName)
	assert.Len(t, s.Trades(), 4)
	repo.AssertExpectations(t)
}

func TestStore_AddTrade_FallbackAccount(t *testing.T) {
	// Arrange
	s, repo := loadedStore(t)
	repo.On("FindAccountByName", mock.Anything, "Scratch").
		Return(models.AccountRecord{}, fmt.Errorf("find account: %w", journal.ErrNotFound)).Once()
	fallback := accountRec("acc-new", "Scratch", 10000)
	repo.On("CreateTrade", mock.Anything, mock.MatchedBy(func(d journal.TradeDraft) bool {
		return d.AccountID == "" && d.AccountName == "Scratch"
	})).Return(recordFromDraft("tr-new", fallback), nil).Once()

	// Act
	_, err := s.AddTrade(context.Background(), journal.TradeInput{
		AccountName: "Scratch", Symbol: "EURUSD", Direction: "Short", Risk: "10", PnL: "-10",
	})

	// Assert
	require.NoError(t, err)
	accounts := s.Accounts()
	require.Len(t, accounts, 3)
	assert.Equal(t, "Scratch", accounts[2].Name)
	assert.Equal(t, "Scratch", s.Trades()[0].AccountName)
	repo.AssertExpectations(t)
}

func TestStore_AddTrade_AccountFoundByRepository(t *testing.T) {
	s, repo := loadedStore(t)
	other := accountRec("acc-9", "Elsewhere", 500)
	repo.On("FindAccountByName", mock.Anything, "Elsewhere").Return(other, nil).Once()
	repo.On("CreateTrade", mock.Anything, mock.MatchedBy(func(d journal.TradeDraft) bool {
		return d.AccountID == "acc-9"
	})).Return(recordFromDraft("tr-new", other), nil).Once()

	_, err := s.AddTrade(context.Background(), journal.TradeInput{
		AccountName: "Elsewhere", Symbol: "EURUSD", Direction: "Long", Risk: "10", PnL: "5",
	})

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestStore_AddTrade_EstimatesCommission(t *testing.T) {
	repo := new(MockRepository)
	s := New(repo, Options{CommissionPerLot: decimal.NewFromInt(7)}, zap.NewNop())
	main := accountRec("acc-1", "Main", 10000)
	repo.On("CreateTrade", mock.Anything, mock.MatchedBy(func(d journal.TradeDraft) bool {
		return d.Commission.Equal(decimal.NewFromInt(14)) && d.CommissionEstimated
	})).Return(recordFromDraft("tr-new", main), nil).Once()

	trade, err := s.AddTrade(context.Background(), journal.TradeInput{
		AccountID: "acc-1", Symbol: "EURUSD", Direction: "Long", Risk: "10", PnL: "5", LotSize: "2",
	})

	require.NoError(t, err)
	assert.Equal(t, "14", trade.Commission.String())
	repo.AssertExpectations(t)
}

func TestStore_AddTrade_ValidationLeavesStateUnchanged(t *testing.T) {
	s, repo := loadedStore(t)

	_, err := s.AddTrade(context.Background(), journal.TradeInput{
		AccountID: "acc-1", Symbol: "EURUSD", Direction: "Long", Risk: "fifty", PnL: "5",
	})

	assert.ErrorIs(t, err, journal.ErrValidation)
	assert.Len(t, s.Trades(), 3)
	repo.AssertNotCalled(t, "CreateTrade", mock.Anything, mock.Anything)
}

func TestStore_AddTrade_UnauthorizedLeavesStateUnchanged(t *testing.T) {
	s, repo := loadedStore(t)
	repo.On("CreateTrade", mock.Anything, mock.Anything).
		Return(models.TradeRecord{}, fmt.Errorf("create trade: %w", journal.ErrUnauthorized)).Once()

	_, err := s.AddTrade(context.Background(), journal.TradeInput{
		AccountID: "acc-x", Symbol: "EURUSD", Direction: "Long", Risk: "10", PnL: "5",
	})

	assert.ErrorIs(t, err, journal.ErrUnauthorized)
	assert.Len(t, s.Trades(), 3)
	assert.Len(t, s.Accounts(), 2)
}

func TestStore_AddAccount(t *testing.T) {
	s, repo := loadedStore(t)
	repo.On("CreateAccount", mock.Anything, mock.MatchedBy(func(d journal.AccountDraft) bool {
		return d.Name == "Phase 1" && d.Type == journal.AccountChallenge
	})).Return(models.AccountRecord{ID: "acc-3", Name: "Phase 1", Type: "Challenge", Balance: decimal.NewFromInt(25000), Firm: "FTMO"}, nil).Once()

	account, err := s.AddAccount(context.Background(), journal.AccountInput{
		Name: "Phase 1", Type: "Challenge", Balance: "25000", Firm: "FTMO",
	})

	require.NoError(t, err)
	assert.Equal(t, "acc-3", account.ID)
	assert.Equal(t, "acc-3", s.Accounts()[2].ID, "appended")

	_, err = s.AddAccount(context.Background(), journal.AccountInput{Name: "X", Type: "Personal", Balance: "1"})
	assert.ErrorIs(t, err, journal.ErrValidation)
	assert.Len(t, s.Accounts(), 3)
	repo.AssertExpectations(t)
}

func TestStore_RemoveAccount_Cascades(t *testing.T) {
	// Arrange
	s, repo := loadedStore(t)
	require.NoError(t, s.SelectAccount("acc-1"))
	repo.On("DeleteAccount", mock.Anything, "acc-1").Return(nil).Once()

	// Act
	err := s.RemoveAccount(context.Background(), "acc-1")

	// Assert
	require.NoError(t, err)
	assert.Len(t, s.Accounts(), 1)
	assert.Equal(t, []string{"tr-3"}, ids(s.Trades()))
	assert.Equal(t, AllAccounts, s.SelectedAccountID())
}

func TestStore_RemoveAccount_NotFound(t *testing.T) {
	s, repo := loadedStore(t)
	repo.On("DeleteAccount", mock.Anything, "ghost").Return(fmt.Errorf("delete account: %w", journal.ErrNotFound)).Once()

	err := s.RemoveAccount(context.Background(), "ghost")

	assert.Equal(t, journal.KindNotFound, journal.KindOf(err))
	assert.Len(t, s.Accounts(), 2)
	assert.Len(t, s.Trades(), 3)
}

func TestStore_RemoveTrade(t *testing.T) {
	s, repo := loadedStore(t)
	repo.On("DeleteTrade", mock.Anything, "tr-2").Return(nil).Once()

	require.NoError(t, s.RemoveTrade(context.Background(), "tr-2"))

	assert.Equal(t, []string{"tr-3", "tr-1"}, ids(s.Trades()))
}

func TestStore_ReferenceBalance(t *testing.T) {
	s, _ := loadedStore(t)

	assert.Equal(t, "110000", s.ReferenceBalance().String(), "sum of balances for all accounts")

	require.NoError(t, s.SelectAccount("acc-1"))
	assert.Equal(t, "10000", s.ReferenceBalance().String())

	s.SetReferenceBalanceOverride(decimal.NewFromInt(50000))
	assert.Equal(t, "50000", s.ReferenceBalance().String())

	s.SetReferenceBalanceOverride(decimal.Zero)
	assert.Equal(t, "10000", s.ReferenceBalance().String())

	assert.ErrorIs(t, s.SelectAccount("ghost"), journal.ErrNotFound)
	assert.Equal(t, "acc-1", s.SelectedAccountID())
}

func TestStore_SelectorsFollowSelection(t *testing.T) {
	// Arrange
	s, _ := loadedStore(t)
	require.NoError(t, s.SelectAccount("acc-1"))

	// Act
	stats := s.Stats()
	views := s.TradeViews()
	label, window := s.MentorWindow()

	// Assert
	assert.Equal(t, 2, stats.Aggregate.TotalTrades)
	assert.Equal(t, "350", stats.Aggregate.NetPnL.String())
	assert.Equal(t, "3.5", stats.Aggregate.NetPnLPercent.String())
	assert.Equal(t, 2, stats.Streaks.MaxConsecutiveWins)
	require.Len(t, views, 2)
	assert.Equal(t, "2.5", views[0].ROI.String(), "250 on a 10000 account")
	assert.Equal(t, "Main", label)
	assert.Equal(t, []string{"tr-2", "tr-1"}, ids(window))
}

func TestStore_CalendarViews(t *testing.T) {
	s, _ := loadedStore(t)

	month := s.MonthView(2025, time.March)
	monthly := s.Monthly()
	weekdays := s.Weekdays()

	tradeDays := 0
	for _, c := range month.Cells {
		if c.HasTrades {
			tradeDays++
		}
	}
	assert.Equal(t, 2, tradeDays, "two trades share 10 March")
	require.Len(t, monthly, 1)
	assert.Equal(t, 3, monthly[0].TradeCount)
	assert.Len(t, weekdays, 5)
}

func TestStore_ImportTrades(t *testing.T) {
	s, repo := loadedStore(t)
	main := accountRec("acc-1", "Main", 10000)
	repo.On("CreateTrade", mock.Anything, mock.Anything).Return(recordFromDraft("tr-imp", main), nil).Once()

	report := s.ImportTrades(context.Background(), []journal.TradeInput{
		{AccountID: "acc-1", Symbol: "EURUSD", Direction: "Long", Risk: "10", PnL: "5"},
		{AccountID: "acc-1", Symbol: "", Direction: "Long", Risk: "10", PnL: "5"},
	})

	assert.Equal(t, 1, report.Imported)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, 1, report.Failed[0].Index)
	assert.Equal(t, "validation", report.Failed[0].Kind)
}

func TestStore_BackupAndRestore(t *testing.T) {
	// Arrange
	s, repo := loadedStore(t)
	repo.On("ListAccounts", mock.Anything).Return([]models.AccountRecord{accountRec("acc-1", "Main", 10000)}, nil).Once()
	repo.On("ListTrades", mock.Anything).Return([]models.TradeRecord{tradeRec("tr-1", "acc-1", 1, 10)}, nil).Once()

	// Act
	snap, err := s.Backup(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, backup.CurrentVersion, snap.Version)
	assert.Equal(t, t0, snap.ExportedAt)
	require.Len(t, snap.Trades, 1)
	assert.Equal(t, "Main", snap.Trades[0].AccountName)

	// Restore replaces everything, keeping ids.
	repo.On("ReplaceAll", mock.Anything,
		mock.MatchedBy(func(a []models.AccountRecord) bool { return len(a) == 1 && a[0].ID == "acc-1" }),
		mock.MatchedBy(func(tr []models.TradeRecord) bool { return len(tr) == 1 && tr[0].ID == "tr-1" }),
	).Return(nil).Once()

	require.NoError(t, s.Restore(context.Background(), snap))
	assert.Equal(t, []string{"tr-1"}, ids(s.Trades()))
	assert.Len(t, s.Accounts(), 1)
	repo.AssertExpectations(t)
}

func TestStore_Restore_RejectsInvalidSnapshot(t *testing.T) {
	s, repo := loadedStore(t)
	snap := backup.New(nil, []journal.Trade{{ID: "t", AccountID: "missing"}}, t0)

	err := s.Restore(context.Background(), snap)

	assert.ErrorIs(t, err, journal.ErrValidation)
	assert.Len(t, s.Trades(), 3)
	repo.AssertNotCalled(t, "ReplaceAll", mock.Anything, mock.Anything, mock.Anything)
}

func TestStore_Restore_NormalizesRows(t *testing.T) {
	s, repo := loadedStore(t)
	snap := backup.New(
		[]journal.Account{{ID: "a", Name: "A", Type: "funded", Balance: decimal.NewFromInt(1000)}},
		[]journal.Trade{{ID: "t", AccountID: "a", Timestamp: t0, Symbol: "xauusd", Direction: "sell", Risk: decimal.NewFromInt(10), PnL: decimal.NewFromInt(5)}},
		t0,
	)
	repo.On("ReplaceAll", mock.Anything,
		mock.MatchedBy(func(a []models.AccountRecord) bool { return len(a) == 1 && a[0].Type == "Funding" }),
		mock.MatchedBy(func(tr []models.TradeRecord) bool {
			return len(tr) == 1 && tr[0].Symbol == "XAUUSD" && tr[0].Direction == "Short" && tr[0].ExitReason == "Manual"
		}),
	).Return(nil).Once()

	err := s.Restore(context.Background(), snap)

	require.NoError(t, err)
	require.Len(t, s.Trades(), 1)
	assert.Equal(t, "XAUUSD", s.Trades()[0].Symbol)
	repo.AssertExpectations(t)
}

func TestStore_Restore_PersistenceFailure(t *testing.T) {
	s, repo := loadedStore(t)
	snap := backup.New([]journal.Account{{ID: "a", Name: "A", Type: journal.AccountPersonal, Balance: decimal.NewFromInt(1)}}, nil, t0)
	repo.On("ReplaceAll", mock.Anything, mock.Anything, mock.Anything).Return(fmt.Errorf("replace all: %w", journal.ErrTransient)).Once()

	err := s.Restore(context.Background(), snap)

	assert.ErrorIs(t, err, journal.ErrTransient)
	assert.Len(t, s.Accounts(), 2, "memory untouched when persistence fails")
}
