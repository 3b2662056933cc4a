package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"trading-journal-go/internal/journal"
	"trading-journal-go/internal/models"
)

// DefaultFallbackBalance is the balance of accounts created implicitly when a
// trade names an account that does not exist.
var DefaultFallbackBalance = decimal.NewFromInt(10000)

// Repository persists accounts and trades for a single owner.
type Repository struct {
	db              *gorm.DB
	log             *zap.Logger
	owner           string
	fallbackBalance decimal.Decimal
}

// NewRepository creates a repository with no owner scope. Use ForOwner before
// issuing queries.
func NewRepository(db *gorm.DB, log *zap.Logger) *Repository {
	return &Repository{
		db:              db,
		log:             log.Named("repository"),
		fallbackBalance: DefaultFallbackBalance,
	}
}

// ForOwner returns a copy of r scoped to owner.
func (r *Repository) ForOwner(owner string) *Repository {
	c := *r
	c.owner = owner
	c.log = r.log.With(zap.String("owner", owner))
	return &c
}

// WithFallbackBalance returns a copy of r that creates fallback accounts with balance.
func (r *Repository) WithFallbackBalance(balance decimal.Decimal) *Repository {
	c := *r
	if balance.Sign() > 0 {
		c.fallbackBalance = balance
	}
	return &c
}

// Owner is the id every query is scoped to.
func (r *Repository) Owner() string {
	return r.owner
}

// ListAccounts returns the owner's accounts, oldest first.
func (r *Repository) ListAccounts(ctx context.Context) ([]models.AccountRecord, error) {
	var accounts []models.AccountRecord
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", r.owner).
		Order("created_at asc").
		Find(&accounts).Error
	if err != nil {
		return nil, r.fail("list accounts", err)
	}
	return accounts, nil
}

// ListTrades returns the owner's trades, most recent first, with their account joined.
func (r *Repository) ListTrades(ctx context.Context) ([]models.TradeRecord, error) {
	var trades []models.TradeRecord
	err := r.db.WithContext(ctx).
		Preload("Account").
		Where("owner_id = ?", r.owner).
		Order("timestamp desc").
		Find(&trades).Error
	if err != nil {
		return nil, r.fail("list trades", err)
	}
	return trades, nil
}

// FindAccountByName looks up an account by name, ignoring case, within the
// owner scope.
func (r *Repository) FindAccountByName(ctx context.Context, name string) (models.AccountRecord, error) {
	var account models.AccountRecord
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND LOWER(name) = LOWER(?)", r.owner, name).
		First(&account).Error
	if err != nil {
		return models.AccountRecord{}, r.fail("find account", err)
	}
	return account, nil
}

// CreateAccount inserts a validated account.
func (r *Repository) CreateAccount(ctx context.Context, draft journal.AccountDraft) (models.AccountRecord, error) {
	account := models.AccountRecord{
		ID:                 uuid.NewString(),
		OwnerID:            r.owner,
		Name:               draft.Name,
		Type:               string(draft.Type),
		Balance:            draft.Balance,
		Firm:               draft.Firm,
		DailyDrawdownLimit: draft.DailyDrawdownLimit,
	}
	if err := r.db.WithContext(ctx).Create(&account).Error; err != nil {
		return models.AccountRecord{}, r.fail("create account", err)
	}
	r.log.Info("Account created", zap.String("id", account.ID), zap.String("name", account.Name))
	return account, nil
}

// DeleteAccount removes an account together with its trades.
func (r *Repository) DeleteAccount(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account models.AccountRecord
		if err := r.owned(tx, &account, id); err != nil {
			return err
		}
		res := tx.Where("owner_id = ? AND account_id = ?", r.owner, id).Delete(&models.TradeRecord{})
		if res.Error != nil {
			return res.Error
		}
		if err := tx.Delete(&account).Error; err != nil {
			return err
		}
		r.log.Info("Account deleted", zap.String("id", id), zap.Int64("trades_removed", res.RowsAffected))
		return nil
	})
	if err != nil {
		return r.fail("delete account", err)
	}
	return nil
}

// CreateTrade inserts a validated trade. A draft that only names its account is
// attached to the owner's account of that name, which is created as a Personal
// account with the fallback balance when missing. The returned record has its
// account joined.
func (r *Repository) CreateTrade(ctx context.Context, draft journal.TradeDraft) (models.TradeRecord, error) {
	var trade models.TradeRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := r.resolveAccount(tx, draft)
		if err != nil {
			return err
		}

		trade = tradeRecordFromDraft(draft)
		trade.ID = uuid.NewString()
		trade.OwnerID = r.owner
		trade.AccountID = account.ID
		if err := tx.Omit(clause.Associations).Create(&trade).Error; err != nil {
			return err
		}
		trade.Account = &account
		return nil
	})
	if err != nil {
		return models.TradeRecord{}, r.fail("create trade", err)
	}
	return trade, nil
}

func (r *Repository) resolveAccount(tx *gorm.DB, draft journal.TradeDraft) (models.AccountRecord, error) {
	var account models.AccountRecord
	if draft.AccountID != "" {
		return account, r.owned(tx, &account, draft.AccountID)
	}

	err := tx.Where("owner_id = ? AND LOWER(name) = LOWER(?)", r.owner, draft.AccountName).First(&account).Error
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return account, err
	}

	account = models.AccountRecord{
		ID:      uuid.NewString(),
		OwnerID: r.owner,
		Name:    draft.AccountName,
		Type:    string(journal.AccountPersonal),
		Balance: r.fallbackBalance,
	}
	if err := tx.Create(&account).Error; err != nil {
		return account, err
	}
	r.log.Info("Fallback account created", zap.String("id", account.ID), zap.String("name", account.Name))
	return account, nil
}

// DeleteTrade removes one trade.
func (r *Repository) DeleteTrade(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var trade models.TradeRecord
		if err := r.owned(tx, &trade, id); err != nil {
			return err
		}
		return tx.Delete(&trade).Error
	})
	if err != nil {
		return r.fail("delete trade", err)
	}
	return nil
}

// ReplaceAll swaps the owner's whole dataset for the given rows in one
// transaction. Caller ids are kept so trades still point at their accounts.
func (r *Repository) ReplaceAll(ctx context.Context, accounts []models.AccountRecord, trades []models.TradeRecord) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_id = ?", r.owner).Delete(&models.TradeRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("owner_id = ?", r.owner).Delete(&models.AccountRecord{}).Error; err != nil {
			return err
		}

		for i := range accounts {
			accounts[i].OwnerID = r.owner
			if accounts[i].ID == "" {
				accounts[i].ID = uuid.NewString()
			}
		}
		for i := range trades {
			trades[i].OwnerID = r.owner
			trades[i].Account = nil
			if trades[i].ID == "" {
				trades[i].ID = uuid.NewString()
			}
		}

		if len(accounts) > 0 {
			if err := tx.CreateInBatches(accounts, 100).Error; err != nil {
				return err
			}
		}
		if len(trades) > 0 {
			if err := tx.Omit(clause.Associations).CreateInBatches(trades, 100).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return r.fail("replace all", err)
	}
	r.log.Info("Journal replaced", zap.Int("accounts", len(accounts)), zap.Int("trades", len(trades)))
	return nil
}

// owned loads the row with id into dest and checks it belongs to the owner.
func (r *Repository) owned(tx *gorm.DB, dest interface{ OwnedBy(string) bool }, id string) error {
	if err := tx.Where("id = ?", id).First(dest).Error; err != nil {
		return err
	}
	if !dest.OwnedBy(r.owner) {
		return journal.ErrUnauthorized
	}
	return nil
}

// fail maps gorm and driver errors onto the journal error kinds.
func (r *Repository) fail(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, journal.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		field := "id"
		if op == "create account" {
			field = "name"
		}
		return fmt.Errorf("%s: %w", op, &journal.ValidationError{Field: field, Reason: "already exists"})
	case journal.KindOf(err) != journal.KindUnknown:
		return fmt.Errorf("%s: %w", op, err)
	}
	r.log.Error("Database operation failed", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%s: %w", op, journal.AsTransient(err))
}

func tradeRecordFromDraft(d journal.TradeDraft) models.TradeRecord {
	return models.TradeRecord{
		Timestamp:     d.Timestamp,
		Symbol:        d.Symbol,
		Direction:     string(d.Direction),
		EntryPrice:    nullDecimal(d.EntryPrice),
		ExitPrice:     nullDecimal(d.ExitPrice),
		PositionSize:  d.PositionSize,
		LotSize:       nullDecimal(d.LotSize),
		Pips:          nullDecimal(d.Pips),
		Risk:          d.Risk,
		PnL:           d.PnL,
		Commission:    d.Commission,
		ExtraFees:     d.ExtraFees,
		ExitReason:    string(d.ExitReason),
		Tags:          journal.JoinTags(d.Tags),
		Notes:         d.Notes,
		ScreenshotURL: d.ScreenshotURL,
	}
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}
