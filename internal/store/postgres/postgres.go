// Package postgres implements store.Store on PostgreSQL through gorm.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/meudinheiro/meudinheiro/internal/model"
	"github.com/meudinheiro/meudinheiro/internal/store"
)

// Store is a PostgreSQL-backed store.Store.
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// Open connects to dsn and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	s := &Store{db: db}
	if err := s.Migrate(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates or updates the tables.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&accountRow{}, &categoryRow{}, &ruleRow{}, &transactionRow{}); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

// DB exposes the underlying handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close closes the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return err
}

// --- transactions ---

// InsertTransaction stores txn, assigning an ID when it has none.
func (s *Store) InsertTransaction(ctx context.Context, txn *model.Transaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}
	row := newTransactionRow(*txn)
	err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("transaction %s: %w", txn.ID, store.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (s *Store) filtered(ctx context.Context, f store.Filter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&transactionRow{})
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.AccountID != 0 {
		q = q.Where("account_id = ?", f.AccountID)
	}
	if !f.Date.IsZero() {
		q = q.Where("day = ?", model.Day(f.Date))
	}
	if f.Amount.Valid {
		q = q.Where("amount = ?", f.Amount.Decimal)
	}
	if f.Description != nil {
		q = q.Where("description = ?", *f.Description)
	}
	return q
}

// FindTransaction returns the first transaction matching f.
func (s *Store) FindTransaction(ctx context.Context, f store.Filter) (model.Transaction, error) {
	var row transactionRow
	err := s.filtered(ctx, f).Order("occurred_at").First(&row).Error
	if err != nil {
		if err = notFound(err); err == store.ErrNotFound {
			return model.Transaction{}, err
		}
		return model.Transaction{}, fmt.Errorf("find transaction: %w", err)
	}
	return row.model(), nil
}

// TransactionExists reports whether any transaction matches f.
func (s *Store) TransactionExists(ctx context.Context, f store.Filter) (bool, error) {
	var n int64
	if err := s.filtered(ctx, f).Limit(1).Count(&n).Error; err != nil {
		return false, fmt.Errorf("checking transaction: %w", err)
	}
	return n > 0, nil
}

// ListTransactions returns all transactions matching f ordered by date.
func (s *Store) ListTransactions(ctx context.Context, f store.Filter) ([]model.Transaction, error) {
	var rows []transactionRow
	if err := s.filtered(ctx, f).Order("occurred_at, created_at").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	out := make([]model.Transaction, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

// RankTags counts the tags of the user's transactions whose description
// contains the given text, ignoring case. Matching runs in Go because
// lower() only folds ASCII under the C collation.
func (s *Store) RankTags(ctx context.Context, userID int64, contains string) ([]store.TagCount, error) {
	var rows []struct {
		Description string
		Tag         string
	}
	err := s.db.WithContext(ctx).Model(&transactionRow{}).
		Select("description, tag").
		Where("user_id = ? AND tag <> ''", userID).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("rank tags: %w", err)
	}

	counts := make(map[string]int)
	for _, r := range rows {
		if store.ContainsFold(r.Description, contains) {
			counts[r.Tag]++
		}
	}
	out := make([]store.TagCount, 0, len(counts))
	for tag, n := range counts {
		out = append(out, store.TagCount{Tag: tag, Count: n})
	}
	store.SortTagCounts(out)
	return out, nil
}

// --- accounts ---

// GetAccount returns the account with the given ID.
func (s *Store) GetAccount(ctx context.Context, id int64) (model.Account, error) {
	var row accountRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		if err = notFound(err); err == store.ErrNotFound {
			return model.Account{}, err
		}
		return model.Account{}, fmt.Errorf("get account %d: %w", id, err)
	}
	return row.model(), nil
}

// CreateAccount stores acct. A zero ID is assigned by the database.
func (s *Store) CreateAccount(ctx context.Context, acct *model.Account) error {
	row := newAccountRow(*acct)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Create(&row).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("account %d: %w", acct.ID, store.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("insert account: %w", err)
		}
		if acct.ID != 0 {
			// Explicit IDs bypass the sequence; move it past them.
			err = tx.Exec(`SELECT setval(pg_get_serial_sequence('accounts', 'id'), (SELECT MAX(id) FROM accounts))`).Error
			if err != nil {
				return fmt.Errorf("advancing account sequence: %w", err)
			}
		}
		acct.ID = row.ID
		return nil
	})
}

// ListAccounts returns the user's accounts ordered by ID.
func (s *Store) ListAccounts(ctx context.Context, userID int64) ([]model.Account, error) {
	var rows []accountRow
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	out := make([]model.Account, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

// --- rules ---

// FindMatchingRule returns the user's most specific rule whose keyword
// occurs in text.
func (s *Store) FindMatchingRule(ctx context.Context, userID int64, text string) (model.Rule, error) {
	var row ruleRow
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND strpos(?, keyword) > 0", userID, strings.ToUpper(text)).
		Order("char_length(keyword) DESC, keyword ASC").
		First(&row).Error
	if err != nil {
		if err = notFound(err); err == store.ErrNotFound {
			return model.Rule{}, err
		}
		return model.Rule{}, fmt.Errorf("find rule: %w", err)
	}
	return row.model(), nil
}

// CreateRule stores rule. Keywords are unique per user.
func (s *Store) CreateRule(ctx context.Context, rule *model.Rule) error {
	rule.Keyword = model.NormalizeKeyword(rule.Keyword)
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}
	row := ruleRow{UserID: rule.UserID, Keyword: rule.Keyword, Tag: rule.Tag, CreatedAt: rule.CreatedAt}
	err := s.db.WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("rule %q: %w", rule.Keyword, store.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert rule: %w", err)
	}
	rule.ID = row.ID
	return nil
}

// ListRules returns the user's rules ordered by keyword.
func (s *Store) ListRules(ctx context.Context, userID int64) ([]model.Rule, error) {
	var rows []ruleRow
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("keyword").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	out := make([]model.Rule, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

// --- categories ---

// FindCategoryByName looks up a category by exact name within a user.
func (s *Store) FindCategoryByName(ctx context.Context, userID int64, name string) (model.Category, error) {
	var row categoryRow
	err := s.db.WithContext(ctx).Where("user_id = ? AND name = ?", userID, name).First(&row).Error
	if err != nil {
		if err = notFound(err); err == store.ErrNotFound {
			return model.Category{}, err
		}
		return model.Category{}, fmt.Errorf("find category: %w", err)
	}
	return row.model(), nil
}

// CreateCategory stores cat, filling in default icon and color.
func (s *Store) CreateCategory(ctx context.Context, cat *model.Category) error {
	if strings.TrimSpace(cat.Name) == "" {
		return errors.New("category name is required")
	}
	*cat = cat.WithDefaults()
	row := categoryRow{UserID: cat.UserID, Name: cat.Name, Color: cat.Color, Icon: cat.Icon}
	err := s.db.WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("category %q: %w", cat.Name, store.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	cat.ID = row.ID
	return nil
}
