// Package store declares the persistence contracts shared by the import
// pipeline and the ledger, and the filters they query with.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meudinheiro/meudinheiro/internal/model"
)

var (
	// ErrNotFound is returned when a lookup matches nothing.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("conflict")
)

// Filter selects transactions. Zero-valued fields do not constrain.
type Filter struct {
	UserID      int64
	AccountID   int64
	Date        time.Time           // matched by calendar day
	Amount      decimal.NullDecimal // exact decimal equality
	Description *string             // exact match
}

// Matches reports whether txn satisfies f.
func (f Filter) Matches(txn model.Transaction) bool {
	if f.UserID != 0 && txn.UserID != f.UserID {
		return false
	}
	if f.AccountID != 0 && txn.AccountID != f.AccountID {
		return false
	}
	if !f.Date.IsZero() && !model.Day(txn.Date).Equal(model.Day(f.Date)) {
		return false
	}
	if f.Amount.Valid && !txn.Amount.Equal(f.Amount.Decimal) {
		return false
	}
	if f.Description != nil && txn.Description != *f.Description {
		return false
	}
	return true
}

// TagCount is one row of a tag frequency ranking.
type TagCount struct {
	Tag   string
	Count int
}

// Store is the full persistence surface. Components depend on the narrower
// interfaces they declare themselves.
type Store interface {
	InsertTransaction(ctx context.Context, txn *model.Transaction) error
	FindTransaction(ctx context.Context, f Filter) (model.Transaction, error)
	TransactionExists(ctx context.Context, f Filter) (bool, error)
	ListTransactions(ctx context.Context, f Filter) ([]model.Transaction, error)
	RankTags(ctx context.Context, userID int64, contains string) ([]TagCount, error)

	GetAccount(ctx context.Context, id int64) (model.Account, error)
	CreateAccount(ctx context.Context, acct *model.Account) error
	ListAccounts(ctx context.Context, userID int64) ([]model.Account, error)

	FindMatchingRule(ctx context.Context, userID int64, text string) (model.Rule, error)
	CreateRule(ctx context.Context, rule *model.Rule) error
	ListRules(ctx context.Context, userID int64) ([]model.Rule, error)

	FindCategoryByName(ctx context.Context, userID int64, name string) (model.Category, error)
	CreateCategory(ctx context.Context, cat *model.Category) error

	Close() error
}
