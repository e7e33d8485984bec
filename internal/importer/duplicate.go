package importer

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/meudinheiro/meudinheiro/internal/model"
	"github.com/meudinheiro/meudinheiro/internal/store"
)

// TransactionChecker answers existence queries over stored transactions.
type TransactionChecker interface {
	TransactionExists(ctx context.Context, f store.Filter) (bool, error)
}

// DuplicateFilter recognizes statement rows that were already imported.
type DuplicateFilter struct {
	txns TransactionChecker
}

// NewDuplicateFilter returns a filter over txns.
func NewDuplicateFilter(txns TransactionChecker) *DuplicateFilter {
	return &DuplicateFilter{txns: txns}
}

// IsDuplicate reports whether the user already has a transaction on the same
// calendar day with the same amount and exactly the same description.
func (d *DuplicateFilter) IsDuplicate(ctx context.Context, candidate model.Transaction, userID int64) (bool, error) {
	desc := candidate.Description
	return d.txns.TransactionExists(ctx, store.Filter{
		UserID:      userID,
		Date:        candidate.Date,
		Amount:      decimal.NewNullDecimal(candidate.Amount),
		Description: &desc,
	})
}
