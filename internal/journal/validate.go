package journal

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/meudinheiro/meudinheiro/internal/model"
)

// ValidationError describes a single invariant violation.
type ValidationError struct {
	Field       string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Description)
}

var hundred = decimal.NewFromInt(100)

// Validate checks a transaction before it is stored.
func Validate(txn model.Transaction) []ValidationError {
	var errs []ValidationError

	// Direction lives in Kind, never in the sign.
	if txn.Amount.IsNegative() {
		errs = append(errs, ValidationError{
			Field:       "amount",
			Description: fmt.Sprintf("%s is negative", txn.Amount),
		})
	}

	// Exact decimals: no more than 2 decimal places.
	if !txn.Amount.Mul(hundred).Equal(txn.Amount.Mul(hundred).Floor()) {
		errs = append(errs, ValidationError{
			Field:       "amount",
			Description: fmt.Sprintf("%s has more than 2 decimal places", txn.Amount),
		})
	}

	if !txn.Kind.Valid() {
		errs = append(errs, ValidationError{
			Field:       "kind",
			Description: fmt.Sprintf("unknown kind %q", txn.Kind),
		})
	}

	if txn.Date.IsZero() {
		errs = append(errs, ValidationError{Field: "date", Description: "missing"})
	}

	if txn.AccountID == 0 {
		errs = append(errs, ValidationError{Field: "account_id", Description: "missing"})
	}
	if txn.UserID == 0 {
		errs = append(errs, ValidationError{Field: "user_id", Description: "missing"})
	}

	return errs
}
