package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType selects the balance semantics of an account.
type AccountType string

const (
	AccountTypeChecking   AccountType = "checking"
	AccountTypeCreditCard AccountType = "credit_card"
	AccountTypeSavings    AccountType = "savings"
	AccountTypeCash       AccountType = "cash"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeChecking, AccountTypeCreditCard, AccountTypeSavings, AccountTypeCash:
		return true
	}
	return false
}

// Account is a bank account, card, wallet or savings pot.
//
// Variant fields are present on every account; balance logic only reads the
// ones that belong to Type.
type Account struct {
	ID               int64
	UserID           int64
	Name             string
	Type             AccountType
	Institution      string
	InstitutionType  string
	OpeningBalance   decimal.Decimal
	HideFromNetWorth bool
	Color            string
	SafetyBalance    decimal.NullDecimal

	// checking
	OverdraftLimit  decimal.NullDecimal
	OverdraftExpiry *time.Time

	// credit_card
	CreditLimit         decimal.NullDecimal
	StatementClosingDay int
	StatementDueDay     int
}
