package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind is the economic direction of a transaction.
type Kind string

const (
	KindIncome     Kind = "income"
	KindExpense    Kind = "expense"
	KindTransfer   Kind = "transfer"
	KindInvestment Kind = "investment"
)

// Record types.
const (
	RecordCommon    = "comum"
	RecordRecurring = "recorrente"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindIncome, KindExpense, KindTransfer, KindInvestment:
		return true
	}
	return false
}

// Outflow reports whether money leaves the account for this kind.
func (k Kind) Outflow() bool {
	return k == KindExpense || k == KindTransfer || k == KindInvestment
}

// KindFromSigned derives the kind of a statement row from its signed value.
// Only income and expense can be told apart by sign.
func KindFromSigned(v decimal.Decimal) Kind {
	if v.IsNegative() {
		return KindExpense
	}
	return KindIncome
}

// Transaction is one normalized financial record.
type Transaction struct {
	ID              uuid.UUID
	Amount          decimal.Decimal // always >= 0, direction is in Kind
	Kind            Kind
	Date            time.Time
	Description     string
	Location        string
	AccountID       int64
	UserID          int64
	Tag             string // empty = untagged
	CategoryID      int64  // 0 = none
	SubcategoryID   int64  // 0 = none
	Ignore          bool   // excluded from balance and analytics
	Settled         bool   // outflow has actually been paid
	Automatic       bool   // machine-created, needs review
	Recurring       bool
	RecurrenceGroup string
	RecordType      string
	CreatedAt       time.Time
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
