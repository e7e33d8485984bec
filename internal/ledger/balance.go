package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/meudinheiro/meudinheiro/internal/model"
)

var hundred = decimal.NewFromInt(100)

// Balance applies txns to opening. Income always counts; expense, transfer
// and investment count once settled; ignored transactions never count.
func Balance(opening decimal.Decimal, txns []model.Transaction) decimal.Decimal {
	bal := opening
	for _, txn := range txns {
		if txn.Ignore {
			continue
		}
		switch {
		case txn.Kind == model.KindIncome:
			bal = bal.Add(txn.Amount)
		case txn.Kind.Outflow() && txn.Settled:
			bal = bal.Sub(txn.Amount)
		}
	}
	return bal
}

// creditLine describes the credit an account type can draw on.
type creditLine struct {
	limit func(model.Account) decimal.NullDecimal
	name  string // used in alerts
}

// creditLines is keyed by account type. Types without an entry have no
// credit line.
var creditLines = map[model.AccountType]creditLine{
	model.AccountTypeChecking: {
		limit: func(a model.Account) decimal.NullDecimal { return a.OverdraftLimit },
		name:  "overdraft",
	},
	model.AccountTypeCreditCard: {
		limit: func(a model.Account) decimal.NullDecimal { return a.CreditLimit },
		name:  "credit limit",
	},
}

// CreditLimit returns the configured limit of the account's credit line.
func CreditLimit(acct model.Account) (decimal.Decimal, bool) {
	line, ok := creditLines[acct.Type]
	if !ok {
		return decimal.Zero, false
	}
	limit := line.limit(acct)
	return limit.Decimal, limit.Valid
}

// CreditHeadroom returns what is left of the credit line at balance: the
// full limit while the balance is not negative, limit + balance otherwise.
func CreditHeadroom(acct model.Account, balance decimal.Decimal) decimal.NullDecimal {
	limit, ok := CreditLimit(acct)
	if !ok {
		return decimal.NullDecimal{}
	}
	if balance.IsNegative() {
		return decimal.NewNullDecimal(limit.Add(balance))
	}
	return decimal.NewNullDecimal(limit)
}

// Alerts returns advisory messages for balance. The list is empty, not nil,
// when nothing applies.
func Alerts(acct model.Account, balance decimal.Decimal) []string {
	alerts := []string{}

	if acct.SafetyBalance.Valid && acct.SafetyBalance.Decimal.IsPositive() &&
		balance.IsPositive() && balance.LessThan(acct.SafetyBalance.Decimal) {
		alerts = append(alerts, fmt.Sprintf("low balance: %s is below the safety balance of %s",
			balance.StringFixed(2), acct.SafetyBalance.Decimal.StringFixed(2)))
	}

	if limit, ok := CreditLimit(acct); ok && balance.IsNegative() && limit.IsPositive() {
		used := balance.Neg().Div(limit).Mul(hundred).Round(1)
		alerts = append(alerts, fmt.Sprintf("%s in use: %s%% of %s consumed",
			creditLines[acct.Type].name, used.String(), limit.StringFixed(2)))
	}
	return alerts
}
