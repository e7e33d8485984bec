// Package ledger derives balances, remaining credit and advisory alerts for
// accounts from their stored transactions.
package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/meudinheiro/meudinheiro/internal/model"
	"github.com/meudinheiro/meudinheiro/internal/store"
)

// TransactionLister reads stored transactions.
type TransactionLister interface {
	ListTransactions(ctx context.Context, f store.Filter) ([]model.Transaction, error)
}

// Ledger computes account figures on demand. It keeps no state of its own.
type Ledger struct {
	txns TransactionLister
}

// New returns a Ledger reading from txns.
func New(txns TransactionLister) *Ledger {
	return &Ledger{txns: txns}
}

// Summary is everything the ledger reports about one account.
type Summary struct {
	Account         model.Account
	Balance         decimal.Decimal
	AvailableCredit decimal.NullDecimal
	Alerts          []string
}

// CurrentBalance returns the opening balance plus income minus settled
// outflows, skipping ignored transactions.
func (l *Ledger) CurrentBalance(ctx context.Context, acct model.Account) (decimal.Decimal, error) {
	txns, err := l.txns.ListTransactions(ctx, store.Filter{AccountID: acct.ID})
	if err != nil {
		return decimal.Zero, fmt.Errorf("listing transactions of account %d: %w", acct.ID, err)
	}
	return Balance(acct.OpeningBalance, txns), nil
}

// AvailableCredit returns the unused part of the account's credit line, or
// null when the account type has none or no limit is set.
func (l *Ledger) AvailableCredit(ctx context.Context, acct model.Account) (decimal.NullDecimal, error) {
	if _, ok := CreditLimit(acct); !ok {
		return decimal.NullDecimal{}, nil
	}
	bal, err := l.CurrentBalance(ctx, acct)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return CreditHeadroom(acct, bal), nil
}

// CheckAlerts returns the advisory messages for the account's current
// balance. None is an empty, non-nil list.
func (l *Ledger) CheckAlerts(ctx context.Context, acct model.Account) ([]string, error) {
	bal, err := l.CurrentBalance(ctx, acct)
	if err != nil {
		return nil, err
	}
	return Alerts(acct, bal), nil
}

// Summarize computes balance, available credit and alerts from a single
// read of the account's transactions.
func (l *Ledger) Summarize(ctx context.Context, acct model.Account) (Summary, error) {
	bal, err := l.CurrentBalance(ctx, acct)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Account:         acct,
		Balance:         bal,
		AvailableCredit: CreditHeadroom(acct, bal),
		Alerts:          Alerts(acct, bal),
	}, nil
}

// NetWorth sums the balances of accounts not hidden from net worth.
func (l *Ledger) NetWorth(ctx context.Context, accounts []model.Account) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, acct := range accounts {
		if acct.HideFromNetWorth {
			continue
		}
		bal, err := l.CurrentBalance(ctx, acct)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(bal)
	}
	return total, nil
}
