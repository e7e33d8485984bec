package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meudinheiro/meudinheiro/internal/classify"
	"github.com/meudinheiro/meudinheiro/internal/importer"
	"github.com/meudinheiro/meudinheiro/internal/model"
	"github.com/meudinheiro/meudinheiro/internal/store"
	"github.com/meudinheiro/meudinheiro/internal/store/memory"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func txn(kind model.Kind, amount string, settled, ignore bool) model.Transaction {
	return model.Transaction{Kind: kind, Amount: dec(amount), Settled: settled, Ignore: ignore}
}

func TestBalance(t *testing.T) {
	tests := []struct {
		name string
		txns []model.Transaction
		want string
	}{
		{"no transactions", nil, "1000"},
		{"income counts unsettled", []model.Transaction{txn(model.KindIncome, "200", false, false)}, "1200"},
		{"settled expense", []model.Transaction{txn(model.KindExpense, "45", true, false)}, "955"},
		{"unsettled expense", []model.Transaction{txn(model.KindExpense, "45", false, false)}, "1000"},
		{"settled transfer", []model.Transaction{txn(model.KindTransfer, "300", true, false)}, "700"},
		{"settled investment", []model.Transaction{txn(model.KindInvestment, "250.50", true, false)}, "749.5"},
		{"unsettled investment", []model.Transaction{txn(model.KindInvestment, "250.50", false, false)}, "1000"},
		{"ignored income", []model.Transaction{txn(model.KindIncome, "200", true, true)}, "1000"},
		{"ignored expense", []model.Transaction{txn(model.KindExpense, "45", true, true)}, "1000"},
		{"mixed", []model.Transaction{
			txn(model.KindExpense, "45", true, false),
			txn(model.KindIncome, "200", true, false),
			txn(model.KindExpense, "99.99", false, false),
			txn(model.KindTransfer, "10", true, true),
		}, "1155"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Balance(dec("1000"), tt.txns)
			assert.True(t, got.Equal(dec(tt.want)), "got %s, want %s", got, tt.want)
		})
	}
}

func TestCreditHeadroom(t *testing.T) {
	checking := model.Account{Type: model.AccountTypeChecking, OverdraftLimit: decimal.NewNullDecimal(dec("500"))}
	card := model.Account{Type: model.AccountTypeCreditCard, CreditLimit: decimal.NewNullDecimal(dec("3000"))}

	tests := []struct {
		name    string
		acct    model.Account
		balance string
		want    string // "" for null
	}{
		{"checking positive", checking, "1155", "500"},
		{"checking zero", checking, "0", "500"},
		{"checking overdrawn", checking, "-100", "400"},
		{"checking beyond limit", checking, "-650", "-150"},
		{"checking no limit", model.Account{Type: model.AccountTypeChecking}, "-100", ""},
		{"card spent", card, "-1200.50", "1799.50"},
		{"card credit balance", card, "20", "3000"},
		{"card no limit", model.Account{Type: model.AccountTypeCreditCard}, "-10", ""},
		{"savings", model.Account{Type: model.AccountTypeSavings, OverdraftLimit: decimal.NewNullDecimal(dec("500"))}, "-10", ""},
		{"cash", model.Account{Type: model.AccountTypeCash}, "10", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CreditHeadroom(tt.acct, dec(tt.balance))
			if tt.want == "" {
				assert.False(t, got.Valid)
				return
			}
			require.True(t, got.Valid)
			assert.True(t, got.Decimal.Equal(dec(tt.want)), "got %s, want %s", got.Decimal, tt.want)
		})
	}
}

func TestAlerts(t *testing.T) {
	acct := model.Account{
		Type:           model.AccountTypeChecking,
		OverdraftLimit: decimal.NewNullDecimal(dec("500")),
		SafetyBalance:  decimal.NewNullDecimal(dec("300")),
	}

	assert.Equal(t, []string{"low balance: 120.00 is below the safety balance of 300.00"}, Alerts(acct, dec("120")))
	assert.Equal(t, []string{"overdraft in use: 20% of 500.00 consumed"}, Alerts(acct, dec("-100")))
	assert.Equal(t, []string{"overdraft in use: 33.3% of 500.00 consumed"}, Alerts(acct, dec("-166.5")))

	assert.Empty(t, Alerts(acct, dec("300")), "at threshold")
	assert.Empty(t, Alerts(acct, dec("0")), "zero is neither low nor overdrawn")
	assert.NotNil(t, Alerts(acct, dec("1000")))

	noSafety := acct
	noSafety.SafetyBalance = decimal.NewNullDecimal(decimal.Zero)
	assert.Empty(t, Alerts(noSafety, dec("5")))

	noLimit := model.Account{Type: model.AccountTypeChecking}
	assert.Empty(t, Alerts(noLimit, dec("-100")))

	card := model.Account{Type: model.AccountTypeCreditCard, CreditLimit: decimal.NewNullDecimal(dec("3000"))}
	assert.Equal(t, []string{"credit limit in use: 25% of 3000.00 consumed"}, Alerts(card, dec("-750")))

	cash := model.Account{Type: model.AccountTypeCash, SafetyBalance: decimal.NewNullDecimal(dec("50"))}
	assert.Equal(t, []string{"low balance: 20.00 is below the safety balance of 50.00"}, Alerts(cash, dec("20")))
}

func scenarioAccount(t *testing.T, s *memory.Store) model.Account {
	t.Helper()
	acct := model.Account{
		UserID:         1,
		Name:           "Corrente",
		Type:           model.AccountTypeChecking,
		OpeningBalance: dec("1000"),
		OverdraftLimit: decimal.NewNullDecimal(dec("500")),
	}
	require.NoError(t, s.CreateAccount(context.Background(), &acct))
	return acct
}

func TestImportThenBalance(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	acct := scenarioAccount(t, s)

	im := importer.New(s, classify.New(s, s), importer.Options{})
	res, err := im.ImportFile(ctx, "../../testdata/extrato_semicolon.csv", acct.ID)
	require.NoError(t, err)
	require.Equal(t, 2, res.Imported)

	l := New(s)
	bal, err := l.CurrentBalance(ctx, acct)
	require.NoError(t, err)
	assert.Equal(t, "1155.00", bal.StringFixed(2))

	avail, err := l.AvailableCredit(ctx, acct)
	require.NoError(t, err)
	require.True(t, avail.Valid)
	assert.Equal(t, "500.00", avail.Decimal.StringFixed(2))

	alerts, err := l.CheckAlerts(ctx, acct)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestOverdraftInUse(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	acct := scenarioAccount(t, s)
	require.NoError(t, s.InsertTransaction(ctx, &model.Transaction{
		Amount:    dec("1100"),
		Kind:      model.KindExpense,
		Date:      time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		AccountID: acct.ID,
		UserID:    acct.UserID,
		Settled:   true,
	}))
	require.NoError(t, s.InsertTransaction(ctx, &model.Transaction{
		Amount:    dec("999"),
		Kind:      model.KindExpense,
		Date:      time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC),
		AccountID: acct.ID,
		UserID:    acct.UserID,
		Settled:   false,
	}))

	sum, err := New(s).Summarize(ctx, acct)
	require.NoError(t, err)
	assert.Equal(t, "-100.00", sum.Balance.StringFixed(2))
	require.True(t, sum.AvailableCredit.Valid)
	assert.Equal(t, "400.00", sum.AvailableCredit.Decimal.StringFixed(2))
	require.Len(t, sum.Alerts, 1)
	assert.Contains(t, sum.Alerts[0], "20%")
}

func TestNetWorth(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	checking := scenarioAccount(t, s)
	hidden := model.Account{UserID: 1, Name: "Reserva", Type: model.AccountTypeSavings, OpeningBalance: dec("12000"), HideFromNetWorth: true}
	cash := model.Account{UserID: 1, Name: "Carteira", Type: model.AccountTypeCash, OpeningBalance: dec("100")}
	require.NoError(t, s.CreateAccount(ctx, &hidden))
	require.NoError(t, s.CreateAccount(ctx, &cash))
	require.NoError(t, s.InsertTransaction(ctx, &model.Transaction{
		Amount: dec("30"), Kind: model.KindExpense, AccountID: cash.ID, UserID: 1, Settled: true,
	}))

	total, err := New(s).NetWorth(ctx, []model.Account{checking, hidden, cash})
	require.NoError(t, err)
	assert.Equal(t, "1070.00", total.StringFixed(2))
}

type brokenLister struct{}

func (brokenLister) ListTransactions(context.Context, store.Filter) ([]model.Transaction, error) {
	return nil, errors.New("timeout")
}

func TestLedgerPropagatesStoreErrors(t *testing.T) {
	l := New(brokenLister{})
	acct := model.Account{ID: 3, Type: model.AccountTypeChecking, OverdraftLimit: decimal.NewNullDecimal(dec("1"))}

	_, err := l.CurrentBalance(context.Background(), acct)
	assert.ErrorContains(t, err, "account 3")
	_, err = l.AvailableCredit(context.Background(), acct)
	assert.Error(t, err)
	_, err = l.CheckAlerts(context.Background(), acct)
	assert.Error(t, err)

	avail, err := l.AvailableCredit(context.Background(), model.Account{Type: model.AccountTypeCash})
	require.NoError(t, err, "no credit line means no lookup")
	assert.False(t, avail.Valid)
}
