// Package storetest is a conformance suite run against every store.Store
// implementation.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meudinheiro/meudinheiro/internal/model"
	"github.com/meudinheiro/meudinheiro/internal/store"
)

// Factory returns a fresh, empty store.
type Factory func(t *testing.T) store.Store

// Run exercises the full store contract.
func Run(t *testing.T, newStore Factory) {
	t.Run("AccountRoundTrip", func(t *testing.T) { testAccountRoundTrip(t, newStore(t)) })
	t.Run("AccountNotFound", func(t *testing.T) { testAccountNotFound(t, newStore(t)) })
	t.Run("ListAccounts", func(t *testing.T) { testListAccounts(t, newStore(t)) })
	t.Run("TransactionRoundTrip", func(t *testing.T) { testTransactionRoundTrip(t, newStore(t)) })
	t.Run("TransactionFilters", func(t *testing.T) { testTransactionFilters(t, newStore(t)) })
	t.Run("RankTags", func(t *testing.T) { testRankTags(t, newStore(t)) })
	t.Run("Rules", func(t *testing.T) { testRules(t, newStore(t)) })
	t.Run("Categories", func(t *testing.T) { testCategories(t, newStore(t)) })
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func checking(userID int64) *model.Account {
	expiry := day(2026, 12, 31)
	return &model.Account{
		UserID:          userID,
		Name:            "Nubank Principal",
		Type:            model.AccountTypeChecking,
		Institution:     "Nubank",
		OpeningBalance:  dec("1000.00"),
		Color:           "#8A05BE",
		SafetyBalance:   decimal.NewNullDecimal(dec("200")),
		OverdraftLimit:  decimal.NewNullDecimal(dec("500")),
		OverdraftExpiry: &expiry,
	}
}

func testAccountRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	acct := checking(1)
	require.NoError(t, s.CreateAccount(ctx, acct))
	require.NotZero(t, acct.ID)

	got, err := s.GetAccount(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, acct.Name, got.Name)
	assert.Equal(t, model.AccountTypeChecking, got.Type)
	assert.True(t, got.OpeningBalance.Equal(dec("1000")))
	assert.True(t, got.OverdraftLimit.Valid)
	assert.True(t, got.OverdraftLimit.Decimal.Equal(dec("500")))
	assert.True(t, got.SafetyBalance.Decimal.Equal(dec("200")))
	assert.False(t, got.CreditLimit.Valid)
	require.NotNil(t, got.OverdraftExpiry)
	assert.True(t, got.OverdraftExpiry.Equal(day(2026, 12, 31)))
}

func testAccountNotFound(t *testing.T, s store.Store) {
	_, err := s.GetAccount(context.Background(), 404)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testListAccounts(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := checking(1)
	b := &model.Account{UserID: 1, Name: "Carteira", Type: model.AccountTypeCash, OpeningBalance: dec("100")}
	c := &model.Account{UserID: 2, Name: "Outro", Type: model.AccountTypeSavings}
	for _, acct := range []*model.Account{a, b, c} {
		require.NoError(t, s.CreateAccount(ctx, acct))
	}

	got, err := s.ListAccounts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Nubank Principal", got[0].Name)
	assert.Equal(t, "Carteira", got[1].Name)
}

func newTxn(acct *model.Account, date time.Time, amount, desc, tag string) *model.Transaction {
	return &model.Transaction{
		Amount:      dec(amount),
		Kind:        model.KindExpense,
		Date:        date,
		Description: desc,
		AccountID:   acct.ID,
		UserID:      acct.UserID,
		Tag:         tag,
		Settled:     true,
		RecordType:  model.RecordCommon,
	}
}

func testTransactionRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	acct := checking(1)
	require.NoError(t, s.CreateAccount(ctx, acct))

	txn := newTxn(acct, day(2026, 3, 1), "45.00", "UBER 123", "Transporte")
	txn.Automatic = true
	txn.Location = "N/A"
	require.NoError(t, s.InsertTransaction(ctx, txn))
	require.NotEqual(t, "", txn.ID.String())

	desc := "UBER 123"
	got, err := s.FindTransaction(ctx, store.Filter{UserID: 1, Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, txn.ID, got.ID)
	assert.True(t, got.Amount.Equal(dec("45")))
	assert.Equal(t, model.KindExpense, got.Kind)
	assert.True(t, got.Date.Equal(day(2026, 3, 1)))
	assert.Equal(t, "Transporte", got.Tag)
	assert.True(t, got.Settled)
	assert.True(t, got.Automatic)
	assert.False(t, got.Ignore)
	assert.Equal(t, "N/A", got.Location)
	assert.Equal(t, model.RecordCommon, got.RecordType)

	err = s.InsertTransaction(ctx, txn)
	assert.ErrorIs(t, err, store.ErrConflict, "same ID twice")
}

func testTransactionFilters(t *testing.T, s store.Store) {
	ctx := context.Background()
	acct := checking(1)
	require.NoError(t, s.CreateAccount(ctx, acct))
	other := checking(2)
	require.NoError(t, s.CreateAccount(ctx, other))

	require.NoError(t, s.InsertTransaction(ctx, newTxn(acct, day(2026, 3, 2), "10.00", "B", "")))
	require.NoError(t, s.InsertTransaction(ctx, newTxn(acct, day(2026, 3, 1), "45.00", "A", "")))
	require.NoError(t, s.InsertTransaction(ctx, newTxn(other, day(2026, 3, 1), "45.00", "A", "")))

	desc := "A"
	f := store.Filter{
		UserID:      1,
		Date:        day(2026, 3, 1).Add(15 * time.Hour),
		Amount:      decimal.NewNullDecimal(dec("45")),
		Description: &desc,
	}
	ok, err := s.TransactionExists(ctx, f)
	require.NoError(t, err)
	assert.True(t, ok)

	f.Amount = decimal.NewNullDecimal(dec("45.01"))
	ok, err = s.TransactionExists(ctx, f)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.FindTransaction(ctx, f)
	assert.ErrorIs(t, err, store.ErrNotFound)

	list, err := s.ListTransactions(ctx, store.Filter{AccountID: acct.ID})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "A", list[0].Description, "ordered by date")
	assert.Equal(t, "B", list[1].Description)
}

func testRankTags(t *testing.T, s store.Store) {
	ctx := context.Background()
	acct := checking(1)
	require.NoError(t, s.CreateAccount(ctx, acct))
	other := checking(2)
	require.NoError(t, s.CreateAccount(ctx, other))

	for _, txn := range []*model.Transaction{
		newTxn(acct, day(2026, 2, 1), "10", "MERCADO SAO JOSE 1", "Alimentacao"),
		newTxn(acct, day(2026, 2, 2), "11", "mercado sao jose 2", "Alimentacao"),
		newTxn(acct, day(2026, 2, 3), "12", "MERCADO SAO JOSE 3", "Casa"),
		newTxn(acct, day(2026, 2, 4), "13", "MERCADO SAO JOSE 4", ""),
		newTxn(acct, day(2026, 2, 5), "14", "PADARIA", "Alimentacao"),
		newTxn(other, day(2026, 2, 5), "15", "MERCADO SAO JOSE 5", "Outro"),
		newTxn(other, day(2026, 2, 6), "16", "MERCADO SAO JOSE 6", "Outro"),
		newTxn(other, day(2026, 2, 7), "17", "MERCADO SAO JOSE 7", "Outro"),
	} {
		require.NoError(t, s.InsertTransaction(ctx, txn))
	}

	ranked, err := s.RankTags(ctx, 1, "Mercado Sa")
	require.NoError(t, err)
	assert.Equal(t, []store.TagCount{{Tag: "Alimentacao", Count: 2}, {Tag: "Casa", Count: 1}}, ranked)

	ranked, err = s.RankTags(ctx, 1, "NETFLIX")
	require.NoError(t, err)
	assert.Empty(t, ranked)

	for _, txn := range []*model.Transaction{
		newTxn(acct, day(2026, 3, 1), "20", "FARMÁCIA SÃO JOÃO 01", "Saude"),
		newTxn(acct, day(2026, 3, 2), "21", "farmácia são joão 02", "Saude"),
	} {
		require.NoError(t, s.InsertTransaction(ctx, txn))
	}
	ranked, err = s.RankTags(ctx, 1, "Farmácia S")
	require.NoError(t, err)
	assert.Equal(t, []store.TagCount{{Tag: "Saude", Count: 2}}, ranked)

	ranked, err = s.RankTags(ctx, 1, "FARMÁCIA SÃO JOÃO 0")
	require.NoError(t, err)
	assert.Equal(t, []store.TagCount{{Tag: "Saude", Count: 2}}, ranked)
}

func testRules(t *testing.T, s store.Store) {
	ctx := context.Background()
	uber := &model.Rule{UserID: 1, Keyword: "uber", Tag: "Transporte"}
	require.NoError(t, s.CreateRule(ctx, uber))
	assert.Equal(t, "UBER", uber.Keyword)
	require.NoError(t, s.CreateRule(ctx, &model.Rule{UserID: 1, Keyword: "UBER EATS", Tag: "Alimentacao"}))
	require.NoError(t, s.CreateRule(ctx, &model.Rule{UserID: 2, Keyword: "UBER", Tag: "Trabalho"}))

	err := s.CreateRule(ctx, &model.Rule{UserID: 1, Keyword: "Uber", Tag: "x"})
	assert.ErrorIs(t, err, store.ErrConflict)

	r, err := s.FindMatchingRule(ctx, 1, "Uber Eats *pedido")
	require.NoError(t, err)
	assert.Equal(t, "Alimentacao", r.Tag)

	r, err = s.FindMatchingRule(ctx, 2, "UBER TRIP")
	require.NoError(t, err)
	assert.Equal(t, "Trabalho", r.Tag)

	_, err = s.FindMatchingRule(ctx, 1, "NETFLIX")
	assert.ErrorIs(t, err, store.ErrNotFound)

	rules, err := s.ListRules(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "UBER", rules[0].Keyword)
}

func testCategories(t *testing.T, s store.Store) {
	ctx := context.Background()
	_, err := s.FindCategoryByName(ctx, 1, "Importado")
	assert.ErrorIs(t, err, store.ErrNotFound)

	cat := &model.Category{UserID: 1, Name: "Importado"}
	require.NoError(t, s.CreateCategory(ctx, cat))
	assert.NotZero(t, cat.ID)
	assert.Equal(t, model.DefaultIcon, cat.Icon)
	assert.NotEmpty(t, cat.Color)

	got, err := s.FindCategoryByName(ctx, 1, "Importado")
	require.NoError(t, err)
	assert.Equal(t, cat.ID, got.ID)

	_, err = s.FindCategoryByName(ctx, 2, "Importado")
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.Error(t, s.CreateCategory(ctx, &model.Category{UserID: 1}))
}
