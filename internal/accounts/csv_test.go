package accounts

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meudinheiro/meudinheiro/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRoundTrip(t *testing.T) {
	expiry := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	accounts := []model.Account{
		{
			ID:              1,
			UserID:          1,
			Name:            "Nubank Principal",
			Type:            model.AccountTypeChecking,
			Institution:     "Nubank",
			OpeningBalance:  dec("5000"),
			OverdraftLimit:  decimal.NewNullDecimal(dec("1000")),
			OverdraftExpiry: &expiry,
			SafetyBalance:   decimal.NewNullDecimal(dec("500")),
			Color:           "#8A05BE",
		},
		{
			UserID:              1,
			Name:                "Cartao, Black",
			Type:                model.AccountTypeCreditCard,
			CreditLimit:         decimal.NewNullDecimal(dec("3000")),
			StatementClosingDay: 3,
			StatementDueDay:     10,
			HideFromNetWorth:    true,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteAccounts(&buf, accounts))

	got, err := ReadAccounts(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)

	for i := range accounts {
		want := accounts[i]
		assert.Equal(t, want.ID, got[i].ID)
		assert.Equal(t, want.UserID, got[i].UserID)
		assert.Equal(t, want.Name, got[i].Name)
		assert.Equal(t, want.Type, got[i].Type)
		assert.Equal(t, want.Institution, got[i].Institution)
		assert.True(t, want.OpeningBalance.Equal(got[i].OpeningBalance))
		assert.Equal(t, want.OverdraftLimit.Valid, got[i].OverdraftLimit.Valid)
		assert.True(t, want.OverdraftLimit.Decimal.Equal(got[i].OverdraftLimit.Decimal))
		assert.Equal(t, want.CreditLimit.Valid, got[i].CreditLimit.Valid)
		assert.True(t, want.CreditLimit.Decimal.Equal(got[i].CreditLimit.Decimal))
		assert.Equal(t, want.SafetyBalance.Valid, got[i].SafetyBalance.Valid)
		assert.Equal(t, want.StatementClosingDay, got[i].StatementClosingDay)
		assert.Equal(t, want.StatementDueDay, got[i].StatementDueDay)
		assert.Equal(t, want.HideFromNetWorth, got[i].HideFromNetWorth)
		assert.Equal(t, want.Color, got[i].Color)
	}
	require.NotNil(t, got[0].OverdraftExpiry)
	assert.True(t, expiry.Equal(*got[0].OverdraftExpiry))
	assert.Nil(t, got[1].OverdraftExpiry)
}

func TestMarshalBlankOptionals(t *testing.T) {
	row := MarshalAccount(model.Account{UserID: 1, Name: "Carteira", Type: model.AccountTypeCash})
	assert.Empty(t, row[colID])
	assert.Equal(t, "0.00", row[colOpening])
	assert.Empty(t, row[colOverdraft])
	assert.Empty(t, row[colCredit])
	assert.Empty(t, row[colSafety])
	assert.Empty(t, row[colClosingDay])
	assert.Equal(t, "false", row[colHidden])
}

func TestReadTestdata(t *testing.T) {
	f, err := os.Open("../../testdata/accounts.csv")
	require.NoError(t, err)
	defer f.Close()

	accounts, err := ReadAccounts(f)
	require.NoError(t, err)
	require.Len(t, accounts, 4)

	types := make(map[model.AccountType]bool)
	for _, acct := range accounts {
		types[acct.Type] = true
		assert.NoError(t, Validate(acct), "account %s", acct.Name)
	}
	assert.Len(t, types, 4, "testdata covers every account type")

	assert.Equal(t, "1000.00", accounts[0].OverdraftLimit.Decimal.StringFixed(2))
	assert.Equal(t, 10, accounts[1].StatementDueDay)
	assert.True(t, accounts[3].HideFromNetWorth)
}

func TestUnmarshalErrors(t *testing.T) {
	good := MarshalAccount(model.Account{ID: 1, UserID: 1, Name: "x", Type: model.AccountTypeChecking})

	tests := []struct {
		col    int
		value  string
		errMsg string
	}{
		{colID, "um", "parsing account_id"},
		{colUser, "", "parsing user_id"},
		{colOpening, "R$5", "parsing opening_balance"},
		{colOverdraft, "mil", "parsing overdraft_limit"},
		{colExpiry, "31/12/2026", "parsing overdraft_expiry"},
		{colDueDay, "32", "parsing statement_due_day"},
		{colHidden, "talvez", "parsing hide_from_net_worth"},
	}
	for _, tt := range tests {
		rec := append([]string(nil), good...)
		rec[tt.col] = tt.value
		_, err := UnmarshalAccount(rec)
		require.Error(t, err, "column %d", tt.col)
		assert.Contains(t, err.Error(), tt.errMsg)
	}
}

func TestReadRowNumbers(t *testing.T) {
	in := Header + "\n" + "x,1,Conta,checking,,0,,,,,,,false,\n"
	_, err := ReadAccounts(strings.NewReader(in))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
}

func TestDefaultAccounts(t *testing.T) {
	defaults := DefaultAccounts(9)
	require.NotEmpty(t, defaults)
	for _, a := range defaults {
		assert.Equal(t, int64(9), a.UserID)
		assert.NoError(t, Validate(a))
	}
}
