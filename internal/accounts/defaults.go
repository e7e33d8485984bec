package accounts

import (
	"github.com/shopspring/decimal"

	"github.com/meudinheiro/meudinheiro/internal/model"
)

// DefaultAccounts returns the accounts a new project starts with.
func DefaultAccounts(userID int64) []model.Account {
	return []model.Account{
		{UserID: userID, Name: "Carteira", Type: model.AccountTypeCash, OpeningBalance: decimal.Zero, Color: "#2E7D32"},
	}
}
