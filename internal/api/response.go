package api

import (
	"time"

	"github.com/meudinheiro/meudinheiro/internal/importer"
	"github.com/meudinheiro/meudinheiro/internal/importlog"
	"github.com/meudinheiro/meudinheiro/internal/ledger"
	"github.com/meudinheiro/meudinheiro/internal/model"
)

// Amounts are rendered as fixed two-decimal strings.

type importResponse struct {
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
	Mapping  string `json:"mapping"`
}

func newImportResponse(res importer.Result) importResponse {
	return importResponse{
		Imported: res.Imported,
		Skipped:  res.Skipped,
		Failed:   res.Failed,
		Mapping:  res.Mapping.String(),
	}
}

type importLogResponse struct {
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id"`
	Source    string    `json:"source"`
	AccountID int64     `json:"account_id"`
	Imported  int       `json:"imported"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
	Status    string    `json:"status"`
	Details   string    `json:"details"`
}

func newImportLogResponse(e importlog.Entry) importLogResponse {
	return importLogResponse{
		Timestamp: e.Timestamp,
		RunID:     e.RunID.String(),
		Source:    e.Source,
		AccountID: e.AccountID,
		Imported:  e.Imported,
		Skipped:   e.Skipped,
		Failed:    e.Failed,
		Status:    e.Status,
		Details:   e.Details,
	}
}

type balanceResponse struct {
	AccountID       int64    `json:"account_id"`
	Name            string   `json:"name"`
	Type            string   `json:"type"`
	Balance         string   `json:"balance"`
	AvailableCredit *string  `json:"available_credit"`
	Alerts          []string `json:"alerts"`
}

func newBalanceResponse(sum ledger.Summary) balanceResponse {
	resp := balanceResponse{
		AccountID: sum.Account.ID,
		Name:      sum.Account.Name,
		Type:      string(sum.Account.Type),
		Balance:   sum.Balance.StringFixed(2),
		Alerts:    sum.Alerts,
	}
	if sum.AvailableCredit.Valid {
		s := sum.AvailableCredit.Decimal.StringFixed(2)
		resp.AvailableCredit = &s
	}
	return resp
}

type transactionResponse struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Kind        string `json:"kind"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Tag         string `json:"tag"`
	CategoryID  int64  `json:"category_id,omitempty"`
	Settled     bool   `json:"settled"`
	Ignore      bool   `json:"ignore"`
	Automatic   bool   `json:"automatic"`
}

func newTransactionResponse(txn model.Transaction) transactionResponse {
	return transactionResponse{
		ID:          txn.ID.String(),
		Date:        txn.Date.Format(time.DateOnly),
		Kind:        string(txn.Kind),
		Amount:      txn.Amount.StringFixed(2),
		Description: txn.Description,
		Tag:         txn.Tag,
		CategoryID:  txn.CategoryID,
		Settled:     txn.Settled,
		Ignore:      txn.Ignore,
		Automatic:   txn.Automatic,
	}
}

type ruleResponse struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Keyword   string    `json:"keyword"`
	Tag       string    `json:"tag"`
	CreatedAt time.Time `json:"created_at"`
}

func newRuleResponse(r model.Rule) ruleResponse {
	return ruleResponse{ID: r.ID, UserID: r.UserID, Keyword: r.Keyword, Tag: r.Tag, CreatedAt: r.CreatedAt}
}
