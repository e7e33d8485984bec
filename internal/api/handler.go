// Package api exposes imports, balances and rules over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/meudinheiro/meudinheiro/internal/importer"
	"github.com/meudinheiro/meudinheiro/internal/importlog"
	"github.com/meudinheiro/meudinheiro/internal/ledger"
	"github.com/meudinheiro/meudinheiro/internal/logger"
	"github.com/meudinheiro/meudinheiro/internal/model"
	"github.com/meudinheiro/meudinheiro/internal/schema"
	"github.com/meudinheiro/meudinheiro/internal/store"
)

// Store is the persistence the handlers read and write directly.
type Store interface {
	GetAccount(ctx context.Context, id int64) (model.Account, error)
	ListAccounts(ctx context.Context, userID int64) ([]model.Account, error)
	ListTransactions(ctx context.Context, f store.Filter) ([]model.Transaction, error)
	CreateRule(ctx context.Context, rule *model.Rule) error
	ListRules(ctx context.Context, userID int64) ([]model.Rule, error)
}

// Handler serves the API.
type Handler struct {
	store     Store
	importer  *importer.Importer
	ledger    *ledger.Ledger
	delimiter rune
	logRoot   string // where logs/import-log.csv lives; empty disables it
}

// Options configures a Handler.
type Options struct {
	Delimiter rune
	LogRoot   string
}

// NewHandler wires the handler to its collaborators.
func NewHandler(st Store, im *importer.Importer, l *ledger.Ledger, opts Options) *Handler {
	return &Handler{store: st, importer: im, ledger: l, delimiter: opts.Delimiter, logRoot: opts.LogRoot}
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// account loads the account named by the :id path parameter.
func (h *Handler) account(c *gin.Context) (model.Account, bool) {
	id, ok := pathID(c, "id")
	if !ok {
		return model.Account{}, false
	}
	acct, err := h.store.GetAccount(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return model.Account{}, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return model.Account{}, false
	}
	return acct, true
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Import reads the multipart "file" field and imports it into the account.
func (h *Handler) Import(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	defer file.Close()

	ctx := c.Request.Context()
	log := logger.FromContext(ctx)
	log.Info().Str("file", header.Filename).Int64("size", header.Size).Msg("received statement")

	t, err := schema.ReadTable(file, h.delimiter)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.importer.Import(ctx, t, id)
	h.record(log, header.Filename, id, res, err)

	var (
		schemaErr *importer.SchemaError
		rowErr    *importer.RowError
	)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, newImportResponse(res))
	case errors.Is(err, importer.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
	case errors.As(err, &schemaErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "missing": schemaErr.Missing()})
	case errors.As(err, &rowErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "line": rowErr.Line, "result": newImportResponse(res)})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "result": newImportResponse(res)})
	}
}

func (h *Handler) record(log zerolog.Logger, source string, accountID int64, res importer.Result, err error) {
	if h.logRoot == "" {
		return
	}
	e := importlog.FromResult(source, accountID, res, err)
	if err := importlog.Append(h.logRoot, []importlog.Entry{e}); err != nil {
		log.Warn().Err(err).Msg("writing import log")
	}
}

// ImportLog lists recorded import runs, oldest first.
func (h *Handler) ImportLog(c *gin.Context) {
	out := []importLogResponse{}
	if h.logRoot != "" {
		entries, err := importlog.Read(h.logRoot)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		for _, e := range entries {
			out = append(out, newImportLogResponse(e))
		}
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// Balance reports balance, available credit and alerts for the account.
func (h *Handler) Balance(c *gin.Context) {
	acct, ok := h.account(c)
	if !ok {
		return
	}
	sum, err := h.ledger.Summarize(c.Request.Context(), acct)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, newBalanceResponse(sum))
}

// Transactions lists the account's transactions by date.
func (h *Handler) Transactions(c *gin.Context) {
	acct, ok := h.account(c)
	if !ok {
		return
	}
	txns, err := h.store.ListTransactions(c.Request.Context(), store.Filter{AccountID: acct.ID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]transactionResponse, 0, len(txns))
	for _, txn := range txns {
		out = append(out, newTransactionResponse(txn))
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// Accounts lists a user's accounts with their balances.
func (h *Handler) Accounts(c *gin.Context) {
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	accts, err := h.store.ListAccounts(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]balanceResponse, 0, len(accts))
	for _, acct := range accts {
		sum, err := h.ledger.Summarize(ctx, acct)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		out = append(out, newBalanceResponse(sum))
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// NetWorth sums the balances of the user's visible accounts.
func (h *Handler) NetWorth(c *gin.Context) {
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	accts, err := h.store.ListAccounts(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	total, err := h.ledger.NetWorth(ctx, accts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "net_worth": total.StringFixed(2)})
}

type createRuleRequest struct {
	UserID  int64  `json:"user_id" binding:"required"`
	Keyword string `json:"keyword" binding:"required"`
	Tag     string `json:"tag" binding:"required"`
}

// CreateRule stores a keyword rule.
func (h *Handler) CreateRule(c *gin.Context) {
	var req createRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rule := model.Rule{UserID: req.UserID, Keyword: req.Keyword, Tag: req.Tag}
	if model.NormalizeKeyword(rule.Keyword) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "keyword is blank"})
		return
	}
	err := h.store.CreateRule(c.Request.Context(), &rule)
	if errors.Is(err, store.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": "rule already exists for keyword " + rule.Keyword})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, newRuleResponse(rule))
}

// Rules lists a user's rules.
func (h *Handler) Rules(c *gin.Context) {
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	rules, err := h.store.ListRules(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]ruleResponse, 0, len(rules))
	for _, r := range rules {
		out = append(out, newRuleResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}
