// Package sqlite implements store.Store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	msqlite "modernc.org/sqlite"

	"github.com/meudinheiro/meudinheiro/internal/model"
	"github.com/meudinheiro/meudinheiro/internal/store"
)

const (
	dayFormat  = "2006-01-02"
	timeFormat = time.RFC3339Nano
)

// SQLite's lower() folds ASCII only; fold applies Go's Unicode lowering so
// "FARMÁCIA" matches "farmácia".
func init() {
	err := msqlite.RegisterDeterministicScalarFunction("fold", 1,
		func(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case string:
				return strings.ToLower(v), nil
			case []byte:
				return strings.ToLower(string(v)), nil
			default:
				return v, nil
			}
		})
	if err != nil {
		panic(fmt.Sprintf("registering fold: %v", err))
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id                    INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id               INTEGER NOT NULL,
	name                  TEXT NOT NULL,
	type                  TEXT NOT NULL,
	institution           TEXT NOT NULL DEFAULT '',
	institution_type      TEXT NOT NULL DEFAULT '',
	opening_balance       TEXT NOT NULL DEFAULT '0',
	hide_from_net_worth   INTEGER NOT NULL DEFAULT 0,
	color                 TEXT NOT NULL DEFAULT '',
	safety_balance        TEXT,
	overdraft_limit       TEXT,
	overdraft_expiry      TEXT,
	credit_limit          TEXT,
	statement_closing_day INTEGER NOT NULL DEFAULT 0,
	statement_due_day     INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS accounts_user ON accounts(user_id);

CREATE TABLE IF NOT EXISTS categories (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	name    TEXT NOT NULL,
	color   TEXT NOT NULL DEFAULT '',
	icon    TEXT NOT NULL DEFAULT '',
	UNIQUE (user_id, name)
);

CREATE TABLE IF NOT EXISTS rules (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    INTEGER NOT NULL,
	keyword    TEXT NOT NULL,
	tag        TEXT NOT NULL,
	created_at TEXT NOT NULL,
	UNIQUE (user_id, keyword)
);

CREATE TABLE IF NOT EXISTS transactions (
	id               TEXT PRIMARY KEY,
	amount           TEXT NOT NULL,
	kind             TEXT NOT NULL,
	day              TEXT NOT NULL,
	occurred_at      TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	location         TEXT NOT NULL DEFAULT '',
	account_id       INTEGER NOT NULL REFERENCES accounts(id),
	user_id          INTEGER NOT NULL,
	tag              TEXT NOT NULL DEFAULT '',
	category_id      INTEGER NOT NULL DEFAULT 0,
	subcategory_id   INTEGER NOT NULL DEFAULT 0,
	ignored          INTEGER NOT NULL DEFAULT 0,
	settled          INTEGER NOT NULL DEFAULT 0,
	automatic        INTEGER NOT NULL DEFAULT 0,
	recurring        INTEGER NOT NULL DEFAULT 0,
	recurrence_group TEXT NOT NULL DEFAULT '',
	record_type      TEXT NOT NULL DEFAULT '',
	created_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS transactions_dedupe ON transactions(user_id, day, amount);
CREATE INDEX IF NOT EXISTS transactions_account ON transactions(account_id);
`

// Store is a SQLite-backed store.Store.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (or creates) the database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// withTx runs fn in a transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func isUnique(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func amountText(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func nullDecimal(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}

// --- transactions ---

const txnColumns = `id, amount, kind, occurred_at, description, location, account_id, user_id, tag,
	category_id, subcategory_id, ignored, settled, automatic, recurring, recurrence_group, record_type, created_at`

// InsertTransaction stores txn, assigning an ID when it has none.
func (s *Store) InsertTransaction(ctx context.Context, txn *model.Transaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO transactions (`+txnColumns+`, day)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			txn.ID.String(), amountText(txn.Amount), string(txn.Kind), txn.Date.Format(timeFormat),
			txn.Description, txn.Location, txn.AccountID, txn.UserID, txn.Tag,
			txn.CategoryID, txn.SubcategoryID, txn.Ignore, txn.Settled, txn.Automatic, txn.Recurring,
			txn.RecurrenceGroup, txn.RecordType, txn.CreatedAt.Format(timeFormat),
			txn.Date.Format(dayFormat),
		)
		if isUnique(err) {
			return fmt.Errorf("transaction %s: %w", txn.ID, store.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		return nil
	})
}

func whereClause(f store.Filter) (string, []any) {
	var conds []string
	var args []any
	if f.UserID != 0 {
		conds = append(conds, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.AccountID != 0 {
		conds = append(conds, "account_id = ?")
		args = append(args, f.AccountID)
	}
	if !f.Date.IsZero() {
		conds = append(conds, "day = ?")
		args = append(args, f.Date.Format(dayFormat))
	}
	if f.Amount.Valid {
		conds = append(conds, "amount = ?")
		args = append(args, amountText(f.Amount.Decimal))
	}
	if f.Description != nil {
		conds = append(conds, "description = ?")
		args = append(args, *f.Description)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (model.Transaction, error) {
	var (
		txn                  model.Transaction
		id, kind, at, create string
		amount               string
	)
	err := row.Scan(&id, &amount, &kind, &at, &txn.Description, &txn.Location, &txn.AccountID, &txn.UserID,
		&txn.Tag, &txn.CategoryID, &txn.SubcategoryID, &txn.Ignore, &txn.Settled, &txn.Automatic,
		&txn.Recurring, &txn.RecurrenceGroup, &txn.RecordType, &create)
	if err != nil {
		return model.Transaction{}, err
	}
	if txn.ID, err = uuid.Parse(id); err != nil {
		return model.Transaction{}, fmt.Errorf("parsing id %q: %w", id, err)
	}
	if txn.Amount, err = decimal.NewFromString(amount); err != nil {
		return model.Transaction{}, fmt.Errorf("parsing amount %q: %w", amount, err)
	}
	if txn.Date, err = time.Parse(timeFormat, at); err != nil {
		return model.Transaction{}, fmt.Errorf("parsing date %q: %w", at, err)
	}
	if txn.CreatedAt, err = time.Parse(timeFormat, create); err != nil {
		return model.Transaction{}, fmt.Errorf("parsing created_at %q: %w", create, err)
	}
	txn.Kind = model.Kind(kind)
	return txn, nil
}

// FindTransaction returns the first transaction matching f.
func (s *Store) FindTransaction(ctx context.Context, f store.Filter) (model.Transaction, error) {
	where, args := whereClause(f)
	row := s.db.QueryRowContext(ctx, `SELECT `+txnColumns+` FROM transactions`+where+` ORDER BY occurred_at LIMIT 1`, args...)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Transaction{}, store.ErrNotFound
	}
	if err != nil {
		return model.Transaction{}, fmt.Errorf("find transaction: %w", err)
	}
	return txn, nil
}

// TransactionExists reports whether any transaction matches f.
func (s *Store) TransactionExists(ctx context.Context, f store.Filter) (bool, error) {
	where, args := whereClause(f)
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM transactions`+where+`)`, args...).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking transaction: %w", err)
	}
	return exists, nil
}

// ListTransactions returns all transactions matching f ordered by date.
func (s *Store) ListTransactions(ctx context.Context, f store.Filter) ([]model.Transaction, error) {
	where, args := whereClause(f)
	rows, err := s.db.QueryContext(ctx, `SELECT `+txnColumns+` FROM transactions`+where+` ORDER BY occurred_at, rowid`, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, txn)
	}
	return out, rows.Err()
}

// RankTags counts the tags of the user's transactions whose description
// contains the given text, ignoring case.
func (s *Store) RankTags(ctx context.Context, userID int64, contains string) ([]store.TagCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tag, COUNT(*) AS n
		FROM transactions
		WHERE user_id = ? AND tag <> '' AND instr(fold(description), ?) > 0
		GROUP BY tag
		ORDER BY n DESC, tag ASC`, userID, strings.ToLower(contains))
	if err != nil {
		return nil, fmt.Errorf("rank tags: %w", err)
	}
	defer rows.Close()

	var out []store.TagCount
	for rows.Next() {
		var tc store.TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, fmt.Errorf("scan tag count: %w", err)
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}
