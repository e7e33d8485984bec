package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meudinheiro/meudinheiro/internal/model"
	"github.com/meudinheiro/meudinheiro/internal/store"
)

const accountColumns = `id, user_id, name, type, institution, institution_type, opening_balance,
	hide_from_net_worth, color, safety_balance, overdraft_limit, overdraft_expiry, credit_limit,
	statement_closing_day, statement_due_day`

func scanAccount(row rowScanner) (model.Account, error) {
	var (
		acct    model.Account
		typ     string
		opening string
		expiry  sql.NullString
	)
	err := row.Scan(&acct.ID, &acct.UserID, &acct.Name, &typ, &acct.Institution, &acct.InstitutionType,
		&opening, &acct.HideFromNetWorth, &acct.Color, &acct.SafetyBalance, &acct.OverdraftLimit,
		&expiry, &acct.CreditLimit, &acct.StatementClosingDay, &acct.StatementDueDay)
	if err != nil {
		return model.Account{}, err
	}
	acct.Type = model.AccountType(typ)
	if acct.OpeningBalance, err = decimal.NewFromString(opening); err != nil {
		return model.Account{}, fmt.Errorf("parsing opening_balance %q: %w", opening, err)
	}
	if expiry.Valid && expiry.String != "" {
		t, err := time.Parse(dayFormat, expiry.String)
		if err != nil {
			return model.Account{}, fmt.Errorf("parsing overdraft_expiry %q: %w", expiry.String, err)
		}
		acct.OverdraftExpiry = &t
	}
	return acct, nil
}

// GetAccount returns the account with the given ID.
func (s *Store) GetAccount(ctx context.Context, id int64) (model.Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	acct, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, store.ErrNotFound
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("get account %d: %w", id, err)
	}
	return acct, nil
}

// CreateAccount stores acct. A zero ID is assigned by the database.
func (s *Store) CreateAccount(ctx context.Context, acct *model.Account) error {
	var expiry any
	if acct.OverdraftExpiry != nil {
		expiry = acct.OverdraftExpiry.Format(dayFormat)
	}
	var id any
	if acct.ID != 0 {
		id = acct.ID
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO accounts (`+accountColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, acct.UserID, acct.Name, string(acct.Type), acct.Institution, acct.InstitutionType,
			acct.OpeningBalance.String(), acct.HideFromNetWorth, acct.Color,
			nullDecimal(acct.SafetyBalance), nullDecimal(acct.OverdraftLimit), expiry,
			nullDecimal(acct.CreditLimit), acct.StatementClosingDay, acct.StatementDueDay,
		)
		if isUnique(err) || (err != nil && strings.Contains(err.Error(), "PRIMARY KEY")) {
			return fmt.Errorf("account %d: %w", acct.ID, store.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("insert account: %w", err)
		}
		newID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("account id: %w", err)
		}
		acct.ID = newID
		return nil
	})
}

// ListAccounts returns the user's accounts ordered by ID.
func (s *Store) ListAccounts(ctx context.Context, userID int64) ([]model.Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, acct)
	}
	return out, rows.Err()
}

// --- rules ---

// FindMatchingRule returns the user's most specific rule whose keyword
// occurs in text.
func (s *Store) FindMatchingRule(ctx context.Context, userID int64, text string) (model.Rule, error) {
	var (
		r       model.Rule
		created string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, keyword, tag, created_at
		FROM rules
		WHERE user_id = ? AND instr(?, keyword) > 0
		ORDER BY length(keyword) DESC, keyword ASC
		LIMIT 1`, userID, strings.ToUpper(text)).Scan(&r.ID, &r.UserID, &r.Keyword, &r.Tag, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Rule{}, store.ErrNotFound
	}
	if err != nil {
		return model.Rule{}, fmt.Errorf("find rule: %w", err)
	}
	if r.CreatedAt, err = time.Parse(timeFormat, created); err != nil {
		return model.Rule{}, fmt.Errorf("parsing created_at %q: %w", created, err)
	}
	return r, nil
}

// CreateRule stores rule. Keywords are unique per user.
func (s *Store) CreateRule(ctx context.Context, rule *model.Rule) error {
	rule.Keyword = model.NormalizeKeyword(rule.Keyword)
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO rules (user_id, keyword, tag, created_at) VALUES (?, ?, ?, ?)`,
			rule.UserID, rule.Keyword, rule.Tag, rule.CreatedAt.Format(timeFormat))
		if isUnique(err) {
			return fmt.Errorf("rule %q: %w", rule.Keyword, store.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("insert rule: %w", err)
		}
		rule.ID, err = res.LastInsertId()
		return err
	})
}

// ListRules returns the user's rules ordered by keyword.
func (s *Store) ListRules(ctx context.Context, userID int64) ([]model.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, keyword, tag, created_at FROM rules WHERE user_id = ? ORDER BY keyword`, userID)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var out []model.Rule
	for rows.Next() {
		var (
			r       model.Rule
			created string
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.Keyword, &r.Tag, &created); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		if r.CreatedAt, err = time.Parse(timeFormat, created); err != nil {
			return nil, fmt.Errorf("parsing created_at %q: %w", created, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- categories ---

// FindCategoryByName looks up a category by exact name within a user.
func (s *Store) FindCategoryByName(ctx context.Context, userID int64, name string) (model.Category, error) {
	var c model.Category
	err := s.db.QueryRowContext(ctx, `SELECT id, user_id, name, color, icon FROM categories WHERE user_id = ? AND name = ?`,
		userID, name).Scan(&c.ID, &c.UserID, &c.Name, &c.Color, &c.Icon)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Category{}, store.ErrNotFound
	}
	if err != nil {
		return model.Category{}, fmt.Errorf("find category: %w", err)
	}
	return c, nil
}

// CreateCategory stores cat, filling in default icon and color.
func (s *Store) CreateCategory(ctx context.Context, cat *model.Category) error {
	if strings.TrimSpace(cat.Name) == "" {
		return errors.New("category name is required")
	}
	*cat = cat.WithDefaults()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO categories (user_id, name, color, icon) VALUES (?, ?, ?, ?)`,
			cat.UserID, cat.Name, cat.Color, cat.Icon)
		if isUnique(err) {
			return fmt.Errorf("category %q: %w", cat.Name, store.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("insert category: %w", err)
		}
		cat.ID, err = res.LastInsertId()
		return err
	})
}
