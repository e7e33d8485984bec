package accounts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/meudinheiro/meudinheiro/internal/model"
	"github.com/meudinheiro/meudinheiro/internal/store"
)

// Store persists accounts.
type Store interface {
	GetAccount(ctx context.Context, id int64) (model.Account, error)
	CreateAccount(ctx context.Context, acct *model.Account) error
	ListAccounts(ctx context.Context, userID int64) ([]model.Account, error)
}

// Service validates and manages accounts in a store.
type Service struct {
	store Store
}

// NewService creates a Service over st.
func NewService(st Store) *Service {
	return &Service{store: st}
}

// Validate checks an account definition.
func Validate(acct model.Account) error {
	if strings.TrimSpace(acct.Name) == "" {
		return errors.New("name is required")
	}
	if acct.UserID == 0 {
		return errors.New("user_id is required")
	}
	if !acct.Type.Valid() {
		return fmt.Errorf("unknown account type %q", acct.Type)
	}
	if acct.OverdraftLimit.Valid && acct.Type != model.AccountTypeChecking {
		return fmt.Errorf("overdraft_limit only applies to checking accounts, not %s", acct.Type)
	}
	if acct.CreditLimit.Valid && acct.Type != model.AccountTypeCreditCard {
		return fmt.Errorf("credit_limit only applies to credit cards, not %s", acct.Type)
	}
	limits := []struct {
		name  string
		value decimal.NullDecimal
	}{
		{"overdraft_limit", acct.OverdraftLimit},
		{"credit_limit", acct.CreditLimit},
		{"safety_balance", acct.SafetyBalance},
	}
	for _, l := range limits {
		if l.value.Valid && l.value.Decimal.IsNegative() {
			return fmt.Errorf("%s must not be negative", l.name)
		}
	}
	return nil
}

// Add validates acct and stores it.
func (s *Service) Add(ctx context.Context, acct *model.Account) error {
	if err := Validate(*acct); err != nil {
		return fmt.Errorf("account %q: %w", acct.Name, err)
	}
	if err := s.store.CreateAccount(ctx, acct); err != nil {
		return fmt.Errorf("creating account %q: %w", acct.Name, err)
	}
	return nil
}

// Get returns an account by ID.
func (s *Service) Get(ctx context.Context, id int64) (model.Account, error) {
	return s.store.GetAccount(ctx, id)
}

// List returns the user's accounts.
func (s *Service) List(ctx context.Context, userID int64) ([]model.Account, error) {
	return s.store.ListAccounts(ctx, userID)
}

// ByType returns the user's accounts of the given type.
func (s *Service) ByType(ctx context.Context, userID int64, accountType model.AccountType) ([]model.Account, error) {
	all, err := s.store.ListAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	var result []model.Account
	for _, a := range all {
		if a.Type == accountType {
			result = append(result, a)
		}
	}
	return result, nil
}

// LoadResult counts what LoadFile did.
type LoadResult struct {
	Created  int
	Existing int // rows whose account_id is already stored
}

// LoadFile adds every account defined in an accounts.csv file. Rows whose
// ID already exists are left untouched, so loading the same file twice is
// harmless.
func (s *Service) LoadFile(ctx context.Context, path string) (LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return LoadResult{}, fmt.Errorf("opening accounts file: %w", err)
	}
	defer f.Close()

	accts, err := ReadAccounts(f)
	if err != nil {
		return LoadResult{}, fmt.Errorf("reading accounts file: %w", err)
	}

	var res LoadResult
	for i := range accts {
		acct := &accts[i]
		if acct.ID != 0 {
			_, err := s.store.GetAccount(ctx, acct.ID)
			if err == nil {
				res.Existing++
				continue
			}
			if !errors.Is(err, store.ErrNotFound) {
				return res, fmt.Errorf("looking up account %d: %w", acct.ID, err)
			}
		}
		if err := s.Add(ctx, acct); err != nil {
			return res, err
		}
		res.Created++
	}
	return res, nil
}

// SaveFile writes the user's accounts to path in accounts.csv format.
func (s *Service) SaveFile(ctx context.Context, userID int64, path string) error {
	accts, err := s.store.ListAccounts(ctx, userID)
	if err != nil {
		return fmt.Errorf("listing accounts: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating accounts file: %w", err)
	}
	defer f.Close()

	if err := WriteAccounts(f, accts); err != nil {
		return fmt.Errorf("writing accounts file: %w", err)
	}
	return f.Close()
}

// EnsureDefaults creates DefaultAccounts for a user that has none yet and
// returns how many were created.
func (s *Service) EnsureDefaults(ctx context.Context, userID int64) (int, error) {
	existing, err := s.store.ListAccounts(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("listing accounts: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}
	defaults := DefaultAccounts(userID)
	for i := range defaults {
		if err := s.Add(ctx, &defaults[i]); err != nil {
			return i, err
		}
	}
	return len(defaults), nil
}
