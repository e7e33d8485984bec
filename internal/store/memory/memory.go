// Package memory is an in-process Store used by tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meudinheiro/meudinheiro/internal/model"
	"github.com/meudinheiro/meudinheiro/internal/store"
)

// Store keeps every record in memory behind a single mutex.
type Store struct {
	mu           sync.RWMutex
	transactions []model.Transaction
	accounts     map[int64]model.Account
	rules        []model.Rule
	categories   []model.Category
	nextID       int64
}

var _ store.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{accounts: make(map[int64]model.Account)}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// InsertTransaction stores txn, assigning an ID when it has none.
func (s *Store) InsertTransaction(_ context.Context, txn *model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}
	for _, existing := range s.transactions {
		if existing.ID == txn.ID {
			return fmt.Errorf("transaction %s: %w", txn.ID, store.ErrConflict)
		}
	}
	s.transactions = append(s.transactions, *txn)
	return nil
}

// FindTransaction returns the first transaction matching f.
func (s *Store) FindTransaction(_ context.Context, f store.Filter) (model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, txn := range s.transactions {
		if f.Matches(txn) {
			return txn, nil
		}
	}
	return model.Transaction{}, store.ErrNotFound
}

// TransactionExists reports whether any transaction matches f.
func (s *Store) TransactionExists(ctx context.Context, f store.Filter) (bool, error) {
	_, err := s.FindTransaction(ctx, f)
	if err == store.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

// ListTransactions returns all transactions matching f ordered by date.
func (s *Store) ListTransactions(_ context.Context, f store.Filter) ([]model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Transaction
	for _, txn := range s.transactions {
		if f.Matches(txn) {
			out = append(out, txn)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// RankTags counts the tags of the user's transactions whose description
// contains the given text, ignoring case.
func (s *Store) RankTags(_ context.Context, userID int64, contains string) ([]store.TagCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, txn := range s.transactions {
		if txn.UserID != userID || txn.Tag == "" {
			continue
		}
		if store.ContainsFold(txn.Description, contains) {
			counts[txn.Tag]++
		}
	}

	ranked := make([]store.TagCount, 0, len(counts))
	for tag, n := range counts {
		ranked = append(ranked, store.TagCount{Tag: tag, Count: n})
	}
	store.SortTagCounts(ranked)
	return ranked, nil
}

// GetAccount returns the account with the given ID.
func (s *Store) GetAccount(_ context.Context, id int64) (model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[id]
	if !ok {
		return model.Account{}, store.ErrNotFound
	}
	return acct, nil
}

// CreateAccount stores acct, assigning an ID when it has none.
func (s *Store) CreateAccount(_ context.Context, acct *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if acct.ID == 0 {
		acct.ID = s.id()
	} else if acct.ID > s.nextID {
		s.nextID = acct.ID
	}
	if _, ok := s.accounts[acct.ID]; ok {
		return fmt.Errorf("account %d: %w", acct.ID, store.ErrConflict)
	}
	s.accounts[acct.ID] = *acct
	return nil
}

// ListAccounts returns the user's accounts ordered by ID.
func (s *Store) ListAccounts(_ context.Context, userID int64) ([]model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Account
	for _, acct := range s.accounts {
		if acct.UserID == userID {
			out = append(out, acct)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FindMatchingRule returns the user's most specific rule whose keyword
// occurs in text.
func (s *Store) FindMatchingRule(_ context.Context, userID int64, text string) (model.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidates []model.Rule
	for _, r := range s.rules {
		if r.UserID == userID {
			candidates = append(candidates, r)
		}
	}
	if r, ok := store.BestRule(candidates, text); ok {
		return r, nil
	}
	return model.Rule{}, store.ErrNotFound
}

// CreateRule stores rule. Keywords are unique per user.
func (s *Store) CreateRule(_ context.Context, rule *model.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule.Keyword = model.NormalizeKeyword(rule.Keyword)
	for _, r := range s.rules {
		if r.UserID == rule.UserID && r.Keyword == rule.Keyword {
			return fmt.Errorf("rule %q: %w", rule.Keyword, store.ErrConflict)
		}
	}
	rule.ID = s.id()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}
	s.rules = append(s.rules, *rule)
	return nil
}

// ListRules returns the user's rules ordered by keyword.
func (s *Store) ListRules(_ context.Context, userID int64) ([]model.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Rule
	for _, r := range s.rules {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Keyword < out[j].Keyword })
	return out, nil
}

// FindCategoryByName looks up a category by exact name within a user.
func (s *Store) FindCategoryByName(_ context.Context, userID int64, name string) (model.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.categories {
		if c.UserID == userID && c.Name == name {
			return c, nil
		}
	}
	return model.Category{}, store.ErrNotFound
}

// CreateCategory stores cat, filling in default icon and color.
func (s *Store) CreateCategory(_ context.Context, cat *model.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(cat.Name) == "" {
		return fmt.Errorf("category name is required")
	}
	*cat = cat.WithDefaults()
	cat.ID = s.id()
	s.categories = append(s.categories, *cat)
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
