// Package classify suggests a tag for a statement description from the
// user's keyword rules and tagging history.
package classify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/meudinheiro/meudinheiro/internal/model"
	"github.com/meudinheiro/meudinheiro/internal/store"
)

// HistoryPrefix is how many leading characters of a description are matched
// against past transactions.
const HistoryPrefix = 10

// RuleFinder returns the user's best rule whose keyword occurs in text, or
// store.ErrNotFound.
type RuleFinder interface {
	FindMatchingRule(ctx context.Context, userID int64, text string) (model.Rule, error)
}

// TagRanker counts tags of past transactions whose description contains text,
// most frequent first.
type TagRanker interface {
	RankTags(ctx context.Context, userID int64, contains string) ([]store.TagCount, error)
}

// Classifier picks a tag for a description. Rules win over history.
type Classifier struct {
	rules   RuleFinder
	history TagRanker
}

// New returns a Classifier backed by the given lookups.
func New(rules RuleFinder, history TagRanker) *Classifier {
	return &Classifier{rules: rules, history: history}
}

// Suggest returns a tag and true, or false when neither rules nor history
// produce one.
func (c *Classifier) Suggest(ctx context.Context, description string, userID int64) (string, bool, error) {
	if strings.TrimSpace(description) == "" {
		return "", false, nil
	}

	rule, err := c.rules.FindMatchingRule(ctx, userID, strings.ToUpper(description))
	switch {
	case err == nil:
		return rule.Tag, true, nil
	case !errors.Is(err, store.ErrNotFound):
		return "", false, fmt.Errorf("matching rules: %w", err)
	}

	ranked, err := c.history.RankTags(ctx, userID, prefix(description, HistoryPrefix))
	if err != nil {
		return "", false, fmt.Errorf("ranking history: %w", err)
	}
	for _, tc := range ranked {
		if tc.Tag != "" {
			return tc.Tag, true, nil
		}
	}
	return "", false, nil
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
