package classify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meudinheiro/meudinheiro/internal/model"
	"github.com/meudinheiro/meudinheiro/internal/store"
	"github.com/meudinheiro/meudinheiro/internal/store/memory"
)

func seed(t *testing.T, s *memory.Store, desc, tag string) {
	t.Helper()
	require.NoError(t, s.InsertTransaction(context.Background(), &model.Transaction{
		Amount:      decimal.NewFromInt(10),
		Kind:        model.KindExpense,
		Date:        time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		Description: desc,
		AccountID:   1,
		UserID:      1,
		Tag:         tag,
	}))
}

func TestSuggestRuleWinsOverHistory(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.CreateRule(ctx, &model.Rule{UserID: 1, Keyword: "UBER", Tag: "Transporte"}))
	for i := 0; i < 5; i++ {
		seed(t, s, "UBER TRIP 123", "Lazer")
	}

	c := New(s, s)
	tag, ok, err := c.Suggest(ctx, "Uber trip 999", 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Transporte", tag)
}

func TestSuggestLongestRuleWins(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.CreateRule(ctx, &model.Rule{UserID: 1, Keyword: "UBER", Tag: "Transporte"}))
	require.NoError(t, s.CreateRule(ctx, &model.Rule{UserID: 1, Keyword: "UBER EATS", Tag: "Alimentacao"}))

	tag, ok, err := New(s, s).Suggest(ctx, "UBER EATS PEDIDO", 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Alimentacao", tag)
}

func TestSuggestFromHistory(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seed(t, s, "MERCADO SAO JOSE 100", "Alimentacao")
	seed(t, s, "Mercado Sao Jose 200", "Alimentacao")
	seed(t, s, "MERCADO SAO JOSE 300", "Casa")
	seed(t, s, "MERCADO SAO JOSE 400", "")

	tag, ok, err := New(s, s).Suggest(ctx, "MERCADO SAO JOSE 291", 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Alimentacao", tag)
}

func TestSuggestHistoryTieBreaksByTag(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seed(t, s, "PADARIA PAO QUENTE", "Padaria")
	seed(t, s, "PADARIA PAO QUENTE", "Alimentacao")

	tag, ok, err := New(s, s).Suggest(ctx, "PADARIA PAO QUENTE", 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Alimentacao", tag)
}

func TestSuggestNone(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seed(t, s, "NETFLIX", "Assinaturas")

	c := New(s, s)
	_, ok, err := c.Suggest(ctx, "FARMACIA PRECO BOM", 1)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = c.Suggest(ctx, "NETFLIX", 2)
	require.NoError(t, err)
	assert.False(t, ok, "history is per user")

	_, ok, err = c.Suggest(ctx, "   ", 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

type failingRules struct{}

func (failingRules) FindMatchingRule(context.Context, int64, string) (model.Rule, error) {
	return model.Rule{}, errors.New("disk on fire")
}

func TestSuggestPropagatesLookupErrors(t *testing.T) {
	s := memory.New()
	_, _, err := New(failingRules{}, s).Suggest(context.Background(), "UBER", 1)
	assert.ErrorContains(t, err, "matching rules")
	assert.NotErrorIs(t, err, store.ErrNotFound)
}

func TestPrefix(t *testing.T) {
	assert.Equal(t, "FARMÁCIA P", prefix("FARMÁCIA PRECO BOM", 10))
	assert.Equal(t, "UBER", prefix("UBER", 10))
}
