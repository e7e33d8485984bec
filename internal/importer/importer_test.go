package importer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meudinheiro/meudinheiro/internal/classify"
	"github.com/meudinheiro/meudinheiro/internal/journal"
	"github.com/meudinheiro/meudinheiro/internal/logger"
	"github.com/meudinheiro/meudinheiro/internal/model"
	"github.com/meudinheiro/meudinheiro/internal/schema"
	"github.com/meudinheiro/meudinheiro/internal/store"
	"github.com/meudinheiro/meudinheiro/internal/store/memory"
)

const extrato = "../../testdata/extrato.csv"

func setup(t *testing.T) (*memory.Store, model.Account) {
	t.Helper()
	s := memory.New()
	acct := model.Account{
		ID:             1,
		UserID:         7,
		Name:           "Nubank",
		Type:           model.AccountTypeChecking,
		OpeningBalance: decimal.NewFromInt(5000),
	}
	require.NoError(t, s.CreateAccount(context.Background(), &acct))
	return s, acct
}

func newImporter(s *memory.Store, opts Options) *Importer {
	return New(s, classify.New(s, s), opts)
}

func readTable(t *testing.T, csv string) *schema.Table {
	t.Helper()
	tbl, err := schema.ReadTable(strings.NewReader(csv), 0)
	require.NoError(t, err)
	return tbl
}

func TestImportFile(t *testing.T) {
	ctx := context.Background()
	s, acct := setup(t)
	require.NoError(t, s.CreateRule(ctx, &model.Rule{UserID: acct.UserID, Keyword: "uber", Tag: "Transporte"}))

	res, err := newImporter(s, Options{}).ImportFile(ctx, extrato, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, res.Imported)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, "date->Data Lançamento, amount->Valor (R$), description->Histórico", res.Mapping.String())

	txns, err := s.ListTransactions(ctx, store.Filter{AccountID: acct.ID})
	require.NoError(t, err)
	require.Len(t, txns, 6)

	cat, err := s.FindCategoryByName(ctx, acct.UserID, DefaultCategory)
	require.NoError(t, err)

	uber := txns[0]
	assert.Equal(t, "UBER TRIP 412", uber.Description)
	assert.Equal(t, "32.90", uber.Amount.StringFixed(2))
	assert.Equal(t, model.KindExpense, uber.Kind)
	assert.Equal(t, "Transporte", uber.Tag)

	pix := txns[2]
	assert.Equal(t, "PIX RECEBIDO 733", pix.Description)
	assert.Equal(t, model.KindIncome, pix.Kind)
	assert.Equal(t, DefaultTag, pix.Tag)

	for _, txn := range txns {
		assert.False(t, txn.Amount.IsNegative(), "amount of %s", txn.Description)
		assert.Equal(t, cat.ID, txn.CategoryID)
		assert.Equal(t, acct.UserID, txn.UserID)
		assert.Equal(t, DefaultLocation, txn.Location)
		assert.Equal(t, model.RecordCommon, txn.RecordType)
		assert.True(t, txn.Settled)
		assert.True(t, txn.Automatic)
		assert.False(t, txn.Ignore)
	}
}

func TestImportIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, acct := setup(t)
	im := newImporter(s, Options{})

	first, err := im.ImportFile(ctx, extrato, acct.ID)
	require.NoError(t, err)
	second, err := im.ImportFile(ctx, extrato, acct.ID)
	require.NoError(t, err)

	assert.Equal(t, 0, second.Imported)
	assert.Equal(t, first.Imported, second.Skipped)

	txns, err := s.ListTransactions(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Len(t, txns, 6)
}

func TestImportSemicolonStatement(t *testing.T) {
	ctx := context.Background()
	s, acct := setup(t)

	res, err := newImporter(s, Options{}).ImportFile(ctx, "../../testdata/extrato_semicolon.csv", acct.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)

	txns, err := s.ListTransactions(ctx, store.Filter{AccountID: acct.ID})
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, "45.00", txns[0].Amount.StringFixed(2))
	assert.Equal(t, model.KindExpense, txns[0].Kind)
	assert.Equal(t, "200.00", txns[1].Amount.StringFixed(2))
	assert.Equal(t, model.KindIncome, txns[1].Kind)
}

func TestImportTagsFromHistory(t *testing.T) {
	ctx := context.Background()
	s, acct := setup(t)
	im := newImporter(s, Options{DefaultTag: "Outros"})

	_, err := im.Import(ctx, readTable(t, "Data,Descricao,Valor\n01/03/2026,MERCADO SAO JOSE 1,-10.00\n"), acct.ID)
	require.NoError(t, err)
	txns, err := s.ListTransactions(ctx, store.Filter{})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "Outros", txns[0].Tag)

	// Retag by hand, then import a similar row.
	retagged := txns[0]
	retagged.ID = uuid.Nil
	retagged.Tag = "Alimentacao"
	retagged.Description = "MERCADO SAO JOSE 0"
	require.NoError(t, s.InsertTransaction(ctx, &retagged))
	retagged.ID = uuid.Nil
	retagged.Description = "MERCADO SAO JOSE 00"
	require.NoError(t, s.InsertTransaction(ctx, &retagged))

	_, err = im.Import(ctx, readTable(t, "Data,Descricao,Valor\n02/03/2026,MERCADO SAO JOSE 2,-20.00\n"), acct.ID)
	require.NoError(t, err)
	txn, err := s.FindTransaction(ctx, store.Filter{Amount: decimal.NewNullDecimal(decimal.NewFromInt(20))})
	require.NoError(t, err)
	assert.Equal(t, "Alimentacao", txn.Tag)
}

func TestImportReusesExistingCategory(t *testing.T) {
	ctx := context.Background()
	s, acct := setup(t)
	existing := model.Category{UserID: acct.UserID, Name: "Extrato"}
	require.NoError(t, s.CreateCategory(ctx, &existing))

	_, err := newImporter(s, Options{Category: "Extrato"}).ImportFile(ctx, extrato, acct.ID)
	require.NoError(t, err)

	txns, err := s.ListTransactions(ctx, store.Filter{})
	require.NoError(t, err)
	for _, txn := range txns {
		assert.Equal(t, existing.ID, txn.CategoryID)
	}
}

func TestImportAccountNotFound(t *testing.T) {
	ctx := context.Background()
	s, _ := setup(t)

	_, err := newImporter(s, Options{}).ImportFile(ctx, extrato, 99)
	assert.ErrorIs(t, err, ErrAccountNotFound)

	txns, err := s.ListTransactions(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Empty(t, txns)
	_, err = s.FindCategoryByName(ctx, 7, DefaultCategory)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestImportSchemaErrors(t *testing.T) {
	ctx := context.Background()
	s, acct := setup(t)
	im := newImporter(s, Options{})

	_, err := im.Import(ctx, readTable(t, "Data,Descricao\n01/03/2026,UBER\n"), acct.ID)
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, []string{"amount"}, schemaErr.Mapping.Missing())
	assert.Contains(t, err.Error(), "missing amount")

	_, err = im.Import(ctx, readTable(t, "Data,Descricao,Valor\n"), acct.ID)
	require.ErrorAs(t, err, &schemaErr)
	assert.True(t, schemaErr.Empty)
	assert.Equal(t, []string{"date", "amount", "description"}, schemaErr.Missing())

	_, err = im.Import(ctx, nil, acct.ID)
	require.ErrorAs(t, err, &schemaErr)

	txns, err := s.ListTransactions(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Empty(t, txns)
}

const badRow = "Data,Descricao,Valor\n" +
	"01/03/2026,UBER 1,-10.00\n" +
	"02/03/2026,UBER 2,\n" +
	"03/03/2026,UBER 3,-30.00\n"

func TestImportRowErrorAborts(t *testing.T) {
	ctx := context.Background()
	s, acct := setup(t)

	res, err := newImporter(s, Options{}).Import(ctx, readTable(t, badRow), acct.ID)
	var rowErr *RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 3, rowErr.Line)
	assert.Contains(t, err.Error(), "row 3: parsing amount")
	assert.Equal(t, 1, res.Imported)

	txns, err := s.ListTransactions(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}

func TestImportRowErrorSkips(t *testing.T) {
	ctx := context.Background()
	s, acct := setup(t)

	var buf bytes.Buffer
	ctx = logger.WithContext(ctx, logger.NewWithWriter(&buf, "debug"))

	res, err := newImporter(s, Options{OnRowError: OnRowErrorSkip}).Import(ctx, readTable(t, badRow), acct.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 1, res.Failed)
	assert.Contains(t, buf.String(), "skipping unparseable row")
	assert.Contains(t, buf.String(), "import finished")
}

func TestImportRoundsFractionalCents(t *testing.T) {
	ctx := context.Background()
	s, acct := setup(t)

	var buf bytes.Buffer
	ctx = logger.WithContext(ctx, logger.NewWithWriter(&buf, "info"))

	res, err := newImporter(s, Options{}).Import(ctx, readTable(t, "Data,Descricao,Valor\n01/03/2026,UBER 1,-10.005\n02/03/2026,UBER 2,-3.50\n"), acct.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Contains(t, buf.String(), "rounded amount to cents")

	txns, err := s.ListTransactions(ctx, store.Filter{})
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, "10.01", txns[0].Amount.String())
	assert.Equal(t, model.KindExpense, txns[0].Kind)
	assert.Equal(t, "3.5", txns[1].Amount.String())
}

func TestImportRowErrorReportsSourceLine(t *testing.T) {
	ctx := context.Background()
	s, acct := setup(t)

	in := "Data,Descricao,Valor\n" +
		"01/03/2026,UBER 1,-10.00\n" +
		"\n" +
		"\n" +
		"02/03/2026,UBER 2,\n"
	_, err := newImporter(s, Options{}).Import(ctx, readTable(t, in), acct.ID)
	var rowErr *RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 5, rowErr.Line)
	assert.Contains(t, err.Error(), "row 5: parsing amount")
}

// failingStore fails every insert after the first n.
type failingStore struct {
	*memory.Store
	n int
}

func (f *failingStore) InsertTransaction(ctx context.Context, txn *model.Transaction) error {
	if f.n == 0 {
		return errors.New("connection reset")
	}
	f.n--
	return f.Store.InsertTransaction(ctx, txn)
}

func TestImportPersistenceFailure(t *testing.T) {
	ctx := context.Background()
	s, acct := setup(t)
	fs := &failingStore{Store: s, n: 2}

	res, err := New(fs, classify.New(s, s), Options{}).ImportFile(ctx, extrato, acct.ID)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, 2, res.Imported)

	txns, err := s.ListTransactions(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Len(t, txns, 2, "rows before the failure stay committed")
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())
	assert.Error(t, Options{Category: "x", OnRowError: "retry"}.Validate())
	assert.Error(t, Options{OnRowError: OnRowErrorSkip}.Validate())
}

func TestDuplicateFilter(t *testing.T) {
	ctx := context.Background()
	s, acct := setup(t)
	_, err := newImporter(s, Options{}).ImportFile(ctx, extrato, acct.ID)
	require.NoError(t, err)

	txns, err := s.ListTransactions(ctx, store.Filter{})
	require.NoError(t, err)
	candidate := txns[0]
	candidate.ID = uuid.Nil

	d := NewDuplicateFilter(s)
	dup, err := d.IsDuplicate(ctx, candidate, acct.UserID)
	require.NoError(t, err)
	assert.True(t, dup)

	dup, err = d.IsDuplicate(ctx, candidate, acct.UserID+1)
	require.NoError(t, err)
	assert.False(t, dup, "other user")

	shifted := candidate
	shifted.Date = shifted.Date.AddDate(0, 0, 1)
	dup, err = d.IsDuplicate(ctx, shifted, acct.UserID)
	require.NoError(t, err)
	assert.False(t, dup, "next day")

	renamed := candidate
	renamed.Description = strings.ToLower(candidate.Description)
	dup, err = d.IsDuplicate(ctx, renamed, acct.UserID)
	require.NoError(t, err)
	assert.False(t, dup, "description must match exactly")

	cents := candidate
	cents.Amount = cents.Amount.Add(decimal.RequireFromString("0.01"))
	dup, err = d.IsDuplicate(ctx, cents, acct.UserID)
	require.NoError(t, err)
	assert.False(t, dup, "amount must match exactly")
}

func TestScan_FindsCSVs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extrato.csv"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "FATURA.CSV"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("data"), 0o644))

	files, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "FATURA.CSV", files[0].Name)
	assert.Equal(t, "extrato.csv", files[1].Name)
	assert.Equal(t, int64(4), files[1].Size)
}

func TestScan_IgnoresProcessedDir(t *testing.T) {
	dir := t.TempDir()
	processed := filepath.Join(dir, "processed")
	require.NoError(t, os.MkdirAll(processed, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.csv"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(processed, "old.csv"), []byte("data"), 0o644))

	files, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "new.csv", files[0].Name)
}

func TestScan_MissingDir(t *testing.T) {
	files, err := Scan(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Nil(t, files)
}

func TestMarkProcessed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extrato.csv"), []byte("data"), 0o644))

	require.NoError(t, MarkProcessed(dir, "extrato.csv"))

	_, err := os.Stat(filepath.Join(dir, "extrato.csv"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "processed", "extrato.csv"))
	assert.NoError(t, err)
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	src, acct := setup(t)
	require.NoError(t, src.CreateRule(ctx, &model.Rule{UserID: acct.UserID, Keyword: "uber", Tag: "Transporte"}))
	_, err := newImporter(src, Options{}).ImportFile(ctx, extrato, acct.ID)
	require.NoError(t, err)

	exported, err := src.ListTransactions(ctx, store.Filter{AccountID: acct.ID})
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, journal.WriteTransactions(&buf, exported))

	dst, _ := setup(t)
	im := newImporter(dst, Options{})
	res, err := im.Restore(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 6, res.Imported)
	assert.Equal(t, 0, res.Skipped)

	restored, err := dst.ListTransactions(ctx, store.Filter{AccountID: acct.ID})
	require.NoError(t, err)
	require.Len(t, restored, 6)
	assert.Equal(t, exported[0].ID, restored[0].ID)
	assert.Equal(t, "Transporte", restored[0].Tag)
	assert.Equal(t, acct.UserID, restored[0].UserID)

	res, err = im.Restore(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Imported)
	assert.Equal(t, 6, res.Skipped)
}

func TestRestoreUnknownAccount(t *testing.T) {
	ctx := context.Background()
	s, acct := setup(t)

	txn := model.Transaction{
		ID:          uuid.New(),
		Amount:      decimal.RequireFromString("12.00"),
		Kind:        model.KindExpense,
		Date:        time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Description: "PADARIA",
		AccountID:   acct.ID + 100,
		Settled:     true,
		RecordType:  model.RecordCommon,
	}
	var buf bytes.Buffer
	require.NoError(t, journal.WriteTransactions(&buf, []model.Transaction{txn}))

	_, err := newImporter(s, Options{}).Restore(ctx, &buf)
	require.ErrorIs(t, err, ErrAccountNotFound)

	txns, err := s.ListTransactions(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Empty(t, txns)
}
