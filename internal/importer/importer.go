// Package importer turns bank statement tables into stored transactions.
package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/meudinheiro/meudinheiro/internal/journal"
	"github.com/meudinheiro/meudinheiro/internal/logger"
	"github.com/meudinheiro/meudinheiro/internal/model"
	"github.com/meudinheiro/meudinheiro/internal/schema"
	"github.com/meudinheiro/meudinheiro/internal/store"
)

// Row error policies.
const (
	OnRowErrorAbort = "abort"
	OnRowErrorSkip  = "skip"
)

// Defaults applied to imported rows.
const (
	DefaultTag      = "Geral"
	DefaultCategory = "Importado"
	DefaultLocation = "N/A"
)

// Store is the persistence the importer needs.
type Store interface {
	TransactionChecker
	GetAccount(ctx context.Context, id int64) (model.Account, error)
	InsertTransaction(ctx context.Context, txn *model.Transaction) error
	FindCategoryByName(ctx context.Context, userID int64, name string) (model.Category, error)
	CreateCategory(ctx context.Context, cat *model.Category) error
}

// Suggester proposes a tag for a description.
type Suggester interface {
	Suggest(ctx context.Context, description string, userID int64) (string, bool, error)
}

// Options tunes an import run.
type Options struct {
	DefaultTag string // used when the classifier has no suggestion
	Category   string // category every imported row is filed under
	OnRowError string // abort or skip
	Delimiter  rune   // 0 sniffs it from the header
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		DefaultTag: DefaultTag,
		Category:   DefaultCategory,
		OnRowError: OnRowErrorAbort,
	}
}

// Validate checks the options.
func (o Options) Validate() error {
	if o.OnRowError != OnRowErrorAbort && o.OnRowError != OnRowErrorSkip {
		return fmt.Errorf("on_row_error must be %q or %q, got %q", OnRowErrorAbort, OnRowErrorSkip, o.OnRowError)
	}
	if strings.TrimSpace(o.Category) == "" {
		return errors.New("import category is required")
	}
	return nil
}

// Result summarizes a run.
type Result struct {
	Imported int
	Skipped  int // duplicates
	Failed   int // unparseable rows, only with OnRowErrorSkip
	Mapping  schema.Mapping
}

// Importer writes statement rows into a store.
type Importer struct {
	store      Store
	classifier Suggester
	dupes      *DuplicateFilter
	opts       Options
}

// New returns an Importer. Empty options fall back to DefaultOptions.
func New(st Store, classifier Suggester, opts Options) *Importer {
	def := DefaultOptions()
	if opts.DefaultTag == "" {
		opts.DefaultTag = def.DefaultTag
	}
	if opts.Category == "" {
		opts.Category = def.Category
	}
	if opts.OnRowError == "" {
		opts.OnRowError = def.OnRowError
	}
	return &Importer{
		store:      st,
		classifier: classifier,
		dupes:      NewDuplicateFilter(st),
		opts:       opts,
	}
}

// ImportFile reads the statement at path and imports it into accountID.
func (im *Importer) ImportFile(ctx context.Context, path string, accountID int64) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("opening %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	t, err := schema.ReadTable(f, im.opts.Delimiter)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return im.Import(ctx, t, accountID)
}

// Import converts every row of t into a transaction on accountID. Rows
// already present are skipped. Each row is committed on its own, so a
// failure part way leaves earlier rows imported.
func (im *Importer) Import(ctx context.Context, t *schema.Table, accountID int64) (Result, error) {
	log := logger.FromContext(ctx).With().Int64("account_id", accountID).Logger()

	acct, err := im.store.GetAccount(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return Result{}, fmt.Errorf("account %d: %w", accountID, ErrAccountNotFound)
	}
	if err != nil {
		return Result{}, fmt.Errorf("loading account %d: %w", accountID, err)
	}

	if t == nil || t.Len() == 0 {
		return Result{}, &SchemaError{Empty: true}
	}
	m := schema.Infer(t)
	if !m.Complete() {
		return Result{Mapping: m}, &SchemaError{Mapping: m}
	}
	log.Info().Int("rows", t.Len()).Stringer("mapping", m).Msg("import started")

	run := &run{Importer: im, acct: acct, log: log, res: Result{Mapping: m}}
	for i, row := range t.Rows {
		if err := run.row(ctx, t.Line(i), row); err != nil {
			log.Error().Err(err).Int("imported", run.res.Imported).Msg("import aborted")
			return run.res, err
		}
	}

	log.Info().
		Int("imported", run.res.Imported).
		Int("skipped", run.res.Skipped).
		Int("failed", run.res.Failed).
		Msg("import finished")
	return run.res, nil
}

// run holds per-invocation state.
type run struct {
	*Importer
	acct       model.Account
	log        zerolog.Logger
	res        Result
	categoryID int64
}

func (r *run) row(ctx context.Context, line int, row []string) error {
	txn, err := r.parse(row)
	if err != nil {
		rowErr := &RowError{Line: line, Err: err}
		if r.opts.OnRowError == OnRowErrorSkip {
			r.res.Failed++
			r.log.Warn().Err(rowErr).Msg("skipping unparseable row")
			return nil
		}
		return rowErr
	}

	dup, err := r.dupes.IsDuplicate(ctx, txn, r.acct.UserID)
	if err != nil {
		return fmt.Errorf("row %d: checking duplicate: %w: %w", line, ErrPersistence, err)
	}
	if dup {
		r.res.Skipped++
		r.log.Debug().Int("line", line).Str("description", txn.Description).Msg("duplicate skipped")
		return nil
	}

	tag, ok, err := r.classifier.Suggest(ctx, txn.Description, r.acct.UserID)
	if err != nil {
		return fmt.Errorf("row %d: classifying: %w: %w", line, ErrPersistence, err)
	}
	if !ok {
		tag = r.opts.DefaultTag
	}
	txn.Tag = tag

	if txn.CategoryID, err = r.category(ctx); err != nil {
		return fmt.Errorf("row %d: %w: %w", line, ErrPersistence, err)
	}

	if err := r.store.InsertTransaction(ctx, &txn); err != nil {
		return fmt.Errorf("row %d: inserting transaction: %w: %w", line, ErrPersistence, err)
	}
	r.res.Imported++
	return nil
}

// parse builds the transaction for one row, without tag or category.
func (r *run) parse(row []string) (model.Transaction, error) {
	m := r.res.Mapping
	date, err := schema.ParseDate(row[m.Date])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing date: %w", err)
	}
	signed, err := schema.ParseAmount(row[m.Amount])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing amount: %w", err)
	}
	amount := signed.Abs()
	if rounded := amount.Round(2); !rounded.Equal(amount) {
		r.log.Warn().Str("amount", amount.String()).Str("rounded", rounded.StringFixed(2)).Msg("rounded amount to cents")
		amount = rounded
	}
	txn := model.Transaction{
		Amount:      amount,
		Kind:        model.KindFromSigned(signed),
		Date:        date,
		Description: strings.TrimSpace(row[m.Description]),
		Location:    DefaultLocation,
		AccountID:   r.acct.ID,
		UserID:      r.acct.UserID,
		Settled:     true,
		Automatic:   true,
		RecordType:  model.RecordCommon,
	}
	if errs := journal.Validate(txn); len(errs) > 0 {
		return model.Transaction{}, errs[0]
	}
	return txn, nil
}

// category returns the import category ID, creating the category on first
// use in this run.
func (r *run) category(ctx context.Context) (int64, error) {
	if r.categoryID != 0 {
		return r.categoryID, nil
	}
	cat, err := r.store.FindCategoryByName(ctx, r.acct.UserID, r.opts.Category)
	switch {
	case errors.Is(err, store.ErrNotFound):
		cat = model.Category{UserID: r.acct.UserID, Name: r.opts.Category}
		if err := r.store.CreateCategory(ctx, &cat); err != nil {
			return 0, fmt.Errorf("creating category %q: %w", r.opts.Category, err)
		}
		r.log.Info().Str("category", cat.Name).Msg("created import category")
	case err != nil:
		return 0, fmt.Errorf("looking up category %q: %w", r.opts.Category, err)
	}
	r.categoryID = cat.ID
	return cat.ID, nil
}

// processedDir is the subdirectory of the import directory that holds
// imported files.
const processedDir = "processed"

// FileInfo describes a CSV file in the import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// Scan returns the CSV files directly inside dir. A missing dir yields none.
func Scan(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from dir to dir/processed/.
func MarkProcessed(dir, fileName string) error {
	dstDir := filepath.Join(dir, processedDir)
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	src := filepath.Join(dir, fileName)
	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}
