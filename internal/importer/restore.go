package importer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/meudinheiro/meudinheiro/internal/journal"
	"github.com/meudinheiro/meudinheiro/internal/logger"
	"github.com/meudinheiro/meudinheiro/internal/model"
	"github.com/meudinheiro/meudinheiro/internal/store"
)

// Restore loads transactions written by journal.WriteTransactions, keeping
// their IDs, kinds, tags and flags. Rows already present, by ID or by
// (day, amount, description), are skipped. Restored rows are filed under
// the import category of their account's user. Unlike Import, a bad row
// always aborts before anything is written.
func (im *Importer) Restore(ctx context.Context, r io.Reader) (Result, error) {
	log := logger.FromContext(ctx)

	txns, err := journal.ReadTransactions(r)
	if err != nil {
		return Result{}, err
	}

	runs := make(map[int64]*run)
	for i, txn := range txns {
		if _, ok := runs[txn.AccountID]; ok {
			continue
		}
		acct, err := im.store.GetAccount(ctx, txn.AccountID)
		if errors.Is(err, store.ErrNotFound) {
			return Result{}, fmt.Errorf("row %d: account %d: %w", i+2, txn.AccountID, ErrAccountNotFound)
		}
		if err != nil {
			return Result{}, fmt.Errorf("row %d: loading account %d: %w", i+2, txn.AccountID, err)
		}
		runs[acct.ID] = &run{Importer: im, acct: acct, log: log.With().Int64("account_id", acct.ID).Logger()}
	}

	for i := range txns {
		txns[i].UserID = runs[txns[i].AccountID].acct.UserID
		if errs := journal.Validate(txns[i]); len(errs) > 0 {
			return Result{}, &RowError{Line: i + 2, Err: errs[0]}
		}
	}

	var res Result
	for i, txn := range txns {
		ok, err := runs[txn.AccountID].restore(ctx, txn)
		if err != nil {
			return res, fmt.Errorf("row %d: %w: %w", i+2, ErrPersistence, err)
		}
		if ok {
			res.Imported++
		} else {
			res.Skipped++
		}
	}

	log.Info().Int("restored", res.Imported).Int("skipped", res.Skipped).Msg("restore finished")
	return res, nil
}

// restore inserts txn unless it is already stored.
func (r *run) restore(ctx context.Context, txn model.Transaction) (bool, error) {
	dup, err := r.dupes.IsDuplicate(ctx, txn, r.acct.UserID)
	if err != nil {
		return false, fmt.Errorf("checking duplicate: %w", err)
	}
	if dup {
		return false, nil
	}
	if txn.CategoryID, err = r.category(ctx); err != nil {
		return false, err
	}
	err = r.store.InsertTransaction(ctx, &txn)
	if errors.Is(err, store.ErrConflict) {
		r.log.Debug().Str("id", txn.ID.String()).Msg("transaction id already present")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("inserting transaction: %w", err)
	}
	return true, nil
}
