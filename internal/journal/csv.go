package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meudinheiro/meudinheiro/internal/model"
)

// Header is the CSV header of a transaction export.
const Header = "id,date,account_id,kind,amount,description,location,tag,category_id,settled,ignore,automatic,record_type"

const (
	numFields    = 13
	dateFormat   = "2006-01-02"
	colID        = 0
	colDate      = 1
	colAcctID    = 2
	colKind      = 3
	colAmount    = 4
	colDesc      = 5
	colLocation  = 6
	colTag       = 7
	colCategory  = 8
	colSettled   = 9
	colIgnore    = 10
	colAutomatic = 11
	colRecord    = 12
)

// ReadTransactions reads an export produced by WriteTransactions. UserID is
// not part of the file and is left zero.
func ReadTransactions(r io.Reader) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading transactions CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var txns []model.Transaction
	for i, rec := range records[1:] {
		txn, err := UnmarshalTransaction(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

// WriteTransactions writes txns with a header row.
func WriteTransactions(w io.Writer, txns []model.Transaction) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, txn := range txns {
		if err := cw.Write(MarshalTransaction(txn)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalTransaction converts a Transaction to a CSV row.
func MarshalTransaction(txn model.Transaction) []string {
	row := make([]string, numFields)
	row[colID] = txn.ID.String()
	row[colDate] = txn.Date.Format(dateFormat)
	row[colAcctID] = strconv.FormatInt(txn.AccountID, 10)
	row[colKind] = string(txn.Kind)
	row[colAmount] = txn.Amount.StringFixed(2)
	row[colDesc] = txn.Description
	row[colLocation] = txn.Location
	row[colTag] = txn.Tag
	if txn.CategoryID != 0 {
		row[colCategory] = strconv.FormatInt(txn.CategoryID, 10)
	}
	row[colSettled] = strconv.FormatBool(txn.Settled)
	row[colIgnore] = strconv.FormatBool(txn.Ignore)
	row[colAutomatic] = strconv.FormatBool(txn.Automatic)
	row[colRecord] = txn.RecordType
	return row
}

// UnmarshalTransaction converts a CSV row to a Transaction.
func UnmarshalTransaction(record []string) (model.Transaction, error) {
	if len(record) != numFields {
		return model.Transaction{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	txnID, err := uuid.Parse(record[colID])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing id %q: %w", record[colID], err)
	}

	date, err := time.Parse(dateFormat, record[colDate])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing date %q: %w", record[colDate], err)
	}

	accountID, err := strconv.ParseInt(record[colAcctID], 10, 64)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing account_id %q: %w", record[colAcctID], err)
	}

	amount, err := decimal.NewFromString(record[colAmount])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}

	var categoryID int64
	if record[colCategory] != "" {
		categoryID, err = strconv.ParseInt(record[colCategory], 10, 64)
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing category_id %q: %w", record[colCategory], err)
		}
	}

	flags := make([]bool, 3)
	for i, col := range []int{colSettled, colIgnore, colAutomatic} {
		flags[i], err = strconv.ParseBool(record[col])
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing flag %q: %w", record[col], err)
		}
	}

	return model.Transaction{
		ID:          txnID,
		Date:        date,
		AccountID:   accountID,
		Kind:        model.Kind(record[colKind]),
		Amount:      amount,
		Description: record[colDesc],
		Location:    record[colLocation],
		Tag:         record[colTag],
		CategoryID:  categoryID,
		Settled:     flags[0],
		Ignore:      flags[1],
		Automatic:   flags[2],
		RecordType:  record[colRecord],
	}, nil
}
