// Package importlog keeps an append-only CSV record of import runs.
package importlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meudinheiro/meudinheiro/internal/importer"
)

// Run statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Entry is one row in the import log.
type Entry struct {
	Timestamp time.Time
	RunID     uuid.UUID
	Source    string // statement file name
	AccountID int64
	Imported  int
	Skipped   int
	Failed    int
	Status    string
	Details   string // column mapping, or the error that stopped the run
}

// NewEntry starts an entry for a run against accountID.
func NewEntry(source string, accountID int64) Entry {
	return Entry{
		Timestamp: time.Now().UTC(),
		RunID:     uuid.New(),
		Source:    source,
		AccountID: accountID,
		Status:    StatusOK,
	}
}

// FromResult records the outcome of an importer run.
func FromResult(source string, accountID int64, res importer.Result, err error) Entry {
	e := NewEntry(source, accountID)
	e.Imported, e.Skipped, e.Failed = res.Imported, res.Skipped, res.Failed
	e.Details = res.Mapping.String()
	if err != nil {
		e.Status = StatusError
		e.Details = err.Error()
	}
	return e
}

// Header is the CSV header for import-log.csv.
const Header = "timestamp,run_id,source,account_id,imported,skipped,failed,status,details"

const (
	numFields    = 9
	logDir       = "logs"
	logFile      = "logs/import-log.csv"
	colTimestamp = 0
	colRunID     = 1
	colSource    = 2
	colAccount   = 3
	colImported  = 4
	colSkipped   = 5
	colFailed    = 6
	colStatus    = 7
	colDetails   = 8
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colRunID] = e.RunID.String()
	row[colSource] = e.Source
	row[colAccount] = strconv.FormatInt(e.AccountID, 10)
	row[colImported] = strconv.Itoa(e.Imported)
	row[colSkipped] = strconv.Itoa(e.Skipped)
	row[colFailed] = strconv.Itoa(e.Failed)
	row[colStatus] = e.Status
	row[colDetails] = e.Details
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	runID, err := uuid.Parse(record[colRunID])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing run_id %q: %w", record[colRunID], err)
	}
	accountID, err := strconv.ParseInt(record[colAccount], 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing account_id %q: %w", record[colAccount], err)
	}

	counts := make([]int, 3)
	for i, col := range []int{colImported, colSkipped, colFailed} {
		if counts[i], err = strconv.Atoi(record[col]); err != nil {
			return Entry{}, fmt.Errorf("parsing count %q: %w", record[col], err)
		}
	}

	return Entry{
		Timestamp: ts,
		RunID:     runID,
		Source:    record[colSource],
		AccountID: accountID,
		Imported:  counts[0],
		Skipped:   counts[1],
		Failed:    counts[2],
		Status:    record[colStatus],
		Details:   record[colDetails],
	}, nil
}

// Append writes entries to <root>/logs/import-log.csv, creating the file and header if needed.
func Append(root string, entries []Entry) error {
	dir := filepath.Join(root, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(root, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Read returns all entries from <root>/logs/import-log.csv.
// Returns an empty slice if the file does not exist.
func Read(root string) ([]Entry, error) {
	path := filepath.Join(root, logFile)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading import log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
