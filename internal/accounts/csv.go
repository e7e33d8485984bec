package accounts

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meudinheiro/meudinheiro/internal/model"
)

// Header is the CSV header of accounts.csv.
const Header = "account_id,user_id,name,type,institution,opening_balance,overdraft_limit,overdraft_expiry,credit_limit,statement_closing_day,statement_due_day,safety_balance,hide_from_net_worth,color"

const (
	numFields     = 14
	dateFormat    = "2006-01-02"
	colID         = 0
	colUser       = 1
	colName       = 2
	colType       = 3
	colInst       = 4
	colOpening    = 5
	colOverdraft  = 6
	colExpiry     = 7
	colCredit     = 8
	colClosingDay = 9
	colDueDay     = 10
	colSafety     = 11
	colHidden     = 12
	colColor      = 13
)

// ReadAccounts reads accounts.csv.
func ReadAccounts(r io.Reader) ([]model.Account, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var accounts []model.Account
	for i, rec := range records[1:] {
		acct, err := UnmarshalAccount(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

// WriteAccounts writes accounts.csv.
func WriteAccounts(w io.Writer, accounts []model.Account) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, acct := range accounts {
		if err := cw.Write(MarshalAccount(acct)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.StringFixed(2)
}

func dayString(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// MarshalAccount converts an Account to a CSV row.
func MarshalAccount(acct model.Account) []string {
	row := make([]string, numFields)
	if acct.ID != 0 {
		row[colID] = strconv.FormatInt(acct.ID, 10)
	}
	row[colUser] = strconv.FormatInt(acct.UserID, 10)
	row[colName] = acct.Name
	row[colType] = string(acct.Type)
	row[colInst] = acct.Institution
	row[colOpening] = acct.OpeningBalance.StringFixed(2)
	row[colOverdraft] = nullString(acct.OverdraftLimit)
	if acct.OverdraftExpiry != nil {
		row[colExpiry] = acct.OverdraftExpiry.Format(dateFormat)
	}
	row[colCredit] = nullString(acct.CreditLimit)
	row[colClosingDay] = dayString(acct.StatementClosingDay)
	row[colDueDay] = dayString(acct.StatementDueDay)
	row[colSafety] = nullString(acct.SafetyBalance)
	row[colHidden] = strconv.FormatBool(acct.HideFromNetWorth)
	row[colColor] = acct.Color
	return row
}

func parseNullDecimal(field, s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("parsing %s %q: %w", field, s, err)
	}
	return decimal.NewNullDecimal(d), nil
}

func parseDay(field, s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 31 {
		return 0, fmt.Errorf("parsing %s %q: not a day of month", field, s)
	}
	return n, nil
}

// UnmarshalAccount converts a CSV row to an Account. A blank account_id
// leaves the ID to the store.
func UnmarshalAccount(record []string) (model.Account, error) {
	if len(record) != numFields {
		return model.Account{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	var (
		acct model.Account
		err  error
	)
	if record[colID] != "" {
		acct.ID, err = strconv.ParseInt(record[colID], 10, 64)
		if err != nil {
			return model.Account{}, fmt.Errorf("parsing account_id %q: %w", record[colID], err)
		}
	}
	acct.UserID, err = strconv.ParseInt(record[colUser], 10, 64)
	if err != nil {
		return model.Account{}, fmt.Errorf("parsing user_id %q: %w", record[colUser], err)
	}

	acct.Name = record[colName]
	acct.Type = model.AccountType(record[colType])
	acct.Institution = record[colInst]
	acct.Color = record[colColor]

	if record[colOpening] != "" {
		acct.OpeningBalance, err = decimal.NewFromString(record[colOpening])
		if err != nil {
			return model.Account{}, fmt.Errorf("parsing opening_balance %q: %w", record[colOpening], err)
		}
	}
	if acct.OverdraftLimit, err = parseNullDecimal("overdraft_limit", record[colOverdraft]); err != nil {
		return model.Account{}, err
	}
	if acct.CreditLimit, err = parseNullDecimal("credit_limit", record[colCredit]); err != nil {
		return model.Account{}, err
	}
	if acct.SafetyBalance, err = parseNullDecimal("safety_balance", record[colSafety]); err != nil {
		return model.Account{}, err
	}
	if record[colExpiry] != "" {
		expiry, err := time.Parse(dateFormat, record[colExpiry])
		if err != nil {
			return model.Account{}, fmt.Errorf("parsing overdraft_expiry %q: %w", record[colExpiry], err)
		}
		acct.OverdraftExpiry = &expiry
	}
	if acct.StatementClosingDay, err = parseDay("statement_closing_day", record[colClosingDay]); err != nil {
		return model.Account{}, err
	}
	if acct.StatementDueDay, err = parseDay("statement_due_day", record[colDueDay]); err != nil {
		return model.Account{}, err
	}
	if record[colHidden] != "" {
		acct.HideFromNetWorth, err = strconv.ParseBool(record[colHidden])
		if err != nil {
			return model.Account{}, fmt.Errorf("parsing hide_from_net_worth %q: %w", record[colHidden], err)
		}
	}
	return acct, nil
}
