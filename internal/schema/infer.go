package schema

import (
	"strconv"
	"strings"
)

// sampleSize is how many leading values are probed when looking for a date
// column.
const sampleSize = 5

// Unresolved marks a role no column was assigned to.
const Unresolved = -1

// Role names used in error messages and reports.
const (
	RoleDate        = "date"
	RoleAmount      = "amount"
	RoleDescription = "description"
)

// Mapping records which column supplies each role for one import run.
type Mapping struct {
	Date        int
	Amount      int
	Description int
	Header      []string
}

// Complete reports whether every role was resolved.
func (m Mapping) Complete() bool {
	return len(m.Missing()) == 0
}

// Missing lists the roles left unresolved.
func (m Mapping) Missing() []string {
	var missing []string
	if m.Date == Unresolved {
		missing = append(missing, RoleDate)
	}
	if m.Amount == Unresolved {
		missing = append(missing, RoleAmount)
	}
	if m.Description == Unresolved {
		missing = append(missing, RoleDescription)
	}
	return missing
}

// String renders the mapping as "date->Data, amount->Valor, description->Historico".
func (m Mapping) String() string {
	name := func(i int) string {
		if i == Unresolved {
			return "?"
		}
		if i < len(m.Header) && m.Header[i] != "" {
			return m.Header[i]
		}
		return "#" + strconv.Itoa(i)
	}
	return strings.Join([]string{
		RoleDate + "->" + name(m.Date),
		RoleAmount + "->" + name(m.Amount),
		RoleDescription + "->" + name(m.Description),
	}, ", ")
}

// Infer assigns the date, amount and description roles by probing column
// contents left to right. The first column that passes a role's test takes
// it, and a column takes at most one role.
func Infer(t *Table) Mapping {
	m := Mapping{Date: Unresolved, Amount: Unresolved, Description: Unresolved, Header: t.Header}
	if t.Len() == 0 {
		return m
	}

	for i := 0; i < t.Width(); i++ {
		col := t.Column(i)
		dateLike := isDateColumn(col)

		if m.Date == Unresolved && dateLike {
			m.Date = i
			continue
		}
		if m.Amount == Unresolved && isNumericColumn(col) {
			m.Amount = i
			continue
		}
		if m.Description == Unresolved && isTextColumn(col, dateLike) {
			m.Description = i
		}
	}
	return m
}

// isDateColumn probes the first non-blank values of col.
func isDateColumn(col []string) bool {
	n := 0
	for _, v := range col {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if _, err := ParseDate(v); err != nil {
			return false
		}
		n++
		if n == sampleSize {
			break
		}
	}
	return n > 0
}

func isNumericColumn(col []string) bool {
	n := 0
	for _, v := range col {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if _, err := ParseAmount(v); err != nil {
			return false
		}
		n++
	}
	return n > 0
}

func isTextColumn(col []string, dateLike bool) bool {
	if dateLike {
		return false
	}
	for _, v := range col {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if _, err := ParseAmount(v); err != nil {
			return true
		}
	}
	return false
}
