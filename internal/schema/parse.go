package schema

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// dayFirstLayouts lists accepted date layouts. Ambiguous numeric dates are
// always read day first.
var dayFirstLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02/01/06",
	"02-01-2006",
	"02.01.2006",
	"2006-01-02",
	"02/01/2006 15:04",
	"02/01/2006 15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

var errBlank = errors.New("blank value")

// ParseDate parses a statement date, day first.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errBlank
	}
	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// ParseAmount parses a signed decimal amount such as "-45.00" or "+200".
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, errBlank
	}
	s = strings.TrimPrefix(s, "+")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unrecognized amount %q", s)
	}
	return d, nil
}
