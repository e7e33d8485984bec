package model

import (
	"strings"
	"time"
)

// Rule maps a keyword found in statement descriptions to a tag.
type Rule struct {
	ID        int64
	UserID    int64
	Keyword   string // uppercase
	Tag       string
	CreatedAt time.Time
}

// NormalizeKeyword returns the stored form of a rule keyword.
func NormalizeKeyword(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Matches reports whether the rule's keyword occurs in description.
func (r Rule) Matches(description string) bool {
	return r.Keyword != "" && strings.Contains(strings.ToUpper(description), r.Keyword)
}
