package store

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/meudinheiro/meudinheiro/internal/model"
)

// SortTagCounts orders counts by descending frequency, then by tag.
func SortTagCounts(counts []TagCount) {
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Tag < counts[j].Tag
	})
}

// BestRule picks the most specific matching rule: the longest keyword, then
// the lexicographically smallest one.
func BestRule(rules []model.Rule, text string) (model.Rule, bool) {
	var best model.Rule
	found := false
	for _, r := range rules {
		if !r.Matches(text) {
			continue
		}
		n, bn := utf8.RuneCountInString(r.Keyword), utf8.RuneCountInString(best.Keyword)
		if !found || n > bn || (n == bn && r.Keyword < best.Keyword) {
			best, found = r, true
		}
	}
	return best, found
}

// ContainsFold reports whether sub occurs in s, ignoring case.
func ContainsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
