// Package search compiles a free-text keyword into grouped terms, an FTS5
// expression and the substring groups that back it up.
package search

import (
	"strings"

	"github.com/hpungsan/daybook/internal/diary"
)

// Query is a compiled keyword.
type Query struct {
	// Groups holds one OR-set per whitespace-separated term; groups are AND-ed.
	Groups [][]string

	// Match is the FTS5 expression for Groups, empty when there are no terms.
	Match string

	// Expanded lists the archive names and aliases added by expansion, or nil
	// when no term was expanded.
	Expanded []string
}

// Empty reports whether the keyword had no terms.
func (q Query) Empty() bool {
	return len(q.Groups) == 0
}

// Terms splits a keyword on whitespace, dropping case-insensitive duplicates.
func Terms(keyword string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, t := range strings.Fields(keyword) {
		key := strings.ToLower(t)
		if seen[key] {
			continue
		}
		seen[key] = true
		terms = append(terms, t)
	}
	return terms
}

// Compile expands each term through the archives and builds the index expression.
// A term expands when it is a case-insensitive substring of an archive's name
// or one of its aliases; the term's group then also holds that archive's name
// and every alias.
func Compile(keyword string, archives []diary.Archive) Query {
	var q Query
	expandedSeen := make(map[string]bool)

	for _, term := range Terms(keyword) {
		group := []string{term}
		inGroup := map[string]bool{strings.ToLower(term): true}

		for _, a := range archives {
			if !archiveMatches(a, term) {
				continue
			}
			for _, word := range append([]string{a.Name}, a.Aliases...) {
				key := strings.ToLower(word)
				if word == "" || inGroup[key] {
					continue
				}
				inGroup[key] = true
				group = append(group, word)
				if !expandedSeen[key] {
					expandedSeen[key] = true
					q.Expanded = append(q.Expanded, word)
				}
			}
		}
		q.Groups = append(q.Groups, group)
	}

	q.Match = MatchExpression(q.Groups)
	return q
}

func archiveMatches(a diary.Archive, term string) bool {
	needle := strings.ToLower(term)
	if strings.Contains(strings.ToLower(a.Name), needle) {
		return true
	}
	for _, alias := range a.Aliases {
		if strings.Contains(strings.ToLower(alias), needle) {
			return true
		}
	}
	return false
}

// MatchExpression renders groups as `("a" OR "b") AND ("c")`. Every word is
// quoted so FTS5 operators and punctuation in user text are taken literally.
func MatchExpression(groups [][]string) string {
	parts := make([]string, 0, len(groups))
	for _, group := range groups {
		quoted := make([]string, 0, len(group))
		for _, word := range group {
			quoted = append(quoted, quote(word))
		}
		parts = append(parts, "("+strings.Join(quoted, " OR ")+")")
	}
	return strings.Join(parts, " AND ")
}

func quote(word string) string {
	return `"` + strings.ReplaceAll(word, `"`, `""`) + `"`
}
