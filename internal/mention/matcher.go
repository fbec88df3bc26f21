// Package mention counts how often person archives are named in diary text.
package mention

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hpungsan/daybook/internal/diary"
)

// Person is one person archive as seen by the matcher.
type Person struct {
	ID   string
	Name string

	// Keywords are the name and aliases as written, deduplicated case-insensitively.
	Keywords []string
}

// Hit is what one text contributes for one person.
type Hit struct {
	Count int

	// Keywords are the distinct keywords that matched, as written in the archive.
	Keywords []string
}

// Matcher finds unambiguous mentions of person archives in text. Build one per
// analytics call; it is immutable afterwards.
type Matcher struct {
	people []Person

	// owners maps a case-folded token to the indices of people using it.
	owners map[string][]int

	// display maps a case-folded token to the first spelling seen.
	display map[string]string

	re *regexp.Regexp
}

// NewMatcher builds a matcher from the person-type archives among archives.
func NewMatcher(archives []diary.Archive) *Matcher {
	m := &Matcher{
		owners:  make(map[string][]int),
		display: make(map[string]string),
	}

	for _, a := range archives {
		if a.Type != diary.ArchivePerson {
			continue
		}
		idx := len(m.people)
		p := Person{ID: a.ID, Name: a.Name}
		seen := make(map[string]bool)
		for _, word := range append([]string{a.Name}, a.Aliases...) {
			word = strings.TrimSpace(word)
			key := foldKey(word)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			p.Keywords = append(p.Keywords, word)
			m.owners[key] = append(m.owners[key], idx)
			if _, ok := m.display[key]; !ok {
				m.display[key] = word
			}
		}
		m.people = append(m.people, p)
	}

	if len(m.owners) == 0 {
		return m
	}

	tokens := make([]string, 0, len(m.owners))
	for key := range m.owners {
		tokens = append(tokens, key)
	}
	// Longest first: the engine takes the first alternative that matches at a
	// position, so a full name wins over a shorter alias inside it.
	sort.Slice(tokens, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(tokens[i]), utf8.RuneCountInString(tokens[j])
		if li != lj {
			return li > lj
		}
		return tokens[i] < tokens[j]
	})
	quoted := make([]string, len(tokens))
	for i, tok := range tokens {
		quoted[i] = regexp.QuoteMeta(tok)
	}
	m.re = regexp.MustCompile(`(?i)(?:` + strings.Join(quoted, "|") + `)`)
	return m
}

// People returns the persons known to the matcher, in archive order.
func (m *Matcher) People() []Person {
	return m.people
}

// Find returns the index of the person whose name matches name
// case-insensitively, falling back to a unique alias owner. ok is false otherwise.
func (m *Matcher) Find(name string) (int, bool) {
	key := foldKey(name)
	for i, p := range m.people {
		if foldKey(p.Name) == key {
			return i, true
		}
	}
	if owners := m.owners[key]; len(owners) == 1 {
		return owners[0], true
	}
	return 0, false
}

// Scan returns the hits per person index for one text. Tokens shared by more
// than one person never count. A one-character token counts only when neither
// neighbouring character is a letter or digit.
func (m *Matcher) Scan(text string) map[int]*Hit {
	hits := make(map[int]*Hit)
	if m.re == nil || text == "" {
		return hits
	}

	for _, loc := range m.re.FindAllStringIndex(text, -1) {
		matched := text[loc[0]:loc[1]]
		key := foldKey(matched)
		owners := m.owners[key]
		if len(owners) != 1 {
			continue
		}
		if utf8.RuneCountInString(key) == 1 && !isolated(text, loc[0], loc[1]) {
			continue
		}

		h := hits[owners[0]]
		if h == nil {
			h = &Hit{}
			hits[owners[0]] = h
		}
		h.Count++
		word := m.display[key]
		if !containsFold(h.Keywords, word) {
			h.Keywords = append(h.Keywords, word)
		}
	}
	return hits
}

// CandidateText is the text scanned for one entry.
func CandidateText(title, plain string) string {
	return title + "\n" + plain
}

func isolated(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func foldKey(s string) string {
	return diary.Normalize(s)
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
