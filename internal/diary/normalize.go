package diary

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hpungsan/daybook/internal/errors"
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// aliasSeparators splits stored or user-typed alias lists.
var aliasSeparators = regexp.MustCompile(`[,，、;；\n\r]+`)

// Normalize trims, lowercases and collapses internal whitespace.
// It is the case-folded lookup key for archive names and aliases.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return whitespaceRegex.ReplaceAllString(s, " ")
}

// CleanName trims and collapses whitespace but keeps case.
func CleanName(s string) string {
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
}

// ParseMood validates a mood. Empty input defaults to neutral.
func ParseMood(s string) (Mood, error) {
	s = Normalize(s)
	if s == "" {
		return MoodNeutral, nil
	}
	for _, m := range Moods {
		if string(m) == s {
			return m, nil
		}
	}
	return "", errors.NewInvalidRequest(fmt.Sprintf("invalid mood %q (want one of happy, calm, neutral, sad, angry)", s))
}

// ParseArchiveType validates an archive type. Empty input defaults to person.
func ParseArchiveType(s string) (ArchiveType, error) {
	switch t := ArchiveType(Normalize(s)); t {
	case "":
		return ArchivePerson, nil
	case ArchivePerson, ArchiveObject, ArchiveOther:
		return t, nil
	default:
		return "", errors.NewInvalidRequest(fmt.Sprintf("invalid archive type %q (want person, object or other)", s))
	}
}

// ParseAliases splits a delimited alias string into a clean list.
// Duplicates (case-insensitive) and aliases equal to name are dropped.
func ParseAliases(raw, name string) []string {
	return CleanAliases(aliasSeparators.Split(raw, -1), name)
}

// CleanAliases applies the alias rules to an already-split list.
// Each element may itself contain separators.
func CleanAliases(aliases []string, name string) []string {
	nameKey := Normalize(name)
	seen := make(map[string]bool)
	result := make([]string, 0, len(aliases))

	for _, item := range aliases {
		for _, a := range aliasSeparators.Split(item, -1) {
			a = CleanName(a)
			key := Normalize(a)
			if a == "" || key == nameKey || seen[key] {
				continue
			}
			seen[key] = true
			result = append(result, a)
		}
	}
	return result
}

// JoinAliases produces the stored form of an alias list.
func JoinAliases(aliases []string) string {
	return strings.Join(aliases, ",")
}

// NormalizeTags trims tag names, collapses whitespace and drops empties and duplicates.
// Order of first appearance is kept.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(tags))
	for _, t := range tags {
		t = CleanName(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		result = append(result, t)
	}
	return result
}
