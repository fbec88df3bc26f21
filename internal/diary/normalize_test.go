package diary

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hpungsan/daybook/internal/errors"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple lowercase", "Hello World", "hello world"},
		{"trim whitespace", "  hello  ", "hello"},
		{"collapse internal whitespace", "hello    world", "hello world"},
		{"tabs and newlines", "hello\t\n  world", "hello world"},
		{"empty string", "", ""},
		{"cjk untouched", " 小明 ", "小明"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseMood(t *testing.T) {
	tests := []struct {
		input   string
		want    Mood
		wantErr bool
	}{
		{"", MoodNeutral, false},
		{"happy", MoodHappy, false},
		{" Sad ", MoodSad, false},
		{"ANGRY", MoodAngry, false},
		{"ecstatic", "", true},
	}

	for _, tt := range tests {
		got, err := ParseMood(tt.input)
		if tt.wantErr {
			if !errors.Is(err, errors.ErrInvalidRequest) {
				t.Errorf("ParseMood(%q) error = %v, want INVALID_REQUEST", tt.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMood(%q) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("ParseMood(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseArchiveType(t *testing.T) {
	if got, err := ParseArchiveType(""); err != nil || got != ArchivePerson {
		t.Errorf("ParseArchiveType(\"\") = %q, %v; want person", got, err)
	}
	if got, err := ParseArchiveType("Object"); err != nil || got != ArchiveObject {
		t.Errorf("ParseArchiveType(Object) = %q, %v; want object", got, err)
	}
	if _, err := ParseArchiveType("place"); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("ParseArchiveType(place) error = %v, want INVALID_REQUEST", err)
	}
}

func TestParseAliases(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		own  string
		want []string
	}{
		{"comma", "Bobby, Rob", "Bob", []string{"Bobby", "Rob"}},
		{"mixed separators", "小明，明明、阿明;Ming；M\nmm", "王小明", []string{"小明", "明明", "阿明", "Ming", "M", "mm"}},
		{"drops name", "bob, Bobby", "Bob", []string{"Bobby"}},
		{"case-insensitive dedupe", "Bobby, BOBBY, bobby", "Bob", []string{"Bobby"}},
		{"empties", " , ,, ", "Bob", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAliases(tt.raw, tt.own)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseAliases mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestJoinAliasesRoundTrip(t *testing.T) {
	aliases := []string{"Bobby", "Rob"}
	got := ParseAliases(JoinAliases(aliases), "Bob")
	if diff := cmp.Diff(aliases, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" travel ", "food", "", "travel", "road  trip"})
	want := []string{"travel", "food", "road trip"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("NormalizeTags mismatch (-want +got):\n%s", diff)
	}
}
