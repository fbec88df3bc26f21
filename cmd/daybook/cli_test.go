package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hpungsan/daybook/internal/app"
	"github.com/hpungsan/daybook/internal/config"
	"github.com/hpungsan/daybook/internal/images"
	"github.com/hpungsan/daybook/internal/logging"
	"github.com/hpungsan/daybook/internal/ops"
)

// setupTestEnv opens an application in a temporary data directory.
func setupTestEnv(t *testing.T) *cliEnv {
	t.Helper()
	a, err := app.Open(context.Background(), t.TempDir(), config.DefaultConfig(), logging.Discard(), "test")
	if err != nil {
		t.Fatalf("failed to open test app: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return &cliEnv{app: a, log: logging.Discard()}
}

// runCLI runs args against env and returns what the command printed.
func runCLI(t *testing.T, env *cliEnv, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cliApp := newCLIApp(env)
	cliApp.Writer = &buf
	cliApp.ErrWriter = &buf
	err := cliApp.Run(append([]string{"daybook"}, args...))
	return buf.String(), err
}

// mustRun runs args and decodes the JSON output into v.
func mustRun(t *testing.T, env *cliEnv, v any, args ...string) {
	t.Helper()
	out, err := runCLI(t, env, args...)
	if err != nil {
		t.Fatalf("%v failed: %v", args, err)
	}
	if v == nil {
		return
	}
	if err := json.Unmarshal([]byte(out), v); err != nil {
		t.Fatalf("failed to parse output of %v: %v\nOutput: %s", args, err, out)
	}
}

// TestParseTags tests the parseTags helper function.
func TestParseTags(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "empty string", input: "", expected: nil},
		{name: "single tag", input: "foo", expected: []string{"foo"}},
		{name: "multiple tags", input: "foo,bar,baz", expected: []string{"foo", "bar", "baz"}},
		{name: "tags with spaces", input: " foo , bar , baz ", expected: []string{"foo", "bar", "baz"}},
		{name: "empty tags filtered", input: "foo,,bar,", expected: []string{"foo", "bar"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseTags(tt.input)
			if len(result) != len(tt.expected) {
				t.Errorf("expected %d tags, got %d", len(tt.expected), len(result))
				return
			}
			for i, tag := range result {
				if tag != tt.expected[i] {
					t.Errorf("expected tag[%d]=%q, got %q", i, tt.expected[i], tag)
				}
			}
		})
	}
}

// TestResolveArgs tests the default to MCP mode for piped bare invocations.
func TestResolveArgs(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		interactive bool
		expected    []string
	}{
		{name: "piped without args", args: []string{"daybook"}, expected: []string{"daybook", "mcp"}},
		{name: "interactive without args", args: []string{"daybook"}, interactive: true, expected: []string{"daybook"}},
		{name: "command given", args: []string{"daybook", "list"}, expected: []string{"daybook", "list"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveArgs(tt.args, tt.interactive)
			if strings.Join(got, " ") != strings.Join(tt.expected, " ") {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

// TestCLIWriteShowDelete tests the entry lifecycle commands.
func TestCLIWriteShowDelete(t *testing.T) {
	env := setupTestEnv(t)

	var saved ops.SaveDiaryOutput
	mustRun(t, env, &saved, "write", "--title=Harbor", "--content=<p>boats</p>", "--tags=sea, travel", "--mood=calm", "--date=2024-06-01")
	if !saved.Created || saved.Entry == nil {
		t.Fatalf("expected a created entry, got %+v", saved)
	}
	if len(saved.Entry.Tags) != 2 {
		t.Errorf("expected 2 tags, got %v", saved.Entry.Tags)
	}

	var shown struct {
		ID           string `json:"id"`
		PlainContent string `json:"plainContent"`
		Mood         string `json:"mood"`
	}
	mustRun(t, env, &shown, "show", saved.Entry.ID)
	if shown.ID != saved.Entry.ID || shown.PlainContent != "boats" || shown.Mood != "calm" {
		t.Errorf("unexpected entry: %+v", shown)
	}

	var day struct {
		Entry *struct {
			ID string `json:"id"`
		} `json:"entry"`
	}
	mustRun(t, env, &day, "day", "2024-06-01")
	if day.Entry == nil || day.Entry.ID != saved.Entry.ID {
		t.Errorf("expected entry for 2024-06-01, got %+v", day.Entry)
	}

	var dates struct {
		Dates []string `json:"dates"`
	}
	mustRun(t, env, &dates, "dates", "2024-06")
	if len(dates.Dates) != 1 || dates.Dates[0] != "2024-06-01" {
		t.Errorf("expected [2024-06-01], got %v", dates.Dates)
	}

	var deleted ops.DeleteDiaryOutput
	mustRun(t, env, &deleted, "delete", saved.Entry.ID)
	if !deleted.Deleted {
		t.Error("expected deleted=true")
	}

	if _, err := runCLI(t, env, "show", saved.Entry.ID); err == nil {
		t.Error("expected error showing a deleted entry")
	}
}

// TestCLIWriteMarkdown tests that --markdown renders before saving.
func TestCLIWriteMarkdown(t *testing.T) {
	env := setupTestEnv(t)

	var saved ops.SaveDiaryOutput
	mustRun(t, env, &saved, "write", "--markdown", "--content=a **bold** day")
	if !strings.Contains(saved.Entry.Content, "<strong>bold</strong>") {
		t.Errorf("expected rendered markdown, got %q", saved.Entry.Content)
	}
	if saved.Entry.PlainContent != "a bold day" {
		t.Errorf("expected plain text 'a bold day', got %q", saved.Entry.PlainContent)
	}
}

// TestCLIWriteFromStdin tests reading entry content from stdin.
func TestCLIWriteFromStdin(t *testing.T) {
	env := setupTestEnv(t)

	oldStdin := os.Stdin
	stdinR, stdinW, _ := os.Pipe()
	os.Stdin = stdinR
	defer func() { os.Stdin = oldStdin }()

	go func() {
		_, _ = stdinW.WriteString("<p>piped text</p>\n")
		stdinW.Close()
	}()

	var saved ops.SaveDiaryOutput
	mustRun(t, env, &saved, "write", "--title=stdin", "--content=-")
	if saved.Entry.PlainContent != "piped text" {
		t.Errorf("expected piped content, got %q", saved.Entry.PlainContent)
	}
}

// TestCLISearch tests keyword and tag search.
func TestCLISearch(t *testing.T) {
	env := setupTestEnv(t)

	mustRun(t, env, nil, "write", "--title=market", "--content=<p>fresh fruit</p>", "--tags=food")
	mustRun(t, env, nil, "write", "--title=office", "--content=<p>fruit bowl</p>", "--tags=work")

	var result ops.SearchOutput
	mustRun(t, env, &result, "search", "--tag=food", "fruit")
	if result.Total != 1 || len(result.Entries) != 1 || result.Entries[0].Title != "market" {
		t.Errorf("expected only the market entry, got %+v", result)
	}

	mustRun(t, env, &result, "search", "fruit")
	if result.Total != 2 {
		t.Errorf("expected 2 results, got %d", result.Total)
	}

	var list ops.ListDiariesOutput
	mustRun(t, env, &list, "list", "--limit=1")
	if len(list.Items) != 1 || !list.Pagination.HasMore {
		t.Errorf("expected one item with more pages, got %+v", list.Pagination)
	}
}

// TestCLIArchiveAndMentions tests archive commands and mention analytics.
func TestCLIArchiveAndMentions(t *testing.T) {
	env := setupTestEnv(t)

	var archive ops.SaveArchiveOutput
	mustRun(t, env, &archive, "archive", "save", "--name=Margaret", "--aliases=Maggie, Meg")
	if archive.Archive == nil || len(archive.Archive.Aliases) != 2 {
		t.Fatalf("unexpected archive: %+v", archive.Archive)
	}

	mustRun(t, env, nil, "write", "--content=<p>lunch with Maggie</p>")
	mustRun(t, env, nil, "write", "--content=<p>Margaret called</p>")

	var stats struct {
		People []struct {
			Name  string `json:"name"`
			Count int    `json:"count"`
		} `json:"people"`
	}
	mustRun(t, env, &stats, "mentions")
	if len(stats.People) != 1 || stats.People[0].Count != 2 {
		t.Errorf("expected Margaret with 2 mentions, got %+v", stats.People)
	}

	var details struct {
		Name  string `json:"name"`
		Total int    `json:"total"`
	}
	mustRun(t, env, &details, "mentions", "Meg")
	if details.Name != "Margaret" || details.Total != 2 {
		t.Errorf("expected alias lookup to resolve Margaret, got %+v", details)
	}

	var list struct {
		Archives []struct {
			ID string `json:"id"`
		} `json:"archives"`
	}
	mustRun(t, env, &list, "archive", "list", "--type=person")
	if len(list.Archives) != 1 {
		t.Fatalf("expected 1 archive, got %d", len(list.Archives))
	}

	var deleted ops.DeleteArchiveOutput
	mustRun(t, env, &deleted, "archive", "delete", list.Archives[0].ID)
	if !deleted.Deleted {
		t.Error("expected deleted=true")
	}
}

// TestCLISettingsAndTags tests settings and tag listing.
func TestCLISettingsAndTags(t *testing.T) {
	env := setupTestEnv(t)

	mustRun(t, env, nil, "settings", "set", "theme", "dark")

	var got struct {
		Setting *struct {
			Value string `json:"value"`
		} `json:"setting"`
	}
	mustRun(t, env, &got, "settings", "get", "theme")
	if got.Setting == nil || got.Setting.Value != "dark" {
		t.Errorf("expected theme=dark, got %+v", got.Setting)
	}

	mustRun(t, env, &got, "settings", "get", "missing")
	if got.Setting != nil {
		t.Errorf("expected no setting, got %+v", got.Setting)
	}

	mustRun(t, env, nil, "write", "--title=x", "--tags=alpha,beta")
	var tags struct {
		Tags []struct {
			Name  string `json:"name"`
			Count int    `json:"count"`
		} `json:"tags"`
	}
	mustRun(t, env, &tags, "tags")
	if len(tags.Tags) != 2 {
		t.Errorf("expected 2 tags, got %+v", tags.Tags)
	}
}

// TestCLIImageAddAndAttach tests storing an image file and attaching a file.
func TestCLIImageAddAndAttach(t *testing.T) {
	env := setupTestEnv(t)

	src := filepath.Join(t.TempDir(), "photo.png")
	f, err := os.Create(src)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	f.Close()

	var saved images.Saved
	mustRun(t, env, &saved, "image", "add", src)
	if !strings.HasPrefix(saved.URL, images.Scheme) {
		t.Errorf("expected image reference URL, got %q", saved.URL)
	}
	thumb := filepath.Join(env.app.BaseDir(), images.ThumbnailsDir, saved.ID+"_thumb.webp")
	if _, err := os.Stat(thumb); err != nil {
		t.Errorf("expected thumbnail at %s: %v", thumb, err)
	}

	var entry ops.SaveDiaryOutput
	mustRun(t, env, &entry, "write", "--title=with file")
	mustRun(t, env, nil, "attach", entry.Entry.ID, src)

	var attachments struct {
		Attachments []struct {
			FileName string `json:"fileName"`
		} `json:"attachments"`
	}
	mustRun(t, env, &attachments, "attachments", entry.Entry.ID)
	if len(attachments.Attachments) != 1 || attachments.Attachments[0].FileName != "photo.png" {
		t.Errorf("unexpected attachments: %+v", attachments.Attachments)
	}

	var rebuilt ops.RebuildImageRefsOutput
	mustRun(t, env, &rebuilt, "image", "rebuild-refs")
	if len(rebuilt.Counts) != 0 {
		t.Errorf("expected no referenced images, got %v", rebuilt.Counts)
	}
}

// TestCLIExportImport tests the export and import commands.
func TestCLIExportImport(t *testing.T) {
	env := setupTestEnv(t)

	mustRun(t, env, nil, "write", "--title=keep me")

	var exported ops.ExportOutput
	mustRun(t, env, &exported, "export")
	if !strings.HasSuffix(exported.Path, ".zip") {
		t.Fatalf("expected zip path, got %q", exported.Path)
	}

	mustRun(t, env, nil, "write", "--title=after export")

	var imported ops.ImportOutput
	mustRun(t, env, &imported, "import", "--path="+exported.Path)
	if imported.Stats == nil || imported.Stats.Entries != 1 {
		t.Errorf("expected 1 entry after import, got %+v", imported.Stats)
	}
}

// TestCLIDataDirFlag tests that the env opens and closes the app itself.
func TestCLIDataDirFlag(t *testing.T) {
	dir := t.TempDir()
	env := &cliEnv{}

	out, err := runCLI(t, env, "--data-dir", dir, "stats")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if !strings.Contains(out, `"entries": 0`) {
		t.Errorf("unexpected stats output: %s", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "diary.db")); err != nil {
		t.Errorf("expected store in data dir: %v", err)
	}
	if err := env.close(); err != nil {
		t.Errorf("close: %v", err)
	}
	if env.app != nil {
		t.Error("expected app to be released after close")
	}
}

// TestCLIHelpDoesNotOpenStore tests that help never opens the data directory.
func TestCLIHelpDoesNotOpenStore(t *testing.T) {
	env := &cliEnv{}
	if _, err := runCLI(t, env, "--help"); err != nil {
		t.Fatalf("help failed: %v", err)
	}
	if env.app != nil {
		t.Error("expected help to leave the store closed")
	}
}

// TestCLIErrorHandling tests error handling in CLI commands.
func TestCLIErrorHandling(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "show not found", args: []string{"show", "missing"}},
		{name: "show without id", args: []string{"show"}},
		{name: "empty entry", args: []string{"write", "--content=", "--mood=calm", "--title="}},
		{name: "bad mood", args: []string{"write", "--title=x", "--mood=furious"}},
		{name: "bad date", args: []string{"write", "--title=x", "--date=June"}},
		{name: "import without path", args: []string{"import"}},
		{name: "import outside allowed dirs", args: []string{"import", "--path=/tmp/elsewhere/bundle.zip"}},
		{name: "settings set without value", args: []string{"settings", "set", "theme"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// cli.Exit messages are returned, not printed
			if _, err := runCLI(t, env, tt.args...); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

// TestReadStdinWithLimit tests the readStdin function respects size limits.
func TestReadStdinWithLimit(t *testing.T) {
	withStdin := func(t *testing.T, content string) {
		t.Helper()
		r, w, err := os.Pipe()
		if err != nil {
			t.Fatalf("Failed to create pipe: %v", err)
		}
		go func() {
			_, _ = w.WriteString(content)
			w.Close()
		}()
		oldStdin := os.Stdin
		os.Stdin = r
		t.Cleanup(func() { os.Stdin = oldStdin })
	}

	t.Run("within limit", func(t *testing.T) {
		withStdin(t, "small content")
		result, err := readStdin(1000)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if result != "small content" {
			t.Errorf("expected %q, got %q", "small content", result)
		}
	})

	t.Run("exceeds limit", func(t *testing.T) {
		withStdin(t, strings.Repeat("x", 100))
		if _, err := readStdin(50); err == nil {
			t.Error("expected error for content exceeding limit, got nil")
		}
	})
}
