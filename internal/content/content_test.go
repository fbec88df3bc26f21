package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize_RemovesDangerousElementsWithContent(t *testing.T) {
	tests := []struct {
		name  string
		input string
		gone  string
	}{
		{"script", `<p>hi</p><script>alert(1)</script>`, "alert"},
		{"style", `<style>body{display:none}</style><p>hi</p>`, "display"},
		{"iframe", `<iframe src="https://evil.example">fallback</iframe><p>hi</p>`, "fallback"},
		{"form", `<form action="/x"><input name="a">secret</form><p>hi</p>`, "secret"},
		{"button", `<button onclick="x()">Click</button><p>hi</p>`, "Click"},
		{"textarea", `<textarea>typed</textarea><p>hi</p>`, "typed"},
		{"select", `<select><option>opt</option></select><p>hi</p>`, "opt"},
		{"object", `<object data="x.swf">obj</object><p>hi</p>`, "obj"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.input)
			assert.NotContains(t, got, tt.gone)
			assert.Contains(t, got, "<p>hi</p>")
		})
	}
}

func TestSanitize_StripsEventHandlersAndBadURLs(t *testing.T) {
	got := Sanitize(`<p onclick="steal()">x</p><a href="javascript:alert(1)">link</a><img src="data:text/html;base64,AAAA">`)

	assert.NotContains(t, got, "onclick")
	assert.NotContains(t, got, "javascript:")
	assert.NotContains(t, got, "data:text/html")
	assert.Contains(t, got, "link")
}

func TestSanitize_KeepsImageScheme(t *testing.T) {
	in := `<p><img src="diary-image://0b0a4c2e-7c7e-4d33-9a52-1f1f0c1c2d3e.png" alt="cat"></p>`
	got := Sanitize(in)

	assert.Contains(t, got, `src="diary-image://0b0a4c2e-7c7e-4d33-9a52-1f1f0c1c2d3e.png"`)
	assert.Contains(t, got, `alt="cat"`)
}

func TestSanitize_Styles(t *testing.T) {
	kept := Sanitize(`<span style="color: red">t</span>`)
	assert.Contains(t, kept, "color: red")

	assert.NotContains(t, Sanitize(`<span style="background-image: url(x.png)">t</span>`), "url(")
	assert.NotContains(t, Sanitize(`<span style="color: expression(alert(1))">t</span>`), "expression(")
	assert.NotContains(t, Sanitize(`<span style="color: javascript:alert(1)">t</span>`), "javascript:")
}

func TestSanitize_Empty(t *testing.T) {
	assert.Equal(t, "", Sanitize("   "))
}

func TestToPlainText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"paragraphs", "<p>one</p><p>two</p>", "one\ntwo"},
		{"breaks", "a<br>b<br/>c<BR />d", "a\nb\nc\nd"},
		{"entities", "<p>Tom &amp; Jerry &lt;3 &quot;x&quot; it&#39;s&nbsp;ok</p>", `Tom & Jerry <3 "x" it's ok`},
		{"double encoded", "&amp;lt;", "&lt;"},
		{"collapse newlines", "a<br><br><br><br>b", "a\n\nb"},
		{"nested tags", "<p><strong>bold</strong> <em>it</em></p>", "bold it"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToPlainText(tt.input))
		})
	}
}

func TestPrepare_MirrorMatchesSanitized(t *testing.T) {
	in := `<p>Met <b>Bob</b> today</p><script>x</script><p>It's &amp; fine</p>`
	sanitized, plain := Prepare(in)

	assert.Equal(t, ToPlainText(Sanitize(in)), plain)
	assert.False(t, strings.Contains(sanitized, "script"))
	assert.Equal(t, "Met Bob today\nIt's & fine", plain)
}

func TestFromMarkdown(t *testing.T) {
	html, err := FromMarkdown("# Trip\n\nWent to the **sea** with ~~Bob~~ Ann.\n\n<script>x</script>")
	assert.NoError(t, err)
	assert.Contains(t, html, "<h1>Trip</h1>")
	assert.Contains(t, html, "<strong>sea</strong>")
	assert.Contains(t, html, "<del>Bob</del>")
	assert.NotContains(t, html, "<script>")

	_, plain := Prepare(html)
	assert.True(t, strings.HasPrefix(plain, "Trip\n"), plain)
	assert.Contains(t, plain, "Went to the sea with Bob Ann.")
	assert.NotContains(t, plain, "<")
}
