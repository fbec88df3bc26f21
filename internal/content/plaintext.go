package content

import (
	"regexp"
	"strings"
)

var (
	breakTag     = regexp.MustCompile(`(?i)<br\s*/?>`)
	paragraphEnd = regexp.MustCompile(`(?i)</p\s*>`)
	anyTag       = regexp.MustCompile(`<[^>]*>`)
	manyNewlines = regexp.MustCompile(`\n{3,}`)
)

// entityReplacer decodes the entities the sanitizer and editor emit.
// &amp; is handled in the same single pass, so "&amp;lt;" becomes "&lt;".
var entityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#34;", `"`,
	"&#39;", "'",
	"&apos;", "'",
	"&amp;", "&",
)

// ToPlainText converts sanitized markup to the plain-text mirror used for
// substring search and mention analytics.
func ToPlainText(html string) string {
	if html == "" {
		return ""
	}
	text := breakTag.ReplaceAllString(html, "\n")
	text = paragraphEnd.ReplaceAllString(text, "\n")
	text = anyTag.ReplaceAllString(text, "")
	text = entityReplacer.Replace(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = manyNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Prepare sanitizes markup and derives its plain-text mirror in one step.
func Prepare(html string) (sanitized, plain string) {
	sanitized = Sanitize(html)
	return sanitized, ToPlainText(sanitized)
}
