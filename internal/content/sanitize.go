// Package content turns editor markup into the stored rich text and its
// plain-text search mirror.
package content

import (
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

// colorValue accepts hex, rgb()/rgba() and named colours. Anything with a
// parenthesised function other than rgb/rgba (url(), expression()) is rejected.
var colorValue = regexp.MustCompile(`(?i)^(#[0-9a-f]{3,8}|rgba?\(\s*[0-9.%,\s]+\)|[a-z]+)$`)

// Policy returns the shared allow-list policy. It is safe for concurrent use.
func Policy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = newPolicy()
	})
	return policy
}

func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "div", "span", "hr",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"blockquote", "pre", "code",
		"strong", "b", "em", "i", "u", "s", "strike", "del", "ins", "mark", "sub", "sup",
		"ul", "ol", "li",
		"table", "thead", "tbody", "tfoot", "tr", "th", "td",
		"figure", "figcaption",
	)

	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(true)
	p.AllowURLSchemes("http", "https", "mailto", "diary-image")

	p.AllowAttrs("href", "title", "target").OnElements("a")
	p.AllowAttrs("src", "alt", "title").OnElements("img")
	p.AllowAttrs("width", "height").Matching(bluemonday.NumberOrPercent).OnElements("img")
	p.AllowAttrs("colspan", "rowspan").Matching(bluemonday.Integer).OnElements("td", "th")
	p.AllowAttrs("start").Matching(bluemonday.Integer).OnElements("ol")
	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).Globally()
	p.AllowDataAttributes()

	p.AllowStyles("color", "background-color").Matching(colorValue).Globally()
	p.AllowStyles("text-align").MatchingEnum("left", "right", "center", "justify").Globally()
	p.AllowStyles("font-weight").MatchingEnum("normal", "bold", "bolder", "lighter", "400", "700").Globally()
	p.AllowStyles("font-style").MatchingEnum("normal", "italic").Globally()
	p.AllowStyles("text-decoration").MatchingEnum("none", "underline", "line-through").Globally()

	// Dropped together with everything inside them.
	p.SkipElementsContent(
		"script", "style", "iframe", "object", "embed",
		"form", "button", "textarea", "select", "option",
		"link", "meta", "base",
	)

	return p
}

// Sanitize strips everything the allow-list does not name. Unknown but
// harmless markup is reduced to its text rather than rejected, so a save never
// fails because of what the editor produced.
func Sanitize(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	return Policy().Sanitize(html)
}
