// Package markdown renders the restricted review dialect used in ticket
// reviews: bare http(s) URLs become links, lines starting with "- " become
// bullets and newlines become <br>. Everything else is escaped text.
package markdown

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	linkRe   = regexp.MustCompile(`https?://[^\s]+`)
	bulletRe = regexp.MustCompile(`(?m)^- (.+)$`)
)

const bullet = "• "

var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.RequireParseableURLs(true)
	p.AllowURLSchemes("http", "https")
	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("target").Matching(regexp.MustCompile(`^_blank$`)).OnElements("a")
	p.AllowAttrs("rel").Matching(regexp.MustCompile(`^noopener noreferrer$`)).OnElements("a")
	p.AllowElements("br")

	return p
}

// Render converts review text into a sanitized HTML fragment.
func Render(text string) string {
	if text == "" {
		return ""
	}

	text = newlines.Replace(text)
	text = bulletRe.ReplaceAllString(text, bullet+"$1")

	var b strings.Builder
	last := 0
	for _, loc := range linkRe.FindAllStringIndex(text, -1) {
		b.WriteString(html.EscapeString(text[last:loc[0]]))

		url := html.EscapeString(text[loc[0]:loc[1]])
		b.WriteString(`<a href="`)
		b.WriteString(url)
		b.WriteString(`" target="_blank" rel="noopener noreferrer">`)
		b.WriteString(url)
		b.WriteString(`</a>`)

		last = loc[1]
	}
	b.WriteString(html.EscapeString(text[last:]))

	out := strings.ReplaceAll(b.String(), "\n", "<br>")

	return policy.Sanitize(out)
}

// Plain strips the dialect down to display text: bullets are kept, links
// are left as their URL. Used by terminal views.
func Plain(text string) string {
	return bulletRe.ReplaceAllString(newlines.Replace(text), bullet+"$1")
}
