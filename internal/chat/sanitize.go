package chat

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// messagePolicy is the allow-list for authored message content: inline
// formatting, http(s) links forced to open safely, and alignment/direction
// styles. Everything else is discarded, not escaped-and-kept.
var messagePolicy = newMessagePolicy()

func newMessagePolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "strong", "i", "em", "u", "s", "strike", "del", "br")
	p.AllowElements("p", "div", "span")

	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https")
	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	p.AllowAttrs("style").OnElements("p", "div", "span")
	p.AllowStyles("text-align", "direction").OnElements("p", "div", "span")

	return p
}

// SanitizeHTML reduces authored content to the message allow-list.
func SanitizeHTML(content string) string {
	return strings.TrimSpace(messagePolicy.Sanitize(content))
}

// nl2br converts bare newlines in plain text to line-break markup, the
// shape clients without a rich editor submit.
func nl2br(plain string) string {
	plain = strings.ReplaceAll(plain, "\r\n", "\n")
	return strings.ReplaceAll(plain, "\n", "<br>")
}
