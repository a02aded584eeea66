package fetch

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// credentialParams are query parameters stripped from URLs before logging.
var credentialParams = []string{"apiKey", "apikey", "api_key", "appid", "token", "key"}

// redact hides credential query parameters so upstream URLs can be logged.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	changed := false
	for _, p := range credentialParams {
		if q.Has(p) {
			q.Set(p, "REDACTED")
			changed = true
		}
	}
	if !changed {
		return raw
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// ExtractText converts an HTML fragment to a single line of plain text,
// dropping scripts, styles and other non-content elements.
func ExtractText(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.Join(strings.Fields(fragment), " ")
	}

	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}

	var sb strings.Builder
	collectText(doc, &sb, map[string]bool{
		"script": true, "style": true, "noscript": true,
		"svg": true, "iframe": true, "head": true,
	})
	return strings.Join(strings.Fields(sb.String()), " ")
}

func collectText(n *html.Node, sb *strings.Builder, skip map[string]bool) {
	if n.Type == html.ElementNode && skip[n.Data] {
		return
	}
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		sb.WriteString(" ")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb, skip)
	}
}

// Truncate shortens s to at most n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return strings.TrimSpace(string(runes[:n-3])) + "..."
}
