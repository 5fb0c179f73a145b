package confluence

import (
	"regexp"
	"strings"
)

// htmlTagPattern matches HTML tags for stripping.
var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

var blockEnds = []string{"<br>", "<br/>", "<br />", "</p>", "</div>", "</li>", "</tr>", "</h1>", "</h2>", "</h3>"}

var entities = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", "\"",
	"&#39;", "'",
	"&nbsp;", " ",
)

// StripHTML removes tags from a rendered page and collapses blank lines,
// giving a plain-text rendering for the terminal.
func StripHTML(html string) string {
	if html == "" {
		return ""
	}

	result := html
	for _, tag := range blockEnds {
		result = strings.ReplaceAll(result, tag, "\n")
	}
	result = htmlTagPattern.ReplaceAllString(result, "")
	result = entities.Replace(result)

	for strings.Contains(result, "\n\n\n") {
		result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(result)
}
