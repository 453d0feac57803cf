package event

import "strings"

var entityReplacer = strings.NewReplacer(
	"&#8211;", "–",
	"&#8212;", "—",
	"&#8216;", "'",
	"&#8217;", "'",
	"&#8220;", "“",
	"&#8221;", "”",
	"&#038;", "&",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", "\"",
)

// DecodeTitle resolves the HTML entities the WordPress listing APIs
// leave in title.rendered.
func DecodeTitle(s string) string {
	return strings.TrimSpace(entityReplacer.Replace(s))
}
