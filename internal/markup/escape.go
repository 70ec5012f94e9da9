// Package markup escapes text crossing the model boundary. Diff lines
// and prior comments are interpolated into angle-bracket delimited
// prompts, and the model's response is parsed back out of the same
// markup, so both directions must agree on one encoding for the five
// reserved characters.
package markup

import "strings"

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

var unescaper = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&apos;", "'",
	"&amp;", "&",
)

// Escape encodes the five reserved markup characters.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Unescape reverses Escape. The &amp; entity is decoded last so that
// escaped text round-trips exactly: Unescape(Escape(s)) == s.
func Unescape(s string) string {
	return unescaper.Replace(s)
}
