// Package markdown builds the ready-to-paste snippets returned to the
// CLI and dashboard.
package markdown

import "strings"

var altEscaper = strings.NewReplacer(
	`\`, `\\`,
	`[`, `\[`,
	`]`, `\]`,
)

// EscapeAlt escapes the characters that would break a markdown image
// link when embedded as alt text: backslash and square brackets.
// Everything else passes through unaltered.
func EscapeAlt(alt string) string {
	return altEscaper.Replace(alt)
}

// ImageSnippet renders a markdown image link for the given alt text and
// target. The alt text is escaped; the target is used as-is.
func ImageSnippet(alt, target string) string {
	return "![" + EscapeAlt(alt) + "](" + target + ")"
}
