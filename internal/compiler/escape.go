package compiler

import "strings"

// Escaper owns every string that is spliced into the filter graph.
//
// ffmpeg parses a filter graph twice: the graph parser splits filters on
// [ ] , ; and the option parser splits key=value pairs on ':'. Free text needs
// both levels. File paths only need the option level.
type Escaper struct{}

var (
	optionEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`)
	graphEscaper  = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `[`, `\[`, `]`, `\]`, `,`, `\,`, `;`, `\;`)
	// drawtext expands %{...} sequences; a literal percent must be escaped
	// before the option level.
	textExpansionEscaper = strings.NewReplacer(`%`, `\%`)
)

// Text escapes a drawtext text value for both parser levels.
func (Escaper) Text(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return graphEscaper.Replace(optionEscaper.Replace(textExpansionEscaper.Replace(s)))
}

// Path escapes a file path used as a filter option value.
func (Escaper) Path(s string) string {
	return optionEscaper.Replace(s)
}

// Option escapes an arbitrary option value at the option level only.
func (Escaper) Option(s string) string {
	return optionEscaper.Replace(s)
}
