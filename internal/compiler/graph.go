package compiler

import "strings"

// graph accumulates filter statements in emission order.
type graph struct {
	statements []string
}

// emit appends "[in...]f1,f2[out...]".
func (g *graph) emit(inputs []string, filters []string, outputs ...string) {
	var b strings.Builder
	for _, in := range inputs {
		b.WriteByte('[')
		b.WriteString(in)
		b.WriteByte(']')
	}
	b.WriteString(strings.Join(filters, ","))
	for _, out := range outputs {
		b.WriteByte('[')
		b.WriteString(out)
		b.WriteByte(']')
	}
	g.statements = append(g.statements, b.String())
}

func (g *graph) String() string {
	return strings.Join(g.statements, ";")
}

func (g *graph) len() int {
	return len(g.statements)
}

func in(labels ...string) []string {
	return labels
}
