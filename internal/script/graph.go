package script

import (
	"fmt"
	"strings"

	"intake-script-engine/internal/models"
)

// Edges projects the script's single-reference then links into a directed
// edge list. Conditional branch lists are not expanded; an edge exists iff
// the question's then is the plain string form.
func Edges(scr models.Script) []models.Edge {
	var edges []models.Edge
	for _, name := range Names(scr) {
		q := scr[name]
		if q.Then != nil && q.Then.Next != "" {
			edges = append(edges, models.Edge{From: name, To: q.Then.Next})
		}
	}
	return edges
}

// DOT renders the question graph as a Graphviz digraph for human
// inspection. An empty script renders nothing.
func DOT(scr models.Script) string {
	if len(scr) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("digraph script {\n")
	for _, name := range Names(scr) {
		q := scr[name]
		label := q.Prompt
		if label == "" {
			label = name
		}
		fmt.Fprintf(&b, "  %q [label=%q];\n", name, label)
	}
	for _, edge := range Edges(scr) {
		fmt.Fprintf(&b, "  %q -> %q;\n", edge.From, edge.To)
	}
	b.WriteString("}\n")
	return b.String()
}
