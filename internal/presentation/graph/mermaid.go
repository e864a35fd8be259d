package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/gmp/internal/runtime"
	"github.com/aretw0/gmp/pkg/domain"
)

// GenerateMermaid produces a Mermaid flowchart of an APPLY plan.
// It applies semantic styling:
// - Command: ((Circle))
// - Handled branch: [[Subroutine]]
// - Branch split further: [Rectangle]
// - Branch no handler can reach: [Rectangle] with the "missing" class
func GenerateMermaid(sc domain.SequenceCommand, plan runtime.Plan) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	sb.WriteString(fmt.Sprintf("    root((\"%s\"))\n", sc))

	g := &generator{sb: &sb}
	for _, n := range plan.Nodes {
		g.node("root", n)
	}

	if len(g.missing) > 0 {
		sb.WriteString("\n    %% Unreachable branches\n")
		sb.WriteString("    classDef missing fill:#ffebee,stroke:#c62828,stroke-width:2px,color:#000;\n")
		for _, id := range g.missing {
			sb.WriteString(fmt.Sprintf("    class %s missing;\n", id))
		}
	}
	return sb.String()
}

type generator struct {
	sb      *strings.Builder
	next    int
	missing []string
}

// node writes n and its children. Mermaid ids are generated, since path
// text like "X:S1.A" is not a valid id.
func (g *generator) node(parent string, n runtime.PlanNode) {
	id := fmt.Sprintf("n%d", g.next)
	g.next++

	opener, closer := "[", "]"
	if n.Handled {
		opener, closer = "[[", "]]"
	}
	label := strings.ReplaceAll(n.Path.String(), "\"", "'")
	g.sb.WriteString(fmt.Sprintf("    %s%s\"%s <br/> %d entries\"%s\n", id, opener, label, n.Entries, closer))
	g.sb.WriteString(fmt.Sprintf("    %s --> %s\n", parent, id))

	if !n.Handled && len(n.Children) == 0 {
		g.missing = append(g.missing, id)
	}
	for _, child := range n.Children {
		g.node(id, child)
	}
}
