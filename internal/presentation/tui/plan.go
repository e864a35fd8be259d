package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/gmp/internal/runtime"
	"github.com/aretw0/gmp/pkg/domain"
)

// PlanMarkdown describes an APPLY plan as a markdown document.
func PlanMarkdown(cmd domain.Command, plan runtime.Plan) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s/%s\n\n", cmd.SequenceCommand, cmd.Activity)

	if plan.FullyHandled {
		fmt.Fprintf(&sb, "Every entry reaches a handler: **%d** message(s) expected.\n\n", plan.ExpectedResponses)
	} else {
		sb.WriteString("Some entries reach **no handler**: the command would answer `NOANSWER` without sending anything.\n\n")
	}

	sb.WriteString("| Branch | Entries | Handler |\n")
	sb.WriteString("|---|---:|---|\n")
	var walk func(nodes []runtime.PlanNode, depth int)
	walk = func(nodes []runtime.PlanNode, depth int) {
		for _, n := range nodes {
			handler := "split"
			switch {
			case n.Handled:
				handler = "yes"
			case len(n.Children) == 0:
				handler = "**missing**"
			}
			fmt.Fprintf(&sb, "| %s`%s` | %d | %s |\n", strings.Repeat("&nbsp;&nbsp;", depth), n.Path, n.Entries, handler)
			walk(n.Children, depth+1)
		}
	}
	walk(plan.Nodes, 0)
	return sb.String()
}
