package runtime

import "github.com/aretw0/gmp/pkg/domain"

// PlanNode is one branch of an APPLY configuration.
type PlanNode struct {
	Path domain.ConfigPath
	// Handled is true when the branch is sent as a whole.
	Handled bool
	// Entries counts the configuration entries at or below Path.
	Entries  int
	Children []PlanNode
}

// Plan describes how an APPLY would be dispatched, assuming every handler
// answers.
type Plan struct {
	Nodes             []PlanNode
	Targets           []domain.ConfigPath
	ExpectedResponses int
	FullyHandled      bool
}

// NewPlan decomposes config against handlers without sending anything.
func NewPlan(config domain.Configuration, handlers []domain.ConfigPath) Plan {
	tree := newHandlerTree(config, handlers)
	p := Plan{
		ExpectedResponses: tree.countExpectedResponses(domain.EmptyPath),
		FullyHandled:      tree.canBeFullyHandled(),
	}
	p.Nodes = tree.plan(domain.EmptyPath, &p.Targets)
	return p
}

func (t *handlerTree) plan(path domain.ConfigPath, targets *[]domain.ConfigPath) []PlanNode {
	var nodes []PlanNode
	for _, child := range t.nav.ChildPaths(path) {
		n := PlanNode{
			Path:    child,
			Handled: t.handled(child),
			Entries: t.config.SubConfiguration(child).Len(),
		}
		if n.Handled {
			*targets = append(*targets, child)
		} else {
			n.Children = t.plan(child, targets)
		}
		nodes = append(nodes, n)
	}
	return nodes
}
