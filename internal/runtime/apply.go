package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/gmp/pkg/actions"
	"github.com/aretw0/gmp/pkg/domain"
	"github.com/aretw0/gmp/pkg/ports"
)

// NoConfigurationMessage is the message of the ERROR returned for an APPLY
// without configuration.
const NoConfigurationMessage = "No configuration present for Apply Sequence command"

// ApplyExecutor dispatches APPLY commands. The configuration is split along
// its path tree: a branch is sent as a whole to a handler registered for its
// root path, and is split one level further where no handler is registered.
type ApplyExecutor struct {
	settings
	manager  *actions.Manager
	handlers ports.CommandHandlers
}

// NewApplyExecutor creates an ApplyExecutor resolving handlers through
// handlers on every Execute.
func NewApplyExecutor(manager *actions.Manager, handlers ports.CommandHandlers, opts ...Option) *ApplyExecutor {
	return &ApplyExecutor{
		settings: newSettings(opts),
		manager:  manager,
		handlers: handlers,
	}
}

// Execute implements Executor.
//
// Nothing is sent unless every entry of the configuration reaches a
// registered handler; in that case NOANSWER is returned. Otherwise the full
// number of expected replies is accounted on the Action before the first
// send and the per-branch replies are aggregated level by level.
func (e *ApplyExecutor) Execute(ctx context.Context, action *domain.Action, sender ports.ActionSender) (domain.HandlerResponse, error) {
	config := action.Command().Configuration
	if config.IsEmpty() {
		return domain.NewErrorResponse(NoConfigurationMessage), nil
	}

	handlers, err := e.handlers.ApplyHandlers(ctx)
	if err != nil {
		return domain.HandlerResponse{}, fmt.Errorf("failed to read apply handlers: %w", err)
	}
	tree := newHandlerTree(config, handlers)

	expected := tree.countExpectedResponses(domain.EmptyPath)
	e.logger.Debug("Apply decomposed",
		"action_id", action.ID(),
		"expected_responses", expected,
		"handlers", len(handlers),
	)
	if !tree.canBeFullyHandled() {
		e.logger.Warn("Apply cannot be fully handled, missing handlers",
			"action_id", action.ID(),
			"configuration", config.String(),
		)
		return domain.NoAnswer, nil
	}

	action.BeginDispatch()
	e.manager.RegisterAction(action)
	for i := 0; i < expected; i++ {
		e.manager.IncreaseRequiredResponses(action)
	}

	d := &applyDispatch{ApplyExecutor: e, tree: tree, action: action, sender: sender}
	r, err := d.getResponse(ctx, domain.EmptyPath)
	if err != nil {
		e.manager.Abort(action, domain.NewErrorResponse(err.Error()))
		return domain.HandlerResponse{}, err
	}
	e.manager.FinishDispatch(ctx, action, r)
	return r, nil
}

// CountExpectedResponses returns how many messages an APPLY of config sends
// when handlers are registered. With no handler at all every child of the
// root counts once.
func CountExpectedResponses(config domain.Configuration, handlers []domain.ConfigPath) int {
	return newHandlerTree(config, handlers).countExpectedResponses(domain.EmptyPath)
}

// CanBeFullyHandled reports whether every entry of config reaches one of
// handlers.
func CanBeFullyHandled(config domain.Configuration, handlers []domain.ConfigPath) bool {
	return newHandlerTree(config, handlers).canBeFullyHandled()
}

// handlerTree is a configuration walked against one snapshot of handlers.
type handlerTree struct {
	config   domain.Configuration
	nav      domain.ConfigPathNavigator
	handlers map[domain.ConfigPath]struct{}
}

func newHandlerTree(config domain.Configuration, handlers []domain.ConfigPath) *handlerTree {
	set := make(map[domain.ConfigPath]struct{}, len(handlers))
	for _, h := range handlers {
		set[h] = struct{}{}
	}
	return &handlerTree{
		config:   config,
		nav:      domain.NewConfigPathNavigator(config),
		handlers: set,
	}
}

// handled reports whether path is sent as a whole. An empty registry sends
// every path.
func (t *handlerTree) handled(path domain.ConfigPath) bool {
	if len(t.handlers) == 0 {
		return true
	}
	_, ok := t.handlers[path]
	return ok
}

func (t *handlerTree) countExpectedResponses(path domain.ConfigPath) int {
	children := t.nav.ChildPaths(path)
	if len(children) == 0 {
		return 1
	}
	n := 0
	for _, child := range children {
		if t.handled(child) {
			n++
			continue
		}
		n += t.countExpectedResponses(child)
	}
	return n
}

func (t *handlerTree) canBeFullyHandled() bool {
	if len(t.handlers) == 0 {
		return false
	}
	return t.covered(domain.EmptyPath)
}

// covered reports whether everything below path, which has no handler of
// its own, reaches a handler.
func (t *handlerTree) covered(path domain.ConfigPath) bool {
	if _, ok := t.config.Value(path); ok {
		// An entry stored on an intermediate path would be dropped.
		return false
	}
	children := t.nav.ChildPaths(path)
	if len(children) == 0 {
		return false
	}
	for _, child := range children {
		if t.handled(child) {
			continue
		}
		if !t.covered(child) {
			return false
		}
	}
	return true
}

// applyDispatch is the state of a single Execute.
type applyDispatch struct {
	*ApplyExecutor
	tree   *handlerTree
	action *domain.Action
	sender ports.ActionSender
}

func (d *applyDispatch) getResponse(ctx context.Context, path domain.ConfigPath) (domain.HandlerResponse, error) {
	children := d.tree.nav.ChildPaths(path)
	if len(children) == 0 {
		d.logger.Info("Nothing left to decompose",
			"action_id", d.action.ID(),
			"path", path.String(),
		)
		return domain.NoAnswer, nil
	}

	var analyzer domain.HandlerResponseAnalyzer
	for _, child := range children {
		var (
			r   domain.HandlerResponse
			err error
		)
		if d.tree.handled(child) {
			r, err = d.sendTo(ctx, child)
		} else {
			d.logger.Debug("No handler, going one level down",
				"action_id", d.action.ID(),
				"path", child.String(),
			)
			r, err = d.getResponse(ctx, child)
		}
		if err != nil {
			return domain.HandlerResponse{}, err
		}
		if r.Kind == domain.KindNoAnswer {
			d.logger.Warn("No handler answered, aborting decomposition",
				"action_id", d.action.ID(),
				"path", child.String(),
			)
			return domain.NoAnswer, nil
		}
		analyzer.AddResponse(r)
	}
	return analyzer.SummaryResponse(), nil
}

// sendTo sends the branch rooted at path and settles the replies that
// need no asynchronous follow up.
func (d *applyDispatch) sendTo(ctx context.Context, path domain.ConfigPath) (domain.HandlerResponse, error) {
	r, err := send(ctx, &d.settings, d.action, path, d.sender)
	if err != nil {
		return r, err
	}

	switch r.Kind {
	case domain.KindCompleted, domain.KindAccepted, domain.KindError:
		d.manager.Resolve(ctx, d.action, r)
	case domain.KindNoAnswer:
		// The branch was counted once; its decomposition may send more.
		if extra := d.tree.countExpectedResponses(path) - 1; extra > 0 {
			d.action.IncreaseRequired(extra)
		}
		return d.getResponse(ctx, path)
	}
	return r, nil
}
