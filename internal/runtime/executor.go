package runtime

import (
	"context"
	"log/slog"

	"github.com/aretw0/gmp/internal/logging"
	"github.com/aretw0/gmp/pkg/actions"
	"github.com/aretw0/gmp/pkg/domain"
	"github.com/aretw0/gmp/pkg/ports"
)

// Executor dispatches an Action through a sender and returns the response
// known when the synchronous part of the dispatch ends.
//
// A STARTED response means the Action stays registered in the manager until
// the remaining replies arrive through the CommandUpdater. Errors are
// reserved for transport faults.
type Executor interface {
	Execute(ctx context.Context, action *domain.Action, sender ports.ActionSender) (domain.HandlerResponse, error)
}

type settings struct {
	builder ports.ActionMessageBuilder
	hooks   domain.DispatchHooks
	logger  *slog.Logger
}

// Option configures an executor.
type Option func(*settings)

// WithLogger configures a logger for the executor.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithHooks registers observability hooks fired on every send.
func WithHooks(hooks domain.DispatchHooks) Option {
	return func(s *settings) {
		s.hooks = hooks
	}
}

// WithMessageBuilder replaces the default MessageBuilder.
func WithMessageBuilder(builder ports.ActionMessageBuilder) Option {
	return func(s *settings) {
		s.builder = builder
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		builder: NewMessageBuilder(DefaultDestinationPrefix),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// DefaultExecutor sends the whole Command to the destination of its
// sequence command and expects a single reply.
type DefaultExecutor struct {
	settings
	manager *actions.Manager
}

// NewDefaultExecutor creates a DefaultExecutor.
func NewDefaultExecutor(manager *actions.Manager, opts ...Option) *DefaultExecutor {
	return &DefaultExecutor{settings: newSettings(opts), manager: manager}
}

// Execute implements Executor.
func (e *DefaultExecutor) Execute(ctx context.Context, action *domain.Action, sender ports.ActionSender) (domain.HandlerResponse, error) {
	action.BeginDispatch()
	e.manager.RegisterAction(action)
	e.manager.IncreaseRequiredResponses(action)

	r, err := send(ctx, &e.settings, action, domain.EmptyPath, sender)
	if err != nil {
		e.manager.Abort(action, domain.NewErrorResponse(err.Error()))
		return domain.HandlerResponse{}, err
	}
	if r.Kind != domain.KindStarted && r.Kind != domain.KindNoAnswer {
		e.manager.Resolve(ctx, action, r)
	}
	e.manager.FinishDispatch(ctx, action, r)
	return r, nil
}
