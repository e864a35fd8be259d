package gmp

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/gmp/internal/logging"
	"github.com/aretw0/gmp/internal/runtime"
	"github.com/aretw0/gmp/pkg/actions"
	"github.com/aretw0/gmp/pkg/adapters/memory"
	"github.com/aretw0/gmp/pkg/domain"
	"github.com/aretw0/gmp/pkg/ports"
)

// ErrNoSender is returned by New when no ActionSender is configured.
var ErrNoSender = errors.New("an action sender is required")

// Dispatcher is the entry point for sequence commands.
// It is safe for concurrent use.
type Dispatcher struct {
	sender         ports.ActionSender
	handlers       ports.CommandHandlers
	builder        ports.ActionMessageBuilder
	prefix         string
	defaultTimeout time.Duration
	hooks          domain.DispatchHooks
	logger         *slog.Logger

	manager   *actions.Manager
	updater   *actions.CommandUpdater
	fallback  runtime.Executor
	executors map[domain.SequenceCommand]runtime.Executor
}

// Option defines a functional option for configuring the Dispatcher.
type Option func(*Dispatcher)

// WithSender sets the transport used to reach handlers.
func WithSender(sender ports.ActionSender) Option {
	return func(d *Dispatcher) {
		d.sender = sender
	}
}

// WithHandlers sets the registry of APPLY handlers.
// Defaults to an empty in-memory registry.
func WithHandlers(handlers ports.CommandHandlers) Option {
	return func(d *Dispatcher) {
		d.handlers = handlers
	}
}

// WithMessageBuilder replaces the default message builder.
func WithMessageBuilder(builder ports.ActionMessageBuilder) Option {
	return func(d *Dispatcher) {
		d.builder = builder
	}
}

// WithDestinationPrefix sets the prefix of message destinations
// (default: "GMP.SC."). It is ignored when WithMessageBuilder is used.
func WithDestinationPrefix(prefix string) Option {
	return func(d *Dispatcher) {
		d.prefix = prefix
	}
}

// WithDefaultTimeout sets the timeout of Actions submitted without one.
func WithDefaultTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		d.defaultTimeout = timeout
	}
}

// WithDispatchHooks registers observability hooks.
func WithDispatchHooks(hooks domain.DispatchHooks) Option {
	return func(d *Dispatcher) {
		d.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// New creates a Dispatcher.
func New(opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{prefix: runtime.DefaultDestinationPrefix}
	for _, opt := range opts {
		opt(d)
	}
	if d.sender == nil {
		return nil, ErrNoSender
	}
	if d.handlers == nil {
		d.handlers = memory.NewRegistry()
	}
	if d.logger == nil {
		d.logger = logging.NewNop()
	}
	if d.builder == nil {
		d.builder = runtime.NewMessageBuilder(d.prefix)
	}

	d.manager = actions.NewManager(
		actions.WithLogger(d.logger),
		actions.WithHooks(d.hooks),
	)
	d.updater = actions.NewCommandUpdater(d.manager,
		actions.WithUpdaterLogger(d.logger),
		actions.WithUpdaterHooks(d.hooks),
	)

	execOpts := []runtime.Option{
		runtime.WithLogger(d.logger),
		runtime.WithHooks(d.hooks),
		runtime.WithMessageBuilder(d.builder),
	}
	d.fallback = runtime.NewDefaultExecutor(d.manager, execOpts...)
	d.executors = map[domain.SequenceCommand]runtime.Executor{
		domain.SequenceApply: runtime.NewApplyExecutor(d.manager, d.handlers, execOpts...),
	}
	return d, nil
}

// Submit dispatches cmd using the default timeout. See SubmitWithTimeout.
func (d *Dispatcher) Submit(ctx context.Context, cmd domain.Command, listener domain.CompletionListener) (*domain.Action, domain.HandlerResponse, error) {
	return d.SubmitWithTimeout(ctx, cmd, listener, d.defaultTimeout)
}

// SubmitWithTimeout dispatches cmd and returns the Action created for it
// together with the synchronous response.
//
// When the response is STARTED, listener is called once with the final
// response after every handler reported. listener may be nil. The timeout
// bounds each handler round trip; waiting for the final response is up to
// the caller.
func (d *Dispatcher) SubmitWithTimeout(ctx context.Context, cmd domain.Command, listener domain.CompletionListener, timeout time.Duration) (*domain.Action, domain.HandlerResponse, error) {
	action := domain.NewAction(cmd, listener, timeout)
	d.logger.Info("Dispatching command",
		"action_id", action.ID(),
		"sequence_command", cmd.SequenceCommand,
		"activity", cmd.Activity,
	)

	r, err := d.executor(cmd.SequenceCommand).Execute(ctx, action, d.sender)
	if err != nil {
		return action, domain.HandlerResponse{}, err
	}

	d.logger.Info("Command dispatched",
		"action_id", action.ID(),
		"response", r.String(),
	)
	return action, r, nil
}

// SubmitAndWait dispatches cmd and, when handlers answered STARTED, waits
// for the final response. timeout is one deadline for the whole call: the
// handler round trips and the wait share it. A zero timeout falls back to
// the default one, and to ctx alone when neither is set. When the deadline
// passes it returns an ERROR response; later completions are dropped.
func (d *Dispatcher) SubmitAndWait(ctx context.Context, cmd domain.Command, timeout time.Duration) (domain.HandlerResponse, error) {
	wait := timeout
	if wait <= 0 {
		wait = d.defaultTimeout
	}
	if wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, wait)
		defer cancel()
	}
	timedOut := func() domain.HandlerResponse {
		d.logger.Warn("Completion not received in time", "timeout", wait)
		return domain.NewErrorResponse("Response not arrived in time: " + wait.String())
	}

	listener := actions.NewWaitingListener()
	_, r, err := d.SubmitWithTimeout(ctx, cmd, listener, timeout)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return timedOut(), nil
		}
		return r, err
	}
	if r.Kind != domain.KindStarted {
		return r, nil
	}

	final, err := listener.Wait(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return timedOut(), nil
	}
	return final, err
}

// UpdateOcs delivers an asynchronous handler reply. See
// actions.CommandUpdater.
func (d *Dispatcher) UpdateOcs(ctx context.Context, actionID int64, response domain.HandlerResponse) error {
	return d.updater.UpdateOcs(ctx, actionID, response)
}

// Pending returns the ids of the Actions waiting for asynchronous replies.
func (d *Dispatcher) Pending() []int64 {
	return d.manager.Pending()
}

// Lookup returns a pending Action.
func (d *Dispatcher) Lookup(actionID int64) (*domain.Action, bool) {
	return d.manager.Lookup(actionID)
}

// Handlers returns the APPLY handler registry.
func (d *Dispatcher) Handlers() ports.CommandHandlers {
	return d.handlers
}

// Updater returns the CommandUpdater fed by transports.
func (d *Dispatcher) Updater() *actions.CommandUpdater {
	return d.updater
}

func (d *Dispatcher) executor(sc domain.SequenceCommand) runtime.Executor {
	if e, ok := d.executors[sc]; ok {
		return e
	}
	return d.fallback
}
