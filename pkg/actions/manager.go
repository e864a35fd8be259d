package actions

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/gmp/internal/logging"
	"github.com/aretw0/gmp/pkg/domain"
)

// Manager records the Actions waiting for handler replies and counts how
// many replies each one still needs. It is safe for concurrent use.
//
// The Manager does not decide when an Action is over; that is resolved by
// the Action itself. The Manager delivers the final response to the
// listener when a call it serves settles the Action.
type Manager struct {
	mu      sync.RWMutex
	actions map[int64]*domain.Action

	hooks  domain.DispatchHooks
	logger *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithHooks registers observability hooks fired on completion.
func WithHooks(hooks domain.DispatchHooks) Option {
	return func(m *Manager) {
		m.hooks = hooks
	}
}

// NewManager creates an empty Manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		actions: make(map[int64]*domain.Action),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RegisterAction records action under its id. Registering the same action
// twice is a no-op.
func (m *Manager) RegisterAction(action *domain.Action) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions[action.ID()] = action
}

// UnregisterAction forgets action. Later replies for its id are ignored.
func (m *Manager) UnregisterAction(action *domain.Action) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.actions[action.ID()]; ok && current == action {
		delete(m.actions, action.ID())
	}
}

// Lookup returns the registered action with the given id.
func (m *Manager) Lookup(id int64) (*domain.Action, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.actions[id]
	return a, ok
}

// Pending returns the ids of the registered actions, sorted.
func (m *Manager) Pending() []int64 {
	m.mu.RLock()
	ids := make([]int64, 0, len(m.actions))
	for id := range m.actions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

// IncreaseRequiredResponses adds one outstanding reply to action.
// Routers call it for every expected reply before the first send.
func (m *Manager) IncreaseRequiredResponses(action *domain.Action) {
	action.IncreaseRequired(1)
}

// DecreaseRequiredResponses accounts for one successful reply.
func (m *Manager) DecreaseRequiredResponses(ctx context.Context, action *domain.Action) {
	m.Resolve(ctx, action, domain.Completed)
}

// IsComplete reports whether action has no outstanding reply.
func (m *Manager) IsComplete(action *domain.Action) bool {
	return action.IsComplete()
}

// Resolve accounts for one reply to action, recording it as the terminal
// response if it is the first error. When this settles the action, the
// listener is notified from the calling goroutine, without locks held, and
// the action is unregistered.
func (m *Manager) Resolve(ctx context.Context, action *domain.Action, r domain.HandlerResponse) {
	final, settled, underflow := action.Resolve(r)
	if underflow {
		m.logger.Warn("Reply for an action with no outstanding responses",
			"action_id", action.ID(),
			"response", r.String(),
		)
		return
	}
	if settled {
		m.complete(ctx, action, final)
	}
}

// FinishDispatch closes the router's dispatch of action with its summary
// response. Non-pending summaries end the action without a callback.
func (m *Manager) FinishDispatch(ctx context.Context, action *domain.Action, summary domain.HandlerResponse) {
	final, notify := action.FinishDispatch(summary)
	if notify {
		m.complete(ctx, action, final)
		return
	}
	if summary.Kind != domain.KindStarted {
		m.UnregisterAction(action)
		m.hooks.EmitCompletion(ctx, &domain.CompletionEvent{
			EventBase:       domain.EventBase{Timestamp: time.Now(), Type: domain.EventCompletion, ActionID: action.ID()},
			SequenceCommand: action.Command().SequenceCommand,
			Response:        summary,
		})
	}
}

// Abort ends action with r without notifying its listener. It is used when
// dispatch fails with a transport error.
func (m *Manager) Abort(action *domain.Action, r domain.HandlerResponse) {
	action.Abort(r)
	m.UnregisterAction(action)
}

func (m *Manager) complete(ctx context.Context, action *domain.Action, final domain.HandlerResponse) {
	m.UnregisterAction(action)
	m.logger.Info("Action completed",
		"action_id", action.ID(),
		"response", final.String(),
	)
	m.hooks.EmitCompletion(ctx, &domain.CompletionEvent{
		EventBase:       domain.EventBase{Timestamp: time.Now(), Type: domain.EventCompletion, ActionID: action.ID()},
		SequenceCommand: action.Command().SequenceCommand,
		Response:        final,
		Async:           true,
	})
	action.Notify(final)
}
