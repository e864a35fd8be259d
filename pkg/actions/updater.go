package actions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/gmp/internal/logging"
	"github.com/aretw0/gmp/pkg/domain"
)

// CommandUpdater applies asynchronous handler replies, received after the
// initial dispatch returned STARTED, to the Actions they belong to.
type CommandUpdater struct {
	manager *Manager
	hooks   domain.DispatchHooks
	logger  *slog.Logger
}

// UpdaterOption configures the CommandUpdater.
type UpdaterOption func(*CommandUpdater)

// WithUpdaterLogger configures a logger for the CommandUpdater.
func WithUpdaterLogger(logger *slog.Logger) UpdaterOption {
	return func(u *CommandUpdater) {
		u.logger = logger
	}
}

// WithUpdaterHooks registers observability hooks fired on every update.
func WithUpdaterHooks(hooks domain.DispatchHooks) UpdaterOption {
	return func(u *CommandUpdater) {
		u.hooks = hooks
	}
}

// NewCommandUpdater creates an updater over manager.
func NewCommandUpdater(manager *Manager, opts ...UpdaterOption) *CommandUpdater {
	u := &CommandUpdater{
		manager: manager,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// UpdateOcs accounts for one asynchronous reply to the action with the
// given id. An ERROR is kept as the action's final response unless an
// earlier error was already recorded. When the last outstanding reply
// arrives, the action's listener is notified exactly once.
//
// Replies for unknown ids, typically late replies for actions that already
// timed out or completed, are dropped and reported as ErrActionNotFound so
// transports can tell their peer. They never change any action's state.
func (u *CommandUpdater) UpdateOcs(ctx context.Context, actionID int64, response domain.HandlerResponse) error {
	action, ok := u.manager.Lookup(actionID)
	u.hooks.EmitUpdate(ctx, &domain.UpdateEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventUpdate, ActionID: actionID},
		Response:  response,
		Known:     ok,
	})
	if !ok {
		u.logger.Debug("Dropping update for unknown action",
			"action_id", actionID,
			"response", response.String(),
		)
		return fmt.Errorf("%w: %d", domain.ErrActionNotFound, actionID)
	}

	u.logger.Debug("Update received",
		"action_id", actionID,
		"response", response.String(),
	)
	u.manager.Resolve(ctx, action, response)
	return nil
}
