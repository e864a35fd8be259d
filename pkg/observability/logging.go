package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/gmp/pkg/domain"
)

// LogHooks returns dispatch hooks writing every event to logger.
func LogHooks(logger *slog.Logger) domain.DispatchHooks {
	return domain.DispatchHooks{
		OnSend: func(ctx context.Context, e *domain.SendEvent) {
			if e.Err != nil {
				logger.ErrorContext(ctx, "send",
					"action_id", e.ActionID,
					"path", e.Path.String(),
					"error", e.Err,
				)
				return
			}
			logger.InfoContext(ctx, "send",
				"action_id", e.ActionID,
				"sequence_command", e.SequenceCommand,
				"path", e.Path.String(),
				"response", e.Response.String(),
				"elapsed", e.Elapsed,
			)
		},
		OnCompletion: func(ctx context.Context, e *domain.CompletionEvent) {
			logger.InfoContext(ctx, "completion",
				"action_id", e.ActionID,
				"sequence_command", e.SequenceCommand,
				"response", e.Response.String(),
				"async", e.Async,
			)
		},
		OnUpdate: func(ctx context.Context, e *domain.UpdateEvent) {
			logger.InfoContext(ctx, "update",
				"action_id", e.ActionID,
				"response", e.Response.String(),
				"known", e.Known,
			)
		},
	}
}
