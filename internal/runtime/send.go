package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/gmp/pkg/domain"
	"github.com/aretw0/gmp/pkg/ports"
)

// send builds the message for path, hands it to sender and reports the
// round trip to hooks and logs.
func send(ctx context.Context, s *settings, action *domain.Action, path domain.ConfigPath, sender ports.ActionSender) (domain.HandlerResponse, error) {
	msg := s.builder.BuildActionMessage(action, path)
	s.logger.Debug("Sending action message",
		"action_id", action.ID(),
		"destination", msg.Destination,
		"path", path.String(),
		"timeout", action.Timeout(),
	)

	start := time.Now()
	r, err := sender.SendWithTimeout(ctx, msg, action.Timeout())
	elapsed := time.Since(start)
	if err == nil {
		if !r.Kind.Valid() {
			s.logger.Warn("Invalid response kind",
				"action_id", action.ID(),
				"destination", msg.Destination,
				"kind", string(r.Kind),
			)
			r = domain.NewErrorResponse(fmt.Sprintf("invalid response %q from %s", r.Kind, msg.Destination))
		}
	}

	s.hooks.EmitSend(ctx, &domain.SendEvent{
		EventBase:       domain.EventBase{Timestamp: start, Type: domain.EventSend, ActionID: action.ID()},
		SequenceCommand: action.Command().SequenceCommand,
		Path:            path,
		Response:        r,
		Elapsed:         elapsed,
		Err:             err,
	})
	if err != nil {
		s.logger.Error("Send failed",
			"action_id", action.ID(),
			"destination", msg.Destination,
			"error", err,
		)
		return domain.HandlerResponse{}, fmt.Errorf("%w: sending to %s: %w", domain.ErrTransport, msg.Destination, err)
	}

	s.logger.Debug("Response received",
		"action_id", action.ID(),
		"path", path.String(),
		"response", r.String(),
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return r, nil
}
