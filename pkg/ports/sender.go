package ports

import (
	"context"
	"time"

	"github.com/aretw0/gmp/pkg/domain"
)

// ActionSender delivers one ActionMessage to its handler and waits for the
// synchronous part of the answer.
//
// Implementations return domain.NoAnswer, not an error, when nobody answers
// within the protocol's conventions. An error is reserved for genuine
// transport failures; routers propagate it without retrying.
type ActionSender interface {
	// Send delivers msg using the sender's default timeout.
	Send(ctx context.Context, msg domain.ActionMessage) (domain.HandlerResponse, error)

	// SendWithTimeout delivers msg and waits at most timeout for the answer.
	// A zero timeout means the sender's default.
	SendWithTimeout(ctx context.Context, msg domain.ActionMessage, timeout time.Duration) (domain.HandlerResponse, error)
}

// ActionMessageBuilder projects an Action onto one handler path.
type ActionMessageBuilder interface {
	BuildActionMessage(action *domain.Action, path domain.ConfigPath) domain.ActionMessage
}
