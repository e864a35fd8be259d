package ports

import (
	"context"

	"github.com/aretw0/gmp/pkg/domain"
)

// CommandUpdater receives the asynchronous replies of handlers that
// answered STARTED. Transports feed it.
type CommandUpdater interface {
	// UpdateOcs accounts for one reply to the action with the given id.
	// It returns domain.ErrActionNotFound for ids no longer in flight.
	UpdateOcs(ctx context.Context, actionID int64, response domain.HandlerResponse) error
}
