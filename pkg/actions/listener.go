package actions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/gmp/pkg/domain"
)

// WaitingListener is a CompletionListener that lets a caller block until
// the completion arrives or its own deadline passes.
//
// It accepts a single response; further notifications are ignored.
type WaitingListener struct {
	once     sync.Once
	done     chan struct{}
	response domain.HandlerResponse
	command  domain.Command
}

// NewWaitingListener creates a listener ready to receive one response.
func NewWaitingListener() *WaitingListener {
	return &WaitingListener{done: make(chan struct{})}
}

// OnHandlerResponse implements domain.CompletionListener.
func (l *WaitingListener) OnHandlerResponse(response domain.HandlerResponse, command domain.Command) {
	l.once.Do(func() {
		l.response = response
		l.command = command
		close(l.done)
	})
}

// Done is closed when a response arrived.
func (l *WaitingListener) Done() <-chan struct{} {
	return l.done
}

// Wait blocks until a response arrives or ctx ends. When ctx ends first it
// returns an ERROR response and ctx's error.
func (l *WaitingListener) Wait(ctx context.Context) (domain.HandlerResponse, error) {
	select {
	case <-l.done:
		return l.response, nil
	case <-ctx.Done():
		return domain.NewErrorResponse(fmt.Sprintf("Response not arrived in time: %v", ctx.Err())), ctx.Err()
	}
}

// WaitFor blocks up to timeout for the response. On timeout it synthesizes
// an ERROR response; a completion arriving afterwards is ignored by the
// caller but never causes a second notification.
func (l *WaitingListener) WaitFor(timeout time.Duration) domain.HandlerResponse {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-l.done:
		return l.response
	case <-timer.C:
		return domain.NewErrorResponse(fmt.Sprintf("Response not arrived in time: %v", timeout))
	}
}

// Response returns the received response, if any.
func (l *WaitingListener) Response() (domain.HandlerResponse, domain.Command, bool) {
	select {
	case <-l.done:
		return l.response, l.command, true
	default:
		return domain.HandlerResponse{}, domain.Command{}, false
	}
}
