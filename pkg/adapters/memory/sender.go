package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/gmp/pkg/domain"
)

// DefaultTimeout bounds a handler call when neither the caller nor the
// sender configure one.
const DefaultTimeout = 5 * time.Second

// HandlerFunc answers one message in process.
type HandlerFunc func(ctx context.Context, msg domain.ActionMessage) domain.HandlerResponse

// Sender implements ports.ActionSender by calling in-process handlers,
// registered per destination. Messages for destinations without a handler,
// or whose handler does not answer in time, get NOANSWER.
type Sender struct {
	handlers map[string]HandlerFunc
	mu       sync.RWMutex
	timeout  time.Duration
	calls    atomic.Int64
}

// SenderOption configures the Sender.
type SenderOption func(*Sender)

// WithTimeout sets the default handler timeout.
func WithTimeout(d time.Duration) SenderOption {
	return func(s *Sender) {
		s.timeout = d
	}
}

// NewSender creates a Sender without handlers.
func NewSender(opts ...SenderOption) *Sender {
	s := &Sender{
		handlers: make(map[string]HandlerFunc),
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle registers fn for destination, replacing any previous handler.
func (s *Sender) Handle(destination string, fn HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[destination] = fn
}

// Reply registers a handler always answering r.
func (s *Sender) Reply(destination string, r domain.HandlerResponse) {
	s.Handle(destination, func(context.Context, domain.ActionMessage) domain.HandlerResponse { return r })
}

// Calls returns the number of messages sent so far.
func (s *Sender) Calls() int {
	return int(s.calls.Load())
}

// Send implements ports.ActionSender.
func (s *Sender) Send(ctx context.Context, msg domain.ActionMessage) (domain.HandlerResponse, error) {
	return s.SendWithTimeout(ctx, msg, 0)
}

// SendWithTimeout implements ports.ActionSender.
func (s *Sender) SendWithTimeout(ctx context.Context, msg domain.ActionMessage, timeout time.Duration) (domain.HandlerResponse, error) {
	s.calls.Add(1)

	s.mu.RLock()
	fn, ok := s.handlers[msg.Destination]
	s.mu.RUnlock()
	if !ok {
		return domain.NoAnswer, nil
	}

	if timeout <= 0 {
		timeout = s.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reply := make(chan domain.HandlerResponse, 1)
	go func() {
		reply <- fn(ctx, msg)
	}()

	select {
	case r := <-reply:
		return r, nil
	case <-ctx.Done():
		return domain.NoAnswer, nil
	}
}
