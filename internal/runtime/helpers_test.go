package runtime_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/gmp/pkg/domain"
	"github.com/stretchr/testify/mock"
)

func path(s string) domain.ConfigPath { return domain.MustParseConfigPath(s) }

func configOf(entries ...string) domain.Configuration {
	b := domain.NewConfigurationBuilder()
	for i := 0; i+1 < len(entries); i += 2 {
		b.WithPath(path(entries[i]), entries[i+1])
	}
	return b.Build()
}

func twoSystems() domain.Configuration {
	return configOf("X:S1:A.val1", "xa1", "X:S2:C.val1", "xc1")
}

func fullConfig() domain.Configuration {
	return configOf(
		"X:S1:A.val1", "xa1",
		"X:S1:A.val2", "xa2",
		"X:S1.A.val2", "xa2",
		"X:S1:A.val3", "xa3",
		"X:S1:B.val1", "xb1",
		"X:S1:B.val2", "xb2",
		"X:S1:B.val3", "xb3",
		"X:S2:C.val1", "xc1",
		"X:S2:C.val2", "xc2",
		"X:S2:C.val3", "xc3",
	)
}

// MockHandlers is a testify mock of ports.CommandHandlers.
type MockHandlers struct {
	mock.Mock
}

func (m *MockHandlers) ApplyHandlers(ctx context.Context) ([]domain.ConfigPath, error) {
	args := m.Called(ctx)
	paths, _ := args.Get(0).([]domain.ConfigPath)
	return paths, args.Error(1)
}

func handlersFor(paths ...string) *MockHandlers {
	m := &MockHandlers{}
	var snapshot []domain.ConfigPath
	for _, p := range paths {
		snapshot = append(snapshot, path(p))
	}
	m.On("ApplyHandlers", mock.Anything).Return(snapshot, nil)
	return m
}

// fakeSender rebuilds the configuration carried by each message and answers
// through respond, handing it the X:S1 and X:S2 branches.
type fakeSender struct {
	calls   atomic.Int32
	respond func(s1, s2 domain.Configuration) domain.HandlerResponse

	mu       sync.Mutex
	messages []domain.ActionMessage
}

func newFakeSender(respond func(s1, s2 domain.Configuration) domain.HandlerResponse) *fakeSender {
	return &fakeSender{respond: respond}
}

func always(r domain.HandlerResponse) *fakeSender {
	return newFakeSender(func(_, _ domain.Configuration) domain.HandlerResponse { return r })
}

func (s *fakeSender) Send(ctx context.Context, msg domain.ActionMessage) (domain.HandlerResponse, error) {
	return s.SendWithTimeout(ctx, msg, 0)
}

func (s *fakeSender) SendWithTimeout(_ context.Context, msg domain.ActionMessage, _ time.Duration) (domain.HandlerResponse, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	config, err := msg.Configuration()
	if err != nil {
		return domain.HandlerResponse{}, err
	}
	return s.respond(config.SubConfiguration(path("X:S1")), config.SubConfiguration(path("X:S2"))), nil
}

func (s *fakeSender) Calls() int { return int(s.calls.Load()) }

func (s *fakeSender) Messages() []domain.ActionMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ActionMessage(nil), s.messages...)
}

// MockSender is a testify mock of ports.ActionSender.
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, msg domain.ActionMessage) (domain.HandlerResponse, error) {
	return m.SendWithTimeout(ctx, msg, 0)
}

func (m *MockSender) SendWithTimeout(ctx context.Context, msg domain.ActionMessage, timeout time.Duration) (domain.HandlerResponse, error) {
	args := m.Called(ctx, msg, timeout)
	r, _ := args.Get(0).(domain.HandlerResponse)
	return r, args.Error(1)
}

// listenerMock records listener calls and lets tests wait for them.
type listenerMock struct {
	mu    sync.Mutex
	calls int
	last  domain.HandlerResponse
	fired chan struct{}
}

func newListenerMock() *listenerMock {
	return &listenerMock{fired: make(chan struct{}, 16)}
}

func (l *listenerMock) OnHandlerResponse(r domain.HandlerResponse, _ domain.Command) {
	l.mu.Lock()
	l.calls++
	l.last = r
	l.mu.Unlock()
	l.fired <- struct{}{}
}

func (l *listenerMock) waitForCompletion(timeout time.Duration) bool {
	select {
	case <-l.fired:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (l *listenerMock) state() (int, domain.HandlerResponse) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls, l.last
}
