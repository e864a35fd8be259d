package runtime_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/gmp/internal/runtime"
	"github.com/aretw0/gmp/pkg/actions"
	"github.com/aretw0/gmp/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func applyAction(config domain.Configuration, l domain.CompletionListener) *domain.Action {
	return domain.NewAction(domain.NewCommand(domain.SequenceApply, domain.ActivityStart, config), l, 0)
}

func TestCountExpectedResponses(t *testing.T) {
	handlers := []domain.ConfigPath{path("X:S1"), path("X:S2")}

	tests := []struct {
		name     string
		config   domain.Configuration
		handlers []domain.ConfigPath
		count    int
		full     bool
	}{
		{"TwoSystems", fullConfig(), handlers, 2, true},
		{"OneSystem", configOf("X:S1:A.val1", "xa1", "X:S1:B.val1", "xb1", "X:S1.A.val2", "xa2"), handlers, 1, true},
		{"UnhandledBranch", configOf("X:S1:A.val1", "xa1", "X:S2:C.val3", "xc3", "X:S3:C.val3", "xc3"), handlers, 3, false},
		{"OnlyUnhandled", configOf("X:S3:C.val3", "xc3"), handlers, 1, false},
		{"Empty", domain.EmptyConfiguration, handlers, 1, false},
		{"NoHandlers", fullConfig(), nil, 1, false},
		{"OneLevel", configOf("X:A.val1", "1", "X:A.val2", "2", "X:B.val1", "3"), []domain.ConfigPath{path("X:A"), path("X:B")}, 2, true},
		{"NestedHandlers", fullConfig(), []domain.ConfigPath{path("X:S1:A"), path("X:S1:B"), path("X:S1.A"), path("X:S2")}, 4, true},
		{"ValueOnIntermediatePath", configOf("X", "top", "X:S1:A.val1", "xa1"), handlers, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.count, runtime.CountExpectedResponses(tt.config, tt.handlers))
			assert.Equal(t, tt.full, runtime.CanBeFullyHandled(tt.config, tt.handlers))
		})
	}
}

func TestApplyExecutor_EmptyConfiguration(t *testing.T) {
	manager := actions.NewManager()
	exec := runtime.NewApplyExecutor(manager, handlersFor("X:S1"))
	sender := always(domain.Completed)

	r, err := exec.Execute(context.Background(), applyAction(domain.EmptyConfiguration, nil), sender)
	require.NoError(t, err)
	assert.True(t, r.HasErrorMessage())
	assert.Equal(t, runtime.NoConfigurationMessage, r.Message)
	assert.Zero(t, sender.Calls())
	assert.Empty(t, manager.Pending())
}

func TestApplyExecutor_NoAnswer(t *testing.T) {
	onlyS1 := newFakeSender(func(s1, _ domain.Configuration) domain.HandlerResponse {
		if s1.IsEmpty() {
			return domain.NoAnswer
		}
		return domain.Completed
	})

	tests := []struct {
		name     string
		config   domain.Configuration
		handlers []string
		sender   *fakeSender
		sends    int
	}{
		{
			name:     "NotEnoughHandlers",
			config:   configOf("X:S1:A.val1", "xa1", "X:S2:C.val1", "xc1", "X:S3:C.val3", "xc3"),
			handlers: []string{"X:S1", "X:S2"},
			sender:   always(domain.NoAnswer),
			sends:    0,
		},
		{
			name:     "NoHandlersAtAll",
			config:   configOf("X:S1:A.val1", "xa1", "X:S2:C.val1", "xc1", "X:S3:C.val3", "xc3"),
			sender:   always(domain.NoAnswer),
			sends:    0,
		},
		{
			name:     "NoHandlerForTheFullApply",
			config:   configOf("X:S3:C.val3", "xc3"),
			handlers: []string{"X:S1", "X:S2"},
			sender:   always(domain.NoAnswer),
			sends:    0,
		},
		{
			name:     "BothNoAnswer",
			config:   twoSystems(),
			handlers: []string{"X:S1", "X:S2"},
			sender:   always(domain.NoAnswer),
			sends:    1,
		},
		{
			name:     "CompletedThenNoAnswer",
			config:   twoSystems(),
			handlers: []string{"X:S1", "X:S2"},
			sender:   onlyS1,
			sends:    2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager := actions.NewManager()
			exec := runtime.NewApplyExecutor(manager, handlersFor(tt.handlers...))
			listener := newListenerMock()
			action := applyAction(tt.config, listener)

			r, err := exec.Execute(context.Background(), action, tt.sender)
			require.NoError(t, err)
			assert.Equal(t, domain.NoAnswer, r)
			assert.Equal(t, tt.sends, tt.sender.Calls())
			assert.Empty(t, manager.Pending())

			calls, _ := listener.state()
			assert.Zero(t, calls)
		})
	}
}

func TestApplyExecutor_Completed(t *testing.T) {
	tests := []struct {
		name   string
		config domain.Configuration
		sends  int
	}{
		{"Single", configOf("X:S1:A.val1", "xa1"), 1},
		{"Both", twoSystems(), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager := actions.NewManager()
			exec := runtime.NewApplyExecutor(manager, handlersFor("X:S1", "X:S2"))
			listener := newListenerMock()
			action := applyAction(tt.config, listener)
			sender := always(domain.Completed)

			r, err := exec.Execute(context.Background(), action, sender)
			require.NoError(t, err)
			assert.Equal(t, domain.Completed, r)
			assert.Equal(t, tt.sends, sender.Calls())
			assert.Equal(t, tt.sends, runtime.CountExpectedResponses(tt.config, []domain.ConfigPath{path("X:S1"), path("X:S2")}))

			assert.True(t, manager.IsComplete(action))
			assert.Empty(t, manager.Pending())
			calls, _ := listener.state()
			assert.Zero(t, calls, "synchronous completion needs no callback")
		})
	}
}

func TestApplyExecutor_MessagesCarryTheirBranch(t *testing.T) {
	manager := actions.NewManager()
	exec := runtime.NewApplyExecutor(manager, handlersFor("X:S1", "X:S2"))
	sender := always(domain.Completed)
	action := applyAction(fullConfig(), nil)

	_, err := exec.Execute(context.Background(), action, sender)
	require.NoError(t, err)

	msgs := sender.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, path("X:S1"), msgs[0].Path)
	assert.Equal(t, path("X:S2"), msgs[1].Path)
	assert.Len(t, msgs[0].DataElements, 7)
	assert.Equal(t, map[string]string{
		"X:S2:C.val1": "xc1",
		"X:S2:C.val2": "xc2",
		"X:S2:C.val3": "xc3",
	}, msgs[1].DataElements)
	assert.Equal(t, "GMP.SC.APPLY/X:S2", msgs[1].Destination)
	assert.Equal(t, action.ID(), msgs[1].ActionID)
}

func TestApplyExecutor_WithoutTopLevelHandler(t *testing.T) {
	// Requests covering a single system are accepted; a request spanning
	// both would mean a top level handler, and nobody answers it.
	subOnly := func() *fakeSender {
		return newFakeSender(func(s1, s2 domain.Configuration) domain.HandlerResponse {
			if s1.IsEmpty() || s2.IsEmpty() {
				return domain.Accepted
			}
			return domain.NoAnswer
		})
	}

	tests := []struct {
		name     string
		config   domain.Configuration
		handlers []string
	}{
		{"SystemHandlers", fullConfig(), []string{"X:S1", "X:S2"}},
		{"OneLevelHandlers", configOf("X:A.val1", "xa1", "X:A.val2", "xa2", "X:B.val1", "xb1", "X:B.val2", "xb2"), []string{"X:A", "X:B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager := actions.NewManager()
			exec := runtime.NewApplyExecutor(manager, handlersFor(tt.handlers...))
			action := applyAction(tt.config, nil)
			sender := subOnly()

			r, err := exec.Execute(context.Background(), action, sender)
			require.NoError(t, err)
			assert.Equal(t, domain.Accepted, r)
			assert.Equal(t, 2, sender.Calls())
			assert.True(t, manager.IsComplete(action))
			assert.Empty(t, manager.Pending())
		})
	}
}

func TestApplyExecutor_NoAnswerDecomposesFurther(t *testing.T) {
	// X:S1 is registered but silent; its sub systems answer instead.
	handlers := handlersFor("X:S1", "X:S1:A", "X:S1:B", "X:S2")
	sender := newFakeSender(nil)
	sender.respond = func(s1, s2 domain.Configuration) domain.HandlerResponse {
		msgs := sender.Messages()
		if msgs[len(msgs)-1].Path == path("X:S1") {
			return domain.NoAnswer
		}
		return domain.Completed
	}

	manager := actions.NewManager()
	exec := runtime.NewApplyExecutor(manager, handlers)
	config := configOf("X:S1:A.val1", "xa1", "X:S1:B.val1", "xb1", "X:S2:C.val1", "xc1")
	action := applyAction(config, nil)

	r, err := exec.Execute(context.Background(), action, sender)
	require.NoError(t, err)
	assert.Equal(t, domain.Completed, r)
	assert.Equal(t, 4, sender.Calls())
	assert.True(t, manager.IsComplete(action))

	var paths []domain.ConfigPath
	for _, m := range sender.Messages() {
		paths = append(paths, m.Path)
	}
	assert.Equal(t, []domain.ConfigPath{path("X:S1"), path("X:S1:A"), path("X:S1:B"), path("X:S2")}, paths)
}

func TestApplyExecutor_SynchronousError(t *testing.T) {
	manager := actions.NewManager()
	exec := runtime.NewApplyExecutor(manager, handlersFor("X:S1", "X:S2"))
	sender := newFakeSender(func(s1, _ domain.Configuration) domain.HandlerResponse {
		if s1.IsEmpty() {
			return domain.NewErrorResponse("S2 failed")
		}
		return domain.Started
	})
	listener := newListenerMock()
	action := applyAction(twoSystems(), listener)

	r, err := exec.Execute(context.Background(), action, sender)
	require.NoError(t, err)
	assert.Equal(t, domain.NewErrorResponse("S2 failed"), r, "error outranks started")
	assert.Empty(t, manager.Pending())

	calls, _ := listener.state()
	assert.Zero(t, calls)
}

func TestApplyExecutor_InvalidResponseKind(t *testing.T) {
	tests := []struct {
		name  string
		reply domain.HandlerResponse
	}{
		{"Unknown", domain.HandlerResponse{Kind: "BOGUS"}},
		{"Zero", domain.HandlerResponse{}},
		{"LowerCase", domain.HandlerResponse{Kind: "completed"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager := actions.NewManager()
			exec := runtime.NewApplyExecutor(manager, handlersFor("X:S1", "X:S2"))
			sender := newFakeSender(func(s1, _ domain.Configuration) domain.HandlerResponse {
				if s1.IsEmpty() {
					return tt.reply
				}
				return domain.Completed
			})
			action := applyAction(twoSystems(), nil)

			r, err := exec.Execute(context.Background(), action, sender)
			require.NoError(t, err)
			assert.True(t, r.IsError(), "got %s", r)
			assert.Contains(t, r.Message, "GMP.SC.APPLY/X:S2")
			assert.Equal(t, 2, sender.Calls())
			assert.True(t, manager.IsComplete(action))
			assert.Empty(t, manager.Pending())
		})
	}
}

func TestApplyExecutor_TransportError(t *testing.T) {
	manager := actions.NewManager()
	exec := runtime.NewApplyExecutor(manager, handlersFor("X:S1", "X:S2"))
	boom := errors.New("connection refused")

	sender := &MockSender{}
	sender.On("SendWithTimeout", mock.Anything, mock.MatchedBy(func(m domain.ActionMessage) bool {
		return m.Path == path("X:S1")
	}), mock.Anything).Return(domain.HandlerResponse{}, boom).Once()

	action := applyAction(twoSystems(), nil)
	_, err := exec.Execute(context.Background(), action, sender)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, manager.Pending())

	sender.AssertExpectations(t)
	sender.AssertNumberOfCalls(t, "SendWithTimeout", 1)
}

func TestApplyExecutor_HandlersError(t *testing.T) {
	handlers := &MockHandlers{}
	handlers.On("ApplyHandlers", mock.Anything).Return(nil, errors.New("registry down"))

	exec := runtime.NewApplyExecutor(actions.NewManager(), handlers)
	sender := always(domain.Completed)
	_, err := exec.Execute(context.Background(), applyAction(twoSystems(), nil), sender)
	assert.ErrorContains(t, err, "registry down")
	assert.Zero(t, sender.Calls())
}

func TestApplyExecutor_OneSnapshotPerExecute(t *testing.T) {
	handlers := handlersFor("X:S1", "X:S2")
	exec := runtime.NewApplyExecutor(actions.NewManager(), handlers)

	_, err := exec.Execute(context.Background(), applyAction(twoSystems(), nil), always(domain.Completed))
	require.NoError(t, err)
	handlers.AssertNumberOfCalls(t, "ApplyHandlers", 1)
}

func TestApplyExecutor_Hooks(t *testing.T) {
	var sends []domain.SendEvent
	hooks := domain.DispatchHooks{
		OnSend: func(_ context.Context, e *domain.SendEvent) { sends = append(sends, *e) },
	}
	exec := runtime.NewApplyExecutor(actions.NewManager(), handlersFor("X:S1", "X:S2"), runtime.WithHooks(hooks))
	action := applyAction(twoSystems(), nil)

	_, err := exec.Execute(context.Background(), action, always(domain.Completed))
	require.NoError(t, err)

	require.Len(t, sends, 2)
	assert.Equal(t, domain.EventSend, sends[0].Type)
	assert.Equal(t, action.ID(), sends[0].ActionID)
	assert.Equal(t, domain.SequenceApply, sends[0].SequenceCommand)
	assert.Equal(t, domain.Completed, sends[0].Response)
	assert.Equal(t, path("X:S2"), sends[1].Path)
}
