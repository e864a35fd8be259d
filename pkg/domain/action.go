package domain

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// CompletionListener receives the final response of a command whose
// handlers answered asynchronously. It is invoked at most once per Action.
type CompletionListener interface {
	OnHandlerResponse(response HandlerResponse, command Command)
}

// ListenerFunc adapts a function to CompletionListener.
type ListenerFunc func(response HandlerResponse, command Command)

// OnHandlerResponse calls f.
func (f ListenerFunc) OnHandlerResponse(response HandlerResponse, command Command) {
	f(response, command)
}

// lastActionID starts from the clock so that ids do not repeat across
// restarts of the process.
var lastActionID atomic.Int64

func init() {
	lastActionID.Store(time.Now().UnixMilli())
}

// Action is a Command in flight. It tracks how many handler replies are
// still outstanding and resolves to exactly one final response.
//
// The completion state machine is DISPATCHED -> COMPLETE. Mutations are
// serialised by the Action's mutex; the listener is always called by the
// owner of the transition, never with the mutex held.
type Action struct {
	id       int64
	command  Command
	listener CompletionListener
	timeout  time.Duration

	mu          sync.Mutex
	required    int
	terminal    *HandlerResponse
	dispatching bool
	notified    bool
	final       HandlerResponse
	done        chan struct{}
}

// NewAction assigns a new unique id to command. A zero timeout means the
// sender's own default.
func NewAction(command Command, listener CompletionListener, timeout time.Duration) *Action {
	return &Action{
		id:       lastActionID.Add(1),
		command:  command,
		listener: listener,
		timeout:  timeout,
		done:     make(chan struct{}),
	}
}

func (a *Action) ID() int64                    { return a.id }
func (a *Action) Command() Command             { return a.command }
func (a *Action) Listener() CompletionListener { return a.listener }
func (a *Action) Timeout() time.Duration       { return a.timeout }

func (a *Action) String() string {
	return fmt.Sprintf("Action{id=%d, %s/%s}", a.id, a.command.SequenceCommand, a.command.Activity)
}

// IncreaseRequired raises the number of outstanding replies by n.
func (a *Action) IncreaseRequired(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.required += n
}

// Required returns the number of outstanding replies.
func (a *Action) Required() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.required
}

// IsComplete reports whether no reply is outstanding.
func (a *Action) IsComplete() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.required == 0
}

// Terminal returns the first error recorded for this action, if any.
func (a *Action) Terminal() (HandlerResponse, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.terminal == nil {
		return HandlerResponse{}, false
	}
	return *a.terminal, true
}

// BeginDispatch marks the action as being dispatched by a router.
// While dispatching, reaching zero outstanding replies does not settle the
// action: the router decides at FinishDispatch.
func (a *Action) BeginDispatch() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dispatching = true
}

// Resolve accounts for one reply. An ERROR is recorded as the terminal
// response unless one was already recorded. It returns the final response
// and true when this call settled the action; the caller must then notify
// the listener. The second result is false when replies are still
// outstanding, the router is still dispatching, or the action was already
// settled. The underflow result reports a reply nobody was waiting for.
func (a *Action) Resolve(r HandlerResponse) (final HandlerResponse, settled bool, underflow bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if r.IsError() && a.terminal == nil {
		a.terminal = &r
	}
	if a.required == 0 {
		return HandlerResponse{}, false, true
	}
	a.required--
	final, settled = a.settleLocked()
	return final, settled, false
}

// FinishDispatch ends the router's dispatch with its summary response.
//
// A STARTED summary leaves the action waiting for asynchronous replies; if
// they all arrived already, the action settles now and true is returned.
// Any other summary was handed to the caller synchronously, so the action
// settles on it without a listener callback.
func (a *Action) FinishDispatch(summary HandlerResponse) (final HandlerResponse, notify bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dispatching = false
	if summary.Kind == KindStarted {
		return a.settleLocked()
	}
	if !a.notified {
		a.notified = true
		a.final = summary
		close(a.done)
	}
	return a.final, false
}

// settleLocked must be called with a.mu held.
func (a *Action) settleLocked() (HandlerResponse, bool) {
	if a.required > 0 || a.dispatching || a.notified {
		return HandlerResponse{}, false
	}
	a.notified = true
	a.final = Completed
	if a.terminal != nil {
		a.final = *a.terminal
	}
	close(a.done)
	return a.final, true
}

// Abort settles the action with r, without a listener callback. It is a
// no-op on an action that already settled.
func (a *Action) Abort(r HandlerResponse) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dispatching = false
	if a.notified {
		return
	}
	a.notified = true
	a.final = r
	close(a.done)
}

// Done is closed once the action has a final response.
func (a *Action) Done() <-chan struct{} {
	return a.done
}

// Result returns the final response once Done is closed.
func (a *Action) Result() (HandlerResponse, bool) {
	select {
	case <-a.done:
		a.mu.Lock()
		defer a.mu.Unlock()
		return a.final, true
	default:
		return HandlerResponse{}, false
	}
}

// Notify delivers final to the listener, if there is one.
func (a *Action) Notify(final HandlerResponse) {
	if a.listener != nil {
		a.listener.OnHandlerResponse(final, a.command)
	}
}

// ActionMessage is the slice of an Action addressed to one handler path,
// ready to be handed to a transport.
type ActionMessage struct {
	Destination     string            `json:"destination"`
	ActionID        int64             `json:"action_id"`
	SequenceCommand SequenceCommand   `json:"sequence_command"`
	Activity        Activity          `json:"activity"`
	Path            ConfigPath        `json:"path"`
	Properties      map[string]string `json:"properties,omitempty"`
	DataElements    map[string]string `json:"data,omitempty"`
}

// Message property keys.
const (
	PropActivity = "gmp.activity"
	PropActionID = "gmp.actionid"
)

// Configuration rebuilds the data elements as a Configuration.
func (m ActionMessage) Configuration() (Configuration, error) {
	return NewConfiguration(m.DataElements)
}
