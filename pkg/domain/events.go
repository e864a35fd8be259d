package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventSend       EventType = "send"
	EventCompletion EventType = "completion"
	EventUpdate     EventType = "update"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	ActionID  int64     `json:"action_id"`
}

// SendEvent describes one message handed to an ActionSender.
type SendEvent struct {
	EventBase
	SequenceCommand SequenceCommand `json:"sequence_command"`
	Path            ConfigPath      `json:"path"`
	Response        HandlerResponse `json:"response"`
	Elapsed         time.Duration   `json:"elapsed"`
	Err             error           `json:"-"`
}

// CompletionEvent describes the final response of an Action.
type CompletionEvent struct {
	EventBase
	SequenceCommand SequenceCommand `json:"sequence_command"`
	Response        HandlerResponse `json:"response"`
	// Async is true when the response reached the listener instead of the
	// synchronous caller.
	Async bool `json:"async"`
}

// UpdateEvent describes an asynchronous handler reply.
type UpdateEvent struct {
	EventBase
	Response HandlerResponse `json:"response"`
	// Known is false when the action was no longer registered.
	Known bool `json:"known"`
}

// DispatchHooks defines callbacks for dispatch observability.
// Every field is optional.
type DispatchHooks struct {
	OnSend       func(context.Context, *SendEvent)
	OnCompletion func(context.Context, *CompletionEvent)
	OnUpdate     func(context.Context, *UpdateEvent)
}

// EmitSend calls OnSend if set.
func (h DispatchHooks) EmitSend(ctx context.Context, e *SendEvent) {
	if h.OnSend != nil {
		h.OnSend(ctx, e)
	}
}

// EmitCompletion calls OnCompletion if set.
func (h DispatchHooks) EmitCompletion(ctx context.Context, e *CompletionEvent) {
	if h.OnCompletion != nil {
		h.OnCompletion(ctx, e)
	}
}

// EmitUpdate calls OnUpdate if set.
func (h DispatchHooks) EmitUpdate(ctx context.Context, e *UpdateEvent) {
	if h.OnUpdate != nil {
		h.OnUpdate(ctx, e)
	}
}

// Merge returns hooks calling h first and then other.
func (h DispatchHooks) Merge(other DispatchHooks) DispatchHooks {
	return DispatchHooks{
		OnSend: func(ctx context.Context, e *SendEvent) {
			h.EmitSend(ctx, e)
			other.EmitSend(ctx, e)
		},
		OnCompletion: func(ctx context.Context, e *CompletionEvent) {
			h.EmitCompletion(ctx, e)
			other.EmitCompletion(ctx, e)
		},
		OnUpdate: func(ctx context.Context, e *UpdateEvent) {
			h.EmitUpdate(ctx, e)
			other.EmitUpdate(ctx, e)
		},
	}
}
