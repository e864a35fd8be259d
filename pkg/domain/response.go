package domain

import (
	"fmt"
	"strings"
)

// ResponseKind classifies a HandlerResponse.
type ResponseKind string

const (
	// KindAccepted means the handler took the command and no completion follows.
	KindAccepted ResponseKind = "ACCEPTED"
	// KindStarted means the handler took the command and will report completion later.
	KindStarted ResponseKind = "STARTED"
	// KindCompleted means the handler finished synchronously.
	KindCompleted ResponseKind = "COMPLETED"
	// KindError means the handler rejected or failed the command.
	KindError ResponseKind = "ERROR"
	// KindNoAnswer means nobody handles this exact path. It is not a failure.
	KindNoAnswer ResponseKind = "NOANSWER"
)

// ParseResponseKind parses a kind name, ignoring case.
func ParseResponseKind(name string) (ResponseKind, error) {
	switch k := ResponseKind(strings.ToUpper(strings.TrimSpace(name))); k {
	case KindAccepted, KindStarted, KindCompleted, KindError, KindNoAnswer:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownResponse, name)
}

// Valid reports whether k is one of the known kinds, spelled canonically.
func (k ResponseKind) Valid() bool {
	switch k {
	case KindAccepted, KindStarted, KindCompleted, KindError, KindNoAnswer:
		return true
	}
	return false
}

// HandlerResponse is the answer of a handler to a command slice.
type HandlerResponse struct {
	Kind    ResponseKind `json:"response"`
	Message string       `json:"message,omitempty"`
}

// Well-known responses. HandlerResponse is comparable, so these can be
// matched with ==.
var (
	Accepted  = HandlerResponse{Kind: KindAccepted}
	Started   = HandlerResponse{Kind: KindStarted}
	Completed = HandlerResponse{Kind: KindCompleted}
	NoAnswer  = HandlerResponse{Kind: KindNoAnswer}
)

// NewErrorResponse creates an ERROR response carrying msg.
func NewErrorResponse(msg string) HandlerResponse {
	return HandlerResponse{Kind: KindError, Message: msg}
}

// NewResponse builds a response of the given kind. Only errors keep msg.
func NewResponse(kind ResponseKind, msg string) HandlerResponse {
	if kind == KindError {
		return NewErrorResponse(msg)
	}
	return HandlerResponse{Kind: kind}
}

// IsError reports whether r is an ERROR response.
func (r HandlerResponse) IsError() bool { return r.Kind == KindError }

// IsPending reports whether r leaves work in progress at the handler.
func (r HandlerResponse) IsPending() bool {
	return r.Kind == KindStarted || r.Kind == KindAccepted
}

// HasErrorMessage reports whether r is an error with a non-empty message.
func (r HandlerResponse) HasErrorMessage() bool {
	return r.Kind == KindError && r.Message != ""
}

func (r HandlerResponse) String() string {
	if r.Message == "" {
		return string(r.Kind)
	}
	return fmt.Sprintf("%s: %s", r.Kind, r.Message)
}

// HandlerResponseAnalyzer reduces the responses collected at one
// decomposition level to a single summary.
//
// Precedence is ERROR > STARTED > ACCEPTED > COMPLETED; the first error
// message seen is kept. NOANSWER responses are ignored: callers abort the
// decomposition instead of aggregating them.
type HandlerResponseAnalyzer struct {
	count    int
	firstErr *HandlerResponse
	started  bool
	accepted bool
}

// AddResponse records one sibling response.
func (a *HandlerResponseAnalyzer) AddResponse(r HandlerResponse) {
	switch r.Kind {
	case KindNoAnswer:
		return
	case KindError:
		if a.firstErr == nil {
			a.firstErr = &r
		}
	case KindStarted:
		a.started = true
	case KindAccepted:
		a.accepted = true
	}
	a.count++
}

// SummaryResponse returns the aggregated response. With no responses
// recorded it returns NoAnswer.
func (a *HandlerResponseAnalyzer) SummaryResponse() HandlerResponse {
	switch {
	case a.count == 0:
		return NoAnswer
	case a.firstErr != nil:
		return *a.firstErr
	case a.started:
		return Started
	case a.accepted:
		return Accepted
	default:
		return Completed
	}
}
