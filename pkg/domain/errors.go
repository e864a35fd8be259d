package domain

import "errors"

// ErrInvalidConfigPath is returned when a path has empty segments or dangling separators.
var ErrInvalidConfigPath = errors.New("invalid config path")

// ErrUnknownSequenceCommand is returned when a sequence command name is not recognised.
var ErrUnknownSequenceCommand = errors.New("unknown sequence command")

// ErrUnknownActivity is returned when an activity name is not recognised.
var ErrUnknownActivity = errors.New("unknown activity")

// ErrUnknownResponse is returned when a response kind is not recognised.
var ErrUnknownResponse = errors.New("unknown handler response")

// ErrActionNotFound is returned when an action id is not registered.
var ErrActionNotFound = errors.New("action not found")

// ErrTransport wraps failures reported by an ActionSender.
var ErrTransport = errors.New("transport failure")
