// Package redis carries GMP traffic over Redis lists.
//
// Keys, all under a configurable prefix (default "gmp:"):
//
//	handlers:apply       SET of registered APPLY handler paths
//	queue:<destination>  LIST of requests for one destination
//	reply:<id>           LIST holding the synchronous reply of one request
//	updates              LIST of asynchronous completions
//
// Dispatchers sharing a prefix over time tell their traffic apart by an
// instance id: the Sender stamps it on every message and the UpdateConsumer
// drops completions stamped by another instance.
package redis

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/gmp/internal/logging"
	"github.com/aretw0/gmp/pkg/domain"
	"github.com/google/uuid"
)

const (
	// DefaultPrefix is used when no prefix is configured.
	DefaultPrefix = "gmp:"
	// DefaultTimeout is how long a Sender waits for a reply when neither
	// the caller nor the sender configure a timeout.
	DefaultTimeout = 5 * time.Second

	// InstanceProperty is the message property carrying the instance id of
	// the dispatcher that sent it.
	InstanceProperty = "gmp.instance"
)

// Option configures the Redis adapters.
type Option func(*options)

type options struct {
	prefix   string
	timeout  time.Duration
	instance string
	logger   *slog.Logger
}

// WithPrefix sets the key prefix (default "gmp:").
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithTimeout sets the default reply timeout of a Sender. Redis blocks in
// whole seconds, so shorter timeouts are rounded up to one second.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithInstance sets the instance id shared by the Sender and the
// UpdateConsumer of one dispatcher. Without it, messages are not stamped and
// every update is accepted.
func WithInstance(id string) Option {
	return func(o *options) {
		o.instance = id
	}
}

// NewInstanceID returns a fresh instance id.
func NewInstanceID() string {
	return uuid.New().String()
}

// WithLogger configures a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func newOptions(opts []Option) options {
	o := options{
		prefix:  DefaultPrefix,
		timeout: DefaultTimeout,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// request is the envelope pushed to a destination queue.
type request struct {
	ReplyTo string               `json:"reply_to"`
	Message domain.ActionMessage `json:"message"`
}

// update is the envelope pushed to the updates list.
type update struct {
	ActionID int64                  `json:"action_id"`
	Instance string                 `json:"instance,omitempty"`
	Response domain.HandlerResponse `json:"response"`
}

func queueKey(prefix, destination string) string {
	return prefix + "queue:" + destination
}

func handlersKey(prefix string) string {
	return prefix + "handlers:apply"
}

func updatesKey(prefix string) string {
	return prefix + "updates"
}

func replyKey(prefix string, actionID, seq int64, nonce int64) string {
	return fmt.Sprintf("%sreply:%d:%d:%d", prefix, actionID, nonce, seq)
}
