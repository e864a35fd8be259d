package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/gmp/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// replyTTL bounds the life of a reply nobody popped.
const replyTTL = time.Minute

// pollInterval is how long a blocking pop waits before checking for
// cancellation again.
const pollInterval = time.Second

// HandlerFunc answers one request on the handler side.
type HandlerFunc func(ctx context.Context, msg domain.ActionMessage) domain.HandlerResponse

// Responder serves the requests of one destination, as an instrument
// handler does. It also reports asynchronous completions for the commands
// it answered STARTED.
type Responder struct {
	client      *backend.Client
	prefix      string
	destination string
	handler     HandlerFunc
	logger      *slog.Logger
}

// NewResponder creates a Responder for destination.
func NewResponder(client *backend.Client, destination string, handler HandlerFunc, opts ...Option) *Responder {
	o := newOptions(opts)
	return &Responder{
		client:      client,
		prefix:      o.prefix,
		destination: destination,
		handler:     handler,
		logger:      o.logger.With("destination", destination),
	}
}

// Run serves requests until ctx is done.
func (r *Responder) Run(ctx context.Context) error {
	queue := queueKey(r.prefix, r.destination)
	r.logger.Info("Responder started")
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if err := r.serveOne(ctx, queue); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (r *Responder) serveOne(ctx context.Context, queue string) error {
	res, err := r.client.BLPop(ctx, pollInterval, queue).Result()
	if errors.Is(err, backend.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to pop request: %w", err)
	}

	var req request
	if err := json.Unmarshal([]byte(res[1]), &req); err != nil {
		r.logger.Warn("Dropping malformed request", "error", err)
		return nil
	}

	resp := r.handler(ctx, req.Message)
	r.logger.Debug("Request served",
		"action_id", req.Message.ActionID,
		"response", resp.String(),
	)

	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode reply: %w", err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.RPush(ctx, req.ReplyTo, payload)
		pipe.Expire(ctx, req.ReplyTo, replyTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to push reply: %w", err)
	}
	return nil
}

// Complete reports the final response of msg, a request this handler
// answered STARTED.
func (r *Responder) Complete(ctx context.Context, msg domain.ActionMessage, response domain.HandlerResponse) error {
	return PublishUpdate(ctx, r.client, r.prefix, msg, response)
}

// PublishUpdate pushes an asynchronous completion for msg, addressed to the
// dispatcher instance that sent it.
func PublishUpdate(ctx context.Context, client *backend.Client, prefix string, msg domain.ActionMessage, response domain.HandlerResponse) error {
	payload, err := json.Marshal(update{
		ActionID: msg.ActionID,
		Instance: msg.Properties[InstanceProperty],
		Response: response,
	})
	if err != nil {
		return fmt.Errorf("failed to encode update: %w", err)
	}
	if err := client.RPush(ctx, updatesKey(prefix), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish update: %w", err)
	}
	return nil
}
