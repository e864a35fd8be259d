package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aretw0/gmp/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Sender implements ports.ActionSender as a request/reply exchange over
// Redis lists: the request is pushed to the destination queue and the reply
// is popped from a per-request key. A destination nobody serves in time
// yields NOANSWER.
type Sender struct {
	client  *backend.Client
	prefix  string
	timeout time.Duration
	nonce    int64
	instance string
	seq      atomic.Int64
	logger   *slog.Logger
}

// NewSender creates a Sender over client.
func NewSender(client *backend.Client, opts ...Option) *Sender {
	o := newOptions(opts)
	return &Sender{
		client:  client,
		prefix:  o.prefix,
		timeout: o.timeout,
		nonce:    time.Now().UnixNano(),
		instance: o.instance,
		logger:   o.logger,
	}
}

// Send implements ports.ActionSender.
func (s *Sender) Send(ctx context.Context, msg domain.ActionMessage) (domain.HandlerResponse, error) {
	return s.SendWithTimeout(ctx, msg, 0)
}

// SendWithTimeout implements ports.ActionSender.
func (s *Sender) SendWithTimeout(ctx context.Context, msg domain.ActionMessage, timeout time.Duration) (domain.HandlerResponse, error) {
	if timeout <= 0 {
		timeout = s.timeout
	}
	if timeout < time.Second {
		timeout = time.Second
	}

	if s.instance != "" {
		msg = stamp(msg, s.instance)
	}
	req := request{
		ReplyTo: replyKey(s.prefix, msg.ActionID, s.seq.Add(1), s.nonce),
		Message: msg,
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return domain.HandlerResponse{}, fmt.Errorf("failed to encode request: %w", err)
	}

	queue := queueKey(s.prefix, msg.Destination)
	if err := s.client.RPush(ctx, queue, payload).Err(); err != nil {
		return domain.HandlerResponse{}, fmt.Errorf("failed to push request to %s: %w", queue, err)
	}

	res, err := s.client.BLPop(ctx, timeout, req.ReplyTo).Result()
	if errors.Is(err, backend.Nil) {
		s.logger.Debug("No reply in time",
			"destination", msg.Destination,
			"action_id", msg.ActionID,
			"timeout", timeout,
		)
		// Nobody took the request; withdraw it so a late handler does not
		// act on a command already reported as unanswered.
		if err := s.client.LRem(ctx, queue, 1, payload).Err(); err != nil {
			s.logger.Warn("Failed to withdraw request", "queue", queue, "error", err)
		}
		return domain.NoAnswer, nil
	}
	if err != nil {
		return domain.HandlerResponse{}, fmt.Errorf("failed to read reply from %s: %w", req.ReplyTo, err)
	}

	// BLPOP returns the key followed by the value.
	var r domain.HandlerResponse
	if err := json.Unmarshal([]byte(res[1]), &r); err != nil {
		return domain.HandlerResponse{}, fmt.Errorf("invalid reply from %s: %w", msg.Destination, err)
	}
	if _, err := domain.ParseResponseKind(string(r.Kind)); err != nil {
		return domain.HandlerResponse{}, fmt.Errorf("invalid reply from %s: %w", msg.Destination, err)
	}
	return r, nil
}

// stamp returns msg with the instance property set. The caller's map is
// left untouched.
func stamp(msg domain.ActionMessage, instance string) domain.ActionMessage {
	props := make(map[string]string, len(msg.Properties)+1)
	for k, v := range msg.Properties {
		props[k] = v
	}
	props[InstanceProperty] = instance
	msg.Properties = props
	return msg
}
