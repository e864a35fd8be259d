package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/gmp/pkg/domain"
	"github.com/aretw0/gmp/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// UpdateConsumer pops asynchronous completions published by handlers and
// hands them to a CommandUpdater.
type UpdateConsumer struct {
	client   *backend.Client
	prefix   string
	instance string
	updater  ports.CommandUpdater
	logger   *slog.Logger
}

// NewUpdateConsumer creates an UpdateConsumer feeding updater. With
// WithInstance, only updates for messages stamped with that id are applied.
func NewUpdateConsumer(client *backend.Client, updater ports.CommandUpdater, opts ...Option) *UpdateConsumer {
	o := newOptions(opts)
	return &UpdateConsumer{
		client:   client,
		prefix:   o.prefix,
		instance: o.instance,
		updater:  updater,
		logger:   o.logger,
	}
}

// Run consumes updates until ctx is done.
func (c *UpdateConsumer) Run(ctx context.Context) error {
	key := updatesKey(c.prefix)
	for {
		if ctx.Err() != nil {
			return nil
		}
		res, err := c.client.BLPop(ctx, pollInterval, key).Result()
		if errors.Is(err, backend.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to pop update: %w", err)
		}
		c.apply(ctx, res[1])
	}
}

func (c *UpdateConsumer) apply(ctx context.Context, payload string) {
	var u update
	if err := json.Unmarshal([]byte(payload), &u); err != nil {
		c.logger.Warn("Dropping malformed update", "error", err)
		return
	}
	if c.instance != "" && u.Instance != c.instance {
		// Sent by an earlier dispatcher; its action ids mean nothing here.
		c.logger.Debug("Dropping update of another instance",
			"action_id", u.ActionID,
			"instance", u.Instance,
		)
		return
	}
	if _, err := domain.ParseResponseKind(string(u.Response.Kind)); err != nil {
		c.logger.Warn("Dropping update", "action_id", u.ActionID, "error", err)
		return
	}

	err := c.updater.UpdateOcs(ctx, u.ActionID, u.Response)
	switch {
	case errors.Is(err, domain.ErrActionNotFound):
		c.logger.Debug("Late update ignored", "action_id", u.ActionID)
	case err != nil:
		c.logger.Error("Failed to apply update", "action_id", u.ActionID, "error", err)
	}
}
