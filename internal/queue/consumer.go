package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg redis.XMessage) error
}

type Options struct {
	Stream        string
	Group         string
	Consumer      string
	ClaimInterval time.Duration
	BatchSize     int64
	Block         time.Duration
}

// Consumer reads a stream through a consumer group. A message is acked only
// after its handler succeeds; failed ones stay pending and are reclaimed once
// they have been idle for ClaimInterval.
type Consumer struct {
	client  *redis.Client
	opts    Options
	logger  zerolog.Logger
	handler MessageHandler
}

func NewConsumer(client *redis.Client, opts Options, logger zerolog.Logger, handler MessageHandler) *Consumer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.Block <= 0 {
		opts.Block = 5 * time.Second
	}
	if opts.ClaimInterval <= 0 {
		opts.ClaimInterval = 30 * time.Second
	}
	return &Consumer{
		client:  client,
		opts:    opts,
		logger:  logger,
		handler: handler,
	}
}

// EnsureGroup creates the consumer group (and the stream) if missing.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.opts.Stream, c.opts.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create group %s: %w", c.opts.Group, err)
	}
	return nil
}

func (c *Consumer) Start(ctx context.Context) error {
	if err := c.EnsureGroup(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(c.opts.ClaimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := c.read(ctx); err != nil && ctx.Err() == nil {
				c.logger.Error().Err(err).Msg("stream read error")
				sleep(ctx, 2*time.Second)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.claimStalled(ctx); err != nil && ctx.Err() == nil {
				c.logger.Error().Err(err).Msg("claim stalled failed")
			}
		default:
		}
	}
}

func (c *Consumer) read(ctx context.Context) error {
	result, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.opts.Group,
		Consumer: c.opts.Consumer,
		Streams:  []string{c.opts.Stream, ">"},
		Count:    c.opts.BatchSize,
		Block:    c.opts.Block,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	for _, stream := range result {
		for _, msg := range stream.Messages {
			c.process(ctx, msg)
		}
	}
	return nil
}

func (c *Consumer) process(ctx context.Context, msg redis.XMessage) {
	if err := c.handler.Handle(ctx, msg); err != nil {
		c.logger.Error().
			Err(err).
			Str("message_id", msg.ID).
			Msg("handle message failed")
		return
	}
	if err := c.client.XAck(ctx, c.opts.Stream, c.opts.Group, msg.ID).Err(); err != nil {
		c.logger.Error().Err(err).Str("message_id", msg.ID).Msg("ack failed")
	}
}

func (c *Consumer) claimStalled(ctx context.Context) error {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.opts.Stream,
		Group:  c.opts.Group,
		Start:  "-",
		End:    "+",
		Count:  c.opts.BatchSize,
	}).Result()
	if err != nil {
		return err
	}

	for _, entry := range pending {
		if entry.Idle < c.opts.ClaimInterval {
			continue
		}
		msgs, err := c.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   c.opts.Stream,
			Group:    c.opts.Group,
			Consumer: c.opts.Consumer,
			MinIdle:  c.opts.ClaimInterval,
			Messages: []string{entry.ID},
		}).Result()
		if err != nil {
			c.logger.Error().Err(err).Str("message_id", entry.ID).Msg("claim error")
			continue
		}
		for _, msg := range msgs {
			c.process(ctx, msg)
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
