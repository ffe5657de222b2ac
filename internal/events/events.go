// Package events carries generation lifecycle messages over a Redis stream.
package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const TypeGenerationCreated = "generation.created"

var ErrMalformedEvent = errors.New("malformed generation event")

type GenerationCreated struct {
	GenerationID string
	UserID       string
	Language     string
	Code         string
	CreatedAt    time.Time
}

func (e GenerationCreated) values() map[string]any {
	return map[string]any{
		"type":         TypeGenerationCreated,
		"generationId": e.GenerationID,
		"userId":       e.UserID,
		"language":     e.Language,
		"code":         e.Code,
		"createdAt":    e.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// ParseGenerationCreated decodes a stream message written by
// PublishGenerationCreated.
func ParseGenerationCreated(msg redis.XMessage) (GenerationCreated, error) {
	str := func(key string) string {
		v, _ := msg.Values[key].(string)
		return v
	}

	if t := str("type"); t != TypeGenerationCreated {
		return GenerationCreated{}, fmt.Errorf("%w: unexpected type %q", ErrMalformedEvent, t)
	}

	ev := GenerationCreated{
		GenerationID: str("generationId"),
		UserID:       str("userId"),
		Language:     str("language"),
		Code:         str("code"),
	}
	if ev.GenerationID == "" || ev.UserID == "" {
		return GenerationCreated{}, fmt.Errorf("%w: missing ids", ErrMalformedEvent)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, str("createdAt"))
	if err != nil {
		return GenerationCreated{}, fmt.Errorf("%w: createdAt: %v", ErrMalformedEvent, err)
	}
	ev.CreatedAt = createdAt
	return ev, nil
}

type Publisher interface {
	PublishGenerationCreated(ctx context.Context, ev GenerationCreated) error
}

type NopPublisher struct{}

func (NopPublisher) PublishGenerationCreated(context.Context, GenerationCreated) error { return nil }

type StreamPublisher struct {
	client *redis.Client
	stream string
}

func NewStreamPublisher(client *redis.Client, stream string) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream}
}

func (p *StreamPublisher) PublishGenerationCreated(ctx context.Context, ev GenerationCreated) error {
	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: ev.values(),
	}).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	return nil
}

// Trim caps the stream at roughly maxLen entries and returns how many were
// evicted.
func (p *StreamPublisher) Trim(ctx context.Context, maxLen int64) (int64, error) {
	n, err := p.client.XTrimMaxLenApprox(ctx, p.stream, maxLen, 0).Result()
	if err != nil {
		return 0, fmt.Errorf("xtrim %s: %w", p.stream, err)
	}
	return n, nil
}
