package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vivekr077/CodePilot/internal/events"
)

type ObjectWriter interface {
	PutObject(ctx context.Context, key, contentType string, data []byte, meta map[string]string) error
}

var extensions = map[string]string{
	"bash":       "sh",
	"c":          "c",
	"c#":         "cs",
	"c++":        "cpp",
	"cpp":        "cpp",
	"csharp":     "cs",
	"css":        "css",
	"dart":       "dart",
	"go":         "go",
	"golang":     "go",
	"html":       "html",
	"java":       "java",
	"javascript": "js",
	"js":         "js",
	"kotlin":     "kt",
	"php":        "php",
	"python":     "py",
	"ruby":       "rb",
	"rust":       "rs",
	"scala":      "scala",
	"shell":      "sh",
	"sql":        "sql",
	"swift":      "swift",
	"typescript": "ts",
	"ts":         "ts",
}

// Extension maps a language name to a file extension, "txt" when unknown.
func Extension(language string) string {
	if ext, ok := extensions[strings.ToLower(strings.TrimSpace(language))]; ok {
		return ext
	}
	return "txt"
}

// ObjectKey is generations/<user>/<yyyy>/<mm>/<generation>.<ext>.
func ObjectKey(ev events.GenerationCreated) string {
	created := ev.CreatedAt.UTC()
	return fmt.Sprintf("generations/%s/%04d/%02d/%s.%s",
		ev.UserID, created.Year(), int(created.Month()), ev.GenerationID, Extension(ev.Language))
}

// Archiver copies every created generation into object storage.
type Archiver struct {
	store  ObjectWriter
	logger zerolog.Logger
}

func NewArchiver(store ObjectWriter, logger zerolog.Logger) *Archiver {
	return &Archiver{store: store, logger: logger}
}

func (a *Archiver) Handle(ctx context.Context, msg redis.XMessage) error {
	ev, err := events.ParseGenerationCreated(msg)
	if err != nil {
		if errors.Is(err, events.ErrMalformedEvent) {
			// retrying cannot fix it; let the consumer ack it
			a.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("dropping malformed event")
			return nil
		}
		return err
	}

	key := ObjectKey(ev)
	meta := map[string]string{
		"generation-id": ev.GenerationID,
		"user-id":       ev.UserID,
		"language":      ev.Language,
	}
	if err := a.store.PutObject(ctx, key, "text/plain; charset=utf-8", []byte(ev.Code), meta); err != nil {
		return fmt.Errorf("archive %s: %w", ev.GenerationID, err)
	}

	a.logger.Info().
		Str("generation_id", ev.GenerationID).
		Str("key", key).
		Msg("generation archived")
	return nil
}
