package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vivekr077/CodePilot/internal/completion"
	"github.com/vivekr077/CodePilot/internal/events"
	"github.com/vivekr077/CodePilot/internal/ids"
	"github.com/vivekr077/CodePilot/internal/models"
	"github.com/vivekr077/CodePilot/internal/repository"
)

const publishTimeout = 2 * time.Second

type GenerationService struct {
	generations repository.GenerationStore
	completer   completion.Completer
	events      events.Publisher
	timeout     time.Duration
	log         zerolog.Logger
}

func NewGenerationService(
	generations repository.GenerationStore,
	completer completion.Completer,
	publisher events.Publisher,
	timeout time.Duration,
	log zerolog.Logger,
) *GenerationService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &GenerationService{
		generations: generations,
		completer:   completer,
		events:      publisher,
		timeout:     timeout,
		log:         log,
	}
}

type GenerateInput struct {
	UserID   string
	Prompt   string
	Language string
}

// Generate asks the model for code once and stores the result. If the model
// succeeds but the store fails, the error is an *UnsavedGenerationError.
func (s *GenerationService) Generate(ctx context.Context, input GenerateInput) (models.Generation, error) {
	if input.UserID == "" {
		return models.Generation{}, ErrUnauthorized
	}
	if strings.TrimSpace(input.Prompt) == "" {
		return models.Generation{}, ErrEmptyPrompt
	}

	code, err := s.complete(ctx, completion.ComposePrompt(input.Language, input.Prompt))
	if err != nil {
		s.log.Error().Err(err).Str("user_id", input.UserID).Str("language", input.Language).Msg("model call failed")
		return models.Generation{}, fmt.Errorf("%w: %w", ErrModel, err)
	}

	gen, err := s.generations.Create(ctx, models.Generation{
		ID:       ids.New(),
		UserID:   input.UserID,
		Prompt:   input.Prompt,
		Language: input.Language,
		Code:     code,
	})
	if err != nil {
		s.log.Error().Err(err).Str("user_id", input.UserID).Msg("persist generation failed")
		return models.Generation{}, &UnsavedGenerationError{Code: code, Err: err}
	}

	s.publish(ctx, gen)
	return gen, nil
}

func (s *GenerationService) complete(ctx context.Context, prompt string) (code string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("completer panic: %v", r)
		}
	}()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	code, err = s.completer.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(code) == "" {
		return "", completion.ErrEmptyCompletion
	}
	return code, nil
}

func (s *GenerationService) publish(ctx context.Context, gen models.Generation) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	err := s.events.PublishGenerationCreated(ctx, events.GenerationCreated{
		GenerationID: gen.ID,
		UserID:       gen.UserID,
		Language:     gen.Language,
		Code:         gen.Code,
		CreatedAt:    gen.CreatedAt,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("generation_id", gen.ID).Msg("publish generation event failed")
	}
}
