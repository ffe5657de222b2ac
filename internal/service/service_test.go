package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vivekr077/CodePilot/internal/completion"
	"github.com/vivekr077/CodePilot/internal/events"
	"github.com/vivekr077/CodePilot/internal/models"
	"github.com/vivekr077/CodePilot/internal/repository"
	"github.com/vivekr077/CodePilot/internal/security"
)

const testSecret = "test-session-secret"

func newTestAuth(t *testing.T, users repository.UserStore) *AuthService {
	t.Helper()
	hasher, err := security.NewPasswordHasher(security.AlgorithmBcrypt, bcrypt.MinCost, security.Argon2Params{})
	require.NoError(t, err)
	tokens := security.NewSessionTokens(testSecret, 7*24*time.Hour)
	return NewAuthService(users, hasher, tokens, zerolog.Nop())
}

type stubCompleter struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	fn      func(ctx context.Context, prompt string) (string, error)
}

func (s *stubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.calls++
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	return s.fn(ctx, prompt)
}

func (s *stubCompleter) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func returning(code string) *stubCompleter {
	return &stubCompleter{fn: func(context.Context, string) (string, error) { return code, nil }}
}

var _ completion.Completer = (*stubCompleter)(nil)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.GenerationCreated
	err    error
}

func (p *recordingPublisher) PublishGenerationCreated(_ context.Context, ev events.GenerationCreated) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

// failingGenerations wraps the memory store and fails writes.
type failingGenerations struct {
	*repository.MemoryGenerationRepository
}

func (failingGenerations) Create(context.Context, models.Generation) (models.Generation, error) {
	return models.Generation{}, errors.New("connection refused")
}
