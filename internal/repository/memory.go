package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vivekr077/CodePilot/internal/models"
)

// MemoryUserRepository keeps users in process memory. It backs tests and the
// memory database driver.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[string]models.User
	byEmail map[string]string
	now     func() time.Time
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:    make(map[string]models.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func (r *MemoryUserRepository) Create(_ context.Context, user models.User) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[user.Email]; ok {
		return models.User{}, ErrEmailTaken
	}
	user.CreatedAt = r.now().UTC()
	user.PasswordHash = append([]byte(nil), user.PasswordHash...)
	r.byID[user.ID] = user
	r.byEmail[user.Email] = user.ID
	return user, nil
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return r.byID[id], nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return user, nil
}

type MemoryGenerationRepository struct {
	mu      sync.RWMutex
	seq     int64
	records []models.Generation
	now     func() time.Time
}

func NewMemoryGenerationRepository() *MemoryGenerationRepository {
	return &MemoryGenerationRepository{now: time.Now}
}

// WithClock replaces the creation timestamp source. Tests use it to create
// records sharing one timestamp.
func (r *MemoryGenerationRepository) WithClock(now func() time.Time) *MemoryGenerationRepository {
	r.now = now
	return r
}

func (r *MemoryGenerationRepository) Create(_ context.Context, gen models.Generation) (models.Generation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	gen.Seq = r.seq
	gen.CreatedAt = r.now().UTC()
	r.records = append(r.records, gen)
	return gen, nil
}

func (r *MemoryGenerationRepository) ListByUser(_ context.Context, userID string, limit, offset int) ([]models.Generation, error) {
	r.mu.RLock()
	owned := make([]models.Generation, 0)
	for _, g := range r.records {
		if g.UserID == userID {
			owned = append(owned, g)
		}
	}
	r.mu.RUnlock()

	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].CreatedAt.After(owned[j].CreatedAt)
		}
		return owned[i].Seq > owned[j].Seq
	})

	if offset >= len(owned) {
		return []models.Generation{}, nil
	}
	end := offset + limit
	if end > len(owned) {
		end = len(owned)
	}
	return append([]models.Generation{}, owned[offset:end]...), nil
}

func (r *MemoryGenerationRepository) CountByUser(_ context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, g := range r.records {
		if g.UserID == userID {
			total++
		}
	}
	return total, nil
}

var (
	_ UserStore       = (*UserRepository)(nil)
	_ UserStore       = (*MemoryUserRepository)(nil)
	_ GenerationStore = (*GenerationRepository)(nil)
	_ GenerationStore = (*MemoryGenerationRepository)(nil)
)
