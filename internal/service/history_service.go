package service

import (
	"context"

	"github.com/vivekr077/CodePilot/internal/models"
	"github.com/vivekr077/CodePilot/internal/repository"
)

type HistoryService struct {
	generations repository.GenerationStore
	maxLimit    int
}

func NewHistoryService(generations repository.GenerationStore, maxLimit int) *HistoryService {
	return &HistoryService{generations: generations, maxLimit: maxLimit}
}

// ListPage returns one page of the user's generations, newest first. Pages past
// the end come back empty with the real totals.
func (s *HistoryService) ListPage(ctx context.Context, userID string, page, limit int) (models.GenerationPage, error) {
	if userID == "" {
		return models.GenerationPage{}, ErrUnauthorized
	}
	if page < 1 {
		return models.GenerationPage{}, validationError("page must be >= 1")
	}
	if limit < 1 || limit > s.maxLimit {
		return models.GenerationPage{}, validationError("limit must be between 1 and %d", s.maxLimit)
	}

	total, err := s.generations.CountByUser(ctx, userID)
	if err != nil {
		return models.GenerationPage{}, storageError("count generations", err)
	}

	result := models.GenerationPage{
		Records:    []models.Generation{},
		TotalCount: total,
		TotalPages: (total + limit - 1) / limit,
		Page:       page,
		Limit:      limit,
	}
	// compared before multiplying so huge page numbers cannot overflow the offset
	if page > result.TotalPages {
		return result, nil
	}

	records, err := s.generations.ListByUser(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return models.GenerationPage{}, storageError("list generations", err)
	}
	result.Records = records
	return result, nil
}
