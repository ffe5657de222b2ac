package repository

import (
	"context"
	"fmt"

	"github.com/vivekr077/CodePilot/internal/models"
)

type GenerationStore interface {
	Create(ctx context.Context, gen models.Generation) (models.Generation, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Generation, error)
	CountByUser(ctx context.Context, userID string) (int, error)
}

type GenerationRepository struct {
	db DBTX
}

func NewGenerationRepository(db DBTX) *GenerationRepository {
	return &GenerationRepository{db: db}
}

func (r *GenerationRepository) Create(ctx context.Context, gen models.Generation) (models.Generation, error) {
	const query = `
		INSERT INTO generations (id, user_id, prompt, language, code, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING seq, created_at
	`

	err := r.db.QueryRow(ctx, query,
		gen.ID,
		gen.UserID,
		gen.Prompt,
		gen.Language,
		gen.Code,
	).Scan(&gen.Seq, &gen.CreatedAt)
	if err != nil {
		return models.Generation{}, fmt.Errorf("insert generation: %w", err)
	}
	return gen, nil
}

// ListByUser returns one user's generations, newest first. seq breaks ties
// between rows created in the same instant.
func (r *GenerationRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Generation, error) {
	const query = `
		SELECT id, seq, user_id, prompt, language, code, created_at
		FROM generations
		WHERE user_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	defer rows.Close()

	records := make([]models.Generation, 0, limit)
	for rows.Next() {
		var g models.Generation
		if err := rows.Scan(
			&g.ID,
			&g.Seq,
			&g.UserID,
			&g.Prompt,
			&g.Language,
			&g.Code,
			&g.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		records = append(records, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate generations: %w", err)
	}
	return records, nil
}

func (r *GenerationRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM generations WHERE user_id = $1`

	var total int64
	if err := r.db.QueryRow(ctx, query, userID).Scan(&total); err != nil {
		return 0, fmt.Errorf("count generations: %w", err)
	}
	return int(total), nil
}
