package repository

import (
	"context"
	"errors"
	"fmt"

	"restaurant-reservation/internal/data/entity"
	"restaurant-reservation/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type MemberRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Member, error)
	GrantReviewPermission(ctx context.Context, id uuid.UUID) error
}

type memberRepository struct {
	db  database.DBTX
	log *zap.Logger
}

func NewMemberRepository(db database.DBTX, log *zap.Logger) MemberRepository {
	return &memberRepository{
		db:  db,
		log: log.With(zap.String("repository", "member")),
	}
}

func (r *memberRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Member, error) {
	query := `
		SELECT id, user_id, role, can_write_review, created_at, updated_at
		FROM members
		WHERE id = $1
	`

	var member entity.Member
	err := r.db.QueryRow(ctx, query, id).Scan(
		&member.ID,
		&member.UserID,
		&member.Role,
		&member.CanWriteReview,
		&member.CreatedAt,
		&member.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find member by ID",
			zap.Error(err),
			zap.String("member_id", id.String()),
		)
		return nil, fmt.Errorf("find member by ID %s: %w", id.String(), err)
	}

	return &member, nil
}

// GrantReviewPermission lets the member write reviews from now on.
func (r *memberRepository) GrantReviewPermission(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE members SET can_write_review = TRUE, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to grant review permission",
			zap.Error(err),
			zap.String("member_id", id.String()),
		)
		return fmt.Errorf("grant review permission to member %s: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("member %s not found", id.String())
	}

	return nil
}
