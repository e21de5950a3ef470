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

type RestaurantRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Restaurant, error)
	FindByName(ctx context.Context, name string) (*entity.Restaurant, error)
}

type restaurantRepository struct {
	db  database.DBTX
	log *zap.Logger
}

func NewRestaurantRepository(db database.DBTX, log *zap.Logger) RestaurantRepository {
	return &restaurantRepository{
		db:  db,
		log: log.With(zap.String("repository", "restaurant")),
	}
}

func (r *restaurantRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Restaurant, error) {
	query := `
		SELECT id, manager_id, name, open_hour, close_hour, created_at, updated_at
		FROM restaurants
		WHERE id = $1
	`

	restaurant, err := r.scan(r.db.QueryRow(ctx, query, id))
	if err != nil {
		r.log.Error("Failed to find restaurant by ID",
			zap.Error(err),
			zap.String("restaurant_id", id.String()),
		)
		return nil, fmt.Errorf("find restaurant by ID %s: %w", id.String(), err)
	}

	return restaurant, nil
}

func (r *restaurantRepository) FindByName(ctx context.Context, name string) (*entity.Restaurant, error) {
	query := `
		SELECT id, manager_id, name, open_hour, close_hour, created_at, updated_at
		FROM restaurants
		WHERE name = $1
	`

	restaurant, err := r.scan(r.db.QueryRow(ctx, query, name))
	if err != nil {
		r.log.Error("Failed to find restaurant by name",
			zap.Error(err),
			zap.String("name", name),
		)
		return nil, fmt.Errorf("find restaurant by name %s: %w", name, err)
	}

	return restaurant, nil
}

func (r *restaurantRepository) scan(row pgx.Row) (*entity.Restaurant, error) {
	var restaurant entity.Restaurant
	err := row.Scan(
		&restaurant.ID,
		&restaurant.ManagerID,
		&restaurant.Name,
		&restaurant.OpenHour,
		&restaurant.CloseHour,
		&restaurant.CreatedAt,
		&restaurant.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &restaurant, nil
}
