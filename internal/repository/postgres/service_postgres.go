package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/centralauth/identity-hub/internal/domain"
)

type ServiceRepository struct {
	db *sqlx.DB
}

func NewServiceRepository(db *sqlx.DB) *ServiceRepository {
	return &ServiceRepository{db: db}
}

func (r *ServiceRepository) Create(ctx context.Context, svc *domain.Service) error {
	query := `
		INSERT INTO services (id, name, description, redirect_url, system, created_at, updated_at)
		VALUES (:id, :name, :description, :redirect_url, :system, :created_at, :updated_at)
	`
	_, err := r.db.NamedExecContext(ctx, query, svc)
	if isUniqueViolation(err) {
		return fmt.Errorf("service already exists: %w", domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	return nil
}

func (r *ServiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Service, error) {
	var svc domain.Service
	query := `SELECT * FROM services WHERE id = $1`

	err := r.db.GetContext(ctx, &svc, query, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("service: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service: %w", err)
	}

	return &svc, nil
}

func (r *ServiceRepository) List(ctx context.Context) ([]*domain.Service, error) {
	var services []*domain.Service
	query := `SELECT * FROM services ORDER BY name`

	if err := r.db.SelectContext(ctx, &services, query); err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return services, nil
}

func (r *ServiceRepository) Update(ctx context.Context, svc *domain.Service) error {
	query := `
		UPDATE services
		SET name = :name, description = :description, redirect_url = :redirect_url, updated_at = NOW()
		WHERE id = :id
	`
	result, err := r.db.NamedExecContext(ctx, query, svc)
	if err != nil {
		return fmt.Errorf("failed to update service: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("service: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *ServiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM services WHERE id = $1 AND system = FALSE`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete service: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("service: %w", domain.ErrNotFound)
	}

	return nil
}

// SetSecretIfAbsent is the conditional write behind lazy secret
// generation. The WHERE clause makes concurrent first logins race
// safely: exactly one writer flips the NULL, the rest see zero rows and
// re-read the winner's secret.
func (r *ServiceRepository) SetSecretIfAbsent(ctx context.Context, id uuid.UUID, ciphertext, preview string) (bool, error) {
	query := `
		UPDATE services
		SET secret_ciphertext = $2, secret_preview = $3, updated_at = NOW()
		WHERE id = $1 AND secret_ciphertext IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, id, ciphertext, preview)
	if err != nil {
		return false, fmt.Errorf("failed to set service secret: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *ServiceRepository) ReplaceSecret(ctx context.Context, id uuid.UUID, ciphertext, preview string) error {
	query := `
		UPDATE services
		SET secret_ciphertext = $2, secret_preview = $3, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, ciphertext, preview)
	if err != nil {
		return fmt.Errorf("failed to replace service secret: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("service: %w", domain.ErrNotFound)
	}

	return nil
}
