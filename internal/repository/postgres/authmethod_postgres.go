package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/centralauth/identity-hub/internal/domain"
)

type AuthMethodRepository struct {
	db *sqlx.DB
}

func NewAuthMethodRepository(db *sqlx.DB) *AuthMethodRepository {
	return &AuthMethodRepository{db: db}
}

func (r *AuthMethodRepository) ListCatalog(ctx context.Context) ([]*domain.AuthMethod, error) {
	var methods []*domain.AuthMethod
	query := `SELECT * FROM auth_methods ORDER BY name`

	if err := r.db.SelectContext(ctx, &methods, query); err != nil {
		return nil, fmt.Errorf("failed to list auth methods: %w", err)
	}
	return methods, nil
}

func (r *AuthMethodRepository) GetMethod(ctx context.Context, id uuid.UUID) (*domain.AuthMethod, error) {
	var method domain.AuthMethod
	query := `SELECT * FROM auth_methods WHERE id = $1`

	err := r.db.GetContext(ctx, &method, query, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("auth method: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get auth method: %w", err)
	}

	return &method, nil
}

func (r *AuthMethodRepository) GetMethodByKey(ctx context.Context, key string) (*domain.AuthMethod, error) {
	var method domain.AuthMethod
	query := `SELECT * FROM auth_methods WHERE key = $1`

	err := r.db.GetContext(ctx, &method, query, key)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("auth method: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get auth method by key: %w", err)
	}

	return &method, nil
}

func (r *AuthMethodRepository) GetConfigByService(ctx context.Context, serviceID uuid.UUID) (*domain.LoginPageConfig, error) {
	var cfg domain.LoginPageConfig
	query := `SELECT * FROM login_page_configs WHERE service_id = $1`

	err := r.db.GetContext(ctx, &cfg, query, serviceID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("login page config: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get login page config: %w", err)
	}

	return &cfg, nil
}

// EnsureConfig creates an empty config row for the service if none
// exists yet. Concurrent creation races collapse onto the unique
// service_id constraint; everyone reads the surviving row.
func (r *AuthMethodRepository) EnsureConfig(ctx context.Context, serviceID uuid.UUID) (*domain.LoginPageConfig, error) {
	insert := `
		INSERT INTO login_page_configs (id, service_id, title, description, logo_url, primary_color, created_at, updated_at)
		VALUES ($1, $2, '', '', '', '', NOW(), NOW())
		ON CONFLICT (service_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, insert, uuid.New(), serviceID); err != nil {
		return nil, fmt.Errorf("failed to ensure login page config: %w", err)
	}

	return r.GetConfigByService(ctx, serviceID)
}

func (r *AuthMethodRepository) UpdateConfig(ctx context.Context, cfg *domain.LoginPageConfig) error {
	query := `
		UPDATE login_page_configs
		SET title = :title, description = :description, logo_url = :logo_url,
		    primary_color = :primary_color, default_method_id = :default_method_id, updated_at = NOW()
		WHERE id = :id
	`
	result, err := r.db.NamedExecContext(ctx, query, cfg)
	if err != nil {
		return fmt.Errorf("failed to update login page config: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("login page config: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *AuthMethodRepository) ListOverrides(ctx context.Context, configID uuid.UUID) ([]*domain.ServiceAuthMethod, error) {
	var overrides []*domain.ServiceAuthMethod
	query := `SELECT * FROM service_auth_methods WHERE login_config_id = $1 ORDER BY display_order`

	if err := r.db.SelectContext(ctx, &overrides, query, configID); err != nil {
		return nil, fmt.Errorf("failed to list method overrides: %w", err)
	}
	return overrides, nil
}

// ReplaceOverrides swaps the whole override set in one transaction, so
// a reorder is never observable half-applied.
func (r *AuthMethodRepository) ReplaceOverrides(ctx context.Context, configID uuid.UUID, overrides []*domain.ServiceAuthMethod) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM service_auth_methods WHERE login_config_id = $1`, configID); err != nil {
		return fmt.Errorf("failed to clear method overrides: %w", err)
	}

	insert := `
		INSERT INTO service_auth_methods
			(id, login_config_id, auth_method_id, enabled, show_coming_soon_badge, button_text, help_text, display_order, created_at, updated_at)
		VALUES
			(:id, :login_config_id, :auth_method_id, :enabled, :show_coming_soon_badge, :button_text, :help_text, :display_order, :created_at, :updated_at)
	`
	now := time.Now()
	for _, o := range overrides {
		if o.ID == uuid.Nil {
			o.ID = uuid.New()
		}
		o.LoginConfigID = configID
		o.CreatedAt = now
		o.UpdatedAt = now

		_, err := tx.NamedExecContext(ctx, insert, o)
		if isForeignKeyViolation(err) {
			return fmt.Errorf("auth method %s: %w", o.AuthMethodID, domain.ErrInvalidReference)
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("duplicate method %s: %w", o.AuthMethodID, domain.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("failed to insert method override: %w", err)
		}
	}

	return tx.Commit()
}

func (r *AuthMethodRepository) UpsertOverride(ctx context.Context, override *domain.ServiceAuthMethod) error {
	if override.ID == uuid.Nil {
		override.ID = uuid.New()
	}
	query := `
		INSERT INTO service_auth_methods
			(id, login_config_id, auth_method_id, enabled, show_coming_soon_badge, button_text, help_text, display_order, created_at, updated_at)
		VALUES
			(:id, :login_config_id, :auth_method_id, :enabled, :show_coming_soon_badge, :button_text, :help_text, :display_order, NOW(), NOW())
		ON CONFLICT (login_config_id, auth_method_id) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			show_coming_soon_badge = EXCLUDED.show_coming_soon_badge,
			button_text = EXCLUDED.button_text,
			help_text = EXCLUDED.help_text,
			display_order = EXCLUDED.display_order,
			updated_at = NOW()
	`
	_, err := r.db.NamedExecContext(ctx, query, override)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("auth method: %w", domain.ErrInvalidReference)
	}
	if err != nil {
		return fmt.Errorf("failed to upsert method override: %w", err)
	}
	return nil
}
