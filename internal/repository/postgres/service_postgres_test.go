package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/centralauth/identity-hub/internal/domain"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestServiceCreateMapsUniqueViolation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewServiceRepository(db)

	mock.ExpectExec(`INSERT INTO services`).
		WillReturnError(&pq.Error{Code: uniqueViolation})

	now := time.Now()
	err := repo.Create(context.Background(), &domain.Service{
		ID:        uuid.New(),
		Name:      "billing",
		CreatedAt: now,
		UpdatedAt: now,
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestServiceGetByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewServiceRepository(db)
	id := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM services WHERE id`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	_, err := repo.GetByID(context.Background(), id)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSetSecretIfAbsentReportsRaceOutcome(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewServiceRepository(db)
	id := uuid.New()
	ctx := context.Background()

	// Winner path: the NULL guard matches one row.
	mock.ExpectExec(`UPDATE services\s+SET secret_ciphertext = \$2, secret_preview = \$3, updated_at = NOW\(\)\s+WHERE id = \$1 AND secret_ciphertext IS NULL`).
		WithArgs(id, "ciphertext-a", "abcd...wxyz").
		WillReturnResult(sqlmock.NewResult(0, 1))

	won, err := repo.SetSecretIfAbsent(ctx, id, "ciphertext-a", "abcd...wxyz")
	if err != nil {
		t.Fatalf("SetSecretIfAbsent: %v", err)
	}
	if !won {
		t.Fatal("expected the write to win")
	}

	// Loser path: another writer already filled the column.
	mock.ExpectExec(`UPDATE services\s+SET secret_ciphertext = \$2, secret_preview = \$3, updated_at = NOW\(\)\s+WHERE id = \$1 AND secret_ciphertext IS NULL`).
		WithArgs(id, "ciphertext-b", "efgh...stuv").
		WillReturnResult(sqlmock.NewResult(0, 0))

	won, err = repo.SetSecretIfAbsent(ctx, id, "ciphertext-b", "efgh...stuv")
	if err != nil {
		t.Fatalf("SetSecretIfAbsent (lost race): %v", err)
	}
	if won {
		t.Fatal("a zero-row update must report a lost race")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDeleteSkipsSystemServices(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewServiceRepository(db)
	id := uuid.New()

	// The system = FALSE guard means a system row matches nothing.
	mock.ExpectExec(`DELETE FROM services WHERE id = \$1 AND system = FALSE`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), id)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestReplaceSecretUnknownService(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewServiceRepository(db)
	id := uuid.New()

	mock.ExpectExec(`UPDATE services\s+SET secret_ciphertext = \$2, secret_preview = \$3, updated_at = NOW\(\)\s+WHERE id = \$1`).
		WithArgs(id, "ct", "pv").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.ReplaceSecret(context.Background(), id, "ct", "pv")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
