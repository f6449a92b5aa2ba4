package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"licensing/internal/platform/postgres"
	"licensing/internal/staff/models"
	id "licensing/pkg/domain"
	"licensing/pkg/platform/sentinel"
	"licensing/pkg/platform/tx"
)

// Postgres persists staff in the staff table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const staffColumns = `id, email, name, role, password_hash, active, created_at`

func (s *Postgres) CreateIfEmailAvailable(ctx context.Context, st *models.Staff) error {
	_, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO staff (`+staffColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.UUID(st.ID), st.Email, st.Name, string(st.Role), st.PasswordHash, st.Active, st.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err, "staff_email_key") {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert staff: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, staffID id.StaffID) (*models.Staff, error) {
	return scanStaff(tx.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+staffColumns+` FROM staff WHERE id = $1`, uuid.UUID(staffID)))
}

func (s *Postgres) FindByEmail(ctx context.Context, email string) (*models.Staff, error) {
	return scanStaff(tx.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+staffColumns+` FROM staff WHERE lower(email) = lower($1)`, email))
}

func scanStaff(row *sql.Row) (*models.Staff, error) {
	var (
		st   models.Staff
		sid  uuid.UUID
		role string
	)
	err := row.Scan(&sid, &st.Email, &st.Name, &role, &st.PasswordHash, &st.Active, &st.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan staff: %w", err)
	}
	st.ID = id.StaffID(sid)
	st.Role = models.Role(role)
	st.CreatedAt = st.CreatedAt.UTC()
	return &st, nil
}
