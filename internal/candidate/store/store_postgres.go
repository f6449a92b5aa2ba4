package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"licensing/internal/candidate/models"
	"licensing/internal/platform/postgres"
	id "licensing/pkg/domain"
	"licensing/pkg/platform/sentinel"
	"licensing/pkg/platform/tx"
)

// Postgres persists candidates in the candidates table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const candidateColumns = `id, full_name, email, photo_ref, created_at, updated_at`

func (s *Postgres) CreateIfEmailAvailable(ctx context.Context, c *models.Candidate) error {
	_, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO candidates (`+candidateColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.UUID(c.ID), c.FullName, c.Email, c.PhotoRef, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err, "candidates_email_key") {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert candidate: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, candidateID id.CandidateID) (*models.Candidate, error) {
	row := tx.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE id = $1`, uuid.UUID(candidateID))
	return scanCandidate(row)
}

func (s *Postgres) FindByEmail(ctx context.Context, email string) (*models.Candidate, error) {
	row := tx.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE lower(email) = lower($1)`, email)
	return scanCandidate(row)
}

func (s *Postgres) UpdatePhoto(ctx context.Context, candidateID id.CandidateID, ref string, now time.Time) error {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx,
		`UPDATE candidates SET photo_ref = $2, updated_at = $3 WHERE id = $1`,
		uuid.UUID(candidateID), ref, now)
	if err != nil {
		return fmt.Errorf("update candidate photo: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) Count(ctx context.Context) (int, error) {
	var n int
	if err := tx.Exec(ctx, s.db).QueryRowContext(ctx, `SELECT count(*) FROM candidates`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count candidates: %w", err)
	}
	return n, nil
}

func scanCandidate(row *sql.Row) (*models.Candidate, error) {
	var (
		c   models.Candidate
		cid uuid.UUID
	)
	err := row.Scan(&cid, &c.FullName, &c.Email, &c.PhotoRef, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan candidate: %w", err)
	}
	c.ID = id.CandidateID(cid)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}
