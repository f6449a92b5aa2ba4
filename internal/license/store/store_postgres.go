package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"licensing/internal/license/models"
	"licensing/internal/platform/postgres"
	id "licensing/pkg/domain"
	"licensing/pkg/platform/sentinel"
	"licensing/pkg/platform/tx"
)

const (
	constraintOneActive = "licenses_one_active_per_candidate"
	constraintNumber    = "licenses_number_key"
)

// Postgres persists licenses in the licenses table. Issuance races are closed
// by the licenses_one_active_per_candidate partial unique index.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const licenseColumns = `id, candidate_id, number, class, issued_at, expires_at, status, points,
	issued_by, admin_notes, payment_id, revoked_at, revocation_reason`

// CreateIfAbsent is a plain INSERT; the unique indexes make it conditional.
// Callers run it inside a transaction, which a violation aborts.
func (s *Postgres) CreateIfAbsent(ctx context.Context, l *models.License) error {
	_, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO licenses (`+licenseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		uuid.UUID(l.ID), uuid.UUID(l.CandidateID), l.Number, string(l.Class), l.IssuedAt, l.ExpiresAt,
		string(l.Status), l.Points, uuid.UUID(l.IssuedBy), l.AdminNotes, uuid.UUID(l.PaymentID),
		postgres.NullTime(l.RevokedAt), l.RevocationReason,
	)
	switch {
	case err == nil:
		return nil
	case postgres.IsUniqueViolation(err, constraintNumber):
		return models.ErrNumberTaken
	case postgres.IsUniqueViolation(err, constraintOneActive), postgres.IsUniqueViolation(err, "licenses_pkey"):
		return sentinel.ErrConflict
	default:
		return fmt.Errorf("insert license: %w", err)
	}
}

func (s *Postgres) FindByID(ctx context.Context, licenseID id.LicenseID) (*models.License, error) {
	row := tx.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+licenseColumns+` FROM licenses WHERE id = $1`, uuid.UUID(licenseID))
	return scanLicense(row)
}

func (s *Postgres) FindActive(ctx context.Context, candidateID id.CandidateID) (*models.License, error) {
	row := tx.Exec(ctx, s.db).QueryRowContext(ctx, `
		SELECT `+licenseColumns+` FROM licenses
		WHERE candidate_id = $1 AND status = 'active'`, uuid.UUID(candidateID))
	return scanLicense(row)
}

func (s *Postgres) Latest(ctx context.Context, candidateID id.CandidateID) (*models.License, error) {
	row := tx.Exec(ctx, s.db).QueryRowContext(ctx, `
		SELECT `+licenseColumns+` FROM licenses
		WHERE candidate_id = $1
		ORDER BY issued_at DESC
		LIMIT 1`, uuid.UUID(candidateID))
	return scanLicense(row)
}

func (s *Postgres) FindByNumber(ctx context.Context, number string) (*models.License, error) {
	row := tx.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+licenseColumns+` FROM licenses WHERE number = $1`, number)
	return scanLicense(row)
}

func (s *Postgres) UpdateStatus(ctx context.Context, l *models.License, from models.Status) error {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE licenses
		SET status = $2, revoked_at = $3, revocation_reason = $4
		WHERE id = $1 AND status = $5`,
		uuid.UUID(l.ID), string(l.Status), postgres.NullTime(l.RevokedAt), l.RevocationReason, string(from),
	)
	if err != nil {
		return fmt.Errorf("update license status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.FindByID(ctx, l.ID); err != nil {
			return err
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *Postgres) CountActive(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := tx.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT count(*) FROM licenses WHERE status = 'active' AND expires_at > $1`, now).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count licenses: %w", err)
	}
	return n, nil
}

func scanLicense(row *sql.Row) (*models.License, error) {
	var (
		l                 models.License
		lid, cid, by, pid uuid.UUID
		class, status     string
		revokedAt         sql.NullTime
	)
	err := row.Scan(&lid, &cid, &l.Number, &class, &l.IssuedAt, &l.ExpiresAt, &status, &l.Points,
		&by, &l.AdminNotes, &pid, &revokedAt, &l.RevocationReason)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan license: %w", err)
	}
	l.ID = id.LicenseID(lid)
	l.CandidateID = id.CandidateID(cid)
	l.IssuedBy = id.StaffID(by)
	l.PaymentID = id.PaymentID(pid)
	l.Class = models.Class(class)
	l.Status = models.Status(status)
	l.IssuedAt = l.IssuedAt.UTC()
	l.ExpiresAt = l.ExpiresAt.UTC()
	l.RevokedAt = postgres.TimePtr(revokedAt)
	return &l, nil
}
