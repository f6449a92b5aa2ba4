package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"licensing/internal/payment/models"
	"licensing/internal/platform/postgres"
	id "licensing/pkg/domain"
	"licensing/pkg/platform/sentinel"
	"licensing/pkg/platform/tx"
)

// Postgres persists payments in the payments table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const paymentColumns = `id, candidate_id, amount, currency, status, reference, submitted_at,
	verified_at, verified_by, rejection_reason, consumed_by_license, consumed_at,
	gateway_token, gateway_redirect`

func nullUUID(u uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: u, Valid: u != uuid.Nil}
}

func (s *Postgres) Create(ctx context.Context, p *models.Payment) error {
	_, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		uuid.UUID(p.ID), uuid.UUID(p.CandidateID), p.Amount, p.Currency, string(p.Status), p.Reference,
		p.SubmittedAt, postgres.NullTime(p.VerifiedAt), nullUUID(uuid.UUID(p.VerifiedBy)), p.RejectionReason,
		nullUUID(uuid.UUID(p.ConsumedByLicense)), postgres.NullTime(p.ConsumedAt), p.GatewayToken, p.GatewayRedirect,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err, "payments_pkey") {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, paymentID id.PaymentID) (*models.Payment, error) {
	row := tx.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, uuid.UUID(paymentID))
	return scanPayment(row)
}

func (s *Postgres) Latest(ctx context.Context, candidateID id.CandidateID) (*models.Payment, error) {
	row := tx.Exec(ctx, s.db).QueryRowContext(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE candidate_id = $1
		ORDER BY submitted_at DESC, seq DESC
		LIMIT 1`, uuid.UUID(candidateID))
	return scanPayment(row)
}

func (s *Postgres) UpdateReviewIfPending(ctx context.Context, p *models.Payment) error {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE payments
		SET status = $2, verified_at = $3, verified_by = $4, rejection_reason = $5
		WHERE id = $1 AND status = 'pending'`,
		uuid.UUID(p.ID), string(p.Status), postgres.NullTime(p.VerifiedAt),
		nullUUID(uuid.UUID(p.VerifiedBy)), p.RejectionReason,
	)
	if err != nil {
		return fmt.Errorf("update payment review: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.FindByID(ctx, p.ID); err != nil {
			return err
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *Postgres) SetGateway(ctx context.Context, paymentID id.PaymentID, token, redirect string) error {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx,
		`UPDATE payments SET gateway_token = $2, gateway_redirect = $3 WHERE id = $1`,
		uuid.UUID(paymentID), token, redirect)
	if err != nil {
		return fmt.Errorf("update payment gateway: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// ConsumeIfVerified is a single conditional UPDATE; when it matches no row the
// current state decides between ErrNotFound, ErrAlreadyUsed and ErrInvalidState.
func (s *Postgres) ConsumeIfVerified(ctx context.Context, paymentID id.PaymentID, candidateID id.CandidateID, licenseID id.LicenseID, at time.Time) error {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE payments
		SET consumed_by_license = $3, consumed_at = $4
		WHERE id = $1
		  AND candidate_id = $2
		  AND status = 'verified'
		  AND consumed_by_license IS NULL`,
		uuid.UUID(paymentID), uuid.UUID(candidateID), uuid.UUID(licenseID), at,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err, "payments_consumed_by_key") {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("consume payment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	p, err := s.FindByID(ctx, paymentID)
	if err != nil {
		return err
	}
	if p.IsConsumed() {
		return sentinel.ErrAlreadyUsed
	}
	return sentinel.ErrInvalidState
}

func (s *Postgres) CountByStatus(ctx context.Context, status models.Status) (int, error) {
	var n int
	err := tx.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT count(*) FROM payments WHERE status = $1`, string(status)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count payments: %w", err)
	}
	return n, nil
}

func scanPayment(row *sql.Row) (*models.Payment, error) {
	var (
		p                    models.Payment
		pid, cid             uuid.UUID
		status               string
		verifiedBy, consumed uuid.NullUUID
		verifiedAt, usedAt   sql.NullTime
	)
	err := row.Scan(&pid, &cid, &p.Amount, &p.Currency, &status, &p.Reference, &p.SubmittedAt,
		&verifiedAt, &verifiedBy, &p.RejectionReason, &consumed, &usedAt,
		&p.GatewayToken, &p.GatewayRedirect)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	p.ID = id.PaymentID(pid)
	p.CandidateID = id.CandidateID(cid)
	p.Status = models.Status(status)
	p.VerifiedBy = id.StaffID(verifiedBy.UUID)
	p.ConsumedByLicense = id.LicenseID(consumed.UUID)
	p.VerifiedAt = postgres.TimePtr(verifiedAt)
	p.ConsumedAt = postgres.TimePtr(usedAt)
	p.SubmittedAt = p.SubmittedAt.UTC()
	return &p, nil
}
