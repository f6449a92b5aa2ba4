package admin

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	exammodels "licensing/internal/exam/models"
	licensemodels "licensing/internal/license/models"
	paymentmodels "licensing/internal/payment/models"
)

// PostgresSource reads every figure straight from the shared database in two
// round trips.
type PostgresSource struct {
	db *sql.DB
}

func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

func (src *PostgresSource) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	st := &Stats{}
	err := src.db.QueryRowContext(ctx, `
		SELECT
			(SELECT count(*) FROM candidates),
			(SELECT count(*) FROM exam_schedules WHERE status = $1),
			(SELECT count(*) FROM payments WHERE status = $2),
			(SELECT count(*) FROM licenses WHERE status = $3 AND expires_at > $4)`,
		string(exammodels.StatusScheduled),
		string(paymentmodels.StatusPending),
		string(licensemodels.StatusActive),
		now,
	).Scan(&st.Candidates, &st.PendingSchedules, &st.PendingPayments, &st.ActiveLicenses)
	if err != nil {
		return nil, fmt.Errorf("dashboard counts: %w", err)
	}

	kinds := []string{string(exammodels.KindTheory), string(exammodels.KindPractical)}
	rows, err := src.db.QueryContext(ctx, `
		SELECT kind, count(*) FILTER (WHERE passed), count(*)
		FROM (
			SELECT DISTINCT ON (candidate_id, kind) kind, passed
			FROM exam_results
			WHERE kind = ANY($1)
			ORDER BY candidate_id, kind, taken_at DESC
		) latest
		GROUP BY kind`, pq.Array(kinds))
	if err != nil {
		return nil, fmt.Errorf("dashboard pass rates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			kind          string
			passed, total int
		)
		if err := rows.Scan(&kind, &passed, &total); err != nil {
			return nil, fmt.Errorf("scan pass rate: %w", err)
		}
		switch exammodels.Kind(kind) {
		case exammodels.KindTheory:
			st.TheoryPassRate = rate(passed, total)
		case exammodels.KindPractical:
			st.PracticalPassRate = rate(passed, total)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pass rates: %w", err)
	}
	return st, nil
}
