package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"licensing/internal/exam/models"
	"licensing/internal/platform/postgres"
	id "licensing/pkg/domain"
	"licensing/pkg/platform/sentinel"
	"licensing/pkg/platform/tx"
)

// Postgres persists schedules in exam_schedules and results in exam_results.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const scheduleColumns = `id, candidate_id, kind, slot_at, location, status, examiner_id,
	admin_message, started_at, result_id, created_at, updated_at`

const resultColumns = `id, candidate_id, kind, score, passed, taken_at, location, examiner_id, schedule_id`

func nullUUID(u uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: u, Valid: u != uuid.Nil}
}

func (s *Postgres) CreateSchedule(ctx context.Context, sch *models.ExamSchedule) error {
	_, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO exam_schedules (`+scheduleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		uuid.UUID(sch.ID), uuid.UUID(sch.CandidateID), string(sch.Kind), sch.SlotAt, sch.Location,
		string(sch.Status), nullUUID(uuid.UUID(sch.ExaminerID)), sch.AdminMessage,
		postgres.NullTime(sch.StartedAt), nullUUID(uuid.UUID(sch.ResultID)), sch.CreatedAt, sch.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err, "exam_schedules_pkey") {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert exam schedule: %w", err)
	}
	return nil
}

func (s *Postgres) FindSchedule(ctx context.Context, scheduleID id.ScheduleID) (*models.ExamSchedule, error) {
	row := tx.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+scheduleColumns+` FROM exam_schedules WHERE id = $1`, uuid.UUID(scheduleID))
	sch, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return sch, err
}

// UpdateScheduleIfUnchanged is a compare-and-set on (status, examiner_id).
func (s *Postgres) UpdateScheduleIfUnchanged(ctx context.Context, updated *models.ExamSchedule, status models.ScheduleStatus, examinerID id.StaffID) error {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE exam_schedules
		SET status = $2, examiner_id = $3, admin_message = $4, started_at = $5,
			result_id = $6, updated_at = $7
		WHERE id = $1 AND status = $8 AND examiner_id IS NOT DISTINCT FROM $9`,
		uuid.UUID(updated.ID), string(updated.Status), nullUUID(uuid.UUID(updated.ExaminerID)),
		updated.AdminMessage, postgres.NullTime(updated.StartedAt), nullUUID(uuid.UUID(updated.ResultID)),
		updated.UpdatedAt, string(status), nullUUID(uuid.UUID(examinerID)),
	)
	if err != nil {
		return fmt.Errorf("update exam schedule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.FindSchedule(ctx, updated.ID); err != nil {
			return err
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *Postgres) ListSchedulesByCandidate(ctx context.Context, candidateID id.CandidateID) ([]*models.ExamSchedule, error) {
	return s.querySchedules(ctx,
		`SELECT `+scheduleColumns+` FROM exam_schedules WHERE candidate_id = $1 ORDER BY slot_at`,
		uuid.UUID(candidateID))
}

func (s *Postgres) ListSchedulesByStatus(ctx context.Context, status models.ScheduleStatus) ([]*models.ExamSchedule, error) {
	return s.querySchedules(ctx,
		`SELECT `+scheduleColumns+` FROM exam_schedules WHERE status = $1 ORDER BY slot_at`,
		string(status))
}

func (s *Postgres) CountSchedulesByStatus(ctx context.Context, status models.ScheduleStatus) (int, error) {
	var n int
	err := tx.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT count(*) FROM exam_schedules WHERE status = $1`, string(status)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count exam schedules: %w", err)
	}
	return n, nil
}

func (s *Postgres) querySchedules(ctx context.Context, query string, args ...any) ([]*models.ExamSchedule, error) {
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query exam schedules: %w", err)
	}
	defer rows.Close()

	out := make([]*models.ExamSchedule, 0)
	for rows.Next() {
		sch, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exam schedules: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row scanner) (*models.ExamSchedule, error) {
	var (
		sch                  models.ExamSchedule
		sid, cid             uuid.UUID
		kind, status         string
		examinerID, resultID uuid.NullUUID
		startedAt            sql.NullTime
	)
	err := row.Scan(&sid, &cid, &kind, &sch.SlotAt, &sch.Location, &status, &examinerID,
		&sch.AdminMessage, &startedAt, &resultID, &sch.CreatedAt, &sch.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan exam schedule: %w", err)
	}
	sch.ID = id.ScheduleID(sid)
	sch.CandidateID = id.CandidateID(cid)
	sch.Kind = models.Kind(kind)
	sch.Status = models.ScheduleStatus(status)
	sch.ExaminerID = id.StaffID(examinerID.UUID)
	sch.ResultID = id.ResultID(resultID.UUID)
	sch.StartedAt = postgres.TimePtr(startedAt)
	sch.SlotAt = sch.SlotAt.UTC()
	sch.CreatedAt = sch.CreatedAt.UTC()
	sch.UpdatedAt = sch.UpdatedAt.UTC()
	return &sch, nil
}

func (s *Postgres) AppendResult(ctx context.Context, r *models.ExamResult) error {
	_, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO exam_results (`+resultColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.UUID(r.ID), uuid.UUID(r.CandidateID), string(r.Kind), r.Score, r.Passed, r.TakenAt,
		r.Location, nullUUID(uuid.UUID(r.ExaminerID)), nullUUID(uuid.UUID(r.ScheduleID)),
	)
	if err != nil {
		return fmt.Errorf("insert exam result: %w", err)
	}
	return nil
}

func (s *Postgres) LatestResult(ctx context.Context, candidateID id.CandidateID, kind models.Kind) (*models.ExamResult, error) {
	row := tx.Exec(ctx, s.db).QueryRowContext(ctx, `
		SELECT `+resultColumns+` FROM exam_results
		WHERE candidate_id = $1 AND kind = $2
		ORDER BY taken_at DESC
		LIMIT 1`, uuid.UUID(candidateID), string(kind))
	r, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return r, err
}

func (s *Postgres) ListResults(ctx context.Context, candidateID id.CandidateID) ([]*models.ExamResult, error) {
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, `
		SELECT `+resultColumns+` FROM exam_results
		WHERE candidate_id = $1
		ORDER BY taken_at DESC`, uuid.UUID(candidateID))
	if err != nil {
		return nil, fmt.Errorf("query exam results: %w", err)
	}
	defer rows.Close()

	out := make([]*models.ExamResult, 0)
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exam results: %w", err)
	}
	return out, nil
}

// PassRate counts, per candidate, whether the latest result of kind passed.
func (s *Postgres) PassRate(ctx context.Context, kind models.Kind) (passed, total int, err error) {
	err = tx.Exec(ctx, s.db).QueryRowContext(ctx, `
		SELECT count(*) FILTER (WHERE passed), count(*)
		FROM (
			SELECT DISTINCT ON (candidate_id) passed
			FROM exam_results
			WHERE kind = $1
			ORDER BY candidate_id, taken_at DESC
		) latest`, string(kind)).Scan(&passed, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("exam pass rate: %w", err)
	}
	return passed, total, nil
}

func scanResult(row scanner) (*models.ExamResult, error) {
	var (
		r                      models.ExamResult
		rid, cid               uuid.UUID
		kind                   string
		examinerID, scheduleID uuid.NullUUID
	)
	err := row.Scan(&rid, &cid, &kind, &r.Score, &r.Passed, &r.TakenAt, &r.Location, &examinerID, &scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan exam result: %w", err)
	}
	r.ID = id.ResultID(rid)
	r.CandidateID = id.CandidateID(cid)
	r.Kind = models.Kind(kind)
	r.ExaminerID = id.StaffID(examinerID.UUID)
	r.ScheduleID = id.ScheduleID(scheduleID.UUID)
	r.TakenAt = r.TakenAt.UTC()
	return &r, nil
}
