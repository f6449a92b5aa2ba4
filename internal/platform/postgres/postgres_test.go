package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	pgxErr := &pgconn.PgError{Code: "23505", ConstraintName: "licenses_number_key"}
	pqErr := &pq.Error{Code: "23505", Constraint: "licenses_one_active_per_candidate"}

	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", pgxErr), "licenses_number_key"))
	assert.False(t, IsUniqueViolation(pgxErr, "other"))
	assert.True(t, IsUniqueViolation(pqErr, ""))
	assert.True(t, IsUniqueViolation(pqErr, "licenses_one_active_per_candidate"))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
	assert.False(t, IsUniqueViolation(errors.New("plain"), ""))
}

func TestNullTimeRoundTrip(t *testing.T) {
	assert.False(t, NullTime(nil).Valid)
	assert.Nil(t, TimePtr(sql.NullTime{}))

	now := time.Date(2024, 2, 29, 12, 0, 0, 0, time.FixedZone("WIB", 7*3600))
	got := TimePtr(NullTime(&now))
	if assert.NotNil(t, got) {
		assert.True(t, now.Equal(*got))
		assert.Equal(t, time.UTC, got.Location())
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	body, err := migrationFS.ReadFile("migrations/0001_init.sql")
	assert.NoError(t, err)
	assert.Contains(t, string(body), "licenses_one_active_per_candidate")
}
