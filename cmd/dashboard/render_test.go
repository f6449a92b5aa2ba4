package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licensing/internal/admin"
	candidateservice "licensing/internal/candidate/service"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func TestRenderStats(t *testing.T) {
	var buf bytes.Buffer
	renderStats(&buf, admin.NewDashboardResponse(&admin.Stats{
		Candidates:        40,
		PendingSchedules:  3,
		PendingPayments:   1,
		ActiveLicenses:    18,
		TheoryPassRate:    0.8,
		PracticalPassRate: 0.25,
		GeneratedAt:       time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC),
	}))

	out := buf.String()
	assert.Contains(t, out, "Active licenses")
	assert.Contains(t, out, "80.0%")
	assert.Contains(t, out, "25.0%")
	assert.Contains(t, out, "1 payments and 3 exam bookings await review")
}

func TestRenderImport(t *testing.T) {
	var buf bytes.Buffer
	renderImport(&buf, candidateservice.ImportReport{
		Imported: 2,
		Skipped:  1,
		Errors:   []string{"record 2 (dup@example.com): email already registered"},
	})
	assert.Contains(t, buf.String(), "dup@example.com")
	assert.NotContains(t, buf.String(), "Import completed successfully!")
}

func TestReadLegacyExport(t *testing.T) {
	dir := t.TempDir()

	flat := filepath.Join(dir, "flat.json")
	require.NoError(t, os.WriteFile(flat, []byte(`[{"fullName":"Siti Aminah","user_email":"siti@example.com"}]`), 0o600))
	records, err := readLegacyExport(flat)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "siti@example.com", records[0]["user_email"])

	wrapped := filepath.Join(dir, "wrapped.json")
	require.NoError(t, os.WriteFile(wrapped, []byte(`{"candidates":[{"name":"A"},{"name":"B"}]}`), 0o600))
	records, err = readLegacyExport(wrapped)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`not json`), 0o600))
	_, err = readLegacyExport(bad)
	assert.Error(t, err)
}
