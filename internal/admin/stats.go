// Package admin computes the figures shown on the back-office dashboard.
package admin

import (
	"context"
	"time"
)

// Stats is a point-in-time summary of the licensing pipeline. Pass rates are
// fractions in [0, 1] over each candidate's latest result.
type Stats struct {
	Candidates        int       `json:"candidates"`
	PendingSchedules  int       `json:"pending_schedules"`
	PendingPayments   int       `json:"pending_payments"`
	ActiveLicenses    int       `json:"active_licenses"`
	TheoryPassRate    float64   `json:"theory_pass_rate"`
	PracticalPassRate float64   `json:"practical_pass_rate"`
	GeneratedAt       time.Time `json:"generated_at"`
}

// Source produces the raw figures. GeneratedAt is filled in by the service.
type Source interface {
	Stats(ctx context.Context, now time.Time) (*Stats, error)
}

func rate(passed, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(passed) / float64(total)
}
