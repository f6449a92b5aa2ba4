package admin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	candidatemodels "licensing/internal/candidate/models"
	candidateservice "licensing/internal/candidate/service"
	candidatestore "licensing/internal/candidate/store"
	exammodels "licensing/internal/exam/models"
	dErrors "licensing/pkg/domain-errors"
	"licensing/pkg/requestcontext"
	"licensing/pkg/testutil"
)

type fixedExams struct {
	pending int
	rates   map[exammodels.Kind]float64
	err     error
}

func (f fixedExams) CountPendingSchedules(context.Context) (int, error) { return f.pending, f.err }

func (f fixedExams) PassRate(_ context.Context, kind exammodels.Kind) (float64, error) {
	return f.rates[kind], f.err
}

type counter int

func (c counter) CountPending(context.Context) (int, error) { return int(c), nil }
func (c counter) CountActive(context.Context) (int, error)  { return int(c), nil }

func TestStats(t *testing.T) {
	now := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	candidates := candidateservice.New(candidatestore.NewInMemory())
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		_, err := candidates.Register(ctx, candidatemodels.Registration{FullName: "Budi Santoso", Email: email})
		require.NoError(t, err)
	}

	testutil.Given(t, "figures from every service", func(t *testing.T) {
		svc := New(ServiceSource{
			Candidates: candidates,
			Exams: fixedExams{pending: 2, rates: map[exammodels.Kind]float64{
				exammodels.KindTheory:    2.0 / 3.0,
				exammodels.KindPractical: 0.5,
			}},
			Payments: counter(4),
			Licenses: counter(1),
		})

		testutil.When(t, "the dashboard is requested", func(t *testing.T) {
			st, err := svc.Stats(ctx)
			require.NoError(t, err)

			testutil.Then(t, "each figure is reported", func(t *testing.T) {
				assert.Equal(t, 3, st.Candidates)
				assert.Equal(t, 2, st.PendingSchedules)
				assert.Equal(t, 4, st.PendingPayments)
				assert.Equal(t, 1, st.ActiveLicenses)
				assert.InDelta(t, 0.6667, st.TheoryPassRate, 0.001)
				assert.Equal(t, now, st.GeneratedAt)

				resp := NewDashboardResponse(st)
				assert.Equal(t, 66.7, resp.TheoryPassPercent)
				assert.Equal(t, 50.0, resp.PracticalPassPercent)
			})
		})
	})

	testutil.Given(t, "a failing exam store", func(t *testing.T) {
		svc := New(ServiceSource{
			Candidates: candidates,
			Exams:      fixedExams{err: errors.New("connection reset")},
			Payments:   counter(0),
			Licenses:   counter(0),
		})

		testutil.Then(t, "the failure is internal", func(t *testing.T) {
			_, err := svc.Stats(ctx)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
		})
	})
}

func TestRateWithNoResults(t *testing.T) {
	assert.Zero(t, rate(0, 0))
	assert.Equal(t, 0.25, rate(1, 4))
}
