package eligibility

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	exammodels "licensing/internal/exam/models"
	paymentmodels "licensing/internal/payment/models"
	id "licensing/pkg/domain"
	dErrors "licensing/pkg/domain-errors"
	"licensing/pkg/requestcontext"
	"licensing/pkg/testutil"
)

type candidateSet map[id.CandidateID]bool

func (c candidateSet) Exists(_ context.Context, candidateID id.CandidateID) (bool, error) {
	return c[candidateID], nil
}

type resultTable struct {
	results map[exammodels.Kind]*exammodels.ExamResult
	err     error
}

func (r resultTable) LatestResult(_ context.Context, _ id.CandidateID, kind exammodels.Kind) (*exammodels.ExamResult, error) {
	return r.results[kind], r.err
}

type paymentTable struct {
	payment *paymentmodels.Payment
	block   bool
}

func (p paymentTable) Latest(ctx context.Context, _ id.CandidateID) (*paymentmodels.Payment, error) {
	if p.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return p.payment, nil
}

func TestEvaluate(t *testing.T) {
	cid := id.NewCandidateID()
	now := time.Date(2025, 9, 9, 9, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	passed := func(kind exammodels.Kind) *exammodels.ExamResult {
		return &exammodels.ExamResult{ID: id.NewResultID(), Kind: kind, Score: 75, Passed: true, TakenAt: now}
	}

	testutil.Given(t, "an unknown candidate", func(t *testing.T) {
		svc := New(candidateSet{}, resultTable{}, paymentTable{})
		_, err := svc.Evaluate(ctx, cid)
		testutil.Then(t, "evaluation is NotFound", func(t *testing.T) {
			assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
		})
	})

	testutil.Given(t, "a candidate with no records", func(t *testing.T) {
		svc := New(candidateSet{cid: true}, resultTable{}, paymentTable{})
		v, err := svc.Evaluate(ctx, cid)
		testutil.Then(t, "every requirement is false and no error is raised", func(t *testing.T) {
			require.NoError(t, err)
			assert.False(t, v.TheoryPassed)
			assert.False(t, v.PracticalPassed)
			assert.False(t, v.PaymentVerified)
			assert.False(t, v.Eligible)
			assert.Equal(t, now, v.EvaluatedAt)
		})
	})

	testutil.Given(t, "both exams passed and a verified payment", func(t *testing.T) {
		pay := &paymentmodels.Payment{ID: id.NewPaymentID(), Status: paymentmodels.StatusVerified}
		svc := New(candidateSet{cid: true},
			resultTable{results: map[exammodels.Kind]*exammodels.ExamResult{
				exammodels.KindTheory:    passed(exammodels.KindTheory),
				exammodels.KindPractical: passed(exammodels.KindPractical),
			}},
			paymentTable{payment: pay})
		v, err := svc.Evaluate(ctx, cid)
		testutil.Then(t, "the candidate is eligible with that payment", func(t *testing.T) {
			require.NoError(t, err)
			assert.True(t, v.Eligible)
			assert.Equal(t, pay.ID, v.PaymentID)
			assert.Empty(t, v.Unmet)
		})
	})

	testutil.Given(t, "a failing result store", func(t *testing.T) {
		svc := New(candidateSet{cid: true}, resultTable{err: errors.New("connection reset")}, paymentTable{})
		_, err := svc.Evaluate(ctx, cid)
		testutil.Then(t, "the error is internal, not a false verdict", func(t *testing.T) {
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
		})
	})

	testutil.Given(t, "a cancelled request", func(t *testing.T) {
		svc := New(candidateSet{cid: true}, resultTable{}, paymentTable{block: true})
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := svc.Evaluate(cancelled, cid)
		testutil.Then(t, "evaluation times out", func(t *testing.T) {
			assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
		})
	})
}
