package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"licensing/internal/eligibility"
	"licensing/internal/eligibility/handler/mocks"
	id "licensing/pkg/domain"
	dErrors "licensing/pkg/domain-errors"
	"licensing/pkg/testutil"
)

func newRouter(t *testing.T) (*mocks.MockService, chi.Router) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	r := chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return svc, r
}

func TestHandleEvaluate(t *testing.T) {
	t.Run("returns the verdict", func(t *testing.T) {
		svc, router := newRouter(t)
		cid := id.NewCandidateID()
		svc.EXPECT().Evaluate(gomock.Any(), cid).Return(&eligibility.Verdict{
			CandidateID:  cid,
			TheoryPassed: true,
			Unmet:        []eligibility.Requirement{eligibility.RequirementPractical, eligibility.RequirementPayment},
		}, nil)

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/eligibility/"+cid.String()))
		testutil.AssertStatus(t, rr, http.StatusOK)
		body := testutil.UnmarshalResponse[map[string]any](t, rr)
		assert.Equal(t, true, (*body)["theory_passed"])
		assert.Equal(t, false, (*body)["eligible"])
		assert.Len(t, (*body)["unmet"], 2)
	})

	t.Run("unknown candidate", func(t *testing.T) {
		svc, router := newRouter(t)
		cid := id.NewCandidateID()
		svc.EXPECT().Evaluate(gomock.Any(), cid).Return(nil, dErrors.New(dErrors.CodeNotFound, "candidate not found"))
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/eligibility/"+cid.String()))
		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
	})

	t.Run("malformed id", func(t *testing.T) {
		_, router := newRouter(t)
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/eligibility/42"))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
	})
}
