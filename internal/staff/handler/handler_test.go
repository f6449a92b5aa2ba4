package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	"licensing/internal/staff/handler/mocks"
	"licensing/internal/staff/models"
	staffservice "licensing/internal/staff/service"
	id "licensing/pkg/domain"
	dErrors "licensing/pkg/domain-errors"
	"licensing/pkg/testutil"
)

func newRouter(t *testing.T) (chi.Router, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	r := chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r, svc
}

func TestHandleToken(t *testing.T) {
	testutil.Given(t, "valid credentials", func(t *testing.T) {
		r, svc := newRouter(t)
		staffID := id.NewStaffID()
		svc.EXPECT().Login(gomock.Any(), "admin@dmv.test", "pw").Return(&staffservice.Token{
			AccessToken: "tok",
			ExpiresAt:   time.Now().Add(time.Hour),
			StaffID:     staffID,
			Role:        models.RoleAdmin,
		}, nil)

		rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/auth/token",
			map[string]string{"email": "admin@dmv.test", "password": "pw"}))
		testutil.Then(t, "a bearer token is returned", func(t *testing.T) {
			testutil.AssertStatus(t, rr, http.StatusOK)
			testutil.AssertJSONContains(t, rr, "token_type", "Bearer")
			testutil.AssertJSONContains(t, rr, "staff_id", staffID.String())
		})
	})

	testutil.Given(t, "wrong credentials", func(t *testing.T) {
		r, svc := newRouter(t)
		svc.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials"))
		rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/auth/token",
			map[string]string{"email": "admin@dmv.test", "password": "nope"}))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	testutil.Given(t, "a missing password", func(t *testing.T) {
		r, _ := newRouter(t)
		rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/auth/token",
			map[string]string{"email": "admin@dmv.test"}))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})
}
