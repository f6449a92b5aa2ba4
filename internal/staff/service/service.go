package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"licensing/internal/staff/models"
	"licensing/internal/staff/secrets"
	id "licensing/pkg/domain"
	dErrors "licensing/pkg/domain-errors"
	"licensing/pkg/email"
	"licensing/pkg/platform/sentinel"
	"licensing/pkg/requestcontext"
)

type Store interface {
	CreateIfEmailAvailable(ctx context.Context, st *models.Staff) error
	FindByID(ctx context.Context, staffID id.StaffID) (*models.Staff, error)
	FindByEmail(ctx context.Context, email string) (*models.Staff, error)
}

// TokenIssuer mints access tokens for authenticated staff.
type TokenIssuer interface {
	GenerateAccessToken(subject, role string, expiresIn time.Duration) (string, time.Time, error)
}

// Token is the result of a successful login.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
	StaffID     id.StaffID
	Role        models.Role
}

// Service resolves admin and examiner ids and authenticates staff.
type Service struct {
	store    Store
	tokens   TokenIssuer
	tokenTTL time.Duration
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTokenIssuer(tokens TokenIssuer, ttl time.Duration) Option {
	return func(s *Service) {
		s.tokens = tokens
		s.tokenTTL = ttl
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, tokenTTL: 8 * time.Hour}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest describes a new staff account.
type CreateRequest struct {
	Email    string
	Name     string
	Role     string
	Password string
}

// Create registers a staff member. Duplicate emails are a Conflict.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Staff, error) {
	role, err := models.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}
	addr, err := email.Normalize(req.Email)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, err.Error())
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "name is required")
	}
	hash, err := secrets.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	st := &models.Staff{
		ID:           id.NewStaffID(),
		Email:        addr,
		Name:         name,
		Role:         role,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    requestcontext.Now(ctx).UTC(),
	}
	if err := s.store.CreateIfEmailAvailable(ctx, st); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "staff email is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create staff")
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "staff created",
			"staff_id", st.ID,
			"role", st.Role,
		)
	}
	return st, nil
}

// Authorize resolves staffID and requires an active member holding role.
// Unknown, inactive and wrong-role ids are all Unauthorized.
func (s *Service) Authorize(ctx context.Context, staffID id.StaffID, role models.Role) (*models.Staff, error) {
	st, err := s.store.FindByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "unknown "+string(role))
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load staff")
	}
	if !st.Can(role) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "staff member is not an active "+string(role))
	}
	return st, nil
}

// Login verifies credentials and issues an access token.
func (s *Service) Login(ctx context.Context, addr, password string) (*Token, error) {
	if s.tokens == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "token issuing is not configured")
	}
	st, err := s.store.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(addr)))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load staff")
	}
	if err := secrets.Verify(password, st.PasswordHash); err != nil {
		return nil, err
	}
	if !st.Active {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "account is disabled")
	}
	tok, expiresAt, err := s.tokens.GenerateAccessToken(st.ID.String(), string(st.Role), s.tokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}
	return &Token{AccessToken: tok, ExpiresAt: expiresAt, StaffID: st.ID, Role: st.Role}, nil
}
