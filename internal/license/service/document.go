package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"licensing/internal/artifact"
	candidatemodels "licensing/internal/candidate/models"
	"licensing/internal/license/models"
	id "licensing/pkg/domain"
	dErrors "licensing/pkg/domain-errors"
	"licensing/pkg/platform/sentinel"
	"licensing/pkg/requestcontext"
)

// Download renders the candidate's license card. Photo problems degrade to
// the placeholder image and never fail the download.
func (s *Service) Download(ctx context.Context, candidateID id.CandidateID) (*artifact.Document, error) {
	ctx, span := s.tracer.Start(ctx, "license.Download",
		trace.WithAttributes(attribute.String("candidate_id", candidateID.String())))
	defer span.End()

	l, err := s.Get(ctx, candidateID)
	if err != nil {
		return nil, fail(span, err)
	}
	c, err := s.candidates.Get(ctx, candidateID)
	if err != nil {
		return nil, fail(span, err)
	}

	doc, err := s.renderer.Render(l, c, s.fetchPhoto(ctx, c))
	if err != nil {
		return nil, fail(span, err)
	}
	if doc.PhotoPlaceholder && c.PhotoRef != "" && s.logger != nil {
		s.logger.WarnContext(ctx, "license photo unusable, rendered placeholder",
			"request_id", requestcontext.RequestID(ctx),
			"candidate_id", candidateID,
			"photo_ref", c.PhotoRef,
			"error", doc.PhotoError,
		)
	}
	span.SetAttributes(attribute.Bool("photo_placeholder", doc.PhotoPlaceholder))
	s.metrics.IncrementDownload(doc.PhotoPlaceholder)
	return doc, nil
}

func (s *Service) fetchPhoto(ctx context.Context, c *candidatemodels.Candidate) []byte {
	if c.PhotoRef == "" || s.photos == nil {
		return nil
	}
	photo, err := s.photos.Fetch(ctx, c.PhotoRef)
	if err != nil {
		if s.logger != nil && !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "candidate photo fetch failed",
				"request_id", requestcontext.RequestID(ctx),
				"candidate_id", c.ID,
				"error", err,
			)
		}
		return nil
	}
	return photo
}

// Verification is the public answer to a scanned license QR code.
type Verification struct {
	Valid       bool           `json:"valid"`
	Number      string         `json:"number"`
	CandidateID id.CandidateID `json:"candidate_id"`
	Class       models.Class   `json:"class"`
	Status      models.Status  `json:"status"`
	ExpiresAt   time.Time      `json:"expires_at"`
	Signed      bool           `json:"signed"`
}

// Verify checks a QR payload against the stored license.
func (s *Service) Verify(ctx context.Context, payload string) (*Verification, error) {
	p, err := s.renderer.VerifyPayload(payload)
	if err != nil {
		return nil, err
	}
	l, err := s.store.FindByNumber(ctx, p.Number)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "license not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load license")
	}
	if l.CandidateID.String() != p.CandidateID {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "verification payload does not match the license")
	}
	status := l.EffectiveStatus(requestcontext.Now(ctx))
	return &Verification{
		Valid:       status == models.StatusActive,
		Number:      l.Number,
		CandidateID: l.CandidateID,
		Class:       l.Class,
		Status:      status,
		ExpiresAt:   l.ExpiresAt,
		Signed:      p.Signature != "",
	}, nil
}
