package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"licensing/internal/artifact"
	candidatemodels "licensing/internal/candidate/models"
	candidateservice "licensing/internal/candidate/service"
	candidatestore "licensing/internal/candidate/store"
	"licensing/internal/eligibility"
	exammodels "licensing/internal/exam/models"
	examservice "licensing/internal/exam/service"
	examstore "licensing/internal/exam/store"
	"licensing/internal/license/models"
	"licensing/internal/license/store"
	"licensing/internal/notification"
	notificationstore "licensing/internal/notification/store"
	paymentmodels "licensing/internal/payment/models"
	paymentservice "licensing/internal/payment/service"
	paymentstore "licensing/internal/payment/store"
	"licensing/internal/photo"
	staffmodels "licensing/internal/staff/models"
	id "licensing/pkg/domain"
	dErrors "licensing/pkg/domain-errors"
	"licensing/pkg/platform/sentinel"
	"licensing/pkg/platform/tx"
	"licensing/pkg/requestcontext"
)

type staffDirectory map[id.StaffID]staffmodels.Role

func (d staffDirectory) Authorize(_ context.Context, staffID id.StaffID, role staffmodels.Role) (*staffmodels.Staff, error) {
	if d[staffID] != role {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "staff member is not an active "+string(role))
	}
	return &staffmodels.Staff{ID: staffID, Role: role, Active: true}, nil
}

type failingPhotos struct{}

func (failingPhotos) Fetch(context.Context, string) ([]byte, error) {
	return nil, errors.New("dial tcp: no route to host")
}

// LicensePipelineSuite wires the real in-memory candidate, exam, payment and
// eligibility services behind the license service.
type LicensePipelineSuite struct {
	suite.Suite
	ctx        context.Context
	now        time.Time
	runner     *tx.ShardedRunner
	candidates *candidateservice.Service
	exams      *examservice.Service
	payments   *paymentservice.Service
	store      *store.InMemory
	outbox     *notificationstore.InMemory
	staff      staffDirectory
	admin      id.StaffID
	examiner   id.StaffID
	svc        *Service
}

func TestLicensePipelineSuite(t *testing.T) {
	suite.Run(t, new(LicensePipelineSuite))
}

func (s *LicensePipelineSuite) SetupTest() {
	s.now = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.admin = id.NewStaffID()
	s.examiner = id.NewStaffID()
	s.staff = staffDirectory{s.admin: staffmodels.RoleAdmin, s.examiner: staffmodels.RoleExaminer}
	s.runner = tx.NewShardedRunner(time.Second)
	s.outbox = notificationstore.NewInMemory()
	events := notification.NewOutbox(s.outbox)

	s.candidates = candidateservice.New(candidatestore.NewInMemory())
	s.exams = examservice.New(examstore.NewInMemory(), s.runner, s.candidates, s.staff)
	s.payments = paymentservice.New(paymentstore.NewInMemory(), s.runner, s.candidates, s.staff,
		paymentservice.WithEvents(events))
	evaluator := eligibility.New(s.candidates, s.exams, s.payments)

	s.store = store.NewInMemory()
	s.svc = New(s.store, s.runner, s.candidates, s.staff, evaluator, s.payments,
		WithEvents(events),
		WithRenderer(artifact.NewRenderer("Driver Licensing Authority", []byte("qr-key"))),
		WithConfig(Config{Jurisdiction: "JKT", ValidityYears: 10, InitialPoints: 12, DefaultClass: "B", NumberAttempts: 5}),
	)
}

func (s *LicensePipelineSuite) candidate(email string) *candidatemodels.Candidate {
	c, err := s.candidates.Register(s.ctx, candidatemodels.Registration{
		FullName: "Dewi Lestari",
		Email:    email,
		PhotoRef: "https://photos.example/" + email + ".jpg",
	})
	s.Require().NoError(err)
	return c
}

func (s *LicensePipelineSuite) result(cid id.CandidateID, kind exammodels.Kind, score int) {
	_, err := s.exams.RecordResult(s.ctx, s.admin, examservice.RecordRequest{
		CandidateID: cid,
		Kind:        kind,
		Score:       score,
		TakenAt:     s.now.Add(-24 * time.Hour),
	})
	s.Require().NoError(err)
}

func (s *LicensePipelineSuite) payment(ctx context.Context, cid id.CandidateID, verify bool) *paymentmodels.Payment {
	p, err := s.payments.Submit(ctx, paymentservice.SubmitRequest{CandidateID: cid, Amount: 300000})
	s.Require().NoError(err)
	if !verify {
		return p
	}
	p, err = s.payments.Verify(ctx, p.ID, s.admin)
	s.Require().NoError(err)
	return p
}

func (s *LicensePipelineSuite) eligibleCandidate(email string) (*candidatemodels.Candidate, *paymentmodels.Payment) {
	c := s.candidate(email)
	s.result(c.ID, exammodels.KindTheory, 80)
	s.result(c.ID, exammodels.KindPractical, 86)
	return c, s.payment(s.ctx, c.ID, true)
}

func (s *LicensePipelineSuite) issue(cid id.CandidateID) (*IssueResult, error) {
	return s.svc.Issue(s.ctx, IssueRequest{CandidateID: cid, AdminID: s.admin, AdminNotes: "walk-in"})
}

func (s *LicensePipelineSuite) eventsOf(eventType notification.EventType) int {
	n := 0
	for _, e := range s.outbox.All() {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

func (s *LicensePipelineSuite) TestTheoryPassedWithoutPracticalIsNotEligible() {
	c := s.candidate("theory-only@example.com")
	s.result(c.ID, exammodels.KindTheory, 60)
	s.payment(s.ctx, c.ID, true)

	_, err := s.issue(c.ID)
	s.Require().True(dErrors.HasCode(err, dErrors.CodeNotEligible), "got %v", err)

	de, ok := dErrors.As(err)
	s.Require().True(ok)
	verdict, ok := de.Details.(*eligibility.Verdict)
	s.Require().True(ok)
	s.True(verdict.TheoryPassed)
	s.False(verdict.PracticalPassed)
	s.True(verdict.PaymentVerified)
	s.False(verdict.Eligible)
	s.Contains(de.Message, string(eligibility.RequirementPractical))
}

func (s *LicensePipelineSuite) TestPendingPaymentIsNotEligible() {
	c := s.candidate("pending@example.com")
	s.result(c.ID, exammodels.KindTheory, 70)
	s.result(c.ID, exammodels.KindPractical, 55)
	s.payment(s.ctx, c.ID, false)

	_, err := s.issue(c.ID)
	de, ok := dErrors.As(err)
	s.Require().True(ok)
	s.Equal(dErrors.CodeNotEligible, de.Code)
	verdict := de.Details.(*eligibility.Verdict)
	s.True(verdict.TheoryPassed)
	s.True(verdict.PracticalPassed)
	s.False(verdict.PaymentVerified)
	s.False(verdict.Eligible)
}

func (s *LicensePipelineSuite) TestIssueTwiceReturnsTheSameLicense() {
	c, p := s.eligibleCandidate("twice@example.com")

	first, err := s.issue(c.ID)
	s.Require().NoError(err)
	s.True(first.WasCreated)
	s.True(models.ValidNumber(first.License.Number))
	s.Contains(first.License.Number, "DL-JKT-2025-")
	s.Equal(models.Class("B"), first.License.Class)
	s.Equal(12, first.License.Points)
	s.Equal(p.ID, first.License.PaymentID)
	s.Equal(s.now, first.License.IssuedAt)
	s.Equal(s.now.AddDate(10, 0, 0), first.License.ExpiresAt)
	s.Equal("walk-in", first.License.AdminNotes)

	second, err := s.issue(c.ID)
	s.Require().NoError(err)
	s.False(second.WasCreated)
	s.Equal(first.License.Number, second.License.Number)
	s.Equal(first.License.ID, second.License.ID)

	stored, err := s.payments.Get(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(first.License.ID, stored.ConsumedByLicense)
	s.Equal(1, s.eventsOf(notification.EventLicenseIssued))
}

func (s *LicensePipelineSuite) TestOnlyAdminsIssue() {
	c, _ := s.eligibleCandidate("staff@example.com")

	_, err := s.svc.Issue(s.ctx, IssueRequest{CandidateID: c.ID, AdminID: s.examiner})
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = s.svc.Issue(s.ctx, IssueRequest{CandidateID: c.ID, AdminID: s.admin, Class: "Z"})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.svc.Get(s.ctx, c.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *LicensePipelineSuite) TestConcurrentIssuePersistsOneLicense() {
	c, _ := s.eligibleCandidate("race@example.com")

	const callers = 24
	var wg sync.WaitGroup
	results := make([]*IssueResult, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.issue(c.ID)
		}(i)
	}
	wg.Wait()

	created := 0
	for i := range callers {
		s.Require().NoError(errs[i])
		if results[i].WasCreated {
			created++
		}
		s.Equal(results[0].License.Number, results[i].License.Number)
	}
	s.Equal(1, created)

	n, err := s.store.CountActive(s.ctx, s.now)
	s.Require().NoError(err)
	s.Equal(1, n)
	s.Equal(1, s.eventsOf(notification.EventLicenseIssued))
}

func (s *LicensePipelineSuite) TestConsumedPaymentCannotFundAnotherLicense() {
	a, pa := s.eligibleCandidate("a@example.com")
	first, err := s.issue(a.ID)
	s.Require().NoError(err)

	s.Run("not for another candidate", func() {
		b := s.candidate("b@example.com")
		err := s.payments.ConsumeIfVerified(s.ctx, pa.ID, b.ID, id.NewLicenseID(), s.now)
		s.ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("not for a second license of the same candidate", func() {
		_, err := s.svc.Revoke(s.ctx, first.License.ID, s.admin, "issued in error")
		s.Require().NoError(err)

		_, err = s.issue(a.ID)
		de, ok := dErrors.As(err)
		s.Require().True(ok)
		s.Equal(dErrors.CodeNotEligible, de.Code)
		s.False(de.Details.(*eligibility.Verdict).PaymentVerified)
	})
}

func (s *LicensePipelineSuite) TestNumberCollisionsAreRetried() {
	taken, _ := s.eligibleCandidate("first@example.com")
	first, err := s.issue(taken.ID)
	s.Require().NoError(err)

	collisions := 2
	s.svc.numbers = func(jurisdiction string, year int) (string, error) {
		if collisions > 0 {
			collisions--
			return first.License.Number, nil
		}
		return models.FormatNumber(jurisdiction, year, 7), nil
	}

	c, p := s.eligibleCandidate("second@example.com")
	res, err := s.issue(c.ID)
	s.Require().NoError(err)
	s.True(res.WasCreated)
	s.Equal("DL-JKT-2025-00000007", res.License.Number)

	stored, err := s.payments.Get(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(res.License.ID, stored.ConsumedByLicense)
}

func (s *LicensePipelineSuite) TestExhaustedNumberAttemptsRollBack() {
	taken, _ := s.eligibleCandidate("holder@example.com")
	first, err := s.issue(taken.ID)
	s.Require().NoError(err)

	s.svc.numbers = func(string, int) (string, error) { return first.License.Number, nil }

	c, p := s.eligibleCandidate("unlucky@example.com")
	_, err = s.issue(c.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	stored, err := s.payments.Get(s.ctx, p.ID)
	s.Require().NoError(err)
	s.True(stored.Usable(), "the payment is released when issuance rolls back")
	s.Equal(1, s.eventsOf(notification.EventLicenseIssued))
}

func (s *LicensePipelineSuite) TestExpiredLicenseIsRenewed() {
	c, _ := s.eligibleCandidate("renew@example.com")
	first, err := s.issue(c.ID)
	s.Require().NoError(err)

	later := requestcontext.WithTime(context.Background(), first.License.ExpiresAt.Add(time.Hour))
	current, err := s.svc.Get(later, c.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusExpired, current.Status)

	_, err = s.svc.Issue(later, IssueRequest{CandidateID: c.ID, AdminID: s.admin})
	s.True(dErrors.HasCode(err, dErrors.CodeNotEligible), "the first payment is consumed")

	s.payment(later, c.ID, true)
	renewed, err := s.svc.Issue(later, IssueRequest{CandidateID: c.ID, AdminID: s.admin})
	s.Require().NoError(err)
	s.True(renewed.WasCreated)
	s.NotEqual(first.License.ID, renewed.License.ID)

	old, err := s.store.FindByID(s.ctx, first.License.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusExpired, old.Status)
}

func (s *LicensePipelineSuite) TestRevoke() {
	c, _ := s.eligibleCandidate("revoke@example.com")
	issued, err := s.issue(c.ID)
	s.Require().NoError(err)

	_, err = s.svc.Revoke(s.ctx, issued.License.ID, s.examiner, "fraud")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	_, err = s.svc.Revoke(s.ctx, id.NewLicenseID(), s.admin, "fraud")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	revoked, err := s.svc.Revoke(s.ctx, issued.License.ID, s.admin, "fraud")
	s.Require().NoError(err)
	s.Equal(models.StatusRevoked, revoked.Status)
	s.Equal(1, s.eventsOf(notification.EventLicenseRevoked))

	_, err = s.svc.Revoke(s.ctx, issued.License.ID, s.admin, "again")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	got, err := s.svc.Get(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusRevoked, got.Status)
}

func (s *LicensePipelineSuite) TestResolveCandidate() {
	c, p := s.eligibleCandidate("resolve@example.com")

	got, err := s.svc.ResolveCandidate(s.ctx, c.ID.String())
	s.Require().NoError(err)
	s.Equal(c.ID, got)

	got, err = s.svc.ResolveCandidate(s.ctx, p.ID.String())
	s.Require().NoError(err)
	s.Equal(c.ID, got)

	_, err = s.svc.ResolveCandidate(s.ctx, id.NewCandidateID().String())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	_, err = s.svc.ResolveCandidate(s.ctx, "nope")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *LicensePipelineSuite) TestDownloadWithUnreachablePhoto() {
	s.svc.photos = failingPhotos{}
	c, _ := s.eligibleCandidate("download@example.com")
	issued, err := s.issue(c.ID)
	s.Require().NoError(err)

	doc, err := s.svc.Download(s.ctx, c.ID)
	s.Require().NoError(err)
	s.True(doc.PhotoPlaceholder)
	s.Contains(string(doc.Body), "Dewi Lestari")
	s.Contains(string(doc.Body), issued.License.Number)

	_, err = s.svc.Download(s.ctx, id.NewCandidateID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *LicensePipelineSuite) TestVerifyPayload() {
	c, _ := s.eligibleCandidate("verify@example.com")
	issued, err := s.issue(c.ID)
	s.Require().NoError(err)

	payload, err := artifact.NewSigner([]byte("qr-key")).Sign(issued.License.Number, c.ID.String())
	s.Require().NoError(err)

	v, err := s.svc.Verify(s.ctx, payload)
	s.Require().NoError(err)
	s.True(v.Valid)
	s.True(v.Signed)
	s.Equal(models.StatusActive, v.Status)

	forged, err := artifact.NewSigner([]byte("other-key")).Sign(issued.License.Number, c.ID.String())
	s.Require().NoError(err)
	_, err = s.svc.Verify(s.ctx, forged)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *LicensePipelineSuite) TestDownloadDoesNotFetchInternalPhotoHosts() {
	var hits atomic.Int32
	internal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("internal-admin-secret"))
	}))
	defer internal.Close()

	s.svc.photos = photo.Router{HTTP: photo.NewHTTPSource(time.Second, 1<<20)}
	c, _ := s.eligibleCandidate("internal-photo@example.com")
	_, err := s.candidates.UpdatePhoto(s.ctx, c.ID, internal.URL+"/internal/admin")
	s.Require().NoError(err)
	_, err = s.issue(c.ID)
	s.Require().NoError(err)

	doc, err := s.svc.Download(s.ctx, c.ID)
	s.Require().NoError(err)
	s.True(doc.PhotoPlaceholder)
	s.NotContains(string(doc.Body), "internal-admin-secret")
	s.Zero(hits.Load())
}
