package licensing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (interface{}, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	GetAccessToken() string
	SetAccessToken(token string)
	Save(name, value string)
	Recall(name string) (string, error)
}

// RegisterSteps registers candidate, exam, payment and license steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &licensingSteps{tc: tc}

	// Candidate side, sent without the admin token
	ctx.Step(`^a candidate "([^"]*)" registers with email "([^"]*)"$`, steps.registerCandidate)
	ctx.Step(`^a candidate "([^"]*)" registers with email "([^"]*)" and photo "([^"]*)"$`, steps.registerCandidateWithPhoto)
	ctx.Step(`^the candidate submits a payment of (\d+)$`, steps.submitPayment)

	// Administrator side
	ctx.Step(`^the candidate scored (\d+) on the (theory|practical) exam$`, steps.recordResult)
	ctx.Step(`^the payment is verified$`, steps.verifyPayment)
	ctx.Step(`^I evaluate the candidate's eligibility$`, steps.evaluate)
	ctx.Step(`^I issue a license for the candidate$`, steps.issue)
	ctx.Step(`^I issue a license using the candidate's payment id$`, steps.issueByPayment)
	ctx.Step(`^I download the candidate's license$`, steps.download)

	ctx.Step(`^the license number should match the first issuance$`, steps.numberMatchesFirst)
	ctx.Step(`^the unmet requirements should include "([^"]*)"$`, steps.unmetShouldInclude)
}

type licensingSteps struct {
	tc TestContext
}

// uniqueEmail keeps reruns against a persistent database from colliding.
func uniqueEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return email
	}
	return fmt.Sprintf("%s+%d@%s", local, time.Now().UnixNano(), domain)
}

// anonymously runs fn without the admin token.
func (s *licensingSteps) anonymously(fn func() error) error {
	token := s.tc.GetAccessToken()
	s.tc.SetAccessToken("")
	defer s.tc.SetAccessToken(token)
	return fn()
}

func (s *licensingSteps) expectStatus(codes ...int) error {
	got := s.tc.GetLastResponseStatus()
	for _, c := range codes {
		if got == c {
			return nil
		}
	}
	return fmt.Errorf("expected status %v, got %d: %s", codes, got, s.tc.GetLastResponseBody())
}

func (s *licensingSteps) saveField(field, name string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	s.tc.Save(name, fmt.Sprint(v))
	return nil
}

func (s *licensingSteps) registerCandidate(ctx context.Context, name, email string) error {
	return s.registerCandidateWithPhoto(ctx, name, email, "")
}

func (s *licensingSteps) registerCandidateWithPhoto(ctx context.Context, name, email, photo string) error {
	return s.anonymously(func() error {
		if err := s.tc.POST("/candidates", map[string]interface{}{
			"full_name": name,
			"email":     uniqueEmail(email),
			"photo_ref": photo,
		}); err != nil {
			return err
		}
		if err := s.expectStatus(201); err != nil {
			return err
		}
		return s.saveField("id", "candidate_id")
	})
}

func (s *licensingSteps) submitPayment(ctx context.Context, amount int) error {
	candidateID, err := s.tc.Recall("candidate_id")
	if err != nil {
		return err
	}
	return s.anonymously(func() error {
		if err := s.tc.POST("/payments", map[string]interface{}{
			"candidate_id": candidateID,
			"amount":       amount,
		}); err != nil {
			return err
		}
		if err := s.expectStatus(201); err != nil {
			return err
		}
		return s.saveField("id", "payment_id")
	})
}

func (s *licensingSteps) recordResult(ctx context.Context, score int, kind string) error {
	candidateID, err := s.tc.Recall("candidate_id")
	if err != nil {
		return err
	}
	if err := s.tc.POST("/exams/results", map[string]interface{}{
		"candidate_id": candidateID,
		"kind":         kind,
		"score":        score,
		"taken_at":     time.Now().UTC().Add(-time.Hour).Format(time.RFC3339),
	}); err != nil {
		return err
	}
	return s.expectStatus(201)
}

func (s *licensingSteps) verifyPayment(ctx context.Context) error {
	paymentID, err := s.tc.Recall("payment_id")
	if err != nil {
		return err
	}
	if err := s.tc.POST("/payments/"+paymentID+"/verify", map[string]interface{}{}); err != nil {
		return err
	}
	return s.expectStatus(200)
}

func (s *licensingSteps) evaluate(ctx context.Context) error {
	candidateID, err := s.tc.Recall("candidate_id")
	if err != nil {
		return err
	}
	return s.tc.GET("/eligibility/"+candidateID, nil)
}

func (s *licensingSteps) issue(ctx context.Context) error {
	candidateID, err := s.tc.Recall("candidate_id")
	if err != nil {
		return err
	}
	return s.issueFor(candidateID)
}

func (s *licensingSteps) issueByPayment(ctx context.Context) error {
	paymentID, err := s.tc.Recall("payment_id")
	if err != nil {
		return err
	}
	return s.issueFor(paymentID)
}

func (s *licensingSteps) issueFor(subject string) error {
	if err := s.tc.POST("/license/issue/"+subject, map[string]interface{}{}); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != 200 && status != 201 {
		return nil
	}
	if _, err := s.tc.Recall("first_number"); err != nil {
		return s.saveField("number", "first_number")
	}
	return nil
}

func (s *licensingSteps) download(ctx context.Context) error {
	candidateID, err := s.tc.Recall("candidate_id")
	if err != nil {
		return err
	}
	return s.tc.GET("/license/download/"+candidateID, nil)
}

func (s *licensingSteps) numberMatchesFirst(ctx context.Context) error {
	first, err := s.tc.Recall("first_number")
	if err != nil {
		return err
	}
	got, err := s.tc.GetResponseField("number")
	if err != nil {
		return err
	}
	if fmt.Sprint(got) != first {
		return fmt.Errorf("expected license number %s, got %v", first, got)
	}
	return nil
}

func (s *licensingSteps) unmetShouldInclude(ctx context.Context, requirement string) error {
	for _, field := range []string{"unmet", "verdict.unmet"} {
		v, err := s.tc.GetResponseField(field)
		if err != nil {
			continue
		}
		list, ok := v.([]interface{})
		if !ok {
			continue
		}
		for _, item := range list {
			if fmt.Sprint(item) == requirement {
				return nil
			}
		}
		return fmt.Errorf("%s not in unmet requirements %v", requirement, list)
	}
	return fmt.Errorf("response has no unmet requirements: %s", s.tc.GetLastResponseBody())
}
