package ratelimit

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POSTWithHeaders(path string, body interface{}, headers map[string]string) error
	GET(path string, headers map[string]string) error
	GetLastResponseStatus() int
	GetLastResponseHeader(name string) string
}

// RegisterSteps registers rate-limiting step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ratelimitSteps{tc: tc}

	ctx.Step(`^I am calling from IP "([^"]*)"$`, steps.callingFromIP)
	ctx.Step(`^I send (\d+) candidate registrations$`, steps.sendRegistrations)
	ctx.Step(`^at least one registration should be rate limited$`, steps.someRegistrationLimited)
	ctx.Step(`^the limited response should carry a Retry-After header$`, steps.limitedHasRetryAfter)
	ctx.Step(`^reads from the same IP should still succeed$`, steps.readsStillSucceed)
}

type ratelimitSteps struct {
	tc TestContext
	// State for tracking across steps
	ip         string
	limited    int
	retryAfter string
}

func (s *ratelimitSteps) headers() map[string]string {
	return map[string]string{"X-Forwarded-For": s.ip}
}

func (s *ratelimitSteps) callingFromIP(ctx context.Context, ip string) error {
	s.ip = ip
	return nil
}

// sendRegistrations posts invalid bodies so no candidates are created; the
// limiter counts the request before validation runs.
func (s *ratelimitSteps) sendRegistrations(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		if err := s.tc.POSTWithHeaders("/candidates", map[string]interface{}{"email": "not-an-address"}, s.headers()); err != nil {
			return err
		}
		if s.tc.GetLastResponseStatus() == 429 {
			s.limited++
			s.retryAfter = s.tc.GetLastResponseHeader("Retry-After")
		}
	}
	return nil
}

func (s *ratelimitSteps) someRegistrationLimited(ctx context.Context) error {
	if s.limited == 0 {
		return fmt.Errorf("no request from %s was rate limited", s.ip)
	}
	return nil
}

func (s *ratelimitSteps) limitedHasRetryAfter(ctx context.Context) error {
	if s.retryAfter == "" {
		return fmt.Errorf("rate limited response had no Retry-After header")
	}
	return nil
}

func (s *ratelimitSteps) readsStillSucceed(ctx context.Context) error {
	if err := s.tc.GET("/health", s.headers()); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != 200 {
		return fmt.Errorf("expected reads to succeed, got %d", status)
	}
	return nil
}
