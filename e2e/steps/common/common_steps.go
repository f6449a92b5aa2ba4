package common

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (interface{}, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	GetLastResponseHeader(name string) string
	SetAccessToken(token string)
}

// RegisterSteps registers background, sign-in and assertion steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^the licensing service is running$`, steps.serviceIsRunning)
	ctx.Step(`^I am signed in as the administrator$`, steps.signInAsAdministrator)
	ctx.Step(`^I am not signed in$`, steps.signOut)

	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.responseFieldShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be (true|false)$`, steps.responseFieldShouldBeBool)
	ctx.Step(`^the response header "([^"]*)" should contain "([^"]*)"$`, steps.responseHeaderShouldContain)
	ctx.Step(`^the response body should contain "([^"]*)"$`, steps.responseBodyShouldContain)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) serviceIsRunning(ctx context.Context) error {
	if err := s.tc.GET("/health", nil); err != nil {
		return err
	}
	return s.responseStatusShouldBe(ctx, 200)
}

// signInAsAdministrator logs in with the bootstrap admin the server was
// started with (BOOTSTRAP_ADMIN_EMAIL / BOOTSTRAP_ADMIN_PASSWORD).
func (s *commonSteps) signInAsAdministrator(ctx context.Context) error {
	email := os.Getenv("E2E_ADMIN_EMAIL")
	password := os.Getenv("E2E_ADMIN_PASSWORD")
	if email == "" || password == "" {
		return fmt.Errorf("E2E_ADMIN_EMAIL and E2E_ADMIN_PASSWORD must be set")
	}
	if err := s.tc.POST("/auth/token", map[string]interface{}{
		"email":    email,
		"password": password,
	}); err != nil {
		return err
	}
	if err := s.responseStatusShouldBe(ctx, 200); err != nil {
		return err
	}
	token, err := s.tc.GetResponseField("access_token")
	if err != nil {
		return err
	}
	s.tc.SetAccessToken(token.(string))
	return nil
}

func (s *commonSteps) signOut(ctx context.Context) error {
	s.tc.SetAccessToken("")
	return nil
}

func (s *commonSteps) responseStatusShouldBe(ctx context.Context, expected int) error {
	if got := s.tc.GetLastResponseStatus(); got != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, got, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *commonSteps) responseFieldShouldBe(ctx context.Context, field, expected string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != expected {
		return fmt.Errorf("expected %s to be %q, got %q", field, expected, got)
	}
	return nil
}

func (s *commonSteps) responseFieldShouldBeBool(ctx context.Context, field, expected string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	b, ok := v.(bool)
	if !ok {
		return fmt.Errorf("expected %s to be a boolean, got %v", field, v)
	}
	if want := expected == "true"; b != want {
		return fmt.Errorf("expected %s to be %s, got %t", field, expected, b)
	}
	return nil
}

func (s *commonSteps) responseHeaderShouldContain(ctx context.Context, name, expected string) error {
	if got := s.tc.GetLastResponseHeader(name); !strings.Contains(got, expected) {
		return fmt.Errorf("expected header %s to contain %q, got %q", name, expected, got)
	}
	return nil
}

func (s *commonSteps) responseBodyShouldContain(ctx context.Context, expected string) error {
	if !strings.Contains(string(s.tc.GetLastResponseBody()), expected) {
		return fmt.Errorf("expected body to contain %q", expected)
	}
	return nil
}
