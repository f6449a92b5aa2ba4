package e2e

import (
	"github.com/cucumber/godog"

	"licensing/e2e/steps/common"
	"licensing/e2e/steps/licensing"
	"licensing/e2e/steps/ratelimit"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (background, sign-in, assertions)
	common.RegisterSteps(ctx, tc)

	// Register candidate, exam, payment and license steps
	licensing.RegisterSteps(ctx, tc)

	// Register write rate limiting steps
	ratelimit.RegisterSteps(ctx, tc)
}
