package e2e

import (
	"github.com/cucumber/godog"

	"pollbooth/e2e/steps/booth"
	"pollbooth/e2e/steps/common"
	"pollbooth/e2e/steps/session"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Background, generic requests and response assertions
	common.RegisterSteps(ctx, tc)

	// Stateless booth endpoints
	booth.RegisterSteps(ctx, tc)

	// Server-side verification sessions
	session.RegisterSteps(ctx, tc)
}
