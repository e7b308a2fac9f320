package e2e

import (
	"context"
	"os"
	"testing"

	"github.com/cucumber/godog"
	"github.com/cucumber/godog/colors"
)

var opts = godog.Options{
	Output: colors.Colored(os.Stdout),
	Format: "pretty",
	Paths:  []string{"features"},
	Strict: true,
}

func init() {
	godog.BindCommandLineFlags("godog.", &opts)
}

// TestFeatures runs the booth scenarios against a live server seeded with
// the demo data. Each run needs a fresh server since votes are one-shot.
func TestFeatures(t *testing.T) {
	if os.Getenv("POLLBOOTH_BASE_URL") == "" && os.Getenv("POLLBOOTH_E2E") == "" {
		t.Skip("set POLLBOOTH_BASE_URL or POLLBOOTH_E2E to run end-to-end scenarios")
	}

	suite := godog.TestSuite{
		Name:                "pollbooth",
		ScenarioInitializer: InitializeScenario,
		Options:             &opts,
	}
	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := NewTestContext()
	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.Reset()
		return ctx, nil
	})
	RegisterSteps(ctx, tc)
}
