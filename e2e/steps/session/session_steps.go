package session

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string) error
	DELETE(path string) error
	GetResponseField(field string) (interface{}, error)
	GetSessionID() string
	SetSessionID(id string)
	Recall(key string) (string, bool)
}

// RegisterSteps registers steps that drive a server-side verification session
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &sessionSteps{tc: tc}

	ctx.Step(`^officer "([^"]*)" opens a booth session with secret "([^"]*)"$`, steps.openSession)
	ctx.Step(`^I save the session id$`, steps.saveSessionID)
	ctx.Step(`^I start verification$`, steps.startVerification)
	ctx.Step(`^I identify voter "([^"]*)"$`, steps.identifyVoter)
	ctx.Step(`^I submit a face check scoring (\d+)$`, steps.faceCheck)
	ctx.Step(`^I submit a fingerprint check scoring (\d+)$`, steps.fingerprintCheck)
	ctx.Step(`^I go back$`, steps.back)
	ctx.Step(`^I return to the dashboard$`, steps.returnToDashboard)
	ctx.Step(`^I commit a vote for "([^"]*)"$`, steps.commitVote)
	ctx.Step(`^I fetch the session$`, steps.fetch)
	ctx.Step(`^I log out$`, steps.logout)
	ctx.Step(`^the session state should be "([^"]*)"$`, steps.stateShouldBe)
}

type sessionSteps struct {
	tc TestContext
}

func (s *sessionSteps) path(suffix string) string {
	return "/sessions/" + s.tc.GetSessionID() + suffix
}

func (s *sessionSteps) openSession(ctx context.Context, officerID, secret string) error {
	if err := s.tc.POST("/sessions", map[string]interface{}{
		"officerId": officerID,
		"secret":    secret,
	}); err != nil {
		return err
	}
	return s.saveSessionID(ctx)
}

func (s *sessionSteps) saveSessionID(ctx context.Context) error {
	id, err := s.tc.GetResponseField("session.id")
	if err != nil {
		return err
	}
	s.tc.SetSessionID(fmt.Sprint(id))
	return nil
}

func (s *sessionSteps) startVerification(ctx context.Context) error {
	return s.tc.POST(s.path("/start"), nil)
}

func (s *sessionSteps) identifyVoter(ctx context.Context, voterID string) error {
	return s.tc.POST(s.path("/identify"), map[string]interface{}{"voterId": voterID})
}

func (s *sessionSteps) faceCheck(ctx context.Context, score int) error {
	return s.tc.POST(s.path("/face"), map[string]interface{}{"matchScore": score})
}

func (s *sessionSteps) fingerprintCheck(ctx context.Context, score int) error {
	return s.tc.POST(s.path("/fingerprint"), map[string]interface{}{"matchScore": score})
}

func (s *sessionSteps) back(ctx context.Context) error {
	return s.tc.POST(s.path("/back"), nil)
}

func (s *sessionSteps) returnToDashboard(ctx context.Context) error {
	return s.tc.POST(s.path("/dashboard"), nil)
}

// commitVote accepts either a candidate name noted by an earlier step or a
// raw candidate id.
func (s *sessionSteps) commitVote(ctx context.Context, candidate string) error {
	candidateID, ok := s.tc.Recall("candidate:" + candidate)
	if !ok {
		candidateID, ok = s.candidateFromSession(candidate)
	}
	if !ok {
		candidateID = candidate
	}
	return s.tc.POST(s.path("/vote"), map[string]interface{}{"candidateId": candidateID})
}

func (s *sessionSteps) candidateFromSession(name string) (string, bool) {
	value, err := s.tc.GetResponseField("session.candidates")
	if err != nil {
		return "", false
	}
	candidates, ok := value.([]interface{})
	if !ok {
		return "", false
	}
	for _, raw := range candidates {
		candidate, ok := raw.(map[string]interface{})
		if ok && candidate["name"] == name {
			return fmt.Sprint(candidate["id"]), true
		}
	}
	return "", false
}

func (s *sessionSteps) fetch(ctx context.Context) error {
	return s.tc.GET(s.path(""))
}

func (s *sessionSteps) logout(ctx context.Context) error {
	return s.tc.DELETE(s.path(""))
}

func (s *sessionSteps) stateShouldBe(ctx context.Context, expected string) error {
	state, err := s.tc.GetResponseField("session.state")
	if err != nil {
		return err
	}
	if fmt.Sprint(state) != expected {
		return fmt.Errorf("expected session state %q, got %q", expected, state)
	}
	return nil
}
