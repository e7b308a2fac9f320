package booth

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string) error
	GetResponseField(field string) (interface{}, error)
	Remember(key, value string)
	Recall(key string) (string, bool)
}

// RegisterSteps registers steps for the stateless booth endpoints
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &boothSteps{tc: tc}

	ctx.Step(`^officer "([^"]*)" logs in with secret "([^"]*)"$`, steps.login)
	ctx.Step(`^I look up voter "([^"]*)"$`, steps.lookUpVoter)
	ctx.Step(`^I list candidates for booth "([^"]*)"$`, steps.listCandidates)
	ctx.Step(`^I note the id of candidate "([^"]*)"$`, steps.noteCandidate)
	ctx.Step(`^officer "([^"]*)" at booth "([^"]*)" submits a vote for voter "([^"]*)" choosing "([^"]*)" with scores (\d+) and (\d+)$`, steps.submitVote)
	ctx.Step(`^I request dashboard stats for booth "([^"]*)"$`, steps.dashboardStats)
	ctx.Step(`^I request dashboard activity for booth "([^"]*)"$`, steps.dashboardActivity)
}

type boothSteps struct {
	tc TestContext
}

func (s *boothSteps) login(ctx context.Context, officerID, secret string) error {
	return s.tc.POST("/auth/login", map[string]interface{}{
		"officerId": officerID,
		"secret":    secret,
	})
}

func (s *boothSteps) lookUpVoter(ctx context.Context, voterID string) error {
	return s.tc.GET("/voters/" + voterID)
}

func (s *boothSteps) listCandidates(ctx context.Context, boothID string) error {
	return s.tc.GET("/candidates?boothId=" + boothID)
}

// noteCandidate remembers a candidate id from the last candidate listing so
// later steps can refer to the candidate by name.
func (s *boothSteps) noteCandidate(ctx context.Context, name string) error {
	value, err := s.tc.GetResponseField("candidates")
	if err != nil {
		return err
	}
	candidates, ok := value.([]interface{})
	if !ok {
		return fmt.Errorf("candidates is not an array")
	}
	for _, raw := range candidates {
		candidate, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if candidate["name"] == name {
			s.tc.Remember("candidate:"+name, fmt.Sprint(candidate["id"]))
			return nil
		}
	}
	return fmt.Errorf("candidate %q not listed", name)
}

func (s *boothSteps) submitVote(ctx context.Context, officerID, boothID, voterID, candidate string, face, fingerprint int) error {
	candidateID, ok := s.tc.Recall("candidate:" + candidate)
	if !ok {
		candidateID = candidate
	}
	return s.tc.POST("/votes", map[string]interface{}{
		"voterId":               voterID,
		"candidateId":           candidateID,
		"officerId":             officerID,
		"boothId":               boothID,
		"faceMatchScore":        face,
		"fingerprintMatchScore": fingerprint,
	})
}

func (s *boothSteps) dashboardStats(ctx context.Context, boothID string) error {
	return s.tc.GET("/dashboard/stats?boothId=" + boothID)
}

func (s *boothSteps) dashboardActivity(ctx context.Context, boothID string) error {
	return s.tc.GET("/dashboard/activity?boothId=" + boothID)
}
