package common

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string) error
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	GetResponseField(field string) (interface{}, error)
}

// RegisterSteps registers background and assertion steps shared by every feature
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^the pollbooth API is running$`, steps.apiIsRunning)
	ctx.Step(`^I GET "([^"]*)"$`, steps.get)

	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, steps.fieldShouldEqual)
	ctx.Step(`^the response field "([^"]*)" should equal (\d+)$`, steps.fieldShouldEqualNumber)
	ctx.Step(`^the response field "([^"]*)" should be present$`, steps.fieldShouldBePresent)
	ctx.Step(`^the response field "([^"]*)" should not be present$`, steps.fieldShouldNotBePresent)
	ctx.Step(`^the response field "([^"]*)" should have (\d+) items?$`, steps.fieldShouldHaveItems)
	ctx.Step(`^the error code should be "([^"]*)"$`, steps.errorCodeShouldBe)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) apiIsRunning(ctx context.Context) error {
	if err := s.tc.GET("/health"); err != nil {
		return fmt.Errorf("pollbooth API is not reachable: %w", err)
	}
	if status := s.tc.GetLastResponseStatus(); status != 200 {
		return fmt.Errorf("health check returned %d: %s", status, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *commonSteps) get(ctx context.Context, path string) error {
	return s.tc.GET(path)
}

func (s *commonSteps) statusShouldBe(ctx context.Context, expected int) error {
	if actual := s.tc.GetLastResponseStatus(); actual != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, actual, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *commonSteps) fieldShouldEqual(ctx context.Context, field, expected string) error {
	value, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	actual := fmt.Sprint(value)
	if actual != expected {
		return fmt.Errorf("expected %s to be %q, got %q", field, expected, actual)
	}
	return nil
}

func (s *commonSteps) fieldShouldEqualNumber(ctx context.Context, field string, expected int) error {
	value, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	number, ok := value.(float64)
	if !ok {
		return fmt.Errorf("expected %s to be a number, got %T", field, value)
	}
	if int(number) != expected {
		return fmt.Errorf("expected %s to be %d, got %s", field, expected, strconv.FormatFloat(number, 'f', -1, 64))
	}
	return nil
}

func (s *commonSteps) fieldShouldBePresent(ctx context.Context, field string) error {
	value, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if value == nil {
		return fmt.Errorf("expected %s to be set, got null", field)
	}
	return nil
}

func (s *commonSteps) fieldShouldNotBePresent(ctx context.Context, field string) error {
	value, err := s.tc.GetResponseField(field)
	if err == nil && value != nil {
		return fmt.Errorf("expected %s to be absent, got %v", field, value)
	}
	return nil
}

func (s *commonSteps) fieldShouldHaveItems(ctx context.Context, field string, expected int) error {
	value, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	items, ok := value.([]interface{})
	if !ok {
		return fmt.Errorf("expected %s to be an array, got %T", field, value)
	}
	if len(items) != expected {
		return fmt.Errorf("expected %s to have %d items, got %d", field, expected, len(items))
	}
	return nil
}

func (s *commonSteps) errorCodeShouldBe(ctx context.Context, expected string) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &body); err != nil {
		return fmt.Errorf("response is not JSON: %w", err)
	}
	if body.Error != expected {
		return fmt.Errorf("expected error code %q, got %q", expected, body.Error)
	}
	return nil
}
