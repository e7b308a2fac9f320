package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is used when POLLBOOTH_BASE_URL is unset.
const DefaultBaseURL = "http://localhost:8080"

// TestContext carries HTTP state between the steps of one scenario.
type TestContext struct {
	baseURL    string
	client     *http.Client
	lastStatus int
	lastBody   []byte
	sessionID  string
	vars       map[string]string
}

func NewTestContext() *TestContext {
	baseURL := os.Getenv("POLLBOOTH_BASE_URL")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &TestContext{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		vars:    map[string]string{},
	}
}

// Reset clears per-scenario state.
func (tc *TestContext) Reset() {
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.sessionID = ""
	tc.vars = map[string]string{}
}

func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil)
}

func (tc *TestContext) POST(path string, body interface{}) error {
	return tc.do(http.MethodPost, path, body)
}

func (tc *TestContext) DELETE(path string) error {
	return tc.do(http.MethodDelete, path, nil)
}

func (tc *TestContext) do(method, path string, body interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, tc.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	return nil
}

func (tc *TestContext) GetLastResponseStatus() int {
	return tc.lastStatus
}

func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.lastBody
}

// GetResponseField resolves a dotted path such as "session.voter.name"
// against the last JSON response. Numeric segments index into arrays.
func (tc *TestContext) GetResponseField(field string) (interface{}, error) {
	var current interface{}
	if err := json.Unmarshal(tc.lastBody, &current); err != nil {
		return nil, fmt.Errorf("response is not JSON: %w", err)
	}
	for _, part := range strings.Split(field, ".") {
		switch node := current.(type) {
		case map[string]interface{}:
			value, ok := node[part]
			if !ok {
				return nil, fmt.Errorf("field %q not found in response", field)
			}
			current = value
		case []interface{}:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, fmt.Errorf("index %q out of range in %q", part, field)
			}
			current = node[idx]
		default:
			return nil, fmt.Errorf("field %q not found in response", field)
		}
	}
	return current, nil
}

func (tc *TestContext) GetSessionID() string {
	return tc.sessionID
}

func (tc *TestContext) SetSessionID(id string) {
	tc.sessionID = id
}

func (tc *TestContext) Remember(key, value string) {
	tc.vars[key] = value
}

func (tc *TestContext) Recall(key string) (string, bool) {
	value, ok := tc.vars[key]
	return value, ok
}
