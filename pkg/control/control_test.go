package control

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/openclaw/voicehub/pkg/agent"
)

type stubReporter struct {
	state agent.State
}

func (s *stubReporter) State() agent.State { return s.state }

func newTestServer(t *testing.T, state agent.State) (*Server, *agent.ChanTrigger) {
	t.Helper()
	trigger := agent.NewChanTrigger()
	t.Cleanup(func() { trigger.Close() })
	s := NewServer(Config{}, &stubReporter{state: state}, trigger, nil, nil)
	return s, trigger
}

func decodeBody(t *testing.T, s *Server, method, path string) map[string]any {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("%s %s status = %d", method, path, resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return body
}

func TestActivateFiresTrigger(t *testing.T) {
	s, trigger := newTestServer(t, agent.Idle)

	body := decodeBody(t, s, "POST", "/activate")
	if body["status"] != "activated" {
		t.Errorf("status = %v", body["status"])
	}

	select {
	case <-trigger.Events():
	default:
		t.Error("POST /activate must fire the trigger")
	}
}

func TestStateEndpoint(t *testing.T) {
	s, _ := newTestServer(t, agent.Speaking)

	body := decodeBody(t, s, "GET", "/state")
	if body["state"] != "speaking" {
		t.Errorf("state = %v, want speaking", body["state"])
	}
	if _, ok := body["uptime"]; !ok {
		t.Error("state response missing uptime")
	}
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, agent.Idle)

	body := decodeBody(t, s, "GET", "/healthz")
	if body["status"] != "ok" {
		t.Errorf("status = %v", body["status"])
	}
}
