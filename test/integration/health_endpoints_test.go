package integration

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestHealthEndpoints(t *testing.T) {
	e := newAdminTestServer(t)

	resp, err := e.client.Get(e.baseURL + "/health/live")
	if err != nil {
		t.Fatalf("live: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("live: expected 200, got %d", resp.StatusCode)
	}

	resp, env := doJSON(t, e.client, http.MethodGet, e.baseURL+"/health/ready", nil, nil)
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("ready: %d %s", resp.StatusCode, env.Error.Message)
	}
	var ready struct {
		Status string `json:"status"`
		Checks []struct {
			Name    string `json:"name"`
			Healthy bool   `json:"healthy"`
		} `json:"checks"`
	}
	if err := json.Unmarshal(env.Data, &ready); err != nil {
		t.Fatalf("decode readiness: %v", err)
	}
	if len(ready.Checks) != 2 {
		t.Fatalf("expected redis and database checks, got %+v", ready.Checks)
	}
}

func TestReadinessFailsWhenRedisIsDown(t *testing.T) {
	e := newAdminTestServer(t)

	e.redis.Close()
	resp, env := doJSON(t, e.client, http.MethodGet, e.baseURL+"/health/ready", nil, nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 with redis down, got %d", resp.StatusCode)
	}
	if env.Error.Code != "DEPENDENCY_UNREADY" {
		t.Fatalf("unexpected error code %q", env.Error.Code)
	}
}
