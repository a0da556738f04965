package crmcheck

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/eyedocs/caredesk/internal/server/config"
)

func fakeOrg(t *testing.T, reject bool) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/services/oauth2/token":
			if reject {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{
					"error":             "invalid_grant",
					"error_description": "authentication failure",
				})
				return
			}
			json.NewEncoder(w).Encode(map[string]string{
				"access_token": "tok-1",
				"instance_url": srv.URL,
			})
		case r.URL.Path == "/services/data/v58.0/query":
			json.NewEncoder(w).Encode(map[string]any{"totalSize": 1, "done": true, "records": []any{}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRun_EnvironmentTierConnects(t *testing.T) {
	org := fakeOrg(t, false)

	cfg := &config.Config{
		CRMClientID:     "client-id",
		CRMClientSecret: "client-secret",
		CRMUsername:     "env@example.com",
		CRMPassword:     "pw",
		CRMLoginURL:     org.URL,
	}

	var out bytes.Buffer
	// Empty username keeps the environment tier.
	app := NewApp(cfg, strings.NewReader("\n"), &out)

	if err := app.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !strings.Contains(out.String(), "OK: connected") {
		t.Fatalf("expected success report, got: %s", out.String())
	}
}

func TestRun_PromptedCredentialsRejected(t *testing.T) {
	org := fakeOrg(t, true)

	orig := readPassword
	defer func() { readPassword = orig }()
	readPassword = func(fd int) ([]byte, error) { return []byte("wrong"), nil }

	cfg := &config.Config{
		CRMClientID:     "client-id",
		CRMClientSecret: "client-secret",
		CRMLoginURL:     org.URL,
	}

	var out bytes.Buffer
	// username, sandbox answer, login URL; both secrets come from the stub.
	app := NewApp(cfg, strings.NewReader("typo@example.com\nn\n"+org.URL+"\n"), &out)

	if err := app.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !strings.Contains(out.String(), "FAILED") {
		t.Fatalf("expected failure report, got: %s", out.String())
	}
	if !strings.Contains(out.String(), "simulation") {
		t.Fatalf("failure report should mention the fallback: %s", out.String())
	}
}
