package control

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/flashnote/syncd/internal/localstore"
	"github.com/flashnote/syncd/internal/model"
	"github.com/flashnote/syncd/internal/orchestrator"
	"github.com/flashnote/syncd/internal/syncengine"
	"github.com/rs/zerolog"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	adapter := localstore.New(localstore.NewMemRepository())
	engine := &syncengine.Engine{
		Remote:   &noopTransport{},
		Local:    adapter,
		Cache:    &noopCache{},
		RootPath: "/flashnote/",
		DeviceID: "device-a",
		Log:      zerolog.Nop(),
	}
	orch := orchestrator.New(engine, nil, false, zerolog.Nop())

	secret := "test-secret"
	srv := &Server{Orchestrator: orch, JWTSecret: secret}
	return srv, secret
}

func TestStatusRequiresAuth(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401", resp.StatusCode)
	}
}

func TestStatusWithValidTokenSucceeds(t *testing.T) {
	srv, secret := newTestServer(t)
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	token, err := IssueToken(secret)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/status", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d, want 200", resp.StatusCode)
	}
}

func TestResolveConflictRejectsInvalidResolution(t *testing.T) {
	srv, secret := newTestServer(t)
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	token, _ := IssueToken(secret)
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/conflicts/n1/resolve", strings.NewReader(`{"resolution":"bogus"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST resolve: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", resp.StatusCode)
	}
}

func TestResolveConflictReports404WhenNothingPending(t *testing.T) {
	srv, secret := newTestServer(t)
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	token, _ := IssueToken(secret)
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/conflicts/n1/resolve", strings.NewReader(`{"resolution":"local"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST resolve: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", resp.StatusCode)
	}
}

func TestHealthzBypassesAuth(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d, want 200", resp.StatusCode)
	}
}

type noopTransport struct{}

func (noopTransport) Exists(context.Context, string) (bool, error)              { return false, nil }
func (noopTransport) CreateDirectory(context.Context, string) error             { return nil }
func (noopTransport) UploadText(context.Context, string, string, string) error  { return nil }
func (noopTransport) UploadJSON(context.Context, string, any) error             { return nil }
func (noopTransport) UploadBinary(context.Context, string, []byte) error        { return nil }
func (noopTransport) DownloadText(context.Context, string) (string, error)      { return "", nil }
func (noopTransport) DownloadJSON(context.Context, string, any) error           { return nil }
func (noopTransport) DownloadBinary(context.Context, string) ([]byte, error)    { return nil, nil }
func (noopTransport) Delete(context.Context, string) error                     { return nil }

type noopCache struct{}

func (noopCache) Load(context.Context) (*model.Manifest, error) { return nil, nil }
func (noopCache) Save(context.Context, *model.Manifest) error   { return nil }
func (noopCache) Clear(context.Context) error                   { return nil }
