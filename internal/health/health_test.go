package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func ready(ctx context.Context) error { return nil }

func down(msg string) func(context.Context) error {
	return func(ctx context.Context) error { return errors.New(msg) }
}

func probe(t *testing.T, serve func(http.ResponseWriter, *http.Request), path string) (*httptest.ResponseRecorder, result) {
	t.Helper()
	rec := httptest.NewRecorder()
	serve(rec, httptest.NewRequest("GET", path, nil))
	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s body: %v", path, err)
	}
	return rec, body
}

func TestHealthzAlwaysAlive(t *testing.T) {
	// Liveness only says the process serves HTTP; a dead attempt store
	// must not get the session restarted.
	h := New(Checker{Name: "store", Check: down("store gone")})

	rec, body := probe(t, h.Healthz, "/healthz")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 regardless of checkers", rec.Code)
	}
	if body.Status != "ok" {
		t.Errorf("body status = %q, want ok", body.Status)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestReadyzReportsEachDependency(t *testing.T) {
	h := New(
		Checker{Name: "store", Check: ready},
		Checker{Name: "tts", Check: ready},
	)

	rec, body := probe(t, h.Readyz, "/readyz")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if body.Status != "ok" {
		t.Errorf("body status = %q, want ok", body.Status)
	}
	for _, name := range []string{"store", "tts"} {
		if body.Checks[name] != "ok" {
			t.Errorf("%s check = %q, want ok", name, body.Checks[name])
		}
	}
}

func TestReadyzOneFailingDependency(t *testing.T) {
	h := New(
		Checker{Name: "store", Check: down("sqlite: database is locked")},
		Checker{Name: "tts", Check: ready},
	)

	rec, body := probe(t, h.Readyz, "/readyz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	if body.Status != "fail" {
		t.Errorf("body status = %q, want fail", body.Status)
	}
	if body.Checks["store"] != "fail: sqlite: database is locked" {
		t.Errorf("store check = %q", body.Checks["store"])
	}
	if body.Checks["tts"] != "ok" {
		t.Errorf("tts check = %q, the healthy dependency must still report ok", body.Checks["tts"])
	}
}

func TestReadyzWithoutCheckers(t *testing.T) {
	rec, body := probe(t, New().Readyz, "/readyz")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with nothing to check", rec.Code)
	}
	if body.Status != "ok" {
		t.Errorf("body status = %q, want ok", body.Status)
	}
}

func TestRegisterMountsProbeRoutes(t *testing.T) {
	mux := http.NewServeMux()
	New(Checker{Name: "store", Check: ready}).Register(mux)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestReadyzCancelledRequest(t *testing.T) {
	h := New(Checker{Name: "store", Check: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil).WithContext(ctx))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 for a cancelled request", rec.Code)
	}
}
