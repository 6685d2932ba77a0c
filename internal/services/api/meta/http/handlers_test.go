package http

import (
	"context"
	"encoding/json"
	"errors"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	phttp "tulflow/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
)

func get(t *testing.T, d Deps, path string, out any) {
	t.Helper()
	mux := chi.NewRouter()
	Register(phttp.AdaptChi(mux), d)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, path, nil))
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("%s = %d", path, rec.Code)
	}
	env := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatal(err)
	}
}

func TestHealth(t *testing.T) {
	var h HealthResponse
	get(t, Deps{ServiceName: "tulflow-api", StartedAt: time.Now().Add(-time.Minute)}, "/health", &h)
	if !h.OK || h.Service != "tulflow-api" || h.Uptime < 59 {
		t.Fatalf("health = %+v", h)
	}
}

func TestReady(t *testing.T) {
	ok := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("refused") })

	cases := []struct {
		name   string
		checks []Check
		want   string
	}{
		{"all up", []Check{{"pg", ok}, {"blob", ok}}, "ok"},
		{"skipped", []Check{{"pg", ok}, {"ch", nil}}, "degraded"},
		{"one down", []Check{{"pg", down}, {"ch", nil}, {"blob", ok}}, "fail"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var r ReadyResponse
			get(t, Deps{Checks: c.checks}, "/ready", &r)
			if r.Status != c.want || len(r.Checks) != len(c.checks) {
				t.Fatalf("ready = %+v", r)
			}
		})
	}
}
