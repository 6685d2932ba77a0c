package http_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perr "tulflow/internal/platform/errors"
	pnet "tulflow/internal/platform/net"
	phttp "tulflow/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
)

func reqWithReqID(method, path, rid string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	return req.WithContext(pnet.WithRequest(req.Context(), rid))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) phttp.Envelope {
	t.Helper()
	var env phttp.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	return env
}

func TestHandle_OK(t *testing.T) {
	rec := httptest.NewRecorder()
	phttp.Handle(func(*http.Request) phttp.Response {
		return phttp.OK(map[string]int{"updated": 2})
	})(rec, reqWithReqID("GET", "/x", "rid-1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	env := decode(t, rec)
	if env.StatusCode != 200 || env.RequestID != "rid-1" || env.Data == nil {
		t.Fatalf("bad envelope: %+v", env)
	}
}

func TestHandle_ErrorMapsStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{perr.Upstreamf("feed down"), http.StatusBadGateway},
		{perr.NotFoundf("run"), http.StatusNotFound},
		{perr.Newf(perr.ErrorCodeValidation, "bad"), http.StatusBadRequest},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		phttp.Handle(func(*http.Request) phttp.Response { return phttp.Error(c.err) })(rec, reqWithReqID("GET", "/", "r"))
		if rec.Code != c.want {
			t.Fatalf("%v: code = %d want %d", c.err, rec.Code, c.want)
		}
		if env := decode(t, rec); env.Error == "" {
			t.Fatalf("%v: envelope lacks error: %+v", c.err, env)
		}
	}
}

func TestList(t *testing.T) {
	rec := httptest.NewRecorder()
	phttp.Handle(func(*http.Request) phttp.Response {
		return phttp.List([]int{1, 2}, 10, 0, 2)
	})(rec, reqWithReqID("GET", "/", "r"))
	if !strings.Contains(rec.Body.String(), `"limit":10`) {
		t.Fatalf("missing page block: %s", rec.Body.String())
	}
}

func TestPostJSON_BindsAndValidates(t *testing.T) {
	type in struct {
		Endpoint string `json:"endpoint" validate:"required,url"`
	}
	m := chi.NewRouter()
	r := phttp.AdaptChi(m)
	r.Route("/api", func(sub phttp.Router) {
		phttp.PostJSON(sub, "/echo", func(_ *http.Request, v in) (any, error) { return v, nil })
		phttp.GetJSON(sub, "/runs/{id}", func(req *http.Request) (any, error) {
			return phttp.URLParam(req, "id"), nil
		})
	})

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest("POST", "/api/echo", strings.NewReader(`{"endpoint":"https://example.org/oai"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("valid body: %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest("POST", "/api/echo", strings.NewReader(`{"endpoint":"nope"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid body: %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest("GET", "/api/runs/abc", nil))
	if !strings.Contains(rec.Body.String(), `"data":"abc"`) {
		t.Fatalf("url param not routed: %s", rec.Body.String())
	}
}
