package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perr "tulflow/internal/platform/errors"
	phttp "tulflow/internal/platform/net/http"
	"tulflow/internal/services/harvest/domain"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSvc struct{ mock.Mock }

func (m *mockSvc) Run(ctx context.Context, p domain.Pipeline) (domain.Result, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(domain.Result), args.Error(1)
}

func (m *mockSvc) ListRuns(ctx context.Context, limit, offset int) ([]domain.Run, int, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]domain.Run), args.Int(1), args.Error(2)
}

func (m *mockSvc) GetRun(ctx context.Context, id string) (domain.Run, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Run), args.Error(1)
}

func serve(t *testing.T, svc *mockSvc, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	mux := chi.NewRouter()
	r := phttp.AdaptChi(mux)
	r.Route("/harvests", func(sub phttp.Router) { Register(sub, svc, svc) })

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var env map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

const pipeline = `{"profile":"alma","endpoint":"http://oai.example/oai","metadata_prefix":"marc21","sets":{"included_sets":"blacklight"}}`

func TestRun(t *testing.T) {
	svc := &mockSvc{}
	svc.On("Run", mock.Anything, mock.MatchedBy(func(p domain.Pipeline) bool {
		return p.Profile == "alma" && len(p.Sets.Included) == 1 && p.Sets.Included[0] == "blacklight"
	})).Return(domain.Result{RunID: "r1", RunCounts: domain.RunCounts{Updated: 4, Deleted: 1}}, nil).Once()

	rec, env := serve(t, svc, stdhttp.MethodPost, "/harvests", pipeline)
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())
	data := env["data"].(map[string]any)
	require.EqualValues(t, 4, data["updated"])
	require.EqualValues(t, 1, data["deleted"])
	require.Equal(t, "ok", data["status"])
	svc.AssertExpectations(t)
}

func TestRun_Partial(t *testing.T) {
	svc := &mockSvc{}
	svc.On("Run", mock.Anything, mock.Anything).Return(
		domain.Result{RunCounts: domain.RunCounts{Updated: 2}},
		&domain.PartialError{Failed: []domain.SetResult{{Set: "b", Err: perr.Upstreamf("down")}}},
	)

	rec, env := serve(t, svc, stdhttp.MethodPost, "/harvests", pipeline)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	data := env["data"].(map[string]any)
	require.Equal(t, "partial", data["status"])
	require.Equal(t, []any{"b"}, data["failed"])
}

func TestRun_Errors(t *testing.T) {
	svc := &mockSvc{}
	svc.On("Run", mock.Anything, mock.Anything).Return(domain.Result{}, perr.Newf(perr.ErrorCodeConflict, "busy")).Once()

	rec, _ := serve(t, svc, stdhttp.MethodPost, "/harvests", pipeline)
	require.Equal(t, stdhttp.StatusConflict, rec.Code)

	// validation happens before the runner is called
	rec, _ = serve(t, svc, stdhttp.MethodPost, "/harvests", `{"profile":"alma"}`)
	require.Equal(t, stdhttp.StatusBadRequest, rec.Code)
	rec, _ = serve(t, svc, stdhttp.MethodPost, "/harvests", `{"profile":"alma","nope":1}`)
	require.Equal(t, stdhttp.StatusBadRequest, rec.Code)
	svc.AssertNumberOfCalls(t, "Run", 1)
}

func TestListRuns(t *testing.T) {
	svc := &mockSvc{}
	svc.On("ListRuns", mock.Anything, 5, 10).Return([]domain.Run{{ID: "r1"}}, 11, nil).Once()
	svc.On("ListRuns", mock.Anything, defaultLimit, 0).Return([]domain.Run{}, 0, nil).Once()
	svc.On("ListRuns", mock.Anything, maxLimit, 0).Return([]domain.Run{}, 0, nil).Once()

	rec, env := serve(t, svc, stdhttp.MethodGet, "/harvests/runs?limit=5&offset=10", "")
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	data := env["data"].(map[string]any)
	require.EqualValues(t, 11, data["page"].(map[string]any)["count"])
	require.Len(t, data["items"], 1)

	rec, _ = serve(t, svc, stdhttp.MethodGet, "/harvests/runs", "")
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	rec, _ = serve(t, svc, stdhttp.MethodGet, "/harvests/runs?limit=100000", "")
	require.Equal(t, stdhttp.StatusOK, rec.Code)

	rec, _ = serve(t, svc, stdhttp.MethodGet, "/harvests/runs?limit=abc", "")
	require.Equal(t, stdhttp.StatusBadRequest, rec.Code)
	svc.AssertExpectations(t)
}

func TestGetRun(t *testing.T) {
	svc := &mockSvc{}
	svc.On("GetRun", mock.Anything, "r1").Return(domain.Run{ID: "r1", Status: domain.StatusOK}, nil)
	svc.On("GetRun", mock.Anything, "missing").Return(domain.Run{}, perr.NotFoundf("run missing not found"))

	rec, env := serve(t, svc, stdhttp.MethodGet, "/harvests/runs/r1", "")
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	require.Equal(t, "r1", env["data"].(map[string]any)["id"])

	rec, _ = serve(t, svc, stdhttp.MethodGet, "/harvests/runs/missing", "")
	require.Equal(t, stdhttp.StatusNotFound, rec.Code)
}
