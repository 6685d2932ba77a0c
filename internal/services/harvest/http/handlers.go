// Package http provides http transport for the harvest module
package http

import (
	"errors"
	stdhttp "net/http"
	"strconv"

	"tulflow/internal/modkit/httpkit"
	perr "tulflow/internal/platform/errors"
	"tulflow/internal/services/harvest/domain"
)

const (
	defaultLimit = 20
	maxLimit     = 200
)

// Register mounts harvest endpoints on the given router
func Register(r httpkit.Router, runner domain.RunnerPort, query domain.QueryPort) {
	h := &handlers{runner: runner, query: query}

	// run one pipeline and wait for the totals
	httpkit.PostJSON[domain.Pipeline](r, "/", h.run)

	// ledger reads
	httpkit.Get(r, "/runs", h.list)
	httpkit.Get(r, "/runs/{id}", h.get)
}

type handlers struct {
	runner domain.RunnerPort
	query  domain.QueryPort
}

// RunResponse is a finished run; Failed lists the sets that failed under the continue policy
type RunResponse struct {
	domain.Result
	Status string   `json:"status"`
	Failed []string `json:"failed,omitempty"`
}

// @Summary Run one harvest
// @Tags Harvest
// @Accept json
// @Produce json
// @Param payload body domain.Pipeline true "Pipeline"
// @Success 200 {object} RunResponse "ok"
// @Router /harvests [post]
func (h *handlers) run(r *stdhttp.Request, in domain.Pipeline) (any, error) {
	res, err := h.runner.Run(r.Context(), in)
	var pe *domain.PartialError
	switch {
	case errors.As(err, &pe):
		out := RunResponse{Result: res, Status: domain.StatusPartial}
		for _, f := range pe.Failed {
			out.Failed = append(out.Failed, f.Set)
		}
		return out, nil
	case err != nil:
		return nil, err
	}
	return RunResponse{Result: res, Status: domain.StatusOK}, nil
}

// @Summary List harvest runs, newest first
// @Tags Harvest
// @Produce json
// @Param limit query int false "page size"
// @Param offset query int false "offset"
// @Router /harvests/runs [get]
func (h *handlers) list(r *stdhttp.Request) (any, error) {
	limit, err := intParam(r, "limit", defaultLimit)
	if err != nil {
		return nil, err
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		return nil, err
	}
	limit = min(max(limit, 1), maxLimit)
	offset = max(offset, 0)

	runs, total, err := h.query.ListRuns(r.Context(), limit, offset)
	if err != nil {
		return nil, err
	}
	return httpkit.List(runs, limit, offset, total), nil
}

// @Summary One run with its per set rows
// @Tags Harvest
// @Produce json
// @Param id path string true "run id"
// @Router /harvests/runs/{id} [get]
func (h *handlers) get(r *stdhttp.Request) (any, error) {
	return h.query.GetRun(r.Context(), httpkit.Param(r, "id"))
}

func intParam(r *stdhttp.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, perr.WithField(perr.Newf(perr.ErrorCodeValidation, "%s must be an integer", name), name)
	}
	return n, nil
}
