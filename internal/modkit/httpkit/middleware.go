package httpkit

import (
	"net/http"
	"time"

	"tulflow/internal/platform/net/middleware"
)

// StackOptions tunes the api stack from CORE_API_* config
type StackOptions struct {
	Origins []string
	Timeout time.Duration
	Slow    time.Duration
}

// CommonStack returns the baseline api middleware slice
// harvest runs are long so the timeout applies per request and defaults generous
func CommonStack(o StackOptions) []func(http.Handler) http.Handler {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Minute
	}
	stack := middleware.Defaults()
	return append(stack,
		middleware.AccessLogZerolog(middleware.AccessLogOptions{Slow: o.Slow}),
		middleware.CORS(middleware.CORSOptions{AllowedOrigins: o.Origins}),
		middleware.StripSlashes(),
		middleware.Timeout(o.Timeout),
	)
}
