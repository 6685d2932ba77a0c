package oaipmh

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"tulflow/internal/core/version"
	perr "tulflow/internal/platform/errors"
	"tulflow/internal/platform/logger"

	"github.com/sethgrid/pester"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout     = 5 * time.Minute
	defaultMaxRequests = 1024
	maxBodyBytes       = 512 << 20
)

// Doer lets tests and callers swap the http client
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Options configures the Client
type Options struct {
	// Timeout bounds each http request
	Timeout time.Duration
	// Attempts is the number of tries per page for connection failures; 1 means no retry
	Attempts int
	// Interval is the minimum spacing between page requests, 0 disables pacing
	Interval time.Duration
	// MaxRequests caps pages per list request to stop looping tokens, 0 means the default
	MaxRequests int
	// UserAgent overrides the build user agent
	UserAgent string
}

// Client issues OAI-PMH list requests
type Client struct {
	doer    Doer
	opts    Options
	limiter *rate.Limiter
	log     logger.Logger
}

// New creates a client backed by pester
func New(o Options) *Client {
	o = withDefaults(o)
	pc := pester.New()
	pc.Timeout = o.Timeout
	pc.Concurrency = 1
	pc.MaxRetries = o.Attempts
	pc.Backoff = pester.ExponentialBackoff
	pc.KeepLog = false
	c := newClient(pc, o)
	pc.LogHook = func(e pester.ErrEntry) {
		c.log.Warn().Err(e.Err).Str("url", e.URL).Int("attempt", e.Attempt).Msg("oai request attempt failed")
	}
	return c
}

// NewWithDoer uses doer for http, mostly for tests
func NewWithDoer(doer Doer, o Options) *Client {
	return newClient(doer, withDefaults(o))
}

func withDefaults(o Options) Options {
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.Attempts <= 0 {
		o.Attempts = 1
	}
	if o.MaxRequests <= 0 {
		o.MaxRequests = defaultMaxRequests
	}
	if o.UserAgent == "" {
		o.UserAgent = version.UserAgent()
	}
	return o
}

func newClient(doer Doer, o Options) *Client {
	lim := rate.NewLimiter(rate.Inf, 1)
	if o.Interval > 0 {
		lim = rate.NewLimiter(rate.Every(o.Interval), 1)
	}
	return &Client{doer: doer, opts: o, limiter: lim, log: *logger.Named("oaipmh")}
}

// fetch performs one page request; every failure is an upstream error
func (c *Client) fetch(ctx context.Context, req Request) (*page, error) {
	link, err := req.URL()
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "oai request")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "oai request")
	}
	hreq.Header.Set("User-Agent", c.opts.UserAgent)
	hreq.Header.Set("Accept", "text/xml, application/xml")

	start := time.Now()
	resp, err := c.doer.Do(hreq)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, perr.Wrapf(err, perr.ErrorCodeUpstream, "oai request %s", link)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, perr.Upstreamf("oai request %s: unexpected status %d", link, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUpstream, "oai read %s", link)
	}
	p, err := parsePage(body, req.Verb)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUpstream, "oai response %s", link)
	}

	c.log.Debug().
		Str("url", link).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Int("records", len(p.records)).
		Int("sets", len(p.sets)).
		Bool("more", p.token != "").
		Msg("oai page")
	return p, nil
}

// ListRecords starts a lazy record sequence; no request is made until the first Next
func (c *Client) ListRecords(ctx context.Context, req Request) *RecordIterator {
	req.Verb = VerbListRecords
	req.ResumptionToken = ""
	return &RecordIterator{c: c, ctx: ctx, req: req}
}

// ListSets returns every set the endpoint advertises, across pages
func (c *Client) ListSets(ctx context.Context, endpoint string) ([]Set, error) {
	req := Request{Endpoint: endpoint, Verb: VerbListSets}
	var out []Set
	for n := 1; ; n++ {
		if n > c.opts.MaxRequests {
			return out, perr.Upstreamf("oai ListSets exceeded %d requests", c.opts.MaxRequests)
		}
		p, err := c.fetch(ctx, req)
		if err != nil {
			return out, err
		}
		if p.oaiErr != nil {
			// a repository without sets answers noSetHierarchy
			if p.oaiErr.Code == "noSetHierarchy" {
				return out, nil
			}
			return out, perr.Wrap(*p.oaiErr, perr.ErrorCodeUpstream, "oai ListSets")
		}
		out = append(out, p.sets...)
		if p.token == "" {
			return out, nil
		}
		req = req.next(p.token)
	}
}
