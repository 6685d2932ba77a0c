// Package oaitest serves canned OAI-PMH pages over httptest for tests in other packages
package oaitest

import (
	"embed"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
)

//go:embed fixtures/*.xml
var fixtures embed.FS

// Fixture returns a canned page by file stem, e.g. "marc" or "page1"
func Fixture(name string) []byte {
	b, err := fixtures.ReadFile("fixtures/" + name + ".xml")
	if err != nil {
		panic("oaitest: unknown fixture " + name)
	}
	return b
}

// Key routes a request: "token:<t>" when a resumption token is sent, else "<verb>" or "<verb>:<set>"
func Key(q url.Values) string {
	if tok := q.Get("resumptionToken"); tok != "" {
		return "token:" + tok
	}
	k := q.Get("verb")
	if s := q.Get("set"); s != "" {
		k += ":" + s
	}
	return k
}

// Feed maps routing keys to bodies or failure statuses
type Feed struct {
	Pages  map[string][]byte
	Status map[string]int

	mu    sync.Mutex
	hits  []url.Values
	count map[string]int
}

// Hits returns the query of every request served, in order
func (f *Feed) Hits() []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]url.Values(nil), f.hits...)
}

// Count returns how often key was requested
func (f *Feed) Count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count[key]
}

func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := Key(q)
	f.mu.Lock()
	f.hits = append(f.hits, q)
	if f.count == nil {
		f.count = map[string]int{}
	}
	f.count[key]++
	f.mu.Unlock()

	if st, ok := f.Status[key]; ok {
		http.Error(w, "injected failure", st)
		return
	}
	body, ok := f.Pages[key]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	_, _ = w.Write(body)
}

// NewServer starts f and closes it with the test
func NewServer(t testing.TB, f *Feed) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return srv
}
