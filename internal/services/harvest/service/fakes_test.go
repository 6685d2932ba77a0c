package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"tulflow/internal/core/marcxml"
	"tulflow/internal/modkit/repokit"
	"tulflow/internal/services/harvest/domain"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/mock"
)

// rec builds a detached OAI record payload
func rec(t *testing.T, id string, deleted bool) domain.RawRecord {
	t.Helper()
	status := ""
	if deleted {
		status = ` status="deleted"`
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromString(`<record xmlns="http://www.openarchives.org/OAI/2.0/"><header` + status + `><identifier>` + id + `</identifier></header></record>`); err != nil {
		t.Fatal(err)
	}
	return domain.RawRecord{Identifier: id, Deleted: deleted, Payload: marcxml.Detach(doc.Root())}
}

// sliceIter yields recs then err (io.EOF when nil)
type sliceIter struct {
	recs []domain.RawRecord
	err  error
}

func (s *sliceIter) Next() (domain.RawRecord, error) {
	if len(s.recs) == 0 {
		if s.err != nil {
			return domain.RawRecord{}, s.err
		}
		return domain.RawRecord{}, io.EOF
	}
	r := s.recs[0]
	s.recs = s.recs[1:]
	return r, nil
}

// fakeSource serves a fresh iterator per set and records every request
type fakeSource struct {
	mu    sync.Mutex
	sets  map[string]func() *sliceIter
	calls []domain.HarvestRequest
}

func (f *fakeSource) Records(_ context.Context, req domain.HarvestRequest) domain.RecordIter {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if mk, ok := f.sets[req.Set]; ok {
		return mk()
	}
	return &sliceIter{}
}

// write is one recorded batch
type write struct {
	prefix string
	ids    []string
	doc    string
}

// recorder keeps every batch it is given
type recorder struct {
	writes []write
	fail   error
}

func (r *recorder) Write(_ context.Context, content []byte, prefix string) error {
	if r.fail != nil {
		return r.fail
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(content); err != nil {
		return err
	}
	w := write{prefix: prefix, doc: string(content)}
	for _, c := range doc.Root().ChildElements() {
		w.ids = append(w.ids, c.SelectAttrValue(marcxml.RecordIDAttr, ""))
	}
	r.writes = append(r.writes, w)
	return nil
}

func (r *recorder) to(stream string) []write {
	var out []write
	for _, w := range r.writes {
		if strings.HasSuffix(w.prefix, "/"+stream) {
			out = append(out, w)
		}
	}
	return out
}

// mockCatalog counts catalog fetches
type mockCatalog struct{ mock.Mock }

func (m *mockCatalog) ListSets(ctx context.Context, endpoint string) ([]string, error) {
	args := m.Called(ctx, endpoint)
	sets, _ := args.Get(0).([]string)
	return sets, args.Error(1)
}

// memLedger is an in-memory domain.LedgerRepo behind a pass through TxRunner
type memLedger struct {
	repokit.TxRunner
	mu      sync.Mutex
	runs    map[string]domain.Run
	markers map[string]domain.Marker
	fail    error
}

func newLedger() *memLedger {
	return &memLedger{runs: map[string]domain.Run{}, markers: map[string]domain.Marker{}}
}

func (l *memLedger) Tx(_ context.Context, fn func(q repokit.Queryer) error) error {
	if l.fail != nil {
		return l.fail
	}
	return fn(nil)
}

func (l *memLedger) binder() repokit.Binder[domain.LedgerRepo] {
	return repokit.BindFunc[domain.LedgerRepo](func(repokit.Queryer) domain.LedgerRepo { return l })
}

func (l *memLedger) StartRun(_ context.Context, r domain.Run) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs[r.ID] = r
	return nil
}

func (l *memLedger) FinishSet(_ context.Context, runID string, row domain.SetRow) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	r := l.runs[runID]
	r.Sets = append(r.Sets, row)
	l.runs[runID] = r
	return nil
}

func (l *memLedger) FinishRun(_ context.Context, fin domain.Run) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	r := l.runs[fin.ID]
	r.Status, r.Counts, r.Error, r.FinishedAt = fin.Status, fin.Counts, fin.Error, fin.FinishedAt
	l.runs[fin.ID] = r
	return nil
}

func (l *memLedger) Marker(_ context.Context, profile string) (domain.Marker, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.markers[profile]
	return m, ok, nil
}

func (l *memLedger) SaveMarker(_ context.Context, m domain.Marker) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.markers[m.Profile] = m
	return nil
}

func (l *memLedger) ListRuns(_ context.Context, limit, offset int) ([]domain.Run, int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.Run, 0, len(l.runs))
	for _, r := range l.runs {
		out = append(out, r)
	}
	return out, len(out), nil
}

func (l *memLedger) GetRun(_ context.Context, id string) (domain.Run, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.runs[id]
	if !ok {
		return domain.Run{}, errors.New("not found")
	}
	return r, nil
}
