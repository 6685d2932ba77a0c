// Package lookup loads the boundwith reference table used to enrich harvested MARC records
// The table is a CSV with a header row naming child_id, parent_id and parent_xml; parent_xml
// holds one or more XML fragments separated by "||"
package lookup

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"

	"tulflow/internal/core/normalize"
	perr "tulflow/internal/platform/errors"
	"tulflow/internal/platform/logger"
	"tulflow/internal/platform/store/blob"
)

// FragmentSep separates fragments inside a parent_xml cell
const FragmentSep = "||"

// column names the table must carry
const (
	ColChild  = "child_id"
	ColParent = "parent_id"
	ColXML    = "parent_xml"
)

// Row is one child entry of the table
type Row struct {
	ChildID   string
	ParentID  string
	Fragments []string
}

// Table maps child identifiers to parent data. It is read only after Load and safe to share
type Table struct {
	rows map[string]Row
}

// Empty returns a table with no rows
func Empty() *Table { return &Table{rows: map[string]Row{}} }

// Len reports the number of distinct children
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Get returns the row for childID after key normalisation
func (t *Table) Get(childID string) (Row, bool) {
	if t == nil {
		return Row{}, false
	}
	r, ok := t.rows[normalize.Key(childID)]
	return r, ok
}

// Fragments returns the parent XML fragments for childID, nil when unknown
func (t *Table) Fragments(childID string) []string {
	r, _ := t.Get(childID)
	return r.Fragments
}

// ParentID returns the parent identifier for childID, empty when unknown
func (t *Table) ParentID(childID string) string {
	r, _ := t.Get(childID)
	return r.ParentID
}

// Parse reads a table from r. Later rows for the same child replace earlier ones
func Parse(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Empty(), nil
	}
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeMalformed, "lookup: read header")
	}
	idx := map[string]int{}
	for i, h := range head {
		idx[normalize.Key(strings.ToLower(h))] = i
	}
	for _, col := range []string{ColChild, ColParent, ColXML} {
		if _, ok := idx[col]; !ok {
			return nil, perr.Malformedf("lookup: missing column %q", col)
		}
	}

	cell := func(rec []string, col string) string {
		if i := idx[col]; i < len(rec) {
			return rec[i]
		}
		return ""
	}

	t := Empty()
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeMalformed, "lookup: read row")
		}
		child := normalize.Key(cell(rec, ColChild))
		if child == "" {
			continue
		}
		t.rows[child] = Row{
			ChildID:   child,
			ParentID:  normalize.Key(cell(rec, ColParent)),
			Fragments: normalize.Split(cell(rec, ColXML), FragmentSep),
		}
	}
	return t, nil
}

// LoadFile reads a table from a local path
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		code := perr.ErrorCodeStorage
		if errors.Is(err, fs.ErrNotExist) {
			code = perr.ErrorCodeNotFound
		}
		return nil, perr.Wrapf(err, code, "lookup: open %s", path)
	}
	defer f.Close()
	t, err := Parse(f)
	if err != nil {
		return nil, err
	}
	logger.Named("lookup").Info().Str("path", path).Int("rows", t.Len()).Msg("lookup table loaded")
	return t, nil
}

// LoadBlob reads a table from the object store. A missing object is reported as not found
// so callers can choose to run without enrichment
func LoadBlob(ctx context.Context, s blob.Store, bucket, key string) (*Table, error) {
	log := logger.Named("lookup")
	body, err := s.Get(ctx, bucket, key)
	if err != nil {
		log.Error().Err(err).Str("bucket", bucket).Str("key", key).Msg("lookup table read failed")
		return nil, err
	}
	t, err := Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	log.Info().Str("bucket", bucket).Str("key", key).Int("rows", t.Len()).Msg("lookup table loaded")
	return t, nil
}
