package oaipmh

import (
	"context"
	"io"

	perr "tulflow/internal/platform/errors"

	"github.com/beevik/etree"
)

// RecordIterator yields OAI <record> elements one at a time, following resumption
// tokens between pages. Next returns io.EOF at the end; any other error is terminal
type RecordIterator struct {
	c        *Client
	ctx      context.Context
	req      Request
	buf      []*etree.Element
	started  bool
	token    string
	requests int
	err      error
}

// Next returns the next record; the caller owns it
func (it *RecordIterator) Next() (*etree.Element, error) {
	for {
		if it.err != nil {
			return nil, it.err
		}
		if len(it.buf) > 0 {
			rec := it.buf[0]
			it.buf[0] = nil
			it.buf = it.buf[1:]
			return rec, nil
		}
		if it.started && it.token == "" {
			it.err = io.EOF
			continue
		}
		it.err = it.load()
	}
}

// load fetches the next page into buf
func (it *RecordIterator) load() error {
	if it.requests >= it.c.opts.MaxRequests {
		return perr.Upstreamf("oai ListRecords exceeded %d requests", it.c.opts.MaxRequests)
	}
	req := it.req
	if it.started {
		req = it.req.next(it.token)
	}
	it.started = true
	it.requests++

	p, err := it.c.fetch(it.ctx, req)
	if err != nil {
		return err
	}
	if p.oaiErr != nil {
		if p.oaiErr.Code == ErrNoRecordsMatch {
			it.token = ""
			return nil
		}
		return perr.Wrap(*p.oaiErr, perr.ErrorCodeUpstream, "oai ListRecords")
	}
	it.buf = p.records
	it.token = p.token
	return nil
}

// Requests reports how many pages were fetched so far
func (it *RecordIterator) Requests() int { return it.requests }
