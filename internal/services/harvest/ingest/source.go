// Package ingest holds adapter shims between the OAI-PMH client and the harvest ports
package ingest

import (
	"context"
	"time"

	"tulflow/internal/adapters/oaipmh"
	"tulflow/internal/core/marcxml"
	"tulflow/internal/platform/config"
	"tulflow/internal/services/harvest/domain"
)

// NewClient constructs the OAI client from config under CORE_HARVEST_OAI_*
func NewClient(cfg config.Conf) *oaipmh.Client {
	oc := cfg.Prefix("CORE_HARVEST_OAI_")
	return oaipmh.New(oaipmh.Options{
		Timeout:     oc.MayDuration("TIMEOUT", 5*time.Minute),
		Attempts:    oc.MayInt("ATTEMPTS", 1),
		Interval:    oc.MayDuration("INTERVAL", 0),
		MaxRequests: oc.MayInt("MAX_REQUESTS", 0),
		UserAgent:   oc.MayString("USER_AGENT", ""),
	})
}

// source implements domain.RecordSource and domain.SetCatalog over one client
type source struct {
	c *oaipmh.Client
}

// NewSource adapts c to the record source port
func NewSource(c *oaipmh.Client) domain.RecordSource { return source{c: c} }

// NewCatalog adapts c to the set catalog port
func NewCatalog(c *oaipmh.Client) domain.SetCatalog { return source{c: c} }

func (s source) Records(ctx context.Context, req domain.HarvestRequest) domain.RecordIter {
	return records{it: s.c.ListRecords(ctx, oaipmh.Request{
		Endpoint:       req.Endpoint,
		Verb:           oaipmh.VerbListRecords,
		MetadataPrefix: req.MetadataPrefix,
		Set:            req.Set,
		From:           req.From,
		Until:          req.Until,
	})}
}

func (s source) ListSets(ctx context.Context, endpoint string) ([]string, error) {
	sets, err := s.c.ListSets(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(sets))
	for _, st := range sets {
		out = append(out, st.Spec)
	}
	return out, nil
}

// records lifts detached OAI record elements into RawRecords
type records struct {
	it *oaipmh.RecordIterator
}

func (r records) Next() (domain.RawRecord, error) {
	el, err := r.it.Next()
	if err != nil {
		return domain.RawRecord{}, err
	}
	return domain.RawRecord{
		Identifier: marcxml.Identifier(el),
		Deleted:    marcxml.IsDeleted(el),
		Payload:    el,
	}, nil
}
