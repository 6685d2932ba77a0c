// Package enrich appends boundwith parent data from the lookup table to harvested MARC records
package enrich

import (
	"context"

	"tulflow/internal/adapters/lookup"
	"tulflow/internal/core/marcxml"
	"tulflow/internal/platform/logger"
	"tulflow/internal/services/harvest/domain"

	"github.com/beevik/etree"
)

// Enricher is built once per run around a loaded table
type Enricher struct {
	Table *lookup.Table

	// ParentField appends the ADF parent pointer for matched records
	ParentField bool
}

// New returns an Enricher over t
func New(t *lookup.Table, parentField bool) *Enricher {
	return &Enricher{Table: t, ParentField: parentField}
}

// Transform exposes Apply as a domain.Transform
func (e *Enricher) Transform() domain.Transform { return e.Apply }

// Apply appends every parsable fragment listed for each MARC record in payload.
// Records without a usable 001 and fragments that do not parse are logged and skipped
func (e *Enricher) Apply(ctx context.Context, payload *etree.Element, _ domain.BatchConfig) *etree.Element {
	if payload == nil || e.Table.Len() == 0 {
		return payload
	}
	log := logger.C(ctx)
	for _, rec := range marcxml.MarcRecords(payload) {
		id, err := marcxml.Record001(rec)
		if err != nil {
			log.Warn().Err(err).Str("identifier", marcxml.Identifier(payload)).Msg("lookup skipped")
			continue
		}
		row, ok := e.Table.Get(id)
		if !ok {
			continue
		}
		for _, frag := range row.Fragments {
			field, err := marcxml.ParseFragment(frag)
			if err != nil {
				log.Error().Err(err).Str("record_001", id).Str("fragment", frag).Msg("malformed lookup fragment")
				continue
			}
			marcxml.AppendField(rec, field)
		}
		if e.ParentField && row.ParentID != "" {
			marcxml.AppendField(rec, marcxml.BoundwithParentField(row.ParentID))
		}
	}
	return payload
}
