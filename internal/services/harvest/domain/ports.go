package domain

import (
	"context"

	"github.com/beevik/etree"
)

// RunnerPort is the public port of the harvest module
type RunnerPort interface {
	Run(ctx context.Context, p Pipeline) (Result, error)
}

// QueryPort reads the run ledger
type QueryPort interface {
	ListRuns(ctx context.Context, limit, offset int) ([]Run, int, error)
	GetRun(ctx context.Context, id string) (Run, error)
}

// RecordSource starts a lazy record sequence for one request
type RecordSource interface {
	Records(ctx context.Context, req HarvestRequest) RecordIter
}

// RecordIter yields records in arrival order and io.EOF once the feed is exhausted.
// Any other error is terminal
type RecordIter interface {
	Next() (RawRecord, error)
}

// SetCatalog lists every set spec the endpoint advertises
type SetCatalog interface {
	ListSets(ctx context.Context, endpoint string) ([]string, error)
}

// BatchWriter persists one serialized batch under prefix
type BatchWriter interface {
	Write(ctx context.Context, content []byte, prefix string) error
}

// Transform rewrites one payload before batching and returns the payload to keep.
// Implementations log and drop what they cannot apply instead of failing the record
type Transform func(ctx context.Context, payload *etree.Element, cfg BatchConfig) *etree.Element

// LedgerRepo stores run history and incremental markers
type LedgerRepo interface {
	// StartRun inserts the run row in running state
	StartRun(ctx context.Context, r Run) error

	// FinishSet records the outcome of one set
	FinishSet(ctx context.Context, runID string, row SetRow) error

	// FinishRun stores the final status, totals and error of a run
	FinishRun(ctx context.Context, r Run) error

	// Marker returns the stored marker for profile; ok is false when none exists
	Marker(ctx context.Context, profile string) (m Marker, ok bool, err error)

	// SaveMarker upserts the marker for m.Profile
	SaveMarker(ctx context.Context, m Marker) error

	// ListRuns returns runs newest first and the total row count
	ListRuns(ctx context.Context, limit, offset int) ([]Run, int, error)

	// GetRun returns one run with its set rows
	GetRun(ctx context.Context, id string) (Run, error)
}
