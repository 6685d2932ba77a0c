package service

import (
	"context"
	"errors"
	"io"

	"tulflow/internal/core/marcxml"
	perr "tulflow/internal/platform/errors"
	"tulflow/internal/platform/logger"
	"tulflow/internal/services/harvest/domain"
	"tulflow/internal/services/harvest/writer"
)

// accumulator is one classification stream. The collection is replaced after every flush
type accumulator struct {
	prefix string
	cfg    domain.BatchConfig
	coll   *marcxml.Collection
}

func newAccumulator(prefix string, cfg domain.BatchConfig) *accumulator {
	return &accumulator{prefix: prefix, cfg: cfg, coll: marcxml.NewCollection(cfg.DagID, cfg.Timestamp)}
}

func (a *accumulator) flush(ctx context.Context, w domain.BatchWriter) error {
	body, err := a.coll.Bytes()
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeMalformed, "serialize batch")
	}
	if err := w.Write(ctx, body, a.prefix); err != nil {
		return err
	}
	a.coll = marcxml.NewCollection(a.cfg.DagID, a.cfg.Timestamp)
	return nil
}

// Process classifies the records of it into the new-updated and deleted streams under prefix.
// A stream is flushed whenever its size reaches a multiple of cfg.PerFile(), and both streams
// are flushed once more at the end, so every call writes at least two batches
func Process(ctx context.Context, it domain.RecordIter, w domain.BatchWriter, prefix string, cfg domain.BatchConfig) (domain.RunCounts, error) {
	log := logger.C(ctx)
	perFile := cfg.PerFile()
	updates := newAccumulator(prefix+"/"+writer.StreamUpdated, cfg)
	deletes := newAccumulator(prefix+"/"+writer.StreamDeleted, cfg)

	var counts domain.RunCounts
	var last string
	for {
		rec, err := it.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			ev := log.Error().Err(err)
			if last != "" {
				ev = ev.Str("last_identifier", last)
			}
			ev.Msg("harvest aborted")
			code := perr.CodeOf(err)
			if code == perr.ErrorCodeUnknown {
				code = perr.ErrorCodeUpstream
			}
			return counts, perr.Wrap(err, code, "harvest failed")
		}
		if rec.Payload == nil {
			log.Warn().Str("identifier", rec.Identifier).Msg("record without payload skipped")
			continue
		}

		id := rec.Identifier
		if id == "" {
			id = marcxml.Identifier(rec.Payload)
		}
		last = id
		deleted := rec.Deleted || marcxml.IsDeleted(rec.Payload)

		payload := rec.Payload
		payload.CreateAttr(marcxml.RecordIDAttr, id)
		if cfg.Transform != nil {
			if out := cfg.Transform(ctx, payload, cfg); out != nil {
				payload = out
			}
		}

		acc := updates
		if deleted {
			acc = deletes
			counts.Deleted++
		} else {
			counts.Updated++
		}
		acc.coll.Append(payload)
		if acc.coll.Len()%perFile == 0 {
			if err := acc.flush(ctx, w); err != nil {
				return counts, err
			}
		}
	}

	if err := updates.flush(ctx, w); err != nil {
		return counts, err
	}
	if err := deletes.flush(ctx, w); err != nil {
		return counts, err
	}

	log.Info().Msgf("OAI Records Harvested & Processed: %d", counts.Updated)
	log.Info().Msgf("OAI Records Harvest & Marked for Deletion: %d", counts.Deleted)
	return counts, nil
}
