// Package writer persists serialized batches. Keys are content addressed, so writing the
// same document under the same prefix twice lands on the same object
package writer

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"time"

	perr "tulflow/internal/platform/errors"
	"tulflow/internal/platform/logger"
	"tulflow/internal/platform/store"
	"tulflow/internal/platform/store/blob"
	"tulflow/internal/services/harvest/domain"
)

// Stream names appended to a run prefix
const (
	StreamUpdated = "new-updated"
	StreamDeleted = "deleted"
)

// ContentType is stored on every batch object
const ContentType = "application/xml"

// Fingerprint returns the hex md5 of content
func Fingerprint(content []byte) string {
	sum := md5.Sum(content)
	return hex.EncodeToString(sum[:])
}

// Key returns the destination key of content under prefix
func Key(prefix string, content []byte) string {
	return blob.Join(prefix, Fingerprint(content))
}

// Prefix returns the run prefix dag/timestamp
func Prefix(dagID, timestamp string) string {
	return blob.Join(dagID, timestamp)
}

// Object writes batches to the object store
type Object struct {
	Store  blob.Store
	Bucket string
}

var _ domain.BatchWriter = Object{}

// Write puts content at Key(prefix, content). Failures are logged and returned, never retried
func (o Object) Write(ctx context.Context, content []byte, prefix string) error {
	key := Key(prefix, content)
	if err := o.Store.Put(ctx, o.Bucket, key, content, ContentType); err != nil {
		logger.C(ctx).Error().Err(err).Str("bucket", o.Bucket).Str("key", key).Msg("batch write failed")
		if perr.IsCode(err, perr.ErrorCodeStorage) {
			return err
		}
		return perr.Wrapf(err, perr.ErrorCodeStorage, "write %s", key)
	}
	logger.C(ctx).Debug().Str("bucket", o.Bucket).Str("key", key).Int("bytes", len(content)).Msg("batch written")
	return nil
}

// Log emits each batch as one log line instead of storing it
type Log struct {
	Log *logger.Logger
}

var _ domain.BatchWriter = Log{}

// Write logs the prefix, key and content
func (l Log) Write(ctx context.Context, content []byte, prefix string) error {
	lg := l.Log
	if lg == nil {
		lg = logger.C(ctx)
	}
	lg.Info().
		Str("prefix", prefix).
		Str("key", Key(prefix, content)).
		Bytes("content", content).
		Msg("batch")
	return nil
}

// AuditTable receives one row per written batch
const AuditTable = "harvest_batches"

// Audited records every successful write of Next in ClickHouse. Audit failures are
// logged and do not fail the write
type Audited struct {
	Next  domain.BatchWriter
	CH    store.Clickhouse
	Table string
	Now   func() time.Time
}

var _ domain.BatchWriter = Audited{}

// Write delegates to Next and then appends the audit row
func (a Audited) Write(ctx context.Context, content []byte, prefix string) error {
	if err := a.Next.Write(ctx, content, prefix); err != nil {
		return err
	}
	if a.CH == nil {
		return nil
	}
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	table := a.Table
	if table == "" {
		table = AuditTable
	}
	row := []any{now().UTC(), logger.RunID(ctx), prefix, Key(prefix, content), uint64(len(content))}
	if err := a.CH.Insert(ctx, table, [][]any{row}); err != nil {
		logger.C(ctx).Warn().Err(err).Str("table", table).Msg("batch audit insert failed")
	}
	return nil
}
