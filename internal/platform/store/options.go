package store

import (
	"tulflow/internal/platform/logger"
	"tulflow/internal/platform/store/blob"
)

// Option mutates Store during Open
type Option func(*Store) error

// WithLogger sets the logger used by subclients
func WithLogger(log logger.Logger) Option {
	return func(s *Store) error {
		s.Log = log
		return nil
	}
}

// WithBlob injects an object store instead of dialing S3 (tests, dry runs)
func WithBlob(b blob.Store) Option {
	return func(s *Store) error {
		s.Blob = b
		return nil
	}
}
