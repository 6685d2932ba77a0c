// Package almasftp reads the gzip tarballs Alma publishing profiles drop into the bucket over SFTP.
// Each tarball carries exactly one MARC XML collection
package almasftp

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"strings"

	"tulflow/internal/core/marcxml"
	perr "tulflow/internal/platform/errors"
	"tulflow/internal/platform/logger"
	"tulflow/internal/platform/store/blob"
)

var logFn = func() *logger.Logger { return logger.Named("almasftp") } // seam

// Expand returns the single member of the gzip tarball data. key only labels log lines
// An empty tarball or one with more than one member is an error
func Expand(key string, data []byte) ([]byte, error) {
	log := logFn()
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("tarball is not gzip")
		return nil, perr.Wrap(err, perr.ErrorCodeMalformed, "open tarball "+key)
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	var (
		members int
		body    []byte
	)
	for {
		h, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Error().Err(err).Str("key", key).Msg("tarball is corrupt")
			return nil, perr.Wrap(err, perr.ErrorCodeMalformed, "read tarball "+key)
		}
		members++
		if members > 1 {
			log.Error().Str("key", key).Str("member", h.Name).Msg("tarball has more than one member")
			return nil, perr.Malformedf("tarball %s has more than one member", key)
		}
		if body, err = io.ReadAll(tr); err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeMalformed, "read tarball member "+h.Name)
		}
	}
	if members == 0 {
		log.Error().Str("key", key).Msg("tarball is empty")
		return nil, perr.Malformedf("tarball %s is empty", key)
	}
	return body, nil
}

// Fetch reads key from the object store and expands it
func Fetch(ctx context.Context, s blob.Store, bucket, key string) ([]byte, error) {
	data, err := s.Get(ctx, bucket, key)
	if err != nil {
		logFn().Error().Err(err).Str("bucket", bucket).Str("key", key).Msg("tarball read failed")
		return nil, err
	}
	return Expand(key, data)
}

// DestKey is where Publish writes the collection for key: the key without its tar suffixes
func DestKey(key string) string {
	for _, sfx := range []string{".tar.gz", ".tgz"} {
		if k, ok := strings.CutSuffix(key, sfx); ok {
			return k
		}
	}
	return key + ".xml"
}

// Publish expands key, declares MARC21 as the collection's default namespace, and writes the
// document to dest in the same bucket. An empty dest means DestKey(key)
func Publish(ctx context.Context, s blob.Store, bucket, key, dest string) (string, error) {
	body, err := Fetch(ctx, s, bucket, key)
	if err != nil {
		return "", err
	}
	doc, err := marcxml.AddMarc21RootNS(body)
	if err != nil {
		return "", err
	}
	out, err := doc.WriteToBytes()
	if err != nil {
		return "", perr.Wrap(err, perr.ErrorCodeMalformed, "serialize collection")
	}
	if dest == "" {
		dest = DestKey(key)
	}
	if err := s.Put(ctx, bucket, dest, out, "application/xml"); err != nil {
		return "", err
	}
	logFn().Info().Str("bucket", bucket).Str("key", key).Str("dest", dest).Int("bytes", len(out)).Msg("collection published")
	return dest, nil
}
