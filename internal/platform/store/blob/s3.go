package blob

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"strings"

	perr "tulflow/internal/platform/errors"
	"tulflow/internal/platform/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3 implements Store over any S3 compatible endpoint
type S3 struct {
	client *minio.Client
	region string
	log    *logger.Logger
}

var _ Store = (*S3)(nil)

// NewS3 builds a client from cfg. No network call is made here
func NewS3(cfg Config) (*S3, error) {
	endpoint, secure := cfg.Endpoint, cfg.Secure
	if u, err := url.Parse(cfg.Endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		secure = secure || u.Scheme == "https"
	}
	if endpoint == "" {
		endpoint = "s3.amazonaws.com"
		secure = true
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	c, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: region,
	})
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeStorage, "blob: create s3 client")
	}
	return &S3{client: c, region: region, log: logger.Named("blob")}, nil
}

// Get reads the whole object into memory
func (s *S3) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.fail("get", bucket, key, err)
	}
	defer func() { _ = obj.Close() }()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.fail("get", bucket, key, err)
	}
	return data, nil
}

// Put uploads body in one request
func (s *S3) Put(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, bucket, key, bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return s.fail("put", bucket, key, err)
	}
	return nil
}

// List walks prefix recursively
func (s *S3) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string
	for obj := range s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, s.fail("list", bucket, prefix, obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// Delete removes one object
func (s *S3) Delete(ctx context.Context, bucket, key string) error {
	if err := s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return s.fail("delete", bucket, key, err)
	}
	return nil
}

// Ping checks the bucket exists
func (s *S3) Ping(ctx context.Context, bucket string) error {
	ok, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return s.fail("ping", bucket, "", err)
	}
	if !ok {
		return perr.Wrapf(ErrNotFound, perr.ErrorCodeNotFound, "blob: bucket %q does not exist", bucket)
	}
	return nil
}

// EnsureBucket creates bucket when missing
func (s *S3) EnsureBucket(ctx context.Context, bucket string) error {
	ok, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return s.fail("ensure", bucket, "", err)
	}
	if ok {
		return nil
	}
	if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return s.fail("ensure", bucket, "", err)
	}
	return nil
}

// fail logs the failure and maps it onto the project taxonomy
func (s *S3) fail(op, bucket, key string, err error) error {
	mapped := classify(op, bucket, key, err)
	evt := s.log.Error()
	if IsNotFound(mapped) {
		evt = s.log.Warn()
	}
	evt.Err(err).Str("op", op).Str("bucket", bucket).Str("key", key).Msg("blob: s3 request failed")
	return mapped
}

func classify(op, bucket, key string, err error) error {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey":
		return perr.Wrapf(ErrNotFound, perr.ErrorCodeNotFound, "blob: %s s3://%s/%s", op, bucket, key)
	case "NoSuchBucket":
		return perr.Wrapf(err, perr.ErrorCodeStorage, "blob: %s bucket %q missing", op, bucket)
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return perr.Wrapf(err, perr.ErrorCodeStorage, "blob: %s s3://%s/%s denied", op, bucket, key)
	}
	if strings.Contains(strings.ToLower(err.Error()), "no such key") {
		return perr.Wrapf(ErrNotFound, perr.ErrorCodeNotFound, "blob: %s s3://%s/%s", op, bucket, key)
	}
	return perr.Wrapf(err, perr.ErrorCodeStorage, "blob: %s s3://%s/%s", op, bucket, key)
}
