package blob

import (
	"context"
	"errors"
	"testing"

	perr "tulflow/internal/platform/errors"

	"github.com/minio/minio-go/v7"
)

func TestMemory_RoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.Put(ctx, "data", "dag/ts/new-updated/abc", []byte("<collection/>"), "application/xml"); err != nil {
		t.Fatalf("put: %v", err)
	}
	_ = m.Put(ctx, "data", "dag/ts/deleted/def", []byte("x"), "")
	_ = m.Put(ctx, "other", "dag/ts/deleted/zzz", []byte("y"), "")

	got, err := m.Get(ctx, "data", "dag/ts/new-updated/abc")
	if err != nil || string(got) != "<collection/>" {
		t.Fatalf("get = %q, %v", got, err)
	}

	keys, _ := m.List(ctx, "data", "dag/ts/")
	if len(keys) != 2 || keys[0] != "dag/ts/deleted/def" || keys[1] != "dag/ts/new-updated/abc" {
		t.Fatalf("list = %#v", keys)
	}

	if err := m.Delete(ctx, "data", "dag/ts/deleted/def"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := m.Delete(ctx, "data", "missing"); err != nil {
		t.Fatalf("deleting a missing key should succeed: %v", err)
	}
	if m.Len() != 2 {
		t.Fatalf("Len = %d, want 2", m.Len())
	}
}

func TestMemory_GetMissingIsNotFound(t *testing.T) {
	_, err := NewMemory().Get(context.Background(), "data", "nope")
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if perr.IsCode(err, perr.ErrorCodeStorage) {
		t.Fatalf("a miss must not look like a storage failure")
	}
}

func TestMemory_FailPut(t *testing.T) {
	m := NewMemory()
	m.FailPut = errors.New("denied")
	err := m.Put(context.Background(), "b", "k", nil, "")
	if !perr.IsCode(err, perr.ErrorCodeStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		notFound bool
	}{
		{"no such key", minio.ErrorResponse{Code: "NoSuchKey", Message: "gone"}, true},
		{"no such bucket", minio.ErrorResponse{Code: "NoSuchBucket"}, false},
		{"access denied", minio.ErrorResponse{Code: "AccessDenied"}, false},
		{"transport", errors.New("dial tcp: connection refused"), false},
	}
	for _, c := range cases {
		got := classify("get", "b", "k", c.err)
		if IsNotFound(got) != c.notFound {
			t.Fatalf("%s: IsNotFound = %v, want %v (%v)", c.name, IsNotFound(got), c.notFound, got)
		}
		if !c.notFound && !perr.IsCode(got, perr.ErrorCodeStorage) {
			t.Fatalf("%s: expected storage code, got %v", c.name, got)
		}
	}
}

func TestJoin(t *testing.T) {
	if got := Join("/dag/", "", "2020/", "/new-updated"); got != "dag/2020/new-updated" {
		t.Fatalf("Join = %q", got)
	}
}

func TestNewS3_ParsesEndpoint(t *testing.T) {
	s, err := NewS3(Config{Endpoint: "https://minio.local:9000", AccessKey: "a", SecretKey: "b"})
	if err != nil {
		t.Fatalf("NewS3: %v", err)
	}
	if s.client.EndpointURL().Host != "minio.local:9000" || s.client.EndpointURL().Scheme != "https" {
		t.Fatalf("unexpected endpoint %v", s.client.EndpointURL())
	}
	if s.region != "us-east-1" {
		t.Fatalf("default region = %q", s.region)
	}
}
