package modkit

import (
	"net/http"
	"testing"

	"tulflow/internal/platform/config"
	"tulflow/internal/platform/store"
	"tulflow/internal/platform/store/blob"
)

func TestBuild(t *testing.T) {
	noop := func(h http.Handler) http.Handler { return h }
	b := Build(WithName("harvest"), WithPrefix(" harvests/ "), WithMiddlewares(noop, noop), WithPorts(42))
	if b.Name != "harvest" || b.Prefix != "/harvests" {
		t.Fatalf("built = %+v", b)
	}
	if len(b.Mw) != 2 || b.Ports != 42 {
		t.Fatalf("mw=%d ports=%v", len(b.Mw), b.Ports)
	}
	if got := Build().Prefix; got != "" {
		t.Fatalf("empty prefix = %q", got)
	}
}

func TestFromStore(t *testing.T) {
	mem := blob.NewMemory()
	d := FromStore(config.New(), &store.Store{Blob: mem, BlobBucket: "tulflow-data"})
	if d.PG != nil || d.CH != nil {
		t.Fatalf("nil backends should stay nil interfaces: %+v", d)
	}
	if d.Blob != mem || d.Bucket != "tulflow-data" || d.Log == nil {
		t.Fatalf("deps = %+v", d)
	}
	if FromStore(config.New(), nil).Log == nil {
		t.Fatal("logger should default")
	}
}
