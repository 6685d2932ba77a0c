package almasftp

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"testing"

	"tulflow/internal/core/marcxml"
	perr "tulflow/internal/platform/errors"
	"tulflow/internal/platform/logger"
	"tulflow/internal/platform/store/blob"
	kit "tulflow/internal/platform/testkit"

	"github.com/beevik/etree"
	"github.com/rs/zerolog"
)

const collection = `<collection><record><controlfield tag="001">991000000269703811</controlfield></record></collection>`

const key = "almasftp/alma_bibs__new_1.xml.tar.gz"

type member struct{ name, body string }

func tarball(t *testing.T, members ...member) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, m := range members {
		if err := tw.WriteHeader(&tar.Header{Name: m.name, Mode: 0o644, Size: int64(len(m.body))}); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(m.body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// captureLog routes the package logger into a buffer for the test
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	kit.Serial(t)
	var buf bytes.Buffer
	lg := zerolog.New(&buf)
	kit.Swap(t, &logFn, func() *logger.Logger { return &lg })
	return &buf
}

func TestExpand(t *testing.T) {
	got, err := Expand(key, tarball(t, member{"alma_bibs__new_1.xml", collection}))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != collection {
		t.Fatalf("member = %q", got)
	}
}

func TestExpand_Rejects(t *testing.T) {
	cases := []struct {
		name string
		data func(t *testing.T) []byte
		log  string
	}{
		{
			name: "empty",
			data: func(t *testing.T) []byte { return tarball(t) },
			log:  "tarball is empty",
		},
		{
			name: "multiple members",
			data: func(t *testing.T) []byte {
				return tarball(t, member{"a.xml", collection}, member{"b.xml", collection})
			},
			log: "tarball has more than one member",
		},
		{
			name: "not gzip",
			data: func(*testing.T) []byte { return []byte(collection) },
			log:  "tarball is not gzip",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			buf := captureLog(t)
			got, err := Expand(key, c.data(t))
			if got != nil || !perr.IsCode(err, perr.ErrorCodeMalformed) {
				t.Fatalf("got %q, err = %v", got, err)
			}
			out := buf.String()
			kit.MustContain(t, out, `"level":"error"`)
			kit.MustContain(t, out, c.log)
			kit.MustContain(t, out, `"key":"`+key+`"`)
		})
	}
}

func TestDestKey(t *testing.T) {
	cases := map[string]string{
		key:                  "almasftp/alma_bibs__new_1.xml",
		"almasftp/bibs.tgz":  "almasftp/bibs",
		"almasftp/bibs.blob": "almasftp/bibs.blob.xml",
	}
	for in, want := range cases {
		if got := DestKey(in); got != want {
			t.Fatalf("DestKey(%s) = %s want %s", in, got, want)
		}
	}
}

func TestPublish(t *testing.T) {
	ctx := context.Background()
	m := blob.NewMemory()
	if err := m.Put(ctx, "data", key, tarball(t, member{"alma_bibs__new_1.xml", collection}), "application/gzip"); err != nil {
		t.Fatal(err)
	}

	dest, err := Publish(ctx, m, "data", key, "")
	if err != nil {
		t.Fatal(err)
	}
	if dest != "almasftp/alma_bibs__new_1.xml" {
		t.Fatalf("dest = %s", dest)
	}
	body, err := m.Get(ctx, "data", dest)
	if err != nil {
		t.Fatal(err)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		t.Fatal(err)
	}
	if doc.Root().NamespaceURI() != marcxml.NSMARC21 {
		t.Fatalf("namespace = %q", doc.Root().NamespaceURI())
	}

	if _, err := Publish(ctx, m, "data", "almasftp/missing.tar.gz", ""); !blob.IsNotFound(err) {
		t.Fatalf("missing tarball err = %v", err)
	}
}
