package ch

import (
	"context"
	"strings"
	"testing"
)

func TestBuildClientInfo(t *testing.T) {
	info := BuildClientInfo("", "harvest")
	if len(info.Products) != 5 {
		t.Fatalf("products = %d", len(info.Products))
	}
	if info.Products[0].Name != "tulflow" || info.Products[1].Version != "harvest" {
		t.Fatalf("unexpected products %+v", info.Products)
	}
}

func TestOpen_BadDSN(t *testing.T) {
	_, err := Open(context.Background(), Config{URL: "://nope"})
	if err == nil || !strings.Contains(err.Error(), "parse dsn") {
		t.Fatalf("expected parse error, got %v", err)
	}
}
