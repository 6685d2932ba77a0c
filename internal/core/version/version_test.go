package version

import (
	"strings"
	"testing"
)

func TestInfoDefaults(t *testing.T) {
	bi := Info()
	if bi.Service != "tulflow" || bi.Version != "dev" {
		t.Fatalf("unexpected defaults %+v", bi)
	}
	if ua := UserAgent(); !strings.HasPrefix(ua, "tulflow/dev") {
		t.Fatalf("UserAgent = %q", ua)
	}
}
