package module

import (
	"testing"

	phttp "tulflow/internal/platform/net/http"
)

type runner interface{ Run() int }

type runnerImpl struct{}

func (runnerImpl) Run() int { return 7 }

type ports struct {
	Runner runner
	Other  string
}

type stub struct{ ports any }

func (s stub) MountRoutes(phttp.Router) {}
func (s stub) Ports() any               { return s.ports }
func (s stub) Name() string             { return "stub" }

func TestPortsOf(t *testing.T) {
	m := stub{ports: ports{Runner: runnerImpl{}}}
	r, ok := PortsOf[runner](m)
	if !ok || r.Run() != 7 {
		t.Fatalf("PortsOf runner: ok=%v", ok)
	}
	if _, ok := PortsOf[runner](stub{}); ok {
		t.Fatal("nil ports should not match")
	}
	defer func() {
		if recover() == nil {
			t.Fatal("MustPortsOf should panic when missing")
		}
	}()
	MustPortsOf[runner](stub{ports: 1})
}

func TestRegistry(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	Register("harvest", ports{Other: "x"})
	got, ok := PortsAs[ports]("harvest")
	if !ok || got.Other != "x" {
		t.Fatalf("PortsAs = %+v %v", got, ok)
	}
	if _, ok := PortsAs[ports]("missing"); ok {
		t.Fatal("missing name should not resolve")
	}
}
