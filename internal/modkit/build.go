package modkit

import (
	"net/http"
	"strings"
)

// Built is a plain struct with the fields modules care about
type Built struct {
	Name   string
	Prefix string
	Mw     []func(http.Handler) http.Handler
	Ports  any
}

// Build applies Option funcs and normalizes the prefix to a single leading slash
func Build(opts ...Option) Built {
	var c buildCfg
	for _, o := range opts {
		o(&c)
	}
	prefix := strings.Trim(strings.TrimSpace(c.prefix), "/")
	if prefix != "" {
		prefix = "/" + prefix
	}
	return Built{
		Name:   c.name,
		Prefix: prefix,
		Mw:     append([]func(http.Handler) http.Handler(nil), c.mw...),
		Ports:  c.ports,
	}
}
