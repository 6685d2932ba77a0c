// Package normalize cleans text pulled from lookup tables before it is used as a key or
// spliced into a MARC record
// Key pipeline
// 1 Sanitize controls and invalid UTF-8
// 2 Unicode NFC
// 3 Remove format characters (ZWSP, ZWJ, BOM)
// 4 Trim surrounding whitespace
package normalize

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// pool of fresh transformer chains
var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFC,
			runes.Remove(runes.In(unicode.Cf)), // BOMs from spreadsheet exports land here
		)
	},
}

// Key returns the form used to match record identifiers against lookup rows
func Key(s string) string {
	if s == "" {
		return ""
	}
	s = Sanitize(s)
	tr := chainPool.Get().(transform.Transformer)
	ns, _, _ := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)
	return strings.TrimSpace(ns)
}

// Fragment returns an XML fragment composed to NFC with characters XML 1.0 forbids removed
// Markup is left alone; whitespace inside the fragment is significant to MARC and kept
func Fragment(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(norm.NFC.String(Sanitize(s)))
}

// Split breaks a multi-value cell on sep, normalizing each part and dropping blanks
func Split(cell, sep string) []string {
	if strings.TrimSpace(cell) == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(cell, sep) {
		if p = Fragment(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
