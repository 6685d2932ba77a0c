// Package marcxml holds the tree helpers the harvest pipeline needs on OAI and MARC21 payloads
// Elements are matched by local name and, where one is declared, by namespace, because
// real feeds (Alma among them) sometimes ship records without any namespace declarations
package marcxml

import (
	"strings"

	perr "tulflow/internal/platform/errors"

	"github.com/beevik/etree"
)

const (
	// NSOAI is the OAI-PMH 2.0 namespace
	NSOAI = "http://www.openarchives.org/OAI/2.0/"
	// NSMARC21 is the MARC21 slim namespace
	NSMARC21 = "http://www.loc.gov/MARC21/slim"

	// RecordIDAttr is stamped on every payload with the OAI identifier
	RecordIDAttr = "airflow-record-id"

	// NoDagID and NoTimestamp tag batches produced without a run identity
	NoDagID     = "no-dag-provided"
	NoTimestamp = "no-timestamp-provided"
)

// child returns the first child element with local name tag
func child(e *etree.Element, tag string) *etree.Element {
	if e == nil {
		return nil
	}
	for _, c := range e.ChildElements() {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

// attr returns the value of an unprefixed attribute
func attr(e *etree.Element, key string) string {
	for _, a := range e.Attr {
		if a.Space == "" && a.Key == key {
			return a.Value
		}
	}
	return ""
}

// Header returns the OAI header of a record, or the element itself when it is a header
func Header(rec *etree.Element) *etree.Element {
	if rec == nil {
		return nil
	}
	if rec.Tag == "header" {
		return rec
	}
	return child(rec, "header")
}

// IsDeleted reports whether the record header carries status="deleted"
func IsDeleted(rec *etree.Element) bool {
	h := Header(rec)
	return h != nil && attr(h, "status") == "deleted"
}

// Identifier returns the trimmed header identifier, empty when absent
func Identifier(rec *etree.Element) string {
	id := child(Header(rec), "identifier")
	if id == nil {
		return ""
	}
	return strings.TrimSpace(id.Text())
}

// SetSpecs returns the setSpec values listed in the record header
func SetSpecs(rec *etree.Element) []string {
	h := Header(rec)
	if h == nil {
		return nil
	}
	var out []string
	for _, c := range h.ChildElements() {
		if c.Tag == "setSpec" {
			out = append(out, strings.TrimSpace(c.Text()))
		}
	}
	return out
}

// isMarcRecord matches <record> in the MARC21 namespace, or a namespace-less <record>
// that sits under an OAI <metadata> element
func isMarcRecord(e *etree.Element) bool {
	if e.Tag != "record" {
		return false
	}
	if e.NamespaceURI() == NSMARC21 {
		return true
	}
	p := e.Parent()
	return e.NamespaceURI() == "" && p != nil && p.Tag == "metadata"
}

// MarcRecords returns every MARC record within payload in document order
// payload may be a MARC record itself, an OAI record or a whole collection
func MarcRecords(payload *etree.Element) []*etree.Element {
	if payload == nil {
		return nil
	}
	var out []*etree.Element
	var walk func(e *etree.Element)
	walk = func(e *etree.Element) {
		if isMarcRecord(e) {
			out = append(out, e)
			return
		}
		for _, c := range e.ChildElements() {
			walk(c)
		}
	}
	walk(payload)
	return out
}

// Record001 validates and returns the single 001 control field of a MARC record
func Record001(rec *etree.Element) (string, error) {
	var ids []string
	for _, c := range rec.ChildElements() {
		if c.Tag == "controlfield" && attr(c, "tag") == "001" {
			ids = append(ids, strings.TrimSpace(c.Text()))
		}
	}
	switch {
	case len(ids) == 0 || ids[0] == "":
		return "", perr.Malformedf("record without an 001 identifier")
	case len(ids) > 1:
		return "", perr.Malformedf("record with %d 001 identifiers", len(ids))
	}
	return ids[0], nil
}

// BoundwithParentField builds the ADF datafield pointing a boundwith child at its parent
func BoundwithParentField(parentID string) *etree.Element {
	f := etree.NewElement("datafield")
	f.CreateAttr("ind1", " ")
	f.CreateAttr("ind2", " ")
	f.CreateAttr("tag", "ADF")
	sf := f.CreateElement("subfield")
	sf.CreateAttr("code", "a")
	sf.SetText(parentID)
	return f
}

// AppendField adds field as the last child of rec, taking on rec's namespace prefix
func AppendField(rec, field *etree.Element) {
	var adopt func(e *etree.Element)
	adopt = func(e *etree.Element) {
		e.Space = rec.Space
		for _, c := range e.ChildElements() {
			adopt(c)
		}
	}
	adopt(field)
	rec.AddChild(field)
}

// AddMarc21RootNS parses a MARC collection and declares MARC21 as the default namespace
// on a root that has none
func AddMarc21RootNS(data []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeMalformed, "parse marc collection")
	}
	root := doc.Root()
	if root == nil {
		return nil, perr.Malformedf("marc collection has no root element")
	}
	if attr(root, "xmlns") == "" && root.NamespaceURI() != NSMARC21 {
		root.CreateAttr("xmlns", NSMARC21)
	}
	return doc, nil
}

// Detach deep copies e and re-declares every namespace in scope at e, so the copy
// resolves the same names once it no longer has the page document as its parent
func Detach(e *etree.Element) *etree.Element {
	cp := e.Copy()
	declared := map[string]bool{}
	for _, a := range cp.Attr {
		if k, ok := nsDecl(a); ok {
			declared[k] = true
		}
	}
	for p := e.Parent(); p != nil; p = p.Parent() {
		for _, a := range p.Attr {
			k, ok := nsDecl(a)
			if !ok || declared[k] {
				continue
			}
			declared[k] = true
			cp.CreateAttr(a.FullKey(), a.Value)
		}
	}
	return cp
}

// nsDecl reports whether a is a namespace declaration and returns the declared prefix
func nsDecl(a etree.Attr) (string, bool) {
	switch {
	case a.Space == "" && a.Key == "xmlns":
		return "", true
	case a.Space == "xmlns":
		return a.Key, true
	}
	return "", false
}

// ParseFragment parses a standalone XML fragment; prefixes it uses must be declared inside it
func ParseFragment(s string) (*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(s); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeMalformed, "parse fragment")
	}
	root := doc.Root()
	if root == nil {
		return nil, perr.Malformedf("fragment has no element")
	}
	var undeclared string
	var walk func(e *etree.Element)
	walk = func(e *etree.Element) {
		if undeclared != "" {
			return
		}
		if e.Space != "" && e.NamespaceURI() == "" {
			undeclared = e.Space
			return
		}
		for _, c := range e.ChildElements() {
			walk(c)
		}
	}
	walk(root)
	if undeclared != "" {
		return nil, perr.Malformedf("fragment uses undeclared prefix %q", undeclared)
	}
	return Detach(root), nil
}
