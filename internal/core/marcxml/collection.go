package marcxml

import (
	"github.com/beevik/etree"
)

// Collection is one batch document: an oai:collection root holding record payloads
type Collection struct {
	doc  *etree.Document
	root *etree.Element
	n    int
}

// NewCollection starts an empty batch tagged with the run identity; blanks become sentinels
func NewCollection(dagID, timestamp string) *Collection {
	if dagID == "" {
		dagID = NoDagID
	}
	if timestamp == "" {
		timestamp = NoTimestamp
	}
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("oai:collection")
	root.CreateAttr("xmlns:oai", NSOAI)
	root.CreateAttr("dag-id", dagID)
	root.CreateAttr("dag-timestamp", timestamp)
	return &Collection{doc: doc, root: root}
}

// Append moves payload into the collection; the caller must not touch it afterwards
func (c *Collection) Append(payload *etree.Element) {
	c.root.AddChild(payload)
	c.n++
}

// Len is the number of records appended so far
func (c *Collection) Len() int { return c.n }

// DagID returns the run identifier on the root
func (c *Collection) DagID() string { return c.root.SelectAttrValue("dag-id", "") }

// Timestamp returns the run timestamp on the root
func (c *Collection) Timestamp() string { return c.root.SelectAttrValue("dag-timestamp", "") }

// Bytes serializes the collection
func (c *Collection) Bytes() ([]byte, error) {
	return c.doc.WriteToBytes()
}

// Records returns the payloads in append order
func (c *Collection) Records() []*etree.Element { return c.root.ChildElements() }
