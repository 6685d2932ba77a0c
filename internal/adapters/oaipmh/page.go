package oaipmh

import (
	"fmt"
	"strings"

	"tulflow/internal/core/marcxml"

	"github.com/beevik/etree"
)

// ErrNoRecordsMatch is the protocol code for an empty date or set window
const ErrNoRecordsMatch = "noRecordsMatch"

// OAIError is an <error> returned in place of a list
type OAIError struct {
	Code    string
	Message string
}

func (e OAIError) Error() string {
	return fmt.Sprintf("oai error %s: %s", e.Code, strings.TrimSpace(e.Message))
}

// Set is one entry of a ListSets response
type Set struct {
	Spec string `json:"spec"`
	Name string `json:"name,omitempty"`
}

// page is one decoded response
type page struct {
	records []*etree.Element
	sets    []Set
	token   string
	oaiErr  *OAIError
}

// parsePage decodes an OAI-PMH response body for the given verb
func parsePage(body []byte, verb string) (*page, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "OAI-PMH" {
		return nil, fmt.Errorf("response is not an OAI-PMH document")
	}

	p := &page{}
	if e := root.SelectElement("error"); e != nil {
		p.oaiErr = &OAIError{Code: e.SelectAttrValue("code", ""), Message: e.Text()}
		return p, nil
	}

	list := root.SelectElement(verb)
	if list == nil {
		return nil, fmt.Errorf("response has no %s element", verb)
	}
	for _, c := range list.ChildElements() {
		switch c.Tag {
		case "record":
			p.records = append(p.records, marcxml.Detach(c))
		case "set":
			s := Set{}
			if e := c.SelectElement("setSpec"); e != nil {
				s.Spec = strings.TrimSpace(e.Text())
			}
			if e := c.SelectElement("setName"); e != nil {
				s.Name = strings.TrimSpace(e.Text())
			}
			if s.Spec != "" {
				p.sets = append(p.sets, s)
			}
		case "resumptionToken":
			p.token = strings.TrimSpace(c.Text())
		}
	}
	return p, nil
}
