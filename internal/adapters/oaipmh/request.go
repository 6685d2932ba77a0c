// Package oaipmh is a small OAI-PMH 2.0 client: list requests, resumption token paging,
// protocol errors, and detached record trees for the harvest pipeline
package oaipmh

import (
	"fmt"
	"net/url"
	"strings"
)

// Verbs this client issues
const (
	VerbListRecords = "ListRecords"
	VerbListSets    = "ListSets"
	VerbIdentify    = "Identify"
)

var protocolArgs = []string{"verb", "metadataPrefix", "set", "from", "until", "resumptionToken"}

// Request holds the protocol arguments of one list request
// From and Until are OAI datestamps, day or second granularity, passed through verbatim
type Request struct {
	Endpoint        string
	Verb            string
	MetadataPrefix  string
	Set             string
	From            string
	Until           string
	ResumptionToken string
}

// URL renders the request; a resumption token is an exclusive argument
func (r Request) URL() (string, error) {
	if strings.TrimSpace(r.Endpoint) == "" {
		return "", fmt.Errorf("oaipmh: an endpoint is required")
	}
	u, err := url.Parse(r.Endpoint)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("oaipmh: bad endpoint %q", r.Endpoint)
	}
	switch r.Verb {
	case VerbListRecords, VerbListSets, VerbIdentify:
	default:
		return "", fmt.Errorf("oaipmh: unsupported verb %q", r.Verb)
	}

	// endpoint parameters such as an api key ride along; protocol arguments are ours
	values := u.Query()
	for _, k := range protocolArgs {
		values.Del(k)
	}
	values.Set("verb", r.Verb)
	if r.ResumptionToken != "" {
		values.Set("resumptionToken", r.ResumptionToken)
	} else if r.Verb == VerbListRecords {
		add := func(k, v string) {
			if v != "" {
				values.Set(k, v)
			}
		}
		add("metadataPrefix", r.MetadataPrefix)
		add("set", r.Set)
		add("from", r.From)
		add("until", r.Until)
	}
	u.RawQuery = values.Encode()
	return u.String(), nil
}

// next returns the follow up request for a resumption token
func (r Request) next(token string) Request {
	return Request{Endpoint: r.Endpoint, Verb: r.Verb, ResumptionToken: token}
}
