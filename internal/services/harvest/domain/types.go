// Package domain holds the types and ports of the harvest pipeline
package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	"gopkg.in/yaml.v3"
)

// HarvestRequest is one ListRecords call, built once per set per run
// From and Until are OAI datestamps; empty means unbounded
type HarvestRequest struct {
	Endpoint       string
	MetadataPrefix string
	Set            string
	From           string
	Until          string
}

// RawRecord is one harvested record. The consumer owns Payload and may mutate it;
// Identifier and Deleted are fixed by the source
type RawRecord struct {
	Identifier string
	Deleted    bool
	Payload    *etree.Element
}

// RunCounts tallies records per stream
type RunCounts struct {
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
}

// Add returns the sum of c and o
func (c RunCounts) Add(o RunCounts) RunCounts {
	return RunCounts{Updated: c.Updated + o.Updated, Deleted: c.Deleted + o.Deleted}
}

// SetList is a list of set specs that also decodes from a bare scalar
type SetList []string

// UnmarshalYAML accepts `sets: a` as well as `sets: [a, b]`
func (l *SetList) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			*l = nil
			return nil
		}
		*l = SetList{n.Value}.clean()
		return nil
	case yaml.SequenceNode:
		var out []string
		if err := n.Decode(&out); err != nil {
			return err
		}
		*l = SetList(out).clean()
		return nil
	}
	return fmt.Errorf("line %d: set list must be a string or a list of strings", n.Line)
}

// UnmarshalJSON accepts "a" as well as ["a","b"]
func (l *SetList) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*l = SetList{one}.clean()
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("set list must be a string or a list of strings")
	}
	*l = SetList(many).clean()
	return nil
}

// clean trims entries and drops blanks
func (l SetList) clean() SetList {
	var out SetList
	for _, s := range l {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SetSelection configures which sets a run harvests
type SetSelection struct {
	AllSets  bool    `yaml:"all_sets" json:"all_sets"`
	Included SetList `yaml:"included_sets" json:"included_sets,omitempty"`
	Excluded SetList `yaml:"excluded_sets" json:"excluded_sets,omitempty"`
}

// DefaultRecordsPerFile caps a batch document when no size is configured
const DefaultRecordsPerFile = 1000

// BatchConfig configures the classify and batch step
type BatchConfig struct {
	RecordsPerFile int    `yaml:"records_per_file" json:"records_per_file,omitempty" validate:"omitempty,min=1"`
	DagID          string `yaml:"dag_id" json:"dag_id,omitempty"`
	Timestamp      string `yaml:"timestamp" json:"timestamp,omitempty"`

	// Transform runs on every payload before it is batched; nil skips it
	Transform Transform `yaml:"-" json:"-"`
}

// PerFile returns the batch size with the default applied
func (b BatchConfig) PerFile() int {
	if b.RecordsPerFile <= 0 {
		return DefaultRecordsPerFile
	}
	return b.RecordsPerFile
}

// LookupConfig points at the enrichment table for a run
type LookupConfig struct {
	Bucket string `yaml:"bucket" json:"bucket,omitempty"`
	Key    string `yaml:"key" json:"key,omitempty"`
	Path   string `yaml:"path" json:"path,omitempty"`

	// BoundwithParentField also appends the ADF parent pointer to matched records
	BoundwithParentField bool `yaml:"boundwith_parent_field" json:"boundwith_parent_field,omitempty"`
}

// Enabled reports whether a table source is configured
func (l LookupConfig) Enabled() bool { return l.Key != "" || l.Path != "" }

// Policy decides what a set failure does to the rest of the run
type Policy string

const (
	// PolicyFailFast aborts the run at the first failed set
	PolicyFailFast Policy = "fail_fast"
	// PolicyContinue harvests the remaining sets and reports failures together
	PolicyContinue Policy = "continue"
)

// Pipeline is the full configuration of one harvest run. Profiles on disk and API
// requests both decode into it
type Pipeline struct {
	Profile        string `yaml:"profile" json:"profile" validate:"required,max=128"`
	Endpoint       string `yaml:"endpoint" json:"endpoint" validate:"required,url"`
	MetadataPrefix string `yaml:"metadata_prefix" json:"metadata_prefix" validate:"required"`

	From  string `yaml:"from" json:"from,omitempty" validate:"oai_date"`
	Until string `yaml:"until" json:"until,omitempty" validate:"oai_date"`

	// Incremental derives From and Until from the stored marker, ignoring the fields above
	Incremental   bool `yaml:"incremental" json:"incremental,omitempty"`
	IntervalHours int  `yaml:"publish_interval_hours" json:"publish_interval_hours,omitempty" validate:"min=0"`

	Sets   SetSelection `yaml:"sets" json:"sets"`
	Batch  BatchConfig  `yaml:"batch" json:"batch"`
	Lookup LookupConfig `yaml:"lookup" json:"lookup"`
	Policy Policy       `yaml:"policy" json:"policy,omitempty" validate:"omitempty,oneof=fail_fast continue"`
}

// Interval is how far before the last harvest an incremental window starts
func (p Pipeline) Interval() time.Duration { return time.Duration(p.IntervalHours) * time.Hour }

// EffectivePolicy returns the policy with the fail fast default applied
func (p Pipeline) EffectivePolicy() Policy {
	if p.Policy == "" {
		return PolicyFailFast
	}
	return p.Policy
}

// Window is the date range of a harvest as OAI datestamps
type Window struct {
	From  string `json:"from,omitempty"`
	Until string `json:"until,omitempty"`
}

// SetResult is the outcome of one set within a run; Set is empty for an unpartitioned harvest
type SetResult struct {
	Set    string    `json:"set"`
	Counts RunCounts `json:"counts"`
	Err    error     `json:"-"`
}

// Result is what a finished run reports
type Result struct {
	RunID string `json:"run_id"`
	RunCounts
	Window Window      `json:"window"`
	Sets   []SetResult `json:"sets"`
}

// PartialError reports the sets that failed under PolicyContinue
type PartialError struct {
	Failed []SetResult
}

func (e *PartialError) Error() string {
	names := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		names = append(names, fmt.Sprintf("%q: %v", f.Set, f.Err))
	}
	return fmt.Sprintf("harvest failed for %d set(s): %s", len(e.Failed), strings.Join(names, "; "))
}

// Unwrap exposes each set error to errors.Is and errors.As
func (e *PartialError) Unwrap() []error {
	out := make([]error, 0, len(e.Failed))
	for _, f := range e.Failed {
		out = append(out, f.Err)
	}
	return out
}

// Run status values kept in the ledger
const (
	StatusRunning = "running"
	StatusOK      = "ok"
	StatusPartial = "partial"
	StatusError   = "error"
)

// Run is a ledger row for one pipeline invocation
type Run struct {
	ID         string     `json:"id"`
	Profile    string     `json:"profile"`
	DagID      string     `json:"dag_id"`
	Timestamp  string     `json:"timestamp"`
	Window     Window     `json:"window"`
	Status     string     `json:"status"`
	Counts     RunCounts  `json:"counts"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Sets       []SetRow   `json:"sets,omitempty"`
}

// SetRow is a ledger row for one set of a run
type SetRow struct {
	Set    string    `json:"set"`
	Status string    `json:"status"`
	Counts RunCounts `json:"counts"`
	Error  string    `json:"error,omitempty"`
}

// Marker remembers the last successful incremental window of a profile
type Marker struct {
	Profile   string
	LastFrom  time.Time
	LastUntil time.Time
	Counts    RunCounts
}
