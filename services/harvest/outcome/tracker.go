// Package outcome records per-entity error and warning events during a
// harvest run and exposes them for final reporting.
package outcome

import (
	"time"
)

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityError {
		return "ERROR"
	}
	return "WARNING"
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(data []byte) error {
	if string(data) == "WARNING" {
		*s = SeverityWarning
	} else {
		*s = SeverityError
	}
	return nil
}

// Kind tags what went wrong. Connection failures are the only fatal
// per-item kind, everything else degrades to placeholders.
type Kind string

const (
	ConnectionError      Kind = "CONNECTION_ERROR"
	ParseError           Kind = "PARSE_ERROR"
	DownloadFailed       Kind = "DOWNLOAD_FAILED"
	MetadataSaveError    Kind = "METADATA_SAVE_ERROR"
	MissingData          Kind = "MISSING_DATA"
	NoResumeURL          Kind = "NO_RESUME_URL"
	DateExtractionFailed Kind = "DATE_EXTRACTION_FAILED"
)

type Event struct {
	Severity   Severity  `json:"severity"`
	Kind       Kind      `json:"kind"`
	EntityID   int64     `json:"entity_id"`
	EntityName string    `json:"entity_name,omitempty"`
	SourceURL  string    `json:"source_url,omitempty"`
	Message    string    `json:"message"`
	Time       time.Time `json:"timestamp"`
}

// Context carries the optional event fields.
type Context struct {
	Name      string
	SourceURL string
	Message   string
}

type eventKey struct {
	entityID int64
	kind     Kind
}

// Tracker accumulates events for one batch run. At most one event per
// (entity id, kind) pair is retained, later recordings of the same pair
// are dropped except that they may late-fill a missing entity name.
// Not safe for concurrent use, the batch flow is strictly sequential.
type Tracker struct {
	events []*Event
	seen   map[eventKey]*Event
	names  map[int64]string
	now    func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		seen:  map[eventKey]*Event{},
		names: map[int64]string{},
		now:   time.Now,
	}
}

func (t *Tracker) Error(kind Kind, entityID int64, c Context) {
	t.record(SeverityError, kind, entityID, c)
}

func (t *Tracker) Warn(kind Kind, entityID int64, c Context) {
	t.record(SeverityWarning, kind, entityID, c)
}

func (t *Tracker) record(severity Severity, kind Kind, entityID int64, c Context) {
	if c.Name != "" {
		t.names[entityID] = c.Name
	}

	key := eventKey{entityID: entityID, kind: kind}
	if existing, ok := t.seen[key]; ok {
		if existing.EntityName == "" {
			existing.EntityName = t.names[entityID]
		}
		return
	}

	name := c.Name
	if name == "" {
		name = t.names[entityID]
	}
	ev := &Event{
		Severity:   severity,
		Kind:       kind,
		EntityID:   entityID,
		EntityName: name,
		SourceURL:  c.SourceURL,
		Message:    c.Message,
		Time:       t.now(),
	}
	t.seen[key] = ev
	t.events = append(t.events, ev)
}

// SetEntityName patches the name onto every already-recorded event for
// the entity that is still missing one. Resolution often learns a name
// only after errors for the same entity were recorded.
func (t *Tracker) SetEntityName(entityID int64, name string) {
	if name == "" {
		return
	}
	t.names[entityID] = name
	for _, ev := range t.events {
		if ev.EntityID == entityID && ev.EntityName == "" {
			ev.EntityName = name
		}
	}
}

// Report is the finalized event listing, grouped by severity with
// recording order preserved within each group.
type Report struct {
	Errors   []Event `json:"errors"`
	Warnings []Event `json:"warnings"`
}

func (t *Tracker) Finalize() Report {
	var r Report
	for _, ev := range t.events {
		if ev.Severity == SeverityError {
			r.Errors = append(r.Errors, *ev)
		} else {
			r.Warnings = append(r.Warnings, *ev)
		}
	}
	return r
}

// Recommendation derives advisory text from the dominant error kind.
// Never used for control flow.
func (r Report) Recommendation() string {
	counts := map[Kind]int{}
	for _, ev := range r.Errors {
		counts[ev.Kind]++
	}
	var dominant Kind
	best := 0
	for _, ev := range r.Errors {
		// iterate events, not the map, to keep ties deterministic
		if counts[ev.Kind] > best {
			best = counts[ev.Kind]
			dominant = ev.Kind
		}
	}

	switch dominant {
	case ConnectionError:
		return "repeated connection errors: check that the session is still authenticated and the ERP host is reachable"
	case DownloadFailed:
		return "repeated download failures: check file-server availability and the download timeout"
	case ParseError:
		return "repeated parse errors: the page layout may have changed, re-check the extraction patterns"
	case MetadataSaveError:
		return "metadata save failures: check disk space and permissions on the output directories"
	}
	return ""
}
