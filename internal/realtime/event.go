// Package realtime fans database change events out to subscribers filtered by
// table and column equality, the same shape the hosted change feed exposed.
package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
	// EventResync tells a subscriber it missed events and must reload.
	EventResync = "RESYNC"
	// EventPush carries an ephemeral notification that is not a row change.
	EventPush = "PUSH"
)

// Event is one row change. A Partial event carries only the id and filter
// columns because the full row did not fit in a notification; consumers read
// the row back.
type Event struct {
	Table           string          `json:"table"`
	Type            string          `json:"type"`
	Record          json.RawMessage `json:"record,omitempty"`
	OldRecord       json.RawMessage `json:"old_record,omitempty"`
	CommitTimestamp time.Time       `json:"commit_timestamp"`
	Partial         bool            `json:"partial,omitempty"`
}

// Row returns the record the event is about: the old record for deletes.
func (e Event) Row() json.RawMessage {
	if e.Type == EventDelete && len(e.OldRecord) > 0 {
		return e.OldRecord
	}
	return e.Record
}

// ID extracts the "id" column of the event row.
func (e Event) ID() (string, error) {
	var row struct {
		ID any `json:"id"`
	}
	if err := json.Unmarshal(e.Row(), &row); err != nil {
		return "", err
	}
	if row.ID == nil {
		return "", errors.New("event row has no id")
	}
	return fmt.Sprint(row.ID), nil
}

var ErrBadFilter = errors.New("filter must look like column=eq.value")

// Filter is a single column equality, written "column=eq.value". The zero
// Filter matches every row.
type Filter struct {
	Column string
	Value  string
}

func ParseFilter(raw string) (Filter, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Filter{}, nil
	}
	col, rest, ok := strings.Cut(raw, "=")
	if !ok {
		return Filter{}, ErrBadFilter
	}
	val, ok := strings.CutPrefix(rest, "eq.")
	col = strings.TrimSpace(col)
	if !ok || col == "" || val == "" {
		return Filter{}, ErrBadFilter
	}
	return Filter{Column: col, Value: val}, nil
}

func (f Filter) String() string {
	if f.Column == "" {
		return ""
	}
	return f.Column + "=eq." + f.Value
}

func (f Filter) Matches(e Event) bool {
	if f.Column == "" {
		return true
	}
	var row map[string]any
	if err := json.Unmarshal(e.Row(), &row); err != nil {
		return false
	}
	v, ok := row[f.Column]
	if !ok || v == nil {
		return false
	}
	return fmt.Sprint(v) == f.Value
}
