package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/tinytelemetry/mongoperf/internal/literal"
	"github.com/tinytelemetry/mongoperf/internal/model"
)

// Reserved mongostat fields lifted out of the statistics payload.
const (
	FieldTime    = "time"
	FieldRepSet  = "set"
	FieldRepRole = "repl"
)

var (
	// ErrNotSingleEntry is returned when a line's outer mapping does not hold exactly one entry.
	ErrNotSingleEntry = errors.New("ingest: outer mapping must hold exactly one entry")
	// ErrMissingTime is returned when a sample carries no capture time.
	ErrMissingTime = errors.New("ingest: sample has no time field")
)

// ParseError ties a parse failure to the output line it came from.
type ParseError struct {
	Line int // 1-based among non-empty lines
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("ingest: line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseLine parses one mongostat output line into a Record.
//
// The line is a mapping literal whose single entry is keyed by host; the key
// is discarded and the value is the sample. time, set and repl are removed
// from the sample. The replica set is only recorded when both set and repl
// are present.
func ParseLine(line string) (*model.Record, error) {
	outer, order, err := literal.ParseMappingOrdered(line)
	if err != nil {
		return nil, err
	}
	if len(outer) != 1 {
		return nil, fmt.Errorf("%w: got %d", ErrNotSingleEntry, len(outer))
	}

	var (
		inner      map[string]any
		innerOrder *literal.Order
	)
	for key, v := range outer {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("ingest: entry %q is %T, want mapping", key, v)
		}
		inner = m
		innerOrder = order.Nested[key]
	}

	timeVal, ok := inner[FieldTime]
	if !ok {
		return nil, ErrMissingTime
	}

	rec := &model.Record{
		Time:  stringifyValue(timeVal),
		Stats: make(model.Stats, len(inner)),
		Order: keyOrder(innerOrder, FieldTime, FieldRepSet, FieldRepRole),
	}
	for k, v := range inner {
		rec.Stats[k] = v
	}
	delete(rec.Stats, FieldTime)

	setVal, hasSet := rec.Stats[FieldRepSet]
	roleVal, hasRole := rec.Stats[FieldRepRole]
	delete(rec.Stats, FieldRepSet)
	delete(rec.Stats, FieldRepRole)
	if hasSet && hasRole {
		rec.ReplicaSet = &model.ReplicaSet{
			Name:  stringifyValue(setVal),
			State: stringifyValue(roleVal),
		}
	}

	return rec, nil
}

// keyOrder converts a parsed key order, leaving out the skipped keys.
func keyOrder(o *literal.Order, skip ...string) *model.KeyOrder {
	if o == nil {
		return nil
	}
	out := &model.KeyOrder{Keys: make([]string, 0, len(o.Keys))}
	for _, k := range o.Keys {
		if !slices.Contains(skip, k) {
			out.Keys = append(out.Keys, k)
		}
	}
	for k, sub := range o.Nested {
		if slices.Contains(skip, k) {
			continue
		}
		if out.Nested == nil {
			out.Nested = map[string]*model.KeyOrder{}
		}
		out.Nested[k] = keyOrder(sub)
	}
	return out
}

func stringifyValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64, bool, int64:
		return fmt.Sprintf("%v", v)
	default:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
	}
	return ""
}
