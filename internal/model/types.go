package model

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Stats is the statistics payload of one mongostat sample, keyed by
// statistic name. Values are strings, int64, json.Number, float64, bool,
// nil, []any or nested Stats-shaped maps.
type Stats = map[string]any

// ReplicaSet identifies the replica set a sample was taken from and the
// member's role in it.
type ReplicaSet struct {
	Name  string `json:"RepSet"`
	State string `json:"RepState"`
}

// KeyOrder is the order statistics were reported in, with the order of
// nested mappings by key.
type KeyOrder struct {
	Keys   []string
	Nested map[string]*KeyOrder
}

// Record is one parsed mongostat sample with its reserved metadata split out.
type Record struct {
	Time       string      // time of day reported by mongostat
	ReplicaSet *ReplicaSet // nil for a standalone server
	Stats      Stats
	Order      *KeyOrder // nil when the source order is unknown
}

// Document is the enriched, sink-ready form of a Record.
// It is the canonical type for every sink: console, file, store, archive and mail.
type Document struct {
	Server string `json:"Server"`
	AsOf   string `json:"AsOf"`
	*ReplicaSet
	PerfStats Stats `json:"PerfStats"`

	// StatsOrder, when set, is the order PerfStats keys are encoded in.
	StatsOrder *KeyOrder `json:"-"`
}

// MarshalJSON encodes PerfStats in StatsOrder. Keys missing from the order
// follow in sorted order; without an order every key is sorted.
func (d Document) MarshalJSON() ([]byte, error) {
	type plain Document
	if d.StatsOrder == nil {
		return json.Marshal(plain(d))
	}
	return json.Marshal(struct {
		plain
		PerfStats orderedStats `json:"PerfStats"`
	}{plain(d), orderedStats{m: d.PerfStats, order: d.StatsOrder}})
}

type orderedStats struct {
	m     map[string]any
	order *KeyOrder
}

func (o orderedStats) MarshalJSON() ([]byte, error) {
	if o.m == nil {
		return []byte("null"), nil
	}
	keys := make([]string, 0, len(o.m))
	listed := make(map[string]bool, len(o.order.Keys))
	for _, k := range o.order.Keys {
		if _, ok := o.m[k]; ok && !listed[k] {
			keys = append(keys, k)
			listed[k] = true
		}
	}
	rest := make([]string, 0, len(o.m)-len(keys))
	for k := range o.m {
		if !listed[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	keys = append(keys, rest...)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')

		var v any = o.m[k]
		if nested, ok := v.(map[string]any); ok && o.order.Nested[k] != nil {
			v = orderedStats{m: nested, order: o.order.Nested[k]}
		}
		vb, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// IsReplicaSet reports whether the document was captured from a replica set member.
func (d Document) IsReplicaSet() bool {
	return d.ReplicaSet != nil
}
