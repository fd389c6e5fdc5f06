package ingest

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/tinytelemetry/mongoperf/internal/literal"
)

func TestParseLine_Standalone(t *testing.T) {
	t.Parallel()

	rec, err := ParseLine(`{1: {"time": "10:00:00", "x": 1}}`)
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if rec.Time != "10:00:00" {
		t.Errorf("Time = %q, want 10:00:00", rec.Time)
	}
	if rec.ReplicaSet != nil {
		t.Errorf("ReplicaSet = %+v, want nil", rec.ReplicaSet)
	}
	if len(rec.Stats) != 1 || rec.Stats["x"] != int64(1) {
		t.Errorf("Stats = %#v, want {x:1}", rec.Stats)
	}
}

func TestParseLine_ReplicaSet(t *testing.T) {
	t.Parallel()

	rec, err := ParseLine(`{1: {1: 11, 'time': 'timestamp', 'set': 'spock', 'repl': 'PRI'}}`)
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if rec.ReplicaSet == nil {
		t.Fatal("ReplicaSet = nil, want spock/PRI")
	}
	if rec.ReplicaSet.Name != "spock" || rec.ReplicaSet.State != "PRI" {
		t.Errorf("ReplicaSet = %+v, want spock/PRI", rec.ReplicaSet)
	}
	for _, k := range []string{FieldTime, FieldRepSet, FieldRepRole} {
		if _, ok := rec.Stats[k]; ok {
			t.Errorf("Stats still holds reserved key %q", k)
		}
	}
	if rec.Stats["1"] != int64(11) {
		t.Errorf("Stats[1] = %#v, want 11", rec.Stats["1"])
	}
}

func TestParseLine_PartialReplicaSetFieldsDropped(t *testing.T) {
	t.Parallel()

	rec, err := ParseLine(`{'h': {'time': 't', 'set': 'rs0', 'qr': 0}}`)
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if rec.ReplicaSet != nil {
		t.Errorf("ReplicaSet = %+v, want nil when repl is absent", rec.ReplicaSet)
	}
	if _, ok := rec.Stats["set"]; ok {
		t.Error("set should be removed from stats even without repl")
	}
	if _, ok := rec.Stats["qr"]; !ok {
		t.Error("qr should stay in stats")
	}
}

func TestParseLine_PreservesNonReservedKeys(t *testing.T) {
	t.Parallel()

	line := `{"localhost:27017":{"arw":"1|0","conn":"5","dirty":"0.0%","flushes":"0","time":"12:01:02","set":"rs0","repl":"SEC","vsize":"1.5G"}}`
	rec, err := ParseLine(line)
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	want := []string{"arw", "conn", "dirty", "flushes", "vsize"}
	if len(rec.Stats) != len(want) {
		t.Fatalf("Stats has %d keys, want %d: %#v", len(rec.Stats), len(want), rec.Stats)
	}
	for _, k := range want {
		if _, ok := rec.Stats[k]; !ok {
			t.Errorf("Stats missing %q", k)
		}
	}
}

func TestParseLine_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
		want error
	}{
		{"multiple entries", `{1: {'time': 'a'}, 2: {'time': 'b'}}`, ErrNotSingleEntry},
		{"empty mapping", `{}`, ErrNotSingleEntry},
		{"missing time", `{1: {'x': 1}}`, ErrMissingTime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseLine(tt.line)
			if !errors.Is(err, tt.want) {
				t.Fatalf("ParseLine error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseLine_Malformed(t *testing.T) {
	t.Parallel()

	_, err := ParseLine(`{1: {'time': '10:00'`)
	var se *literal.SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("ParseLine error = %v, want *literal.SyntaxError", err)
	}

	if _, err := ParseLine(`{1: [1, 2]}`); err == nil {
		t.Fatal("ParseLine with non-mapping entry: error = nil")
	}
}

func TestParseLine_KeepsReportedOrder(t *testing.T) {
	t.Parallel()

	line := `{'db1:27017': {'vsize': '1.5G', 'time': '10:00:00', 'arw': '1|0', 'set': 'rs0', 'repl': 'PRI', 'locks': {'w': 1, 'r': 2}, 'conn': '5'}}`
	rec, err := ParseLine(line)
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if rec.Order == nil {
		t.Fatal("Order = nil")
	}
	if want := []string{"vsize", "arw", "locks", "conn"}; !reflect.DeepEqual(rec.Order.Keys, want) {
		t.Fatalf("Order.Keys = %v, want %v", rec.Order.Keys, want)
	}

	doc := Enricher{Server: "db1", Now: func() time.Time { return time.Date(2026, 10, 19, 0, 0, 0, 0, time.Local) }}.Enrich(rec)
	out, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	want := `{"Server":"db1","AsOf":"2026-10-19 10:00:00","RepSet":"rs0","RepState":"PRI",` +
		`"PerfStats":{"vsize":"1.5G","arw":"1|0","locks":{"w":1,"r":2},"conn":"5"}}`
	if string(out) != want {
		t.Fatalf("json.Marshal =\n%s\nwant\n%s", out, want)
	}
	if strings.Contains(string(out), `"time"`) {
		t.Fatalf("reserved field leaked: %s", out)
	}
}
