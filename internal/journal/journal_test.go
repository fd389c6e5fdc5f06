package journal

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tinytelemetry/mongoperf/internal/model"
)

func spoolDoc(asOf string) *model.Document {
	return &model.Document{
		Server:    "db1",
		AsOf:      asOf,
		PerfStats: model.Stats{"conn": "5"},
	}
}

func TestAppendReplayCommit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "insert.spool")

	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })

	seq1, err := j.Append(spoolDoc("first"))
	if err != nil {
		t.Fatalf("Append doc1: %v", err)
	}
	seq2, err := j.Append(&model.Document{
		Server:     "db1",
		AsOf:       "second",
		ReplicaSet: &model.ReplicaSet{Name: "rs0", State: "SEC"},
		PerfStats:  model.Stats{},
	})
	if err != nil {
		t.Fatalf("Append doc2: %v", err)
	}
	if seq2 <= seq1 {
		t.Fatalf("sequence did not advance: seq1=%d seq2=%d", seq1, seq2)
	}

	if err := j.Commit(seq1); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	var replayed []*model.Document
	err = j.Replay(func(_ uint64, d *model.Document) error {
		replayed = append(replayed, d)
		return nil
	})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(replayed) != 1 || replayed[0].AsOf != "second" {
		t.Fatalf("Replay = %+v, want [second]", replayed)
	}
	if replayed[0].ReplicaSet == nil || replayed[0].ReplicaSet.State != "SEC" {
		t.Fatalf("replica set not round-tripped: %+v", replayed[0].ReplicaSet)
	}
}

func TestOpenIgnoresPartialTrailingLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "insert.spool")

	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := j.Append(spoolDoc("ok")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Simulate torn write.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if _, err := f.WriteString(`{"seq":999,"doc":`); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close torn writer: %v", err)
	}

	j2, err := Open(path)
	if err != nil {
		t.Fatalf("Open second: %v", err)
	}
	defer func() { _ = j2.Close() }()

	n, err := j2.Pending()
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if n != 1 {
		t.Fatalf("Pending after torn write = %d, want 1", n)
	}
}

func TestDrainCommitsDeliveredAndStopsAtFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "insert.spool")

	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })

	for _, asOf := range []string{"a", "b", "c"} {
		if _, err := j.Append(spoolDoc(asOf)); err != nil {
			t.Fatalf("Append %s: %v", asOf, err)
		}
	}

	down := errors.New("store down")
	var seen []string
	n, err := j.Drain(func(d *model.Document) error {
		seen = append(seen, d.AsOf)
		if d.AsOf == "b" {
			return down
		}
		return nil
	})
	if !errors.Is(err, down) {
		t.Fatalf("Drain error = %v, want %v", err, down)
	}
	if n != 1 {
		t.Fatalf("Drain delivered %d, want 1", n)
	}
	if len(seen) != 2 {
		t.Fatalf("Drain visited %v, want [a b]", seen)
	}

	n, err = j.Drain(func(*model.Document) error { return nil })
	if err != nil {
		t.Fatalf("second Drain: %v", err)
	}
	if n != 2 {
		t.Fatalf("second Drain delivered %d, want 2", n)
	}
	if pending, _ := j.Pending(); pending != 0 {
		t.Fatalf("Pending = %d, want 0", pending)
	}
}

func TestCommittedSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "insert.spool")

	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	seq, err := j.Append(spoolDoc("x"))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := j.Commit(seq); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	_ = j.Close()

	j2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = j2.Close() }()
	if j2.Committed() != seq {
		t.Fatalf("Committed = %d, want %d", j2.Committed(), seq)
	}
	if pending, _ := j2.Pending(); pending != 0 {
		t.Fatalf("Pending = %d, want 0", pending)
	}
}

func TestReplayKeepsNumericTypes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "insert.spool")

	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })

	doc := spoolDoc("numbers")
	doc.PerfStats = model.Stats{"count": int64(5), "ratio": json.Number("1.0")}
	if _, err := j.Append(doc); err != nil {
		t.Fatalf("Append: %v", err)
	}

	var got model.Stats
	err = j.Replay(func(_ uint64, d *model.Document) error {
		got = d.PerfStats
		return nil
	})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if got["count"] != json.Number("5") {
		t.Fatalf("count = %#v, want json.Number(\"5\")", got["count"])
	}
	if got["ratio"] != json.Number("1.0") {
		t.Fatalf("ratio = %#v, want json.Number(\"1.0\")", got["ratio"])
	}
}
