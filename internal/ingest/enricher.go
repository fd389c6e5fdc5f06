package ingest

import (
	"time"

	"github.com/tinytelemetry/mongoperf/internal/model"
)

// DateLayout is the calendar date prefixed to mongostat's time of day.
const DateLayout = "2006-01-02"

// Enricher turns parsed Records into Documents for one server.
type Enricher struct {
	Server string
	Now    func() time.Time // defaults to time.Now
}

// Enrich builds the Document for rec. AsOf is today's date, a space, and
// the sample's own time of day.
func (e Enricher) Enrich(rec *model.Record) model.Document {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	doc := model.Document{
		Server:     e.Server,
		AsOf:       now().Format(DateLayout) + " " + rec.Time,
		PerfStats:  rec.Stats,
		StatsOrder: rec.Order,
	}
	if rec.ReplicaSet != nil {
		rs := *rec.ReplicaSet
		doc.ReplicaSet = &rs
	}
	return doc
}
