package ingest

import (
	"github.com/tinytelemetry/mongoperf/internal/model"
)

// Processor turns raw mongostat lines into Documents.
type Processor struct {
	enricher Enricher
	lines    int
}

// NewProcessor creates a processor that enriches every parsed line with enricher.
func NewProcessor(enricher Enricher) *Processor {
	return &Processor{enricher: enricher}
}

// ProcessLine parses and enriches one line. Errors are wrapped in *ParseError.
func (p *Processor) ProcessLine(line string) (model.Document, error) {
	p.lines++
	rec, err := ParseLine(line)
	if err != nil {
		return model.Document{}, &ParseError{Line: p.lines, Err: err}
	}
	return p.enricher.Enrich(rec), nil
}

// Processed returns the number of lines seen so far.
func (p *Processor) Processed() int {
	return p.lines
}
