package sink

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/tinytelemetry/mongoperf/internal/model"
)

// Config is the resolved sink selection for one run.
type Config struct {
	OutputPath      string
	Flatten         bool
	Indent          int
	SuppressConsole bool
	StoreTarget     string // "database:collection"; empty disables the store sink
	MailTo          []string
}

// Deps are the collaborators the router hands to its sinks.
type Deps struct {
	Inserter model.DocumentInserter // nil disables the store sink
	Archiver model.DocumentArchiver // nil disables the archive sink
	Spool    Spooler                // optional, for failed inserts
	Stdout   io.Writer
	Stderr   io.Writer
}

// SinkError is one sink's failure for one document.
type SinkError struct {
	Sink string
	Err  error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("%s sink: %v", e.Sink, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }

// Router dispatches each document to the configured sinks in a fixed order:
// store, archive, file, console, mail.
type Router struct {
	cfg    Config
	sinks  []Sink
	stderr io.Writer
}

// NewRouter builds the ordered sink list. A store target without an inserter
// leaves the store sink inactive; a malformed target is an error.
func NewRouter(cfg Config, deps Deps) (*Router, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}

	var sinks []Sink
	if cfg.StoreTarget != "" && deps.Inserter != nil {
		target, err := model.ParseStoreTarget(cfg.StoreTarget)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, &StoreSink{inserter: deps.Inserter, target: target, spool: deps.Spool})
	} else if cfg.StoreTarget != "" {
		log.Printf("sink: store target %q set without a store connection, insert disabled", cfg.StoreTarget)
	}
	if deps.Archiver != nil {
		sinks = append(sinks, &ArchiveSink{archiver: deps.Archiver})
	}
	if cfg.OutputPath != "" {
		sinks = append(sinks, &FileSink{path: cfg.OutputPath})
	}
	if !cfg.SuppressConsole {
		sinks = append(sinks, &ConsoleSink{w: deps.Stdout})
	}
	if len(cfg.MailTo) > 0 {
		sinks = append(sinks, &MailSink{})
	}

	return &Router{cfg: cfg, sinks: sinks, stderr: deps.Stderr}, nil
}

// Sinks returns the active sink names in dispatch order.
func (r *Router) Sinks() []string {
	names := make([]string, len(r.sinks))
	for i, s := range r.sinks {
		names[i] = s.Name()
	}
	return names
}

// Dispatch writes doc to every active sink. A failing sink prints one error
// line and does not stop the remaining sinks.
func (r *Router) Dispatch(ctx context.Context, doc model.Document, state *RunState) []*SinkError {
	p := newPayload(doc, r.cfg.Flatten, r.cfg.Indent)

	var errs []*SinkError
	for _, s := range r.sinks {
		if err := s.Write(ctx, p, state); err != nil {
			se := &SinkError{Sink: s.Name(), Err: err}
			errs = append(errs, se)
			fmt.Fprintf(r.stderr, "%s error: %v\n", s.Name(), err)
			log.Printf("sink: %v", se)
		}
	}
	return errs
}
