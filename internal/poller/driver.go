// Package poller runs one collection pass: it reads the mongostat output,
// turns each line into a Document, routes it to the sinks and finally sends
// the email digest.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/tinytelemetry/mongoperf/internal/ingest"
	"github.com/tinytelemetry/mongoperf/internal/mailer"
	"github.com/tinytelemetry/mongoperf/internal/model"
	"github.com/tinytelemetry/mongoperf/internal/sink"
	"github.com/tinytelemetry/mongoperf/internal/statsource"
)

var (
	// ErrAlreadyRun is returned when Run is called on a driver that has left Idle.
	ErrAlreadyRun = errors.New("poller: driver already ran")
	// ErrNoMailer is returned by New when recipients are set without a transport.
	ErrNoMailer = errors.New("poller: mail recipients configured without a mail transport")
)

// Dispatcher routes one Document to the sinks.
type Dispatcher interface {
	Dispatch(ctx context.Context, doc model.Document, state *sink.RunState) []*sink.SinkError
}

// Config wires a Driver.
type Config struct {
	Source    statsource.Source
	Processor *ingest.Processor
	Router    Dispatcher

	Append  bool // first file write appends
	MailTo  []string
	Subject string
	Mailer  model.DigestSender

	// OnState, when set, observes every transition.
	OnState func(from, to State)
}

// Result summarizes a run.
type Result struct {
	Lines      int
	Documents  int
	SinkErrors []*sink.SinkError
	MailSent   bool
}

// Driver is a single-use state machine: Idle, Streaming, Draining, Done.
type Driver struct {
	cfg Config

	mu    sync.Mutex
	state State
}

// New validates cfg and returns an idle driver.
func New(cfg Config) (*Driver, error) {
	if cfg.Source == nil {
		return nil, errors.New("poller: source is required")
	}
	if cfg.Processor == nil {
		return nil, errors.New("poller: processor is required")
	}
	if cfg.Router == nil {
		return nil, errors.New("poller: router is required")
	}
	if len(cfg.MailTo) > 0 && cfg.Mailer == nil {
		return nil, ErrNoMailer
	}
	return &Driver{cfg: cfg}, nil
}

// State returns the current state.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Driver) transition(to State) {
	d.mu.Lock()
	from := d.state
	d.state = to
	d.mu.Unlock()

	log.Printf("poller: %s -> %s", from, to)
	if d.cfg.OnState != nil {
		d.cfg.OnState(from, to)
	}
}

// Run executes the pass. Sink failures are collected in the result and never
// stop the run. A source launch failure, a parse failure or cancellation ends
// the run early without sending the digest. A digest send failure is
// returned after every document has been dispatched.
func (d *Driver) Run(ctx context.Context) (Result, error) {
	d.mu.Lock()
	if d.state != StateIdle {
		d.mu.Unlock()
		return Result{}, ErrAlreadyRun
	}
	d.mu.Unlock()

	var res Result
	d.transition(StateStreaming)
	digest, err := d.stream(ctx, &res)
	if err != nil {
		d.transition(StateDone)
		return res, err
	}

	d.transition(StateDraining)
	err = d.drain(ctx, digest, &res)
	d.transition(StateDone)
	return res, err
}

func (d *Driver) stream(ctx context.Context, res *Result) (*mailer.Digest, error) {
	var digest *mailer.Digest
	if len(d.cfg.MailTo) > 0 {
		digest = mailer.NewDigest(d.cfg.MailTo, d.cfg.Subject)
	}
	state := sink.NewRunState(d.cfg.Append, digest)

	data, err := d.cfg.Source.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("poller: read %s: %w", d.cfg.Source.Name(), err)
	}
	lines, err := statsource.SplitLines(data)
	if err != nil {
		return nil, fmt.Errorf("poller: split %s output: %w", d.cfg.Source.Name(), err)
	}
	log.Printf("poller: %s produced %d lines", d.cfg.Source.Name(), len(lines))

	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := d.cfg.Processor.ProcessLine(line)
		res.Lines = d.cfg.Processor.Processed()
		if err != nil {
			return nil, err
		}
		res.SinkErrors = append(res.SinkErrors, d.cfg.Router.Dispatch(ctx, doc, state)...)
		res.Documents++
		state.Advance()
	}
	return digest, nil
}

func (d *Driver) drain(ctx context.Context, digest *mailer.Digest, res *Result) error {
	if digest == nil || digest.Len() == 0 {
		return nil
	}
	if err := digest.Send(ctx, d.cfg.Mailer); err != nil {
		return fmt.Errorf("poller: send digest to %v: %w", digest.To, err)
	}
	res.MailSent = true
	log.Printf("poller: digest of %d documents sent to %v", digest.Len(), digest.To)
	return nil
}
