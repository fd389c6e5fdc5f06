package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/tinytelemetry/mongoperf/internal/model"
)

const defaultFileMode = 0644

// Sink is one delivery target for documents.
type Sink interface {
	Name() string
	Write(ctx context.Context, p *Payload, state *RunState) error
}

// Spooler keeps documents whose store insert failed for a later retry.
type Spooler interface {
	Append(doc *model.Document) (uint64, error)
}

// StoreSink inserts documents into the secondary MongoDB store.
type StoreSink struct {
	inserter model.DocumentInserter
	target   model.StoreTarget
	spool    Spooler
}

func (s *StoreSink) Name() string { return "insert" }

func (s *StoreSink) Write(ctx context.Context, p *Payload, _ *RunState) error {
	err := s.inserter.InsertDocument(ctx, s.target, p.Doc)
	if err == nil {
		return nil
	}
	if s.spool != nil {
		doc := p.Doc
		if seq, serr := s.spool.Append(&doc); serr != nil {
			log.Printf("sink: spool append failed: %v", serr)
		} else {
			log.Printf("sink: spooled document seq=%d for %s", seq, s.target)
		}
	}
	return err
}

// ArchiveSink appends documents to the local archive.
type ArchiveSink struct {
	archiver model.DocumentArchiver
}

func (s *ArchiveSink) Name() string { return "archive" }

func (s *ArchiveSink) Write(ctx context.Context, p *Payload, _ *RunState) error {
	return s.archiver.ArchiveDocument(ctx, p.Doc)
}

// FileSink writes one document per write to a file. The run state decides
// between truncating and appending.
type FileSink struct {
	path string
}

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) Write(_ context.Context, p *Payload, state *RunState) error {
	data, err := p.Output()
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if state.FileMode() == ModeAppend {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(s.path, flags, defaultFileMode)
	if err != nil {
		return err
	}
	if err := writeLine(f, data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ConsoleSink echoes each document to a writer, normally stdout.
type ConsoleSink struct {
	w io.Writer
}

func (s *ConsoleSink) Name() string { return "stdout" }

func (s *ConsoleSink) Write(_ context.Context, p *Payload, _ *RunState) error {
	data, err := p.Output()
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return writeLine(s.w, data)
}

func writeLine(w io.Writer, data []byte) error {
	line := make([]byte, 0, len(data)+1)
	line = append(line, data...)
	line = append(line, '\n')
	_, err := w.Write(line)
	return err
}

// errNoDigest is returned when the mail sink runs without a digest in the run state.
var errNoDigest = errors.New("run has no mail digest")

// MailSink buffers the indented document into the run's digest. Delivery
// happens once, at the end of the run.
type MailSink struct{}

func (s *MailSink) Name() string { return "mail" }

func (s *MailSink) Write(_ context.Context, p *Payload, state *RunState) error {
	if state.Digest == nil {
		return errNoDigest
	}
	data, err := p.Pretty()
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	state.Digest.AddLine(string(data))
	return nil
}
