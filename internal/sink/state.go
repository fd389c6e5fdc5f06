package sink

import "github.com/tinytelemetry/mongoperf/internal/mailer"

// FileMode selects how the file sink opens its output.
type FileMode int

const (
	// ModeCreate creates or truncates the output file.
	ModeCreate FileMode = iota
	// ModeAppend appends to the output file, creating it when missing.
	ModeAppend
)

func (m FileMode) String() string {
	if m == ModeAppend {
		return "append"
	}
	return "create"
}

// RunState is the mutable state of one run: the file write mode and the
// email digest being accumulated.
type RunState struct {
	mode   FileMode
	Digest *mailer.Digest // nil when mail is not configured
}

// NewRunState returns the state for a fresh run. When appendFirst is set the
// very first write already appends.
func NewRunState(appendFirst bool, digest *mailer.Digest) *RunState {
	mode := ModeCreate
	if appendFirst {
		mode = ModeAppend
	}
	return &RunState{mode: mode, Digest: digest}
}

// FileMode returns the mode the next file write uses.
func (s *RunState) FileMode() FileMode { return s.mode }

// Advance switches to append mode once a document has been dispatched.
func (s *RunState) Advance() { s.mode = ModeAppend }
