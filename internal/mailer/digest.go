// Package mailer accumulates documents into a single digest message and
// delivers it over SMTP or through the local mailx command.
package mailer

import (
	"context"
	"errors"
	"strings"

	"github.com/tinytelemetry/mongoperf/internal/model"
)

// ErrNoRecipients is returned when a digest is sent without recipients.
var ErrNoRecipients = errors.New("mailer: digest has no recipients")

// Digest buffers message lines for one run and sends them as one email.
type Digest struct {
	To      []string
	Subject string
	lines   []string
}

// NewDigest creates an empty digest. An empty subject uses the default.
func NewDigest(to []string, subject string) *Digest {
	if strings.TrimSpace(subject) == "" {
		subject = model.DefaultSubject
	}
	return &Digest{To: append([]string(nil), to...), Subject: subject}
}

// AddLine appends one block of text to the message body.
func (d *Digest) AddLine(line string) {
	d.lines = append(d.lines, line)
}

// Len returns the number of buffered blocks.
func (d *Digest) Len() int { return len(d.lines) }

// Body returns the buffered blocks joined by newlines.
func (d *Digest) Body() string {
	return strings.Join(d.lines, "\n")
}

// Send delivers the digest through sender as a single message.
func (d *Digest) Send(ctx context.Context, sender model.DigestSender) error {
	if len(d.To) == 0 {
		return ErrNoRecipients
	}
	return sender.Send(ctx, d.Subject, d.To, d.Body())
}
