package mailer

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// MailxSender delivers digests by piping them to the local mailx command.
type MailxSender struct {
	Path string // defaults to "mailx"
	From string // optional -r sender address
}

// Send runs mailx with the body on stdin.
func (s MailxSender) Send(ctx context.Context, subject string, to []string, body string) error {
	cmd := exec.CommandContext(ctx, s.path(), s.args(subject, to)...)
	cmd.Stdin = strings.NewReader(body)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("mailer: mailx failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (s MailxSender) path() string {
	if s.Path == "" {
		return "mailx"
	}
	return s.Path
}

func (s MailxSender) args(subject string, to []string) []string {
	args := []string{"-s", subject}
	if s.From != "" {
		args = append(args, "-r", s.From)
	}
	return append(args, to...)
}
