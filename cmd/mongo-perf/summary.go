package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/mongoperf/internal/poller"
)

type runSummary struct {
	Server   string
	Command  string
	Sinks    []string
	Result   poller.Result
	Elapsed  time.Duration
	Err      error
	Settings string
	Archive  *archiveStats
}

type archiveStats struct {
	Total  int64
	Latest string // AsOf of the newest document for this server
}

func renderRunSummary(s runSummary) string {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")
	cross := red.Render("●")

	separator := dim.Render("    ─────────────────────────────────")

	var lines []string
	lines = append(lines, "")
	lines = append(lines, bold.Render("    mongo-perf ")+dim.Render("v"+version))
	lines = append(lines, separator)
	lines = append(lines, "")

	lines = append(lines, fmt.Sprintf("    %s  Server         %s", check, cyan.Render(s.Server)))
	lines = append(lines, fmt.Sprintf("    %s  Source         %s", check, dim.Render(s.Command)))
	if len(s.Sinks) > 0 {
		lines = append(lines, fmt.Sprintf("    %s  Sinks          %s", check, dim.Render(strings.Join(s.Sinks, ", "))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Sinks          %s", dot, dim.Render("none")))
	}
	lines = append(lines, "")

	lines = append(lines, fmt.Sprintf("    %s  Documents      %d of %d lines", check, s.Result.Documents, s.Result.Lines))
	if n := len(s.Result.SinkErrors); n > 0 {
		lines = append(lines, fmt.Sprintf("    %s  Sink errors    %s", cross, red.Render(fmt.Sprint(n))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Sink errors    %s", dot, dim.Render("0")))
	}
	if s.Result.MailSent {
		lines = append(lines, fmt.Sprintf("    %s  Digest         %s", check, dim.Render("sent")))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Digest         %s", dot, dim.Render("not sent")))
	}
	if s.Archive != nil {
		archived := fmt.Sprintf("%d documents", s.Archive.Total)
		if s.Archive.Latest != "" {
			archived += ", latest " + s.Archive.Latest
		}
		lines = append(lines, fmt.Sprintf("    %s  Archive        %s", dot, dim.Render(archived)))
	}
	lines = append(lines, fmt.Sprintf("    %s  Elapsed        %s", dot, dim.Render(s.Elapsed.Round(time.Millisecond).String())))
	if s.Settings != "" {
		lines = append(lines, fmt.Sprintf("    %s  Settings       %s", dot, dim.Render(shortenPath(s.Settings))))
	}

	if s.Err != nil {
		lines = append(lines, "")
		lines = append(lines, fmt.Sprintf("    %s  %s", cross, red.Render(s.Err.Error())))
	}
	lines = append(lines, "")
	lines = append(lines, separator)
	return strings.Join(lines, "\n")
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
