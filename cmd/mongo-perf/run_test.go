package main

import (
	"context"
	"errors"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/mongoperf/internal/duckdb"
	"github.com/tinytelemetry/mongoperf/internal/model"
)

func TestWatchSignalsReturnsWhenPassEnds(t *testing.T) {
	t.Parallel()

	done := make(chan struct{})
	close(done)
	if err := watchSignals(context.Background(), make(chan os.Signal), done, nil); err != nil {
		t.Fatalf("watchSignals = %v, want nil", err)
	}
}

func TestWatchSignalsCancelsGroupOnInterrupt(t *testing.T) {
	t.Parallel()

	sigCh := make(chan os.Signal, 1)
	done := make(chan struct{})
	interrupted := false

	g, gctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		return watchSignals(gctx, sigCh, done, func() { interrupted = true })
	})
	g.Go(func() error {
		defer close(done)
		sigCh <- syscall.SIGINT
		select {
		case <-gctx.Done():
			return gctx.Err()
		case <-time.After(5 * time.Second):
			return errors.New("pass was not cancelled")
		}
	})

	err := g.Wait()
	if !errors.Is(err, errInterrupted) {
		t.Fatalf("Wait = %v, want errInterrupted", err)
	}
	if !interrupted {
		t.Fatal("onInterrupt was not called")
	}
}

func TestWatchSignalsStopsWithGroup(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := watchSignals(ctx, make(chan os.Signal), make(chan struct{}), nil); err != nil {
		t.Fatalf("watchSignals = %v, want nil", err)
	}
}

func TestArchiveSummary(t *testing.T) {
	archive, err := duckdb.NewStore("", time.Second)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = archive.Close() })

	ctx := context.Background()
	for _, d := range []model.Document{
		{Server: "db1", AsOf: "2026-10-19 10:00:00", PerfStats: model.Stats{}},
		{Server: "db1", AsOf: "2026-10-19 10:00:01", PerfStats: model.Stats{}},
		{Server: "db2", AsOf: "2026-10-19 10:00:02", PerfStats: model.Stats{}},
	} {
		if err := archive.ArchiveDocument(ctx, d); err != nil {
			t.Fatalf("ArchiveDocument: %v", err)
		}
	}

	st := archiveSummary(ctx, archive, "db1")
	if st == nil {
		t.Fatal("archiveSummary = nil")
	}
	if st.Total != 3 || st.Latest != "2026-10-19 10:00:01" {
		t.Fatalf("archiveSummary = %+v, want 3 documents, latest 10:00:01", *st)
	}

	out := renderRunSummary(runSummary{Server: "db1", Archive: st})
	if !strings.Contains(out, "3 documents, latest 2026-10-19 10:00:01") {
		t.Errorf("summary missing archive line:\n%s", out)
	}
}
