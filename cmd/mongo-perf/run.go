package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/mongoperf/internal/duckdb"
	"github.com/tinytelemetry/mongoperf/internal/ingest"
	"github.com/tinytelemetry/mongoperf/internal/journal"
	"github.com/tinytelemetry/mongoperf/internal/mailer"
	"github.com/tinytelemetry/mongoperf/internal/model"
	"github.com/tinytelemetry/mongoperf/internal/mongostore"
	"github.com/tinytelemetry/mongoperf/internal/poller"
	"github.com/tinytelemetry/mongoperf/internal/serverconf"
	"github.com/tinytelemetry/mongoperf/internal/sink"
	"github.com/tinytelemetry/mongoperf/internal/statsource"
)

const appName = "mongo-perf"

var errInterrupted = errors.New("interrupted")

// runProgram runs one pass next to a signal watcher. An interrupt cancels the
// pass; a second interrupt, or a pass that does not stop in time, forces exit.
func runProgram(cfg appConfig) error {
	cleanupLogger := configureRuntimeLogger(cfg.LogFile)
	defer cleanupLogger()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	var sum *runSummary

	g, gctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		return watchSignals(gctx, sigCh, done, func() { forceExitAfter(sigCh, 10*time.Second) })
	})
	g.Go(func() error {
		defer close(done)
		var err error
		sum, err = runPass(gctx, cfg)
		return err
	})
	err := g.Wait()

	if sum != nil && cfg.Summary {
		sum.Err = err
		fmt.Fprintln(os.Stderr, renderRunSummary(*sum))
	}
	return err
}

// watchSignals returns nil once done closes or ctx ends. On a signal it calls
// onInterrupt and returns an error wrapping errInterrupted, which cancels the
// group's context.
func watchSignals(ctx context.Context, sigCh <-chan os.Signal, done <-chan struct{}, onInterrupt func()) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return nil
	case sig := <-sigCh:
		fmt.Fprintln(os.Stderr, "\nStopping... (press Ctrl+C again to force)")
		log.Printf("run: received %s, stopping", sig)
		if onInterrupt != nil {
			onInterrupt()
		}
		return fmt.Errorf("%w: %s", errInterrupted, sig)
	}
}

func forceExitAfter(sigCh <-chan os.Signal, timeout time.Duration) {
	go func() {
		deadline := time.NewTimer(timeout)
		defer deadline.Stop()
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nForce shutdown.")
		case <-deadline.C:
			fmt.Fprintln(os.Stderr, "Shutdown timed out, forcing exit.")
		}
		os.Exit(1)
	}()
}

// runPass checks the monitored server, wires the sinks and runs the pass.
// The summary is nil when no pass was started.
func runPass(ctx context.Context, cfg appConfig) (*runSummary, error) {
	server, err := serverconf.Load(cfg.ConfigDir, cfg.ServerConfig)
	if err != nil {
		return nil, err
	}

	monitored, err := connect(ctx, server, cfg)
	if err != nil {
		log.Printf("run: connection failure: %v", err)
		if !cfg.QuietConnect {
			fmt.Printf("Connection failure: %v\n", err)
		}
		return nil, nil
	}
	defer disconnect(monitored)

	if !cfg.Stats {
		log.Printf("run: connected to %s, no collection requested", server.Name)
		return nil, nil
	}

	deps := sink.Deps{Stdout: os.Stdout, Stderr: os.Stderr}

	if cfg.Insert != "" {
		storeServer, err := serverconf.Load(cfg.ConfigDir, cfg.StoreConfig)
		if err != nil {
			return nil, fmt.Errorf("store config: %w", err)
		}
		store, err := connect(ctx, storeServer, cfg)
		if err != nil {
			// Every insert reports this failure and is spooled when a spool is set.
			log.Printf("run: store %s unavailable: %v", storeServer.Name, err)
			deps.Inserter = unavailableStore{err: err}
		} else {
			defer disconnect(store)
			deps.Inserter = store
		}

		if cfg.Spool != "" {
			spool, err := openSpool(cfg.Spool)
			if err != nil {
				return nil, err
			}
			defer spool.Close()
			if store != nil {
				redeliver(ctx, spool, cfg.Insert, store)
			}
			deps.Spool = spool
		}
	}

	var archive *duckdb.Store
	if cfg.Archive != "" {
		archive, err = duckdb.NewStore(cfg.Archive)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize archive: %w", err)
		}
		defer archive.Close()
		if _, err := archive.Prune(ctx, cfg.ArchiveRetention, time.Now()); err != nil {
			log.Printf("run: archive prune: %v", err)
		}
		deps.Archiver = archive
	}

	router, err := sink.NewRouter(sink.Config{
		OutputPath:      cfg.Output,
		Flatten:         cfg.Flatten,
		Indent:          model.DefaultIndent,
		SuppressConsole: cfg.NoStdout,
		StoreTarget:     cfg.Insert,
		MailTo:          cfg.MailTo,
	}, deps)
	if err != nil {
		return nil, err
	}

	command := statsource.BuildCommand(server, statsource.CommandOptions{
		BinPath:     cfg.BinPath,
		Count:       cfg.Count,
		Interval:    cfg.Interval,
		TLSInsecure: cfg.TLSInsecure,
	})
	log.Printf("run: %s, sinks %v", command, router.Sinks())

	driver, err := poller.New(poller.Config{
		Source:    statsource.NewProcessSource(command, os.Stderr),
		Processor: ingest.NewProcessor(ingest.Enricher{Server: server.Name}),
		Router:    router,
		Append:    cfg.Append,
		MailTo:    cfg.MailTo,
		Subject:   cfg.Subject,
		Mailer:    digestSender(cfg),
	})
	if err != nil {
		return nil, err
	}

	started := time.Now()
	res, runErr := driver.Run(ctx)
	sum := &runSummary{
		Server:   server.Name,
		Command:  command.Name(),
		Sinks:    router.Sinks(),
		Result:   res,
		Elapsed:  time.Since(started),
		Settings: cfg.ConfigPath,
	}
	if archive != nil && cfg.Summary {
		sum.Archive = archiveSummary(ctx, archive, server.Name)
	}
	return sum, runErr
}

// archiveSummary reports the archive's size and the newest document archived
// for server. Query failures are logged and leave the summary line out.
func archiveSummary(ctx context.Context, archive *duckdb.Store, server string) *archiveStats {
	total, err := archive.Count(ctx)
	if err != nil {
		log.Printf("run: archive count: %v", err)
		return nil
	}
	st := &archiveStats{Total: total}
	latest, err := archive.Recent(ctx, server, 1)
	if err != nil {
		log.Printf("run: archive latest: %v", err)
	} else if len(latest) > 0 {
		st.Latest = latest[0].AsOf
	}
	return st
}

func connect(ctx context.Context, server model.ServerConfig, cfg appConfig) (*mongostore.Client, error) {
	client, err := mongostore.Connect(ctx, server, mongostore.Config{
		Timeout:     cfg.ConnectTimeout,
		TLSInsecure: cfg.TLSInsecure,
		AppName:     appName,
	})
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx); err != nil {
		disconnect(client)
		return nil, err
	}
	return client, nil
}

func disconnect(c *mongostore.Client) {
	if err := c.Disconnect(context.Background()); err != nil {
		log.Printf("run: disconnect: %v", err)
	}
}

func openSpool(path string) (*journal.Journal, error) {
	j, err := journal.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open insert spool: %w", err)
	}
	if n, err := j.Pending(); err == nil && n > 0 {
		log.Printf("run: insert spool %s holds %d documents", path, n)
	}
	return j, nil
}

// redeliver inserts what earlier runs could not. Documents that still fail
// stay spooled for the next run.
func redeliver(ctx context.Context, spool *journal.Journal, target string, inserter model.DocumentInserter) {
	st, err := model.ParseStoreTarget(target)
	if err != nil {
		return
	}
	if _, err := spool.Drain(func(doc *model.Document) error {
		return inserter.InsertDocument(ctx, st, *doc)
	}); err != nil {
		log.Printf("run: spool replay stopped: %v", err)
	}
}

// unavailableStore stands in for a store that could not be reached, so each
// document reports the insert failure like any other sink error.
type unavailableStore struct{ err error }

func (u unavailableStore) InsertDocument(context.Context, model.StoreTarget, model.Document) error {
	return u.err
}

func digestSender(cfg appConfig) model.DigestSender {
	if len(cfg.MailTo) == 0 {
		return nil
	}
	if cfg.Mailx {
		return mailer.MailxSender{From: cfg.MailFrom}
	}
	return mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		From:     cfg.MailFrom,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		TLS:      cfg.SMTPStartTLS,
	})
}

func configureRuntimeLogger(logPath string) func() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if logPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.SetOutput(os.Stderr)
			return func() {}
		}
		logPath = filepath.Join(home, ".local", "state", appName, appName+".log")
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	log.SetOutput(f)
	return func() {
		_ = f.Close()
	}
}
