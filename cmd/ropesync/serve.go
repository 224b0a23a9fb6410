package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/ropesync/internal/config"
	"github.com/dshills/ropesync/internal/engine"
	"github.com/dshills/ropesync/internal/engine/diff"
	"github.com/dshills/ropesync/internal/engine/tracking"
	"github.com/dshills/ropesync/internal/observability"
	"github.com/dshills/ropesync/internal/server"
	"github.com/dshills/ropesync/internal/source"
)

type serveFlags struct {
	listen    string
	watch     string
	tick      time.Duration
	buildFile string
}

func newServeCmd(global *globalFlags) *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Publish a document to mirror clients",
		Long: `Serve publishes a document over websockets at /sync.

With --watch the document is the content of a file and every saved change
is pushed to clients. Without it a demo counter is rendered every --tick.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, global, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.listen, "listen", "l", "", "listen address (default from config, 127.0.0.1:8080)")
	cmd.Flags().StringVarP(&flags.watch, "watch", "w", "", "file to publish")
	cmd.Flags().DurationVar(&flags.tick, "tick", 0, "demo counter interval")
	cmd.Flags().StringVar(&flags.buildFile, "build-file", "", "derive the build identifier from this file's mtime")

	return cmd
}

func runServe(cmd *cobra.Command, global *globalFlags, flags serveFlags) error {
	cfg, err := global.loadConfig()
	if err != nil {
		return err
	}
	if flags.listen != "" {
		cfg.Server.Listen = flags.listen
	}
	if flags.watch != "" {
		cfg.Source.Watch = flags.watch
	}
	if flags.tick > 0 {
		cfg.Source.Tick = config.Duration(flags.tick)
	}
	if flags.buildFile != "" {
		cfg.Server.BuildFile = flags.buildFile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	hubCfg, err := cfg.Server.HubConfig()
	if err != nil {
		return err
	}
	if hubCfg.Build == "dev" && version != "dev" {
		hubCfg.Build = version
	}
	diffOpts, err := cfg.Diff.Options()
	if err != nil {
		return err
	}

	initial := ""
	if cfg.Source.Watch == "" {
		initial = source.RenderCounter(0)
	}

	ledger := tracking.NewLedger(initial, tracking.WithHistory(cfg.Server.History))
	defer ledger.Close()

	doc := engine.NewDocument(ledger,
		engine.WithMaxDepth(cfg.Server.MaxDepth),
		engine.WithLogger(observability.WithComponent(logger, "document")))

	hub := server.NewHub(ledger, hubCfg,
		server.WithLogger(observability.WithComponent(logger, "server")),
		server.WithRegistry(observability.NewRegistry()),
		server.WithDiffer(diff.New(diffOpts)))

	src, err := newSource(cfg.Source.Watch, cfg.Source.Tick.Std(), cfg.Source.Debounce.Std(), doc, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	go func() {
		if err := src.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			cancel(fmt.Errorf("source: %w", err))
		}
	}()

	err = hub.ListenAndServe(ctx, cfg.Server.Listen)
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return err
}

func newSource(watch string, tick, debounce time.Duration, doc *engine.Document, logger *slog.Logger) (source.Source, error) {
	l := observability.WithComponent(logger, "source")
	if watch != "" {
		return source.NewFileWatcher(doc, watch, source.WithDebounce(debounce), source.WithFileLogger(l))
	}
	return source.NewTicker(doc, tick, source.WithTickLogger(l))
}
