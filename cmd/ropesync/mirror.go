package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/ropesync/internal/client"
	"github.com/dshills/ropesync/internal/client/termview"
	"github.com/dshills/ropesync/internal/engine/diff"
	"github.com/dshills/ropesync/internal/observability"
)

type mirrorFlags struct {
	url       string
	lines     bool
	dump      bool
	logFile   string
	plainView bool
}

func newMirrorCmd(global *globalFlags) *cobra.Command {
	var flags mirrorFlags

	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Display a live copy of a served document",
		Long: `Mirror connects to a ropesync server and keeps a local copy of its
document, reconnecting with backoff whenever the connection drops.

On a terminal the document is drawn full screen (q to quit, j/k to
scroll, f to follow the end). Otherwise each update is logged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMirror(cmd, global, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.url, "url", "u", "", "server websocket URL (default ws://127.0.0.1:8080/sync)")
	cmd.Flags().BoolVar(&flags.lines, "lines", false, "request line-granularity patches")
	cmd.Flags().BoolVar(&flags.dump, "dump", false, "pretty-print every received message to stderr")
	cmd.Flags().StringVar(&flags.logFile, "log-file", "", "write logs here while the terminal view is active")
	cmd.Flags().BoolVar(&flags.plainView, "plain", false, "log updates instead of drawing the terminal view")

	return cmd
}

func runMirror(cmd *cobra.Command, global *globalFlags, flags mirrorFlags) error {
	cfg, err := global.loadConfig()
	if err != nil {
		return err
	}
	if flags.url != "" {
		cfg.Client.URL = flags.url
	}
	if flags.lines {
		cfg.Client.Granularity = diff.Line.String()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	mc, err := cfg.Client.MirrorConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	useTerminal := !flags.plainView && termview.IsTerminal(os.Stdout)

	// The terminal view owns the screen, so logs go to a file or nowhere.
	var logOut io.Writer = cmd.ErrOrStderr()
	if useTerminal {
		logOut = io.Discard
		if flags.logFile != "" {
			f, err := os.OpenFile(flags.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return err
			}
			defer f.Close()
			logOut = f
		}
	}

	logger, err := newLogger(cfg, logOut)
	if err != nil {
		return err
	}

	var renderer client.Renderer
	if useTerminal {
		view, err := termview.NewTerminal(mc.URL)
		if err != nil {
			return err
		}
		defer view.Close()
		view.Follow(true)
		go view.HandleEvents(cancel)
		renderer = view
	} else {
		renderer = client.NewLogRenderer(observability.WithComponent(logger, "view"))
	}

	opts := []client.Option{client.WithLogger(observability.WithComponent(logger, "client"))}
	if flags.dump {
		opts = append(opts, client.WithDebugDump(cmd.ErrOrStderr(), !useTerminal && termview.IsTerminal(os.Stderr)))
	}

	c, err := client.New(mc, renderer, opts...)
	if err != nil {
		return err
	}

	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
