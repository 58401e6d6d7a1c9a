// Package app assembles the papergen server command.
package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/logger"

	"github.com/kart-io/papergen/cmd/papergen/app/options"
	"github.com/kart-io/papergen/pkg/app"
)

const commandDesc = `The papergen server generates standardized SSLC English
exam papers: it retrieves grounding passages from the textbook corpus with
hybrid lexical+semantic search, drafts all 47 questions through an LLM,
validates curriculum coverage, and serves quality-review and single-question
revision workflows over HTTP.`

// NewApp builds the papergen application.
func NewApp() *app.App {
	opts := options.NewServerOptions()

	return app.NewApp(
		app.WithName("papergen"),
		app.WithShortDescription("SSLC English exam paper generation service"),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(func() error {
			return run(opts)
		}),
	)
}

func run(opts *options.ServerOptions) error {
	if err := opts.Log.Init(); err != nil {
		return err
	}

	ctx := setupSignalContext()

	server, err := opts.Config().New(ctx)
	if err != nil {
		return err
	}

	return server.Run(ctx)
}

// setupSignalContext returns a context cancelled on SIGINT/SIGTERM.
// A second signal exits immediately.
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		logger.Infow("received shutdown signal")
		cancel()
		<-ch
		os.Exit(1)
	}()

	return ctx
}
