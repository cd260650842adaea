// Package cmd contains commands for the application.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Semior001/alumni/app/newsletter"
	"github.com/Semior001/alumni/app/rest"
	"github.com/Semior001/alumni/app/stories"
	"golang.org/x/sync/errgroup"
)

// Server is a command to run the website server.
type Server struct {
	Addr      string        `long:"addr" env:"ADDR" default:":8080" description:"address to listen on"`
	Timeout   time.Duration `long:"timeout" env:"TIMEOUT" default:"15s" description:"timeout for handling a request"`
	ListLimit int           `long:"list-limit" env:"LIST_LIMIT" default:"0" description:"max stories on the listing page, 0 for all"`

	Source SourceOpts `group:"source" namespace:"source" env-namespace:"SOURCE"`
	DB     DBOpts     `group:"db" namespace:"db" env-namespace:"DB"`
}

// Execute runs the command.
func (s Server) Execute(_ []string) error {
	lg := slog.Default()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	db, err := s.DB.openDB(ctx)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if db != nil {
		defer func() {
			if err := db.Close(); err != nil {
				lg.Error("close database", slog.Any("err", err))
			}
		}()
	}

	src, err := s.Source.open(lg, db)
	if err != nil {
		return fmt.Errorf("make stories source: %w", err)
	}
	defer func() {
		if err := src.close(); err != nil {
			lg.Error("close stories source", slog.Any("err", err))
		}
	}()

	rnd, err := stories.NewRenderer()
	if err != nil {
		return fmt.Errorf("make renderer: %w", err)
	}

	pipeline := stories.NewPipeline(
		lg.With(slog.String("prefix", "stories")),
		src,
		rnd,
		stories.DefaultResolver,
	)
	pipeline.ListLimit = s.ListLimit

	srv := &rest.Server{
		Logger:         lg.With(slog.String("prefix", "rest")),
		Addr:           s.Addr,
		Pipeline:       pipeline,
		Renderer:       rnd,
		HandlerTimeout: s.Timeout,
	}

	if db != nil {
		srv.Newsletters = newsletter.NewRepository(db)
	} else {
		lg.Warn("no database configured, newsletters endpoint is disabled")
	}

	ewg, ctx := errgroup.WithContext(ctx)
	ewg.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
		select {
		case sig := <-sig:
			lg.Warn("caught signal, stopping", slog.String("signal", sig.String()))
			stop()
			return ctx.Err()
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	ewg.Go(func() error {
		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("run http server: %w", err)
		}
		lg.Warn("http server stopped")
		return nil
	})

	if err := ewg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
