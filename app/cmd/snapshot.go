package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/Semior001/alumni/app/store"
)

// Snapshot is a command to copy the stories from a source into a local bolt file,
// which can serve later with --source.type=bolt.
type Snapshot struct {
	Out     string        `long:"out" env:"OUT" required:"true" description:"path to the bolt file to write"`
	Timeout time.Duration `long:"timeout" env:"TIMEOUT" default:"1m" description:"timeout for fetching the stories"`

	Source SourceOpts `group:"source" namespace:"source" env-namespace:"SOURCE"`
	DB     DBOpts     `group:"db" namespace:"db" env-namespace:"DB"`
}

var errSameFile = errors.New("snapshot can't be written into its own source")

// Execute runs the command.
func (s Snapshot) Execute(_ []string) error {
	lg := slog.Default()

	if s.Source.Type == "bolt" && filepath.Clean(s.Source.Bolt) == filepath.Clean(s.Out) {
		return errSameFile
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()

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

	recs, err := src.List(ctx, store.ListRequest{})
	if err != nil {
		return fmt.Errorf("list stories: %w", err)
	}

	out, err := store.NewBolt(s.Out)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer func() {
		if err := out.Close(); err != nil {
			lg.Error("close snapshot", slog.Any("err", err))
		}
	}()

	if err = out.Replace(ctx, recs); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	lg.Info("snapshot written",
		slog.String("source", s.Source.Type),
		slog.String("out", s.Out),
		slog.Int("stories", len(recs)))

	return nil
}
