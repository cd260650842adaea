package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Semior001/alumni/app/store"
	"github.com/jmoiron/sqlx"
)

// SourceOpts defines where the stories come from.
type SourceOpts struct {
	Type string `long:"type" env:"TYPE" choice:"rest" choice:"postgres" choice:"file" choice:"bolt" default:"rest" description:"type of the stories source"`

	REST struct {
		URL      string        `long:"url" env:"URL" default:"https://portal-alumni.uol.edu.pk/api/external" description:"base url of the portal API"`
		Timeout  time.Duration `long:"timeout" env:"TIMEOUT" default:"10s" description:"timeout for portal API requests"`
		CacheTTL time.Duration `long:"cache-ttl" env:"CACHE_TTL" default:"30s" description:"how long to keep the list of stories, 0 to disable"`
	} `group:"rest" namespace:"rest" env-namespace:"REST"`

	File string `long:"file" env:"FILE" description:"path to the static JSON document with stories"`
	Bolt string `long:"bolt" env:"BOLT" description:"path to the bolt snapshot made by the snapshot command"`

	Media struct {
		Base        string `long:"base" env:"BASE" default:"https://portal-alumni.uol.edu.pk/images/" description:"base url for media filenames"`
		Placeholder string `long:"placeholder" env:"PLACEHOLDER" default:"https://portal-alumni.uol.edu.pk/images/about-1.jpg" description:"image for stories without one"`
	} `group:"media" namespace:"media" env-namespace:"MEDIA"`
}

// DBOpts defines the database connection.
type DBOpts struct {
	DSN string `long:"dsn" env:"DSN" description:"postgres connection string"`
}

// source is an opened source of stories with a function to release it.
type source struct {
	store.Interface
	close func() error
}

var errNoDB = errors.New("postgres source requires --db.dsn")

// open makes the source of the configured type. The db is nil if no DSN is set.
func (o SourceOpts) open(lg *slog.Logger, db *sqlx.DB) (source, error) {
	norm := store.Normalizer{MediaBase: o.Media.Base, Placeholder: o.Media.Placeholder}
	noop := func() error { return nil }

	switch o.Type {
	case "rest":
		src := store.NewREST(
			lg.With(slog.String("prefix", "rest-source")),
			http.Client{Timeout: o.REST.Timeout},
			o.REST.URL,
			norm,
			o.REST.CacheTTL,
		)
		return source{Interface: src, close: noop}, nil
	case "postgres":
		if db == nil {
			return source{}, errNoDB
		}
		return source{Interface: store.NewPostgres(db, norm), close: noop}, nil
	case "file":
		src, err := store.NewFile(o.File, norm)
		if err != nil {
			return source{}, fmt.Errorf("load file source: %w", err)
		}
		return source{Interface: src, close: noop}, nil
	case "bolt":
		src, err := store.NewBolt(o.Bolt)
		if err != nil {
			return source{}, fmt.Errorf("open bolt source: %w", err)
		}
		return source{Interface: src, close: src.Close}, nil
	default:
		return source{}, fmt.Errorf("unknown source type %q", o.Type)
	}
}

// openDB connects to the database if the DSN is set.
func (o DBOpts) openDB(ctx context.Context) (*sqlx.DB, error) {
	if o.DSN == "" {
		return nil, nil
	}

	db, err := store.OpenPostgres(ctx, o.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	return db, nil
}
