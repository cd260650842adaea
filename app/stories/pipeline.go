// Package stories turns the navigation into one of the story views:
// listing, detail or not-found, with loading and error states in between.
package stories

import (
	"context"
	"errors"
	"fmt"
	"html"
	"html/template"
	"log/slog"

	"github.com/Semior001/alumni/app/store"
	"github.com/microcosm-cc/bluemonday"
)

// User-facing messages of the error state.
const (
	MsgFetchFailed = "Please refresh to try again or contact the alumni office if this issue continues."
	MsgEmpty       = "No alumni stories have been published yet. Please check back soon."
)

// OthersLimit caps the amount of other stories fetched for detail and not-found views.
const OthersLimit = 20

//go:generate moq -out mock_source.go -fmt goimports . Source

// Source is a source of stories.
type Source interface {
	Get(ctx context.Context, key string) (store.Record, error)
	List(ctx context.Context, req store.ListRequest) ([]store.Record, error)
}

// Pipeline resolves, fetches and renders stories into a region.
type Pipeline struct {
	log      *slog.Logger
	src      Source
	rnd      *Renderer
	resolver Resolver
	strip    *bluemonday.Policy

	// ListLimit caps the listing view, zero means all stories.
	ListLimit int
}

// NewPipeline makes a new pipeline.
func NewPipeline(lg *slog.Logger, src Source, rnd *Renderer, resolver Resolver) *Pipeline {
	return &Pipeline{
		log:      lg,
		src:      src,
		rnd:      rnd,
		resolver: resolver,
		strip:    bluemonday.StrictPolicy(),
	}
}

// Mount resolves the navigation and renders the view into the region.
// It returns the ticket of the mount, the region is settled by the time it returns.
func (p *Pipeline) Mount(ctx context.Context, nav Navigation, region *Region) Ticket {
	intent := p.resolver.Resolve(nav)
	t := region.Mount(intent.Key)

	p.log.DebugContext(ctx, "mounting stories view",
		slog.String("intent", intent.Kind.String()),
		slog.String("key", intent.Key))

	var err error
	if intent.Kind == IntentDetail {
		err = p.detail(ctx, t, region)
	} else {
		err = p.listing(ctx, t, region)
	}

	if err != nil {
		p.log.ErrorContext(ctx, "failed to render stories view",
			slog.String("intent", intent.Kind.String()),
			slog.String("key", intent.Key),
			slog.Any("err", err))
		region.Fail(t, MsgFetchFailed)
	}

	return t
}

func (p *Pipeline) listing(ctx context.Context, t Ticket, region *Region) error {
	recs, err := p.src.List(ctx, store.ListRequest{Limit: p.ListLimit})
	if err != nil {
		return fmt.Errorf("list stories: %w", err)
	}

	if len(recs) == 0 {
		region.Fail(t, MsgEmpty)
		return nil
	}

	markup, err := p.rnd.Listing(recs)
	if err != nil {
		return fmt.Errorf("render listing: %w", err)
	}

	p.ready(ctx, t, region, markup)
	return nil
}

func (p *Pipeline) detail(ctx context.Context, t Ticket, region *Region) error {
	rec, err := p.src.Get(ctx, t.Key())
	switch {
	case errors.Is(err, store.ErrNotFound):
		return p.notFound(ctx, t, region)
	case err != nil:
		return fmt.Errorf("get story %s: %w", t.Key(), err)
	}

	region.SetMeta(t, p.meta(rec))

	// the story is shown even if the others are unavailable
	others, err := p.src.List(ctx, store.ListRequest{ExcludeKey: rec.Key, Limit: OthersLimit})
	if err != nil {
		p.log.WarnContext(ctx, "failed to list other stories",
			slog.String("key", rec.Key), slog.Any("err", err))
		others = nil
	}

	markup, err := p.rnd.Detail(rec, others)
	if err != nil {
		return fmt.Errorf("render detail: %w", err)
	}

	p.ready(ctx, t, region, markup)
	return nil
}

func (p *Pipeline) notFound(ctx context.Context, t Ticket, region *Region) error {
	others, err := p.src.List(ctx, store.ListRequest{Limit: OthersLimit})
	if err != nil {
		p.log.WarnContext(ctx, "failed to list stories for not found view",
			slog.String("key", t.Key()), slog.Any("err", err))
		others = nil
	}

	markup, err := p.rnd.NotFound(others)
	if err != nil {
		return fmt.Errorf("render not found: %w", err)
	}

	p.ready(ctx, t, region, markup)
	return nil
}

func (p *Pipeline) ready(ctx context.Context, t Ticket, region *Region, markup template.HTML) {
	if !region.Ready(t, markup) {
		p.log.DebugContext(ctx, "dropped result of a superseded view", slog.String("key", t.Key()))
	}
}

func (p *Pipeline) meta(rec store.Record) Meta {
	title := rec.DisplayTitle() + " | " + DefaultPageTitle

	desc := rec.Headline
	if desc == "" {
		desc = rec.Summary
	}

	return Meta{
		Title:         title,
		OGTitle:       title,
		OGDescription: html.UnescapeString(p.strip.Sanitize(plain(desc))),
		OGImage:       rec.Media,
		Breadcrumb:    rec.DisplayTitle(),
	}
}
