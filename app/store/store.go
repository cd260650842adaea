// Package store contains entities and data sources for alumni stories.
package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is an error that is returned when the requested entity is not found.
var ErrNotFound = errors.New("not found")

// ErrFetchFailed matches any FetchError with errors.Is.
var ErrFetchFailed = errors.New("fetch failed")

// FetchError describes a failed attempt to reach the data source.
type FetchError struct {
	Source string
	Err    error
}

// Error implements error.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch from %s: %v", e.Source, e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error { return e.Err }

// Is reports whether the target is ErrFetchFailed.
func (e *FetchError) Is(target error) bool { return target == ErrFetchFailed }

// Interface defines methods for a source of stories.
type Interface interface {
	// Get returns a single record by its key, ErrNotFound if there is no such record.
	Get(ctx context.Context, key string) (Record, error)
	// List returns records in the source order.
	List(ctx context.Context, req ListRequest) ([]Record, error)
}

// ListRequest defines parameters for listing records.
type ListRequest struct {
	// ExcludeKey omits the record with this key, if set.
	ExcludeKey string
	// Limit caps the amount of returned records, zero or negative means no cap.
	Limit int
}

// Record is a normalized distinguished alumni story.
type Record struct {
	Key        string   `json:"slug"`
	Title      string   `json:"name"`
	Role       string   `json:"role"`
	Headline   string   `json:"headline"`
	Summary    string   `json:"summary"`
	Media      string   `json:"image"`
	Tags       []string `json:"tags"`
	Metrics    []Metric `json:"stats"`
	Highlights []string `json:"achievements"`
	Paragraphs []string `json:"story"`
	Quote      string   `json:"quote"`
	QuoteBy    string   `json:"quoteBy"`
}

// Metric is a single figure shown in the story hero, e.g. "15+" "years in healthcare".
type Metric struct {
	Value string `json:"value"`
	Label string `json:"label"`
}
