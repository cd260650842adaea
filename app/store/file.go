package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// File is a static, pre-fetched document of stories, loaded once and
// filtered in memory.
type File struct {
	recs []Record
}

// NewFile loads the document at the given path.
func NewFile(path string, norm Normalizer) (*File, error) {
	bts, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stories document %s: %w", path, err)
	}

	f, err := ParseDocument(bts, norm)
	if err != nil {
		return nil, fmt.Errorf("parse stories document %s: %w", path, err)
	}

	return f, nil
}

// ParseDocument makes a File out of a document, which is either a bare array
// of records or an envelope with the array under "data".
func ParseDocument(bts []byte, norm Normalizer) (*File, error) {
	bts = bytes.TrimSpace(bts)

	var raws []RawRecord
	if len(bts) > 0 && bts[0] == '{' {
		var env struct {
			Data []RawRecord `json:"data"`
		}
		if err := json.Unmarshal(bts, &env); err != nil {
			return nil, fmt.Errorf("unmarshal envelope: %w", err)
		}
		raws = env.Data
	} else if err := json.Unmarshal(bts, &raws); err != nil {
		return nil, fmt.Errorf("unmarshal records: %w", err)
	}

	return &File{recs: norm.normalizeAll(raws)}, nil
}

// Get returns the story with the given key.
func (f *File) Get(_ context.Context, key string) (Record, error) {
	key = Slugify(key)
	for _, rec := range f.recs {
		if rec.Key == key {
			return rec, nil
		}
	}
	return Record{}, ErrNotFound
}

// List returns the stories of the document.
func (f *File) List(_ context.Context, req ListRequest) ([]Record, error) {
	return req.apply(f.recs), nil
}
