package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	storiesBktName = "stories"
	orderBktName   = "order"

	// openTimeout limits the wait for the file lock held by another process.
	openTimeout = 5 * time.Second
)

// Bolt is a local snapshot of stories that uses BoltDB as a backend.
type Bolt struct {
	db *bolt.DB
}

// NewBolt creates new Bolt storage at the given file.
func NewBolt(file string) (*Bolt, error) {
	db, err := bolt.Open(file, 0o600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to make boltdb for %s: %w", file, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{storiesBktName, orderBktName} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create top-level bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("make buckets: %w", err)
	}

	return &Bolt{db: db}, nil
}

// Replace drops the current snapshot and puts the given records in their order.
func (b *Bolt) Replace(_ context.Context, recs []Record) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{storiesBktName, orderBktName} {
			if err := tx.DeleteBucket([]byte(name)); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
				return fmt.Errorf("drop bucket %s: %w", name, err)
			}
		}

		stories, err := tx.CreateBucket([]byte(storiesBktName))
		if err != nil {
			return fmt.Errorf("create stories bucket: %w", err)
		}

		order, err := tx.CreateBucket([]byte(orderBktName))
		if err != nil {
			return fmt.Errorf("create order bucket: %w", err)
		}

		for idx, rec := range recs {
			bts, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("marshal story %s: %w", rec.Key, err)
			}

			if err := stories.Put([]byte(rec.Key), bts); err != nil {
				return fmt.Errorf("put story %s: %w", rec.Key, err)
			}

			if err := order.Put(seqKey(idx), []byte(rec.Key)); err != nil {
				return fmt.Errorf("put order of %s: %w", rec.Key, err)
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("update storage: %w", err)
	}

	return nil
}

// Get returns story from storage.
func (b *Bolt) Get(_ context.Context, key string) (rec Record, err error) {
	err = b.db.View(func(tx *bolt.Tx) error {
		bts := tx.Bucket([]byte(storiesBktName)).Get([]byte(Slugify(key)))
		if bts == nil {
			return ErrNotFound
		}

		if err := json.Unmarshal(bts, &rec); err != nil {
			return fmt.Errorf("unmarshal story: %w", err)
		}

		return nil
	})
	switch {
	case errors.Is(err, ErrNotFound):
		return Record{}, ErrNotFound
	case err != nil:
		return Record{}, &FetchError{Source: "bolt", Err: fmt.Errorf("view storage: %w", err)}
	}

	return rec, nil
}

// List returns all stories from storage in the order they were put.
func (b *Bolt) List(_ context.Context, req ListRequest) ([]Record, error) {
	var result []Record
	err := b.db.View(func(tx *bolt.Tx) error {
		stories := tx.Bucket([]byte(storiesBktName))
		err := tx.Bucket([]byte(orderBktName)).ForEach(func(_, key []byte) error {
			var rec Record
			if err := json.Unmarshal(stories.Get(key), &rec); err != nil {
				return fmt.Errorf("unmarshal story %s: %w", key, err)
			}
			result = append(result, rec)
			return nil
		})
		if err != nil {
			return fmt.Errorf("foreach: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, &FetchError{Source: "bolt", Err: fmt.Errorf("view storage: %w", err)}
	}
	return req.apply(result), nil
}

// Close closes the storage.
func (b *Bolt) Close() error { return b.db.Close() }

func seqKey(idx int) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(idx))
	return k
}
