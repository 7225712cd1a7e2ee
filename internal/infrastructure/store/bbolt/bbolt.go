// Package bbolt implements the expiring key-value store on top of a bbolt
// database file, so consumed payment proofs survive process restarts.
package bbolt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/SerPepe/402fly/internal/infrastructure/store"
)

var bucketName = []byte("fly402")

// record is the stored envelope. The expiry travels with the value so Get can
// reject stale entries without any external index.
type record struct {
	ExpiresAt time.Time `json:"expires_at"`
	Data      []byte    `json:"data"`
}

type Store struct {
	bdb *bbolt.DB
}

// Open creates or opens the database file and ensures the bucket exists.
func Open(path string) (*Store, error) {
	bdb, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt: open %s: %w", path, err)
	}

	err = bdb.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		bdb.Close()
		return nil, fmt.Errorf("bbolt: create bucket: %w", err)
	}

	return &Store{bdb: bdb}, nil
}

func (s *Store) Close() error {
	return s.bdb.Close()
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	var result []byte

	err := s.bdb.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketName).Get([]byte(key))
		if raw == nil {
			return fmt.Errorf("%w: %q", store.ErrNotFound, key)
		}

		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("%w: %w", store.ErrCantDecode, err)
		}

		if time.Now().After(rec.ExpiresAt) {
			return fmt.Errorf("%w: %q", store.ErrNotFound, key)
		}

		result = make([]byte, len(rec.Data))
		copy(result, rec.Data)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	raw, err := json.Marshal(record{
		ExpiresAt: time.Now().Add(ttl),
		Data:      value,
	})
	if err != nil {
		return err
	}

	return s.bdb.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), raw)
	})
}

func (s *Store) Delete(_ context.Context, key string) error {
	return s.bdb.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(bucketName)
		if bkt.Get([]byte(key)) == nil {
			return fmt.Errorf("%w: %q", store.ErrNotFound, key)
		}
		return bkt.Delete([]byte(key))
	})
}

// Cleanup removes entries whose expiry has passed and returns how many were
// reclaimed.
func (s *Store) Cleanup() (int, error) {
	now := time.Now()
	removed := 0

	err := s.bdb.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(bucketName)
		c := bkt.Cursor()

		var stale [][]byte
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var rec record
			if err := json.Unmarshal(v, &rec); err != nil {
				continue
			}
			if now.After(rec.ExpiresAt) {
				stale = append(stale, append([]byte(nil), k...))
			}
		}

		for _, k := range stale {
			if err := bkt.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})

	return removed, err
}

// StartCleanup sweeps expired entries on the given interval until the context
// is cancelled.
func (s *Store) StartCleanup(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Cleanup()
		}
	}
}
