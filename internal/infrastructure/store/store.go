// Package store provides the expiring key-value storage used for issued
// challenges and consumed payment proofs. Backends are in-memory or bbolt;
// every entry carries an expiry so retention stays bounded.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a key is absent or its entry has expired.
	ErrNotFound = errors.New("store: key not found")

	// ErrCantDecode is returned when a stored value cannot be decoded.
	ErrCantDecode = errors.New("store: can't decode value")
)

// Interface is the minimal contract a storage backend must satisfy.
type Interface interface {
	// Get returns the value for a key if it exists and has not expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set writes a value that expires after ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting an absent key returns ErrNotFound.
	Delete(ctx context.Context, key string) error
}

// JSON adapts a raw backend to typed values with an optional key prefix, so
// challenge and replay records can share one backend without colliding.
type JSON[T any] struct {
	Underlying Interface
	Prefix     string
}

func (j *JSON[T]) Get(ctx context.Context, key string) (T, error) {
	var result T

	data, err := j.Underlying.Get(ctx, j.Prefix+key)
	if err != nil {
		return result, err
	}

	if err := json.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("%w: %w", ErrCantDecode, err)
	}

	return result, nil
}

func (j *JSON[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return j.Underlying.Set(ctx, j.Prefix+key, data, ttl)
}

func (j *JSON[T]) Delete(ctx context.Context, key string) error {
	return j.Underlying.Delete(ctx, j.Prefix+key)
}
