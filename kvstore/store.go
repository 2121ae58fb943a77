package kvstore

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/c360/adapterkit/errors"
)

// Store is the persistence collaborator contract. Implementations must be
// safe for concurrent use.
//
// Read returns errors.ErrKeyNotFound for absent keys; Write and Delete treat
// their happy paths as idempotent. Backend failures are returned as transient
// classified errors so callers can make retry decisions via the errors
// package.
type Store interface {
	// Read returns the value stored under key, or errors.ErrKeyNotFound.
	Read(ctx context.Context, key string) ([]byte, error)

	// Write stores value under key, creating or replacing it.
	Write(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key returns
	// errors.ErrKeyNotFound, which callers are free to ignore.
	Delete(ctx context.Context, key string) error
}

// IsNotFound reports whether err is the ordinary not-found status.
func IsNotFound(err error) bool {
	return stderrors.Is(err, errors.ErrKeyNotFound)
}

// ReadJSON reads key and unmarshals the value into a T.
func ReadJSON[T any](ctx context.Context, s Store, key string) (T, error) {
	var out T

	data, err := s.Read(ctx, key)
	if err != nil {
		return out, err
	}

	if err := json.Unmarshal(data, &out); err != nil {
		return out, errors.WrapFatal(errors.ErrDataCorrupted, "kvstore", "ReadJSON", "decode "+key)
	}
	return out, nil
}

// WriteJSON marshals value and stores it under key.
func WriteJSON[T any](ctx context.Context, s Store, key string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.WrapInvalid(err, "kvstore", "WriteJSON", "encode "+key)
	}
	return s.Write(ctx, key, data)
}

// Scoped returns a view of s where every key is prefixed with "prefix:".
// An empty prefix returns s unchanged.
func Scoped(s Store, prefix string) Store {
	if prefix == "" {
		return s
	}
	return &scopedStore{inner: s, prefix: prefix + ":"}
}

type scopedStore struct {
	inner  Store
	prefix string
}

func (s *scopedStore) Read(ctx context.Context, key string) ([]byte, error) {
	return s.inner.Read(ctx, s.prefix+key)
}

func (s *scopedStore) Write(ctx context.Context, key string, value []byte) error {
	return s.inner.Write(ctx, s.prefix+key, value)
}

func (s *scopedStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, s.prefix+key)
}
