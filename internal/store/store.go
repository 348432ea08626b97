// Package store holds short lived single use values such as verification
// codes and OAuth states.
package store

import (
	"context"
	"errors"
	"time"
)

const (
	VerifyPrefix     = "verify:"
	OAuthStatePrefix = "oauth_state:"
)

var ErrClosed = errors.New("store is closed")

// OneTimeStore keeps values that must be consumed at most once. Take and
// TakeIfMatch are atomic: two concurrent callers can never both receive
// the same value.
type OneTimeStore interface {
	// Put stores value under key, replacing any previous value
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns the value without consuming it
	Get(ctx context.Context, key string) (string, bool, error)
	// Take returns the value and removes it in one step
	Take(ctx context.Context, key string) (string, bool, error)
	// TakeIfMatch removes the value only if it equals expected
	TakeIfMatch(ctx context.Context, key, expected string) (bool, error)
	Delete(ctx context.Context, key string) error
	Close() error
}
