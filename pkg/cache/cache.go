// Package cache stores recommendations keyed by error occurrence.
//
// Entries never expire and are never invalidated: the first value stored
// under a key is the one every later lookup returns.
package cache

import "context"

// Cache is the recommendation store used by the analyzer.
type Cache interface {
	// Get returns the stored value and whether the key was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Add stores value unless key already holds one, and returns whichever
	// value is stored once the call completes (first writer wins).
	Add(ctx context.Context, key, value string) (string, error)
}
