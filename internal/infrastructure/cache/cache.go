// Package cache memoizes valuation results.  The in-memory backend serves a
// single process for the lifetime of a session; the optional Redis backend
// shares results across worker processes.  Both backends deduplicate
// concurrent loads of the same key with singleflight.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/turtacn/WinWin-Intelligence/internal/domain/entity"
	"github.com/turtacn/WinWin-Intelligence/pkg/errors"
)

// ErrCacheMiss signals an absent key.  Callers compare with errors.Is.
var ErrCacheMiss = errors.New(errors.CodeNotFound, "cache miss")

// Cache is the memoization contract shared by both backends.
type Cache interface {
	// Get loads the value under key into dest, or returns ErrCacheMiss.
	Get(ctx context.Context, key string, dest interface{}) error

	// Set stores value under key.  Last write wins on concurrent racing
	// writers.
	Set(ctx context.Context, key string, value interface{}) error

	// Delete removes keys; absent keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// GetOrSet loads the value under key into dest, invoking loader on a
	// miss and storing its result.  Concurrent callers of the same key
	// share one loader invocation.
	GetOrSet(ctx context.Context, key string, dest interface{}, loader func(ctx context.Context) (interface{}, error)) error
}

// Serializer encodes cached values.  JSON is the default; both backends store
// serialized bytes so Get semantics are identical.
type Serializer interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

type jsonSerializer struct{}

func (jsonSerializer) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (jsonSerializer) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

// ─────────────────────────────────────────────────────────────────────────────
// Fingerprinting
// ─────────────────────────────────────────────────────────────────────────────

// canonicalInput is the stable shape hashed by Fingerprint.  Components are
// sorted by ID so input order cannot change the key.
type canonicalInput struct {
	Profile    entity.Profile          `json:"profile"`
	Components []entity.ValueComponent `json:"components"`
}

// Fingerprint derives the canonical cache key for one valuation input.  Two
// calls with the same profile and the same component set (in any order)
// produce the same key.
func Fingerprint(profile entity.Profile, components []entity.ValueComponent) string {
	sorted := make([]entity.ValueComponent, len(components))
	copy(sorted, components)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ComponentID < sorted[j].ComponentID })

	// Marshal of a map-free struct is deterministic.
	data, err := json.Marshal(canonicalInput{Profile: profile, Components: sorted})
	if err != nil {
		// Profiles and components are plain data; this cannot fail.
		return "unhashable:" + profile.EntityID.String()
	}
	sum := sha256.Sum256(data)
	return "valuation:" + hex.EncodeToString(sum[:])
}
