// Package cache memoizes expensive pipeline stages in memory, keyed by the
// exact input bytes. Entries are bounded in number and expire after a TTL.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultSize = 128
	DefaultTTL  = time.Hour
)

// Memo is a content-addressed result cache. A nil *Memo is valid and
// simply runs the computation every time.
type Memo struct {
	lru    *expirable.LRU[string, string]
	group  singleflight.Group
	hits   atomic.Int64
	misses atomic.Int64
}

// Stats summarises cache usage.
type Stats struct {
	Entries int
	Hits    int64
	Misses  int64
}

// New creates a Memo holding at most size entries for ttl each.
// Non-positive values fall back to DefaultSize and DefaultTTL.
func New(size int, ttl time.Duration) *Memo {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memo{lru: expirable.NewLRU[string, string](size, nil, ttl)}
}

type noStoreError struct {
	value string
}

func (e noStoreError) Error() string { return "result not cached" }

// NoStore is returned by a Do computation whose result must reach the caller
// but must not be cached, e.g. a degraded result after a service outage.
func NoStore(value string) error {
	return noStoreError{value: value}
}

// Key derives the cache key for input processed by stage. The stage name is
// part of the key so different stages never share entries.
func Key(stage string, input []byte) string {
	h := sha256.New()
	h.Write([]byte(stage))
	h.Write([]byte{0})
	h.Write(input)
	return stage + ":" + hex.EncodeToString(h.Sum(nil))
}

// Do returns the cached result for (stage, input) or runs fn to produce it.
// Concurrent calls for the same key share a single run of fn. Errors are
// returned to every waiter and never cached. A value returned through
// NoStore is handed to every waiter without being cached.
func (m *Memo) Do(ctx context.Context, stage string, input []byte, fn func(ctx context.Context) (string, error)) (string, error) {
	if m == nil {
		out, err := fn(ctx)
		var ns noStoreError
		if errors.As(err, &ns) {
			return ns.value, nil
		}
		return out, err
	}

	key := Key(stage, input)
	if v, ok := m.lru.Get(key); ok {
		m.hits.Add(1)
		return v, nil
	}

	v, err, _ := m.group.Do(key, func() (interface{}, error) {
		if v, ok := m.lru.Get(key); ok {
			m.hits.Add(1)
			return v, nil
		}
		m.misses.Add(1)
		out, err := fn(ctx)
		var ns noStoreError
		if errors.As(err, &ns) {
			return ns.value, nil
		}
		if err != nil {
			return "", err
		}
		m.lru.Add(key, out)
		return out, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Stats reports the current entry count and the hit/miss counters.
func (m *Memo) Stats() Stats {
	if m == nil {
		return Stats{}
	}
	return Stats{
		Entries: m.lru.Len(),
		Hits:    m.hits.Load(),
		Misses:  m.misses.Load(),
	}
}
