package gemini

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/atelier-labs/ragdrive/internal/core/ports/driven"
)

func TestVectorCache_PutGet(t *testing.T) {
	c := newVectorCache(4, time.Minute)

	values := []float32{1, 2, 3}
	c.put("k", values)

	got, ok := c.get("k")
	assert.True(t, ok)
	assert.Equal(t, values, got)
}

func TestVectorCache_Miss(t *testing.T) {
	c := newVectorCache(4, time.Minute)

	_, ok := c.get("missing")
	assert.False(t, ok)
}

func TestVectorCache_Expiry(t *testing.T) {
	c := newVectorCache(4, time.Minute)

	now := time.Now()
	c.now = func() time.Time { return now }
	c.put("k", []float32{1})

	c.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, ok := c.get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.len())
}

func TestVectorCache_EvictsOldestWhenFull(t *testing.T) {
	c := newVectorCache(2, time.Minute)

	now := time.Now()
	c.now = func() time.Time { return now }
	c.put("first", []float32{1})

	c.now = func() time.Time { return now.Add(time.Second) }
	c.put("second", []float32{2})

	c.now = func() time.Time { return now.Add(2 * time.Second) }
	c.put("third", []float32{3})

	assert.Equal(t, 2, c.len())
	_, ok := c.get("first")
	assert.False(t, ok, "oldest entry should have been evicted")
	_, ok = c.get("third")
	assert.True(t, ok)
}

func TestCacheKey_DistinguishesRoles(t *testing.T) {
	docKey := cacheKey(driven.RoleDocument, "same text")
	queryKey := cacheKey(driven.RoleQuery, "same text")

	assert.NotEqual(t, docKey, queryKey)
}

func TestCacheKey_TruncatesLongText(t *testing.T) {
	long := make([]byte, 10_000)
	for i := range long {
		long[i] = 'a'
	}

	key := cacheKey(driven.RoleDocument, string(long))
	assert.LessOrEqual(t, len(key), cacheKeyLength+len("document:"))
}
