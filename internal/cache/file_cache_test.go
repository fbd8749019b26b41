package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type availability struct {
	Collection string `json:"collection"`
	Count      int    `json:"count"`
}

func TestFileCacheRoundtrip(t *testing.T) {
	fc := NewFileCache[availability](t.TempDir(), "availability", time.Hour)

	key := fc.GenerateKey("COPERNICUS/S2", "2020-01-01", "2020-02-01")
	_, ok := fc.Get(key)
	assert.False(t, ok)

	want := availability{Collection: "COPERNICUS/S2", Count: 42}
	require.NoError(t, fc.Set(key, want))

	got, ok := fc.Get(key)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestFileCacheKeyIsStable(t *testing.T) {
	fc := NewFileCache[availability](t.TempDir(), "availability", time.Hour)

	a := fc.GenerateKey("COPERNICUS/S2", "2020-01-01")
	b := fc.GenerateKey("COPERNICUS/S2", "2020-01-01")
	c := fc.GenerateKey("COPERNICUS/S2", "2020-01-02")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestFileCacheTTLExpiry(t *testing.T) {
	fc := NewFileCache[availability](t.TempDir(), "availability", 10*time.Millisecond)

	key := fc.GenerateKey("expiring")
	require.NoError(t, fc.Set(key, availability{Count: 1}))

	_, ok := fc.Get(key)
	assert.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	_, ok = fc.Get(key)
	assert.False(t, ok)
}

func TestFileCacheSliceValues(t *testing.T) {
	fc := NewFileCache[[]availability](t.TempDir(), "availability", time.Hour)

	key := fc.GenerateKey("slice")
	want := []availability{{Collection: "a", Count: 1}, {Collection: "b", Count: 2}}
	require.NoError(t, fc.Set(key, want))

	got, ok := fc.Get(key)
	require.True(t, ok)
	assert.Equal(t, want, got)
}
