package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/propvest/internal/domain/analysis"
)

type fakeKV struct {
	data map[string]string
	ttl  map[string]time.Duration
	err  error
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (f *fakeKV) Get(_ context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeKV) Set(_ context.Context, key string, value any, exp time.Duration) *redis.StatusCmd {
	f.data[key] = string(value.([]byte))
	f.ttl[key] = exp
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeKV) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestShareCacheRoundTrip(t *testing.T) {
	kv := newFakeKV()
	c := &ShareCache{client: kv, ttl: time.Minute}
	ctx := context.Background()
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	_, ok, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)

	view := analysis.PublicView{
		Type:            analysis.TypeRental,
		Data:            analysis.Payload{"capRate": 6.5},
		PropertyAddress: "5 Oak Ave",
		CreatedAt:       at,
		LatestVersion:   &analysis.PublicVersion{CreatedAt: at, Data: analysis.Payload{"capRate": 6.5}},
	}
	require.NoError(t, c.Set(ctx, "abc", view))
	assert.Equal(t, time.Minute, kv.ttl["share:abc"])

	got, ok, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "5 Oak Ave", got.PropertyAddress)
	assert.Equal(t, 6.5, got.Data["capRate"])
	assert.True(t, at.Equal(got.LatestVersion.CreatedAt))

	require.NoError(t, c.Invalidate(ctx, "abc"))
	_, ok, err = c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestShareCacheCorruptEntryIsMiss(t *testing.T) {
	kv := newFakeKV()
	kv.data["share:x"] = "{not json"
	c := &ShareCache{client: kv, ttl: time.Minute}

	_, ok, err := c.Get(context.Background(), "x")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestShareCacheError(t *testing.T) {
	kv := newFakeKV()
	kv.err = errors.New("connection refused")
	c := &ShareCache{client: kv, ttl: time.Minute}

	_, ok, err := c.Get(context.Background(), "x")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestNewShareCacheDefaultTTL(t *testing.T) {
	c := NewShareCache(redis.NewClient(&redis.Options{Addr: "localhost:0"}), 0)
	assert.Equal(t, defaultTTL, c.ttl)
	assert.Equal(t, "share:p1", Key("p1"))
}
