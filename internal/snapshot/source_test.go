package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/sitestore/internal/codec"
	"github.com/dmitrijs2005/sitestore/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKV struct {
	values map[string][]byte
	err    error
}

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.values[key], nil
}

func (f *fakeKV) Set(_ context.Context, key string, value []byte) error {
	f.values[key] = value
	return nil
}

func TestLocalCacheSource(t *testing.T) {
	image := []byte("SQLite format 3\x00payload")

	tests := []struct {
		name   string
		kv     *fakeKV
		wantOK bool
	}{
		{"slot set", &fakeKV{values: map[string][]byte{"site_sqldb": []byte(codec.Encode(image))}}, true},
		{"slot unset", &fakeKV{values: map[string][]byte{}}, false},
		{"slot empty", &fakeKV{values: map[string][]byte{"site_sqldb": {}}}, false},
		{"slot corrupt", &fakeKV{values: map[string][]byte{"site_sqldb": []byte("%%% not base64")}}, false},
		{"read error", &fakeKV{err: errors.New("disk gone")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewLocalCacheSource(tt.kv, "site_sqldb", logging.Discard())
			got, ok := src.TryLoad(context.Background())
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, image, got)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestEmptySource(t *testing.T) {
	got, ok := EmptySource{}.TryLoad(context.Background())
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.Equal(t, "none", EmptySource{}.Name())
}

type fakeFetcher struct {
	image []byte
	err   error
	block bool
	calls int
}

func (f *fakeFetcher) Describe() string { return "fake" }

func (f *fakeFetcher) Fetch(ctx context.Context) ([]byte, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.image, f.err
}

func TestRemoteSnapshotSource_Success(t *testing.T) {
	f := &fakeFetcher{image: []byte{1, 2, 3}}
	src := NewRemoteSnapshotSource(f, time.Second, logging.Discard())

	got, ok := src.TryLoad(context.Background())
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, got)
	assert.Equal(t, 1, f.calls)
}

func TestRemoteSnapshotSource_ErrorIsAbsentWithoutRetry(t *testing.T) {
	f := &fakeFetcher{err: errors.New("boom")}
	src := NewRemoteSnapshotSource(f, time.Second, logging.Discard())

	_, ok := src.TryLoad(context.Background())
	assert.False(t, ok)
	assert.Equal(t, 1, f.calls, "remote must be attempted exactly once")
}

func TestRemoteSnapshotSource_EmptyIsAbsent(t *testing.T) {
	src := NewRemoteSnapshotSource(&fakeFetcher{image: []byte{}}, time.Second, logging.Discard())

	_, ok := src.TryLoad(context.Background())
	assert.False(t, ok)
}

func TestRemoteSnapshotSource_TimeoutBoundsFetch(t *testing.T) {
	f := &fakeFetcher{block: true}
	src := NewRemoteSnapshotSource(f, 50*time.Millisecond, logging.Discard())

	started := time.Now()
	_, ok := src.TryLoad(context.Background())
	assert.False(t, ok)
	assert.Less(t, time.Since(started), 5*time.Second)
}

func TestNewRemoteSnapshotSource_DefaultTimeout(t *testing.T) {
	src := NewRemoteSnapshotSource(&fakeFetcher{}, 0, logging.Discard())
	assert.Equal(t, DefaultRemoteTimeout, src.timeout)
}
