package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/soundbridge/internal/infra/metrics"
)

func newTestS3(t *testing.T, extra map[string]any) (*S3Resolver, *atomic.Int32, *metrics.Metrics) {
	t.Helper()

	var heads atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		heads.Add(1)
		if r.URL.Path == "/audio/media/music/one.mp3" {
			w.Header().Set("Content-Length", "1024")
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	settings := map[string]any{
		"bucket":            "audio",
		"endpoint":          server.URL,
		"prefix":            "media",
		"use_path_style":    true,
		"access_key_id":     "AKID",
		"secret_access_key": "SECRET",
	}
	for k, v := range extra {
		settings[k] = v
	}

	m := metrics.NewNop()
	r, err := NewS3Resolver(context.Background(), settings, m)
	require.NoError(t, err)
	return r, &heads, m
}

func TestS3Resolver_PresignsAndCaches(t *testing.T) {
	r, heads, m := newTestS3(t, nil)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return base }

	ctx := context.Background()
	u, err := r.ResolveURL(ctx, "music/one.mp3")
	require.NoError(t, err)
	assert.Contains(t, u, "/audio/media/music/one.mp3")
	assert.Contains(t, u, "X-Amz-Signature=")
	assert.Contains(t, u, "X-Amz-Expires=3600")

	again, err := r.ResolveURL(ctx, "music/one.mp3")
	require.NoError(t, err)
	assert.Equal(t, u, again)
	assert.Equal(t, int32(1), heads.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ResolveRequests.WithLabelValues("s3", "hit")))

	// Inside the refresh margin the URL is signed again.
	r.now = func() time.Time { return base.Add(56 * time.Minute) }
	_, err = r.ResolveURL(ctx, "music/one.mp3")
	require.NoError(t, err)
	assert.Equal(t, int32(2), heads.Load())

	r.Invalidate("music/one.mp3")
	_, err = r.ResolveURL(ctx, "music/one.mp3")
	require.NoError(t, err)
	assert.Equal(t, int32(3), heads.Load())
}

func TestS3Resolver_NotFound(t *testing.T) {
	r, _, m := newTestS3(t, nil)

	_, err := r.ResolveURL(context.Background(), "music/missing.mp3")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ResolveRequests.WithLabelValues("s3", "error")))
}

func TestS3Resolver_SkipExistenceCheck(t *testing.T) {
	r, heads, _ := newTestS3(t, map[string]any{"skip_existence_check": true})

	u, err := r.ResolveURL(context.Background(), "music/missing.mp3")
	require.NoError(t, err)
	assert.True(t, strings.Contains(u, "/audio/media/music/missing.mp3"))
	assert.Equal(t, int32(0), heads.Load())
}

func TestS3Resolver_DirectKeys(t *testing.T) {
	r, heads, _ := newTestS3(t, nil)

	u, err := r.ResolveURL(context.Background(), "https://cdn.example.com/a.mp3")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/a.mp3", u)
	assert.Equal(t, int32(0), heads.Load())

	_, err = r.ResolveURL(context.Background(), "")
	assert.Error(t, err)
}

func TestS3Resolver_ObjectKey(t *testing.T) {
	r := &S3Resolver{config: &S3ResolverConfig{}}
	assert.Equal(t, "a.mp3", r.objectKey("/a.mp3"))

	r.config.Prefix = "media/"
	assert.Equal(t, "media/a.mp3", r.objectKey("/a.mp3"))
}

func TestNewS3Resolver_RefreshMarginTooLong(t *testing.T) {
	_, err := NewS3Resolver(context.Background(), map[string]any{
		"bucket":         "audio",
		"url_expiry":     "5m",
		"refresh_margin": "10m",
	}, nil)
	assert.ErrorContains(t, err, "refresh margin")
}
