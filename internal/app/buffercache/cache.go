// Package buffercache maps logical audio keys to decoded, immutable PCM
// buffers, loading each key at most once at a time.
package buffercache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/osa030/soundbridge/internal/app/audio"
	"github.com/osa030/soundbridge/internal/infra/logger"
	"github.com/osa030/soundbridge/internal/infra/metrics"
	"github.com/osa030/soundbridge/internal/infra/storage"
)

// Resolver maps a key to a fetchable location.
type Resolver interface {
	ResolveURL(ctx context.Context, key string) (string, error)
}

// Fetcher downloads the bytes at a location.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// Decoder decodes encoded bytes into PCM.
type Decoder interface {
	Decode(key string, data []byte) (*audio.Buffer, error)
}

// Config controls cache bounds and load behavior.
type Config struct {
	MaxBytes           int64         // <= 0 disables eviction
	LoadTimeout        time.Duration // per-load deadline
	PreloadConcurrency int
}

type entry struct {
	key string
	buf *audio.Buffer
}

// Cache is a byte-bounded LRU of decoded buffers. Concurrent misses on the
// same key share one load. Failed loads are never cached.
type Cache struct {
	resolver Resolver
	fetcher  Fetcher
	decoder  Decoder
	cfg      Config
	metrics  *metrics.Metrics
	log      zerolog.Logger

	mu         sync.Mutex
	entries    map[string]*list.Element
	lru        *list.List
	bytes      int64
	generation uint64

	group singleflight.Group
}

// New creates an empty cache.
func New(resolver Resolver, fetcher Fetcher, decoder Decoder, cfg Config, m *metrics.Metrics) *Cache {
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = 30 * time.Second
	}
	if cfg.PreloadConcurrency <= 0 {
		cfg.PreloadConcurrency = 1
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &Cache{
		resolver: resolver,
		fetcher:  fetcher,
		decoder:  decoder,
		cfg:      cfg,
		metrics:  m,
		log:      logger.Component("cache"),
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Resolve returns the decoded buffer for key, loading it on a miss. A hit
// returns the same buffer without I/O. Errors are marked audio.ErrLoad.
func (c *Cache) Resolve(ctx context.Context, key string) (*audio.Buffer, error) {
	if key == "" {
		return nil, audio.LoadError(errors.New("empty buffer key"), key)
	}

	if buf, ok := c.get(key); ok {
		c.metrics.CacheHits.Inc()
		return buf, nil
	}
	c.metrics.CacheMisses.Inc()

	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()

	ch := c.group.DoChan(key, func() (any, error) {
		return c.load(key, gen)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*audio.Buffer), nil
	case <-ctx.Done():
		return nil, audio.LoadError(ctx.Err(), key)
	}
}

// Preload resolves keys with bounded concurrency. Every key is attempted;
// failures are logged and returned together.
func (c *Cache) Preload(ctx context.Context, keys []string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.PreloadConcurrency)

	var (
		mu   sync.Mutex
		errs error
	)
	for _, key := range keys {
		g.Go(func() error {
			if _, err := c.Resolve(gctx, key); err != nil {
				c.log.Warn().Msgf("failed to preload %q: %v", key, err)
				mu.Lock()
				errs = errors.CombineErrors(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

// Contains reports whether key is cached.
func (c *Cache) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Len returns the number of cached buffers.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Bytes returns the decoded size of all cached buffers.
func (c *Cache) Bytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytes
}

// Remove drops key from the cache.
func (c *Cache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.removeLocked(el)
		c.updateGaugesLocked()
	}
}

// Clear drops every buffer. Loads already in flight are not inserted.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.lru.Init()
	c.bytes = 0
	c.generation++
	c.updateGaugesLocked()
	c.log.Debug().Msg("cache cleared")
}

func (c *Cache) get(key string) (*audio.Buffer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.lru.MoveToFront(el)
	return el.Value.(*entry).buf, true
}

func (c *Cache) load(key string, gen uint64) (*audio.Buffer, error) {
	// A load may have finished between the miss and joining the group.
	if buf, ok := c.get(key); ok {
		return buf, nil
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.LoadTimeout)
	defer cancel()

	buf, err := c.fetchAndDecode(ctx, key)
	if err != nil {
		c.metrics.LoadErrors.Inc()
		c.log.Debug().Msgf("load %q failed after %s: %v", key, time.Since(start), err)
		return nil, audio.LoadError(err, key)
	}
	c.metrics.LoadDuration.Observe(time.Since(start).Seconds())

	buf = c.insert(key, buf, gen)
	c.log.Debug().Msgf("loaded %q: %s, %d Hz, %d ch in %s", key, buf.Duration(), buf.SampleRate(), buf.Channels(), time.Since(start))
	return buf, nil
}

func (c *Cache) fetchAndDecode(ctx context.Context, key string) (*audio.Buffer, error) {
	location := key
	if !storage.IsDirect(key) {
		var err error
		location, err = c.resolver.ResolveURL(ctx, key)
		if err != nil {
			return nil, errors.Wrap(err, "failed to resolve storage url")
		}
	}

	data, err := c.fetcher.Fetch(ctx, location)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch audio")
	}

	buf, err := c.decoder.Decode(key, data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode audio")
	}
	return buf, nil
}

// insert stores buf and evicts least recently used entries beyond MaxBytes.
// The inserted entry itself is never evicted.
func (c *Cache) insert(key string, buf *audio.Buffer, gen uint64) *audio.Buffer {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return buf
	}
	if el, ok := c.entries[key]; ok {
		c.lru.MoveToFront(el)
		return el.Value.(*entry).buf
	}

	el := c.lru.PushFront(&entry{key: key, buf: buf})
	c.entries[key] = el
	c.bytes += buf.Size()

	for c.cfg.MaxBytes > 0 && c.bytes > c.cfg.MaxBytes {
		back := c.lru.Back()
		if back == nil || back == el {
			break
		}
		c.log.Debug().Msgf("evicting %q", back.Value.(*entry).key)
		c.removeLocked(back)
		c.metrics.CacheEvictions.Inc()
	}

	c.updateGaugesLocked()
	return buf
}

func (c *Cache) removeLocked(el *list.Element) {
	e := c.lru.Remove(el).(*entry)
	delete(c.entries, e.key)
	c.bytes -= e.buf.Size()
}

func (c *Cache) updateGaugesLocked() {
	c.metrics.CacheBytes.Set(float64(c.bytes))
	c.metrics.CacheEntries.Set(float64(c.lru.Len()))
}
