package extract

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"

	"github.com/joseph-ayodele/finextract/constants"
	"github.com/joseph-ayodele/finextract/internal/common"
)

// SharedRunTimeout bounds a collapsed extraction, which no longer follows
// the deadline of the caller that started it.
const SharedRunTimeout = 5 * time.Minute

// CacheStats counts cache outcomes since construction.
type CacheStats struct {
	Hits   uint64
	Misses uint64
	Shared uint64
}

// CachedDispatcher memoizes successful extractions by content hash and
// collapses concurrent identical uploads into one run.
type CachedDispatcher struct {
	next    Extractor
	cache   *ttlcache.Cache[uint64, Result]
	sfGroup singleflight.Group
	logger  *slog.Logger

	runTimeout time.Duration

	hits   atomic.Uint64
	misses atomic.Uint64
	shared atomic.Uint64
}

func NewCachedDispatcher(next Extractor, ttl time.Duration, capacity uint64, logger *slog.Logger) *CachedDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	opts := []ttlcache.Option[uint64, Result]{ttlcache.WithTTL[uint64, Result](ttl)}
	if capacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[uint64, Result](capacity))
	}
	c := &CachedDispatcher{
		next:       next,
		cache:      ttlcache.New(opts...),
		logger:     logger,
		runTimeout: SharedRunTimeout,
	}
	c.cache.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[uint64, Result]) {
		c.logger.Debug("extract.cache.evicted", "key", item.Key(), "reason", reason)
	})
	return c
}

// Start runs the expiry loop until Stop is called.
func (c *CachedDispatcher) Start() { go c.cache.Start() }

func (c *CachedDispatcher) Stop() { c.cache.Stop() }

func (c *CachedDispatcher) Stats() CacheStats {
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load(), Shared: c.shared.Load()}
}

func (c *CachedDispatcher) Extract(ctx context.Context, in Input) (Result, error) {
	key := cacheKey(in)
	if item := c.cache.Get(key); item != nil {
		c.hits.Add(1)
		c.logger.Debug("extract.cache.hit", "name", in.Name, "key", key)
		res := detach(item.Value())
		res.Cached = true
		return res, nil
	}
	c.misses.Add(1)

	// The shared run outlives any one caller; each caller waits on its own ctx.
	ch := c.sfGroup.DoChan(strconv.FormatUint(key, 16), func() (any, error) {
		if item := c.cache.Get(key); item != nil {
			return item.Value(), nil
		}
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.runTimeout)
		defer cancel()
		res, err := c.next.Extract(runCtx, in)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, res, ttlcache.DefaultTTL)
		return res, nil
	})
	select {
	case <-ctx.Done():
		c.logger.Debug("extract.cache.abandoned", "name", in.Name, "key", key, "error", ctx.Err())
		return Result{}, common.CancelledError(ctx.Err())
	case r := <-ch:
		if r.Shared {
			c.shared.Add(1)
			c.logger.Debug("extract.cache.shared", "name", in.Name, "key", key)
		}
		if r.Err != nil {
			return Result{}, r.Err
		}
		return detach(r.Val.(Result)), nil
	}
}

// cacheKey hashes the base media type and the bytes; the file name is not
// part of the identity of a document.
func cacheKey(in Input) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(constants.BaseMediaType(in.MediaType))
	_, _ = d.Write([]byte{0})
	_, _ = d.Write(in.Data)
	return d.Sum64()
}

// detach copies the slices of a stored result so callers cannot mutate the entry.
func detach(r Result) Result {
	r.Warnings = slices.Clone(r.Warnings)
	r.Annotated.Fields = slices.Clone(r.Annotated.Fields)
	return r
}

var _ Extractor = (*CachedDispatcher)(nil)
