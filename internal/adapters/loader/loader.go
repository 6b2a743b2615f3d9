package loader

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/ikolvi/quicui-core/internal/application/ports"
	"github.com/ikolvi/quicui-core/internal/domain/flow"
	"github.com/ikolvi/quicui-core/internal/infrastructure/logging"
)

// Compile-time check that Loader implements FlowLoaderPort.
var _ ports.FlowLoaderPort = (*Loader)(nil)

// Loader memoizes parsed flow definitions keyed by resource locator.
//
// Concurrent loads of the same locator share one in-flight fetch through a
// singleflight group; callers arriving mid-load wait on the same result
// instead of polling or refetching.
type Loader struct {
	fetcher Fetcher
	logger  *logging.Logger

	mu    sync.RWMutex
	cache map[string]*flow.Definition

	group singleflight.Group
}

// New creates a Loader around the given fetcher.
func New(fetcher Fetcher, logger *logging.Logger) *Loader {
	if logger == nil {
		logger = logging.Default()
	}
	return &Loader{
		fetcher: fetcher,
		logger:  logger,
		cache:   make(map[string]*flow.Definition),
	}
}

// Load returns the cached definition for the locator, performing and caching
// the load on first use. Malformed definitions fail with a validation error
// before anything is cached.
func (l *Loader) Load(ctx context.Context, flowID, resourceLocator string) (*flow.Definition, error) {
	if def, ok := l.GetCached(resourceLocator); ok {
		return def, nil
	}

	v, err, shared := l.group.Do(resourceLocator, func() (any, error) {
		// Re-check under the group: a racing caller may have populated the
		// cache between our miss and the flight starting.
		if def, ok := l.GetCached(resourceLocator); ok {
			return def, nil
		}

		data, err := l.fetcher.Fetch(ctx, resourceLocator)
		if err != nil {
			return nil, err
		}

		def, err := flow.ParseDefinition(flowID, data)
		if err != nil {
			return nil, err
		}

		l.Cache(resourceLocator, def)
		l.logger.Debug("flow loaded",
			"flow_id", def.FlowID,
			"resource", resourceLocator,
			"screens", len(def.Screens),
		)
		return def, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		l.logger.Debug("flow load de-duplicated", "resource", resourceLocator)
	}
	return v.(*flow.Definition), nil
}

// Preload loads multiple locators concurrently. Failure of any load fails the
// whole preload.
func (l *Loader) Preload(ctx context.Context, locators map[string]string) error {
	g, ctx := errgroup.WithContext(ctx)
	for flowID, locator := range locators {
		g.Go(func() error {
			_, err := l.Load(ctx, flowID, locator)
			return err
		})
	}
	return g.Wait()
}

// GetCached returns the cached definition for a locator, if present.
func (l *Loader) GetCached(resourceLocator string) (*flow.Definition, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	def, ok := l.cache[resourceLocator]
	return def, ok
}

// Cache stores a definition under the locator, replacing any prior entry.
func (l *Loader) Cache(resourceLocator string, def *flow.Definition) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache[resourceLocator] = def
}

// ClearCache invalidates one locator, or the whole cache when locator is empty.
func (l *Loader) ClearCache(resourceLocator string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if resourceLocator == "" {
		l.cache = make(map[string]*flow.Definition)
		return
	}
	delete(l.cache, resourceLocator)
}

// CachedCount returns the number of memoized definitions.
func (l *Loader) CachedCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.cache)
}
