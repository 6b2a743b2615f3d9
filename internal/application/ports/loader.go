package ports

import (
	"context"

	"github.com/ikolvi/quicui-core/internal/domain/flow"
)

// FlowLoaderPort loads and memoizes raw flow definitions.
//
// Implementations must de-duplicate concurrent loads of the same resource
// locator: a second caller arriving while a load is in flight shares the
// outcome of the first instead of triggering a redundant load.
type FlowLoaderPort interface {
	// Load returns the cached definition for the locator, performing and
	// caching the load on first use. Malformed definitions fail with a
	// validation error before anything is cached.
	Load(ctx context.Context, flowID, resourceLocator string) (*flow.Definition, error)

	// Preload loads multiple locators concurrently. Failure of any load fails
	// the whole preload.
	Preload(ctx context.Context, locators map[string]string) error

	// GetCached returns the cached definition for a locator, if present.
	GetCached(resourceLocator string) (*flow.Definition, bool)

	// Cache stores a definition under the locator, replacing any prior entry.
	Cache(resourceLocator string, def *flow.Definition)

	// ClearCache invalidates one locator, or the whole cache when locator is
	// empty.
	ClearCache(resourceLocator string)
}
