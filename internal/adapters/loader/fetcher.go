// Package loader loads and memoizes raw flow definitions from resource locators.
package loader

import (
	"context"
	"fmt"
	"os"
)

// Fetcher retrieves the raw bytes behind a resource locator. The loader
// layers caching, validation, and de-duplication on top of it.
type Fetcher interface {
	Fetch(ctx context.Context, resourceLocator string) ([]byte, error)
}

// FileFetcher reads flow definitions from JSON files on disk.
type FileFetcher struct{}

// NewFileFetcher creates a fetcher for file-based resource locators.
func NewFileFetcher() *FileFetcher {
	return &FileFetcher{}
}

// Fetch reads the file at the locator path.
func (f *FileFetcher) Fetch(ctx context.Context, resourceLocator string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(resourceLocator)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow resource %s: %w", resourceLocator, err)
	}
	return data, nil
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, resourceLocator string) ([]byte, error)

// Fetch calls the wrapped function.
func (f FetcherFunc) Fetch(ctx context.Context, resourceLocator string) ([]byte, error) {
	return f(ctx, resourceLocator)
}
