// Package remote provides remote data source adapters: an in-memory backend
// used for tests and local-only mode, plus an offline-aware queueing decorator.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ikolvi/quicui-core/internal/application/ports"
	domainErrors "github.com/ikolvi/quicui-core/internal/domain/errors"
)

// InMemoryRemote is a RemoteDataSourcePort backed by process memory. It powers
// local-only mode and tests, including push subscriptions.
type InMemoryRemote struct {
	mu          sync.RWMutex
	screens     map[string]*ports.ScreenPayload
	subscribers map[string][]chan ports.ScreenPayload

	// failWith, when set, makes every operation fail with the given error.
	failWith error
}

// NewInMemoryRemote creates an empty in-memory remote.
func NewInMemoryRemote() *InMemoryRemote {
	return &InMemoryRemote{
		screens:     make(map[string]*ports.ScreenPayload),
		subscribers: make(map[string][]chan ports.ScreenPayload),
	}
}

var _ ports.RemoteDataSourcePort = (*InMemoryRemote)(nil)

// SetFailure makes all subsequent operations fail with err. Pass nil to
// restore normal behavior.
func (r *InMemoryRemote) SetFailure(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failWith = err
}

// Seed installs a screen payload directly, bypassing version bumping.
func (r *InMemoryRemote) Seed(p ports.ScreenPayload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := p
	r.screens[p.ScreenID] = &cp
}

// FetchScreen retrieves the remote definition of a screen.
func (r *InMemoryRemote) FetchScreen(ctx context.Context, screenID string) (*ports.ScreenPayload, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.failWith != nil {
		return nil, r.failWith
	}
	p, ok := r.screens[screenID]
	if !ok {
		return nil, domainErrors.NewError(domainErrors.CodeNotFound,
			fmt.Sprintf("remote screen not found: %s", screenID), domainErrors.ErrRecordNotFound)
	}
	cp := *p
	return &cp, nil
}

// UpdateScreen applies a partial update, bumps the remote version, and
// notifies subscribers.
func (r *InMemoryRemote) UpdateScreen(ctx context.Context, screenID string, partial json.RawMessage) (*ports.ScreenPayload, error) {
	r.mu.Lock()

	if r.failWith != nil {
		err := r.failWith
		r.mu.Unlock()
		return nil, err
	}

	p, ok := r.screens[screenID]
	if !ok {
		p = &ports.ScreenPayload{ScreenID: screenID}
		r.screens[screenID] = p
	}
	p.Payload = append(json.RawMessage(nil), partial...)
	p.Version++
	p.UpdatedAt = time.Now()

	cp := *p
	subs := append([]chan ports.ScreenPayload(nil), r.subscribers[screenID]...)
	r.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- cp:
		default:
			// Slow subscribers miss intermediate updates rather than
			// blocking the writer.
		}
	}

	return &cp, nil
}

// DeleteScreen removes the screen and drops its subscribers.
func (r *InMemoryRemote) DeleteScreen(ctx context.Context, screenID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWith != nil {
		return r.failWith
	}
	if _, ok := r.screens[screenID]; !ok {
		return domainErrors.NewError(domainErrors.CodeNotFound,
			fmt.Sprintf("remote screen not found: %s", screenID), domainErrors.ErrRecordNotFound)
	}
	delete(r.screens, screenID)

	for _, ch := range r.subscribers[screenID] {
		close(ch)
	}
	delete(r.subscribers, screenID)
	return nil
}

// SubscribeToScreen opens a push stream of updates for a screen.
func (r *InMemoryRemote) SubscribeToScreen(ctx context.Context, screenID string) (*ports.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWith != nil {
		return nil, r.failWith
	}

	ch := make(chan ports.ScreenPayload, 16)
	r.subscribers[screenID] = append(r.subscribers[screenID], ch)

	subCtx, cancel := context.WithCancel(ctx)
	go func() {
		<-subCtx.Done()
		r.mu.Lock()
		defer r.mu.Unlock()
		subs := r.subscribers[screenID]
		for i, c := range subs {
			if c == ch {
				r.subscribers[screenID] = append(subs[:i], subs[i+1:]...)
				close(ch)
				break
			}
		}
	}()

	return &ports.Subscription{Updates: ch, Cancel: cancel}, nil
}

// ScreenCount returns the number of screens currently stored.
func (r *InMemoryRemote) ScreenCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.screens)
}
