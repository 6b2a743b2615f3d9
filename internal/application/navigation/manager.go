// Package navigation implements the flow session manager: multi-flow JSON
// loading, the screen navigation stack, and the merged session-data store.
package navigation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ikolvi/quicui-core/internal/application/ports"
	domainErrors "github.com/ikolvi/quicui-core/internal/domain/errors"
	"github.com/ikolvi/quicui-core/internal/domain/flow"
	"github.com/ikolvi/quicui-core/internal/infrastructure/logging"
	"github.com/ikolvi/quicui-core/internal/infrastructure/tracing"
)

// ScreenChangeFunc observes navigation transitions. It runs synchronously
// after the state mutation, on the navigating goroutine.
type ScreenChangeFunc func(flowID, screenID string)

// Manager owns the navigation context: the active flow/screen pair, the
// history stack, session data, and the in-memory cache of loaded flows
// layered above the loader's own cache.
//
// Navigation operations are synchronous; only flow loads suspend on I/O.
type Manager struct {
	loader ports.FlowLoaderPort
	logger *logging.Logger
	tracer *tracing.Tracer

	mu              sync.Mutex
	initialized     bool
	currentFlowID   string
	currentScreenID string
	stack           []flow.NavigationEntry
	sessionData     flow.SessionData
	loadedFlows     map[string]*flow.Definition
	flowConfigs     map[string]string // flowID -> resource locator
	onScreenChange  ScreenChangeFunc
}

// NewManager creates an uninitialized manager.
func NewManager(loader ports.FlowLoaderPort, logger *logging.Logger, tracer *tracing.Tracer) *Manager {
	if logger == nil {
		logger = logging.Default()
	}
	if tracer == nil {
		tracer = tracing.Default()
	}
	return &Manager{
		loader:      loader,
		logger:      logger,
		tracer:      tracer,
		sessionData: flow.SessionData{},
		loadedFlows: map[string]*flow.Definition{},
		flowConfigs: map[string]string{},
	}
}

// OnScreenChange registers the screen-change callback, replacing any prior
// one. Pass nil to unregister.
func (m *Manager) OnScreenChange(fn ScreenChangeFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onScreenChange = fn
}

// InitializeApp loads the initial flow and enters its first declared screen.
// Extra flow configs, if given, are registered but not loaded. Fails when the
// initial flow declares no screens.
func (m *Manager) InitializeApp(ctx context.Context, initialFlowID, resourceLocator string, extraConfigs map[string]string) error {
	def, err := m.loader.Load(ctx, initialFlowID, resourceLocator)
	if err != nil {
		return err
	}
	first, err := def.FirstScreenID()
	if err != nil {
		return err
	}

	nctx, span := m.tracer.StartNavigationSpan(ctx, initialFlowID, first)

	m.mu.Lock()
	m.flowConfigs[initialFlowID] = resourceLocator
	for id, locator := range extraConfigs {
		m.flowConfigs[id] = locator
	}
	m.loadedFlows[initialFlowID] = def
	m.currentFlowID = initialFlowID
	m.currentScreenID = first
	m.stack = append(m.stack[:0], flow.NavigationEntry{
		FlowID:    initialFlowID,
		ScreenID:  first,
		Timestamp: time.Now(),
	})
	m.initialized = true
	fn := m.onScreenChange
	depth := len(m.stack)
	m.mu.Unlock()

	span.SetStackDepth(depth)
	span.End()
	logging.LogNavigation(nctx, m.logger, initialFlowID, first, depth)

	if fn != nil {
		fn(initialFlowID, first)
	}
	return nil
}

// LoadFlow returns the cached definition for the flow, loading it if needed.
// Before initialization the loaded flow is also adopted as current;
// afterwards it is cached only. Concurrent calls for the same locator share
// one underlying load via the loader.
func (m *Manager) LoadFlow(ctx context.Context, flowID, resourceLocator string) (*flow.Definition, error) {
	m.mu.Lock()
	if def, ok := m.loadedFlows[flowID]; ok {
		m.mu.Unlock()
		return def, nil
	}
	m.mu.Unlock()

	def, err := m.loader.Load(ctx, flowID, resourceLocator)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.flowConfigs[flowID] = resourceLocator
	m.loadedFlows[flowID] = def
	adopt := !m.initialized
	m.mu.Unlock()

	if adopt {
		first, err := def.FirstScreenID()
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		if !m.initialized {
			m.currentFlowID = flowID
			m.currentScreenID = first
			m.stack = append(m.stack[:0], flow.NavigationEntry{
				FlowID:    flowID,
				ScreenID:  first,
				Timestamp: time.Now(),
			})
			m.initialized = true
		}
		m.mu.Unlock()
	}

	return def, nil
}

// NavigateToScreen moves to a screen within the current flow. The screen must
// exist in the current flow's definition; data, when given, is merged into
// the session data.
func (m *Manager) NavigateToScreen(ctx context.Context, screenID string, data flow.SessionData) error {
	m.mu.Lock()
	if !m.initialized {
		m.mu.Unlock()
		return domainErrors.NewError(domainErrors.CodeValidation,
			"navigation manager is not initialized", domainErrors.ErrNotInitialized)
	}
	def, ok := m.loadedFlows[m.currentFlowID]
	if !ok || !def.HasScreen(screenID) {
		flowID := m.currentFlowID
		m.mu.Unlock()
		return domainErrors.NewError(domainErrors.CodeNotFound,
			fmt.Sprintf("screen %s not found in flow %s", screenID, flowID), domainErrors.ErrScreenNotFound)
	}
	flowID := m.currentFlowID
	m.pushLocked(flowID, screenID, data)
	fn := m.onScreenChange
	depth := len(m.stack)
	m.mu.Unlock()

	logging.LogNavigation(ctx, m.logger, flowID, screenID, depth)
	if fn != nil {
		fn(flowID, screenID)
	}
	return nil
}

// NavigateToFlow switches to a screen in another flow, loading the flow if
// necessary. The target screen is validated before any state changes, so a
// failed navigation leaves the context untouched.
func (m *Manager) NavigateToFlow(ctx context.Context, flowID, screenID string, data flow.SessionData) error {
	m.mu.Lock()
	if !m.initialized {
		m.mu.Unlock()
		return domainErrors.NewError(domainErrors.CodeValidation,
			"navigation manager is not initialized", domainErrors.ErrNotInitialized)
	}
	def, loaded := m.loadedFlows[flowID]
	locator, registered := m.flowConfigs[flowID]
	m.mu.Unlock()

	if !loaded {
		if !registered {
			return domainErrors.NewError(domainErrors.CodeValidation,
				fmt.Sprintf("flow %s has no registered resource locator", flowID), domainErrors.ErrFlowNotRegistered)
		}
		var err error
		def, err = m.loader.Load(ctx, flowID, locator)
		if err != nil {
			return err
		}
		m.mu.Lock()
		m.loadedFlows[flowID] = def
		m.mu.Unlock()
	}

	if !def.HasScreen(screenID) {
		return domainErrors.NewError(domainErrors.CodeNotFound,
			fmt.Sprintf("screen %s not found in flow %s", screenID, flowID), domainErrors.ErrScreenNotFound)
	}

	nctx, span := m.tracer.StartNavigationSpan(ctx, flowID, screenID)

	m.mu.Lock()
	m.currentFlowID = flowID
	m.pushLocked(flowID, screenID, data)
	fn := m.onScreenChange
	depth := len(m.stack)
	m.mu.Unlock()

	span.SetStackDepth(depth)
	span.End()
	logging.LogNavigation(nctx, m.logger, flowID, screenID, depth)

	if fn != nil {
		fn(flowID, screenID)
	}
	return nil
}

// GoBack pops up to steps entries off the stack, never popping the last one,
// and adopts the new top as current. No-op when the stack cannot go back.
// Popped entries are discarded; there is no forward stack.
func (m *Manager) GoBack(steps int, clearData bool) {
	if steps < 1 {
		steps = 1
	}

	m.mu.Lock()
	if len(m.stack) <= 1 {
		m.mu.Unlock()
		return
	}
	if steps > len(m.stack)-1 {
		steps = len(m.stack) - 1
	}
	m.stack = m.stack[:len(m.stack)-steps]
	top := m.stack[len(m.stack)-1]
	m.currentFlowID = top.FlowID
	m.currentScreenID = top.ScreenID
	if clearData {
		m.sessionData = flow.SessionData{}
	}
	fn := m.onScreenChange
	depth := len(m.stack)
	m.mu.Unlock()

	m.logger.Debug("navigated back",
		"flow_id", top.FlowID,
		"screen_id", top.ScreenID,
		"stack_depth", depth,
	)
	if fn != nil {
		fn(top.FlowID, top.ScreenID)
	}
}

// CanGoBack reports whether the stack holds more than the initial entry.
func (m *Manager) CanGoBack() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stack) > 1
}

// RegisterFlowConfigs merges flowID to resource-locator mappings into the
// registry without loading them.
func (m *Manager) RegisterFlowConfigs(configs map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, locator := range configs {
		m.flowConfigs[id] = locator
	}
}

// PreloadFlows loads the given flows concurrently. Every flow must have a
// registered config; any single failure fails the whole preload.
func (m *Manager) PreloadFlows(ctx context.Context, flowIDs []string) error {
	type target struct {
		flowID  string
		locator string
	}

	m.mu.Lock()
	targets := make([]target, 0, len(flowIDs))
	for _, id := range flowIDs {
		locator, ok := m.flowConfigs[id]
		if !ok {
			m.mu.Unlock()
			return domainErrors.NewError(domainErrors.CodeValidation,
				fmt.Sprintf("flow %s has no registered resource locator", id), domainErrors.ErrFlowNotRegistered)
		}
		targets = append(targets, target{flowID: id, locator: locator})
	}
	m.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, tgt := range targets {
		g.Go(func() error {
			def, err := m.loader.Load(gctx, tgt.flowID, tgt.locator)
			if err != nil {
				return err
			}
			m.mu.Lock()
			m.loadedFlows[tgt.flowID] = def
			m.mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

// Reset clears all navigation, session, and loaded-flow state. The local
// cache store is unaffected.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initialized = false
	m.currentFlowID = ""
	m.currentScreenID = ""
	m.stack = nil
	m.sessionData = flow.SessionData{}
	m.loadedFlows = map[string]*flow.Definition{}
	m.flowConfigs = map[string]string{}
}

// CurrentFlowID returns the active flow, or empty before initialization.
func (m *Manager) CurrentFlowID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentFlowID
}

// CurrentScreenID returns the active screen, or empty before initialization.
func (m *Manager) CurrentScreenID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentScreenID
}

// StackDepth returns the navigation stack depth.
func (m *Manager) StackDepth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stack)
}

// SessionValue returns one session entry.
func (m *Manager) SessionValue(key string) (flow.Value, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.sessionData[key]
	return v, ok
}

// SessionData returns a copy of the session data.
func (m *Manager) SessionData() flow.SessionData {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionData.Clone()
}

// ClearSessionData drops all session entries without touching navigation.
func (m *Manager) ClearSessionData() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionData = flow.SessionData{}
}

// LoadedFlow returns a loaded flow definition, if present.
func (m *Manager) LoadedFlow(flowID string) (*flow.Definition, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	def, ok := m.loadedFlows[flowID]
	return def, ok
}

// pushLocked appends a stack entry and merges data. Callers hold m.mu.
func (m *Manager) pushLocked(flowID, screenID string, data flow.SessionData) {
	m.currentScreenID = screenID
	m.stack = append(m.stack, flow.NavigationEntry{
		FlowID:    flowID,
		ScreenID:  screenID,
		Timestamp: time.Now(),
	})
	if data != nil {
		m.sessionData.Merge(data)
	}
}
