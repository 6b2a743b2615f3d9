package navigation

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/ikolvi/quicui-core/internal/adapters/loader"
	domainErrors "github.com/ikolvi/quicui-core/internal/domain/errors"
	"github.com/ikolvi/quicui-core/internal/domain/flow"
)

var testFlows = map[string]string{
	"flows/onboarding.json": `{"screens":{"welcome":{"type":"column"},"signup":{"type":"form"}}}`,
	"flows/settings.json":   `{"screens":{"profile":{"type":"form"},"about":{"type":"text"}}}`,
	"flows/empty.json":      `{"screens":{}}`,
}

func newTestManager(t *testing.T) (*Manager, *int32) {
	t.Helper()
	var fetches int32
	fetcher := loader.FetcherFunc(func(ctx context.Context, locator string) ([]byte, error) {
		atomic.AddInt32(&fetches, 1)
		body, ok := testFlows[locator]
		if !ok {
			return nil, domainErrors.ErrNetwork
		}
		return []byte(body), nil
	})
	return NewManager(loader.New(fetcher, nil), nil, nil), &fetches
}

func initOnboarding(t *testing.T, m *Manager) {
	t.Helper()
	if err := m.InitializeApp(context.Background(), "onboarding", "flows/onboarding.json", nil); err != nil {
		t.Fatalf("InitializeApp() error = %v", err)
	}
}

func TestInitializeAppEntersFirstDeclaredScreen(t *testing.T) {
	m, _ := newTestManager(t)
	initOnboarding(t, m)

	if got := m.CurrentFlowID(); got != "onboarding" {
		t.Errorf("CurrentFlowID() = %s", got)
	}
	if got := m.CurrentScreenID(); got != "welcome" {
		t.Errorf("CurrentScreenID() = %s, want welcome (first declared)", got)
	}
	if depth := m.StackDepth(); depth != 1 {
		t.Errorf("StackDepth() = %d, want 1", depth)
	}
	if m.CanGoBack() {
		t.Error("CanGoBack() = true at depth 1")
	}
}

func TestInitializeAppEmptyFlow(t *testing.T) {
	m, _ := newTestManager(t)
	err := m.InitializeApp(context.Background(), "empty", "flows/empty.json", nil)
	if !errors.Is(err, domainErrors.ErrFlowHasNoScreens) {
		t.Fatalf("InitializeApp() error = %v, want ErrFlowHasNoScreens", err)
	}
	if m.CurrentFlowID() != "" || m.CurrentScreenID() != "" {
		t.Error("failed initialization must leave both current IDs empty")
	}
}

func TestOnboardingScenario(t *testing.T) {
	m, _ := newTestManager(t)
	initOnboarding(t, m)

	err := m.NavigateToScreen(context.Background(), "signup",
		flow.SessionData{"ref": flow.StringValue("email")})
	if err != nil {
		t.Fatalf("NavigateToScreen() error = %v", err)
	}

	if got := m.CurrentScreenID(); got != "signup" {
		t.Errorf("CurrentScreenID() = %s, want signup", got)
	}
	if v, ok := m.SessionValue("ref"); !ok || v.String() != "email" {
		t.Errorf("SessionValue(ref) = %v, %v", v, ok)
	}
	if depth := m.StackDepth(); depth != 2 {
		t.Errorf("StackDepth() = %d, want 2", depth)
	}

	m.GoBack(1, true)

	if got := m.CurrentScreenID(); got != "welcome" {
		t.Errorf("after GoBack CurrentScreenID() = %s, want welcome", got)
	}
	if depth := m.StackDepth(); depth != 1 {
		t.Errorf("after GoBack StackDepth() = %d, want 1", depth)
	}
	if m.CanGoBack() {
		t.Error("CanGoBack() = true at depth 1")
	}
	if _, ok := m.SessionValue("ref"); ok {
		t.Error("session data must be cleared by GoBack(clearData=true)")
	}
}

func TestNavigateToUnknownScreen(t *testing.T) {
	m, _ := newTestManager(t)
	initOnboarding(t, m)

	err := m.NavigateToScreen(context.Background(), "checkout", nil)
	if !errors.Is(err, domainErrors.ErrScreenNotFound) {
		t.Fatalf("NavigateToScreen() error = %v, want ErrScreenNotFound", err)
	}
	if m.CurrentScreenID() != "welcome" || m.StackDepth() != 1 {
		t.Error("failed navigation must not mutate state")
	}
}

func TestNavigateBeforeInitialize(t *testing.T) {
	m, _ := newTestManager(t)
	err := m.NavigateToScreen(context.Background(), "welcome", nil)
	if !errors.Is(err, domainErrors.ErrNotInitialized) {
		t.Fatalf("NavigateToScreen() error = %v, want ErrNotInitialized", err)
	}
}

func TestNavigateToFlowValidatesBeforeSwitching(t *testing.T) {
	m, _ := newTestManager(t)
	initOnboarding(t, m)
	m.RegisterFlowConfigs(map[string]string{"settings": "flows/settings.json"})

	// Unknown target screen: nothing changes, not even currentFlowId.
	err := m.NavigateToFlow(context.Background(), "settings", "nonexistent", nil)
	if !errors.Is(err, domainErrors.ErrScreenNotFound) {
		t.Fatalf("NavigateToFlow() error = %v, want ErrScreenNotFound", err)
	}
	if m.CurrentFlowID() != "onboarding" || m.CurrentScreenID() != "welcome" {
		t.Errorf("failed cross-flow navigation mutated state: %s/%s",
			m.CurrentFlowID(), m.CurrentScreenID())
	}
	if m.StackDepth() != 1 {
		t.Errorf("StackDepth() = %d, want 1", m.StackDepth())
	}

	if err := m.NavigateToFlow(context.Background(), "settings", "profile", nil); err != nil {
		t.Fatalf("NavigateToFlow() error = %v", err)
	}
	if m.CurrentFlowID() != "settings" || m.CurrentScreenID() != "profile" {
		t.Errorf("current = %s/%s, want settings/profile", m.CurrentFlowID(), m.CurrentScreenID())
	}
	if m.StackDepth() != 2 {
		t.Errorf("StackDepth() = %d, want 2", m.StackDepth())
	}
}

func TestNavigateToUnregisteredFlow(t *testing.T) {
	m, _ := newTestManager(t)
	initOnboarding(t, m)

	err := m.NavigateToFlow(context.Background(), "billing", "invoice", nil)
	if !errors.Is(err, domainErrors.ErrFlowNotRegistered) {
		t.Fatalf("NavigateToFlow() error = %v, want ErrFlowNotRegistered", err)
	}
}

func TestGoBackAcrossFlows(t *testing.T) {
	m, _ := newTestManager(t)
	initOnboarding(t, m)
	m.RegisterFlowConfigs(map[string]string{"settings": "flows/settings.json"})

	ctx := context.Background()
	if err := m.NavigateToScreen(ctx, "signup", nil); err != nil {
		t.Fatalf("NavigateToScreen() error = %v", err)
	}
	if err := m.NavigateToFlow(ctx, "settings", "profile", nil); err != nil {
		t.Fatalf("NavigateToFlow() error = %v", err)
	}

	// Back from settings/profile adopts onboarding/signup, the new top.
	m.GoBack(1, false)
	if m.CurrentFlowID() != "onboarding" || m.CurrentScreenID() != "signup" {
		t.Errorf("current = %s/%s, want onboarding/signup", m.CurrentFlowID(), m.CurrentScreenID())
	}
}

func TestGoBackClampsSteps(t *testing.T) {
	m, _ := newTestManager(t)
	initOnboarding(t, m)

	ctx := context.Background()
	if err := m.NavigateToScreen(ctx, "signup", nil); err != nil {
		t.Fatalf("NavigateToScreen() error = %v", err)
	}

	// More steps than available: pops down to the initial entry, never past.
	m.GoBack(10, false)
	if m.StackDepth() != 1 {
		t.Errorf("StackDepth() = %d, want 1", m.StackDepth())
	}
	if m.CurrentScreenID() != "welcome" {
		t.Errorf("CurrentScreenID() = %s, want welcome", m.CurrentScreenID())
	}

	// Already at the bottom: no-op.
	m.GoBack(1, false)
	if m.StackDepth() != 1 || m.CurrentScreenID() != "welcome" {
		t.Error("GoBack at depth 1 must be a no-op")
	}
}

func TestSessionDataMergesAcrossNavigations(t *testing.T) {
	m, _ := newTestManager(t)
	initOnboarding(t, m)

	ctx := context.Background()
	if err := m.NavigateToScreen(ctx, "signup", flow.SessionData{
		"ref":  flow.StringValue("email"),
		"step": flow.NumberValue(1),
	}); err != nil {
		t.Fatalf("NavigateToScreen() error = %v", err)
	}
	if err := m.NavigateToScreen(ctx, "welcome", flow.SessionData{
		"step": flow.NumberValue(2),
	}); err != nil {
		t.Fatalf("NavigateToScreen() error = %v", err)
	}

	data := m.SessionData()
	if v := data["ref"]; v.String() != "email" {
		t.Errorf("ref = %v, want preserved across navigations", v)
	}
	if n, _ := data["step"].Number(); n != 2 {
		t.Errorf("step = %v, want overwritten to 2", n)
	}

	m.ClearSessionData()
	if len(m.SessionData()) != 0 {
		t.Error("ClearSessionData() left entries behind")
	}
}

func TestScreenChangeCallback(t *testing.T) {
	m, _ := newTestManager(t)

	type change struct{ flowID, screenID string }
	var changes []change
	m.OnScreenChange(func(flowID, screenID string) {
		changes = append(changes, change{flowID, screenID})
	})

	initOnboarding(t, m)
	ctx := context.Background()
	if err := m.NavigateToScreen(ctx, "signup", nil); err != nil {
		t.Fatalf("NavigateToScreen() error = %v", err)
	}
	m.GoBack(1, false)

	want := []change{
		{"onboarding", "welcome"},
		{"onboarding", "signup"},
		{"onboarding", "welcome"},
	}
	if len(changes) != len(want) {
		t.Fatalf("changes = %v, want %v", changes, want)
	}
	for i := range want {
		if changes[i] != want[i] {
			t.Errorf("changes[%d] = %v, want %v", i, changes[i], want[i])
		}
	}
}

func TestLoadFlowAdoptsOnlyBeforeInitialization(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	// Pre-initialization: the first loaded flow becomes current.
	if _, err := m.LoadFlow(ctx, "onboarding", "flows/onboarding.json"); err != nil {
		t.Fatalf("LoadFlow() error = %v", err)
	}
	if m.CurrentFlowID() != "onboarding" || m.CurrentScreenID() != "welcome" {
		t.Errorf("current = %s/%s, want onboarding/welcome", m.CurrentFlowID(), m.CurrentScreenID())
	}

	// Post-initialization: loading another flow only caches it.
	if _, err := m.LoadFlow(ctx, "settings", "flows/settings.json"); err != nil {
		t.Fatalf("LoadFlow() error = %v", err)
	}
	if m.CurrentFlowID() != "onboarding" {
		t.Errorf("CurrentFlowID() = %s, want onboarding unchanged", m.CurrentFlowID())
	}
	if _, ok := m.LoadedFlow("settings"); !ok {
		t.Error("settings flow must be cached after LoadFlow")
	}
}

func TestLoadFlowUsesManagerCache(t *testing.T) {
	m, fetches := newTestManager(t)
	ctx := context.Background()

	if _, err := m.LoadFlow(ctx, "onboarding", "flows/onboarding.json"); err != nil {
		t.Fatalf("LoadFlow() error = %v", err)
	}
	if _, err := m.LoadFlow(ctx, "onboarding", "flows/onboarding.json"); err != nil {
		t.Fatalf("LoadFlow() error = %v", err)
	}
	if n := atomic.LoadInt32(fetches); n != 1 {
		t.Errorf("fetches = %d, want 1", n)
	}
}

func TestPreloadFlows(t *testing.T) {
	m, _ := newTestManager(t)
	initOnboarding(t, m)
	m.RegisterFlowConfigs(map[string]string{
		"settings": "flows/settings.json",
	})

	if err := m.PreloadFlows(context.Background(), []string{"settings"}); err != nil {
		t.Fatalf("PreloadFlows() error = %v", err)
	}
	if _, ok := m.LoadedFlow("settings"); !ok {
		t.Error("preloaded flow missing from cache")
	}

	// Unregistered flow fails the whole preload up front.
	err := m.PreloadFlows(context.Background(), []string{"settings", "billing"})
	if !errors.Is(err, domainErrors.ErrFlowNotRegistered) {
		t.Fatalf("PreloadFlows() error = %v, want ErrFlowNotRegistered", err)
	}
}

func TestPreloadFlowsPropagatesLoadFailure(t *testing.T) {
	m, _ := newTestManager(t)
	initOnboarding(t, m)
	m.RegisterFlowConfigs(map[string]string{
		"settings": "flows/settings.json",
		"broken":   "flows/missing.json",
	})

	err := m.PreloadFlows(context.Background(), []string{"settings", "broken"})
	if err == nil {
		t.Fatal("PreloadFlows() error = nil, want the failing load's error")
	}
}

func TestReset(t *testing.T) {
	m, _ := newTestManager(t)
	initOnboarding(t, m)

	if err := m.NavigateToScreen(context.Background(), "signup",
		flow.SessionData{"ref": flow.StringValue("email")}); err != nil {
		t.Fatalf("NavigateToScreen() error = %v", err)
	}

	m.Reset()

	if m.CurrentFlowID() != "" || m.CurrentScreenID() != "" {
		t.Error("Reset() must clear both current IDs")
	}
	if m.StackDepth() != 0 {
		t.Errorf("StackDepth() = %d, want 0", m.StackDepth())
	}
	if len(m.SessionData()) != 0 {
		t.Error("Reset() must clear session data")
	}
	if _, ok := m.LoadedFlow("onboarding"); ok {
		t.Error("Reset() must clear loaded flows")
	}
}
