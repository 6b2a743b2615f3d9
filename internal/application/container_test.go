package application

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ikolvi/quicui-core/internal/domain/screen"
	"github.com/ikolvi/quicui-core/internal/infrastructure/config"
)

func testContainerConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Storage.Path = ":memory:"
	cfg.Sync.CompletedHold = time.Millisecond
	return cfg
}

func TestNewContainer(t *testing.T) {
	c, err := NewContainer(testContainerConfig(), false)
	if err != nil {
		t.Fatalf("NewContainer() error = %v", err)
	}
	defer func() { _ = c.Close() }()

	if c.Store() == nil {
		t.Error("Store() = nil")
	}
	if !c.Store().IsOpen() {
		t.Error("store must be open after construction")
	}
	if c.FlowLoader() == nil {
		t.Error("FlowLoader() = nil")
	}
	if c.Remote() == nil {
		t.Error("Remote() = nil")
	}
	if c.OfflineQueue() == nil {
		t.Error("OfflineQueue() = nil")
	}
	if c.Navigator() == nil {
		t.Error("Navigator() = nil")
	}
	if c.Syncer() == nil {
		t.Error("Syncer() = nil")
	}
	if c.Logger() == nil {
		t.Error("Logger() = nil")
	}
	if c.Tracer() == nil {
		t.Error("Tracer() = nil")
	}
	if c.FlowWatcher() != nil {
		t.Error("FlowWatcher() must be nil when watching is disabled")
	}
}

func TestNewContainerNilConfigUsesDefaults(t *testing.T) {
	// Point the default storage path at a temp dir via HOME so the
	// defaulted config does not touch the real user directory.
	t.Setenv("HOME", t.TempDir())

	c, err := NewContainer(nil, false)
	if err != nil {
		t.Fatalf("NewContainer(nil) error = %v", err)
	}
	defer func() { _ = c.Close() }()

	if c.Config() == nil {
		t.Fatal("Config() = nil")
	}
	if got := c.Config().Sync.MaxRetries; got != config.DefaultSyncMaxRetries {
		t.Errorf("Sync.MaxRetries = %d, want %d", got, config.DefaultSyncMaxRetries)
	}
}

func TestNewContainerWithFlowWatcher(t *testing.T) {
	dir := t.TempDir()
	flowPath := filepath.Join(dir, "onboarding.json")
	if err := os.WriteFile(flowPath, []byte(`{"screens":{"welcome":{"type":"column"}}}`), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg := testContainerConfig()
	cfg.Flows.Registry = map[string]string{"onboarding": flowPath}
	cfg.Flows.Watch = true

	c, err := NewContainer(cfg, false)
	if err != nil {
		t.Fatalf("NewContainer() error = %v", err)
	}
	defer func() { _ = c.Close() }()

	if c.FlowWatcher() == nil {
		t.Fatal("FlowWatcher() = nil with watching enabled")
	}
}

func TestContainerWiresRegistryIntoNavigator(t *testing.T) {
	dir := t.TempDir()
	flowPath := filepath.Join(dir, "onboarding.json")
	if err := os.WriteFile(flowPath, []byte(`{"screens":{"welcome":{"type":"column"},"signup":{"type":"form"}}}`), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg := testContainerConfig()
	cfg.Flows.Registry = map[string]string{"onboarding": flowPath}

	c, err := NewContainer(cfg, false)
	if err != nil {
		t.Fatalf("NewContainer() error = %v", err)
	}
	defer func() { _ = c.Close() }()

	nav := c.Navigator()
	if err := nav.InitializeApp(context.Background(), "onboarding", flowPath, nil); err != nil {
		t.Fatalf("InitializeApp() error = %v", err)
	}

	// The registry entry lets cross-flow navigation resolve the locator.
	if err := nav.NavigateToFlow(context.Background(), "onboarding", "signup", nil); err != nil {
		t.Fatalf("NavigateToFlow() error = %v", err)
	}
	if got := nav.CurrentScreenID(); got != "signup" {
		t.Errorf("CurrentScreenID() = %s, want signup", got)
	}
}

func TestContainerSyncRoundTrip(t *testing.T) {
	c, err := NewContainer(testContainerConfig(), false)
	if err != nil {
		t.Fatalf("NewContainer() error = %v", err)
	}
	defer func() { _ = c.Close() }()

	ctx := context.Background()
	rec := screen.NewRecord("home", "Home", `{"type":"column"}`)
	if _, err := c.Store().Put(ctx, rec); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if err := c.Syncer().Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if got := c.SeedRemote().ScreenCount(); got != 1 {
		t.Errorf("remote screen count = %d, want 1", got)
	}
	synced, err := c.Store().GetByScreenID(ctx, "home")
	if err != nil {
		t.Fatalf("GetByScreenID() error = %v", err)
	}
	if synced.NeedsSync() {
		t.Error("record still pending after sync pass")
	}
}

func TestContainerClose(t *testing.T) {
	c, err := NewContainer(testContainerConfig(), false)
	if err != nil {
		t.Fatalf("NewContainer() error = %v", err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if c.Store().IsOpen() {
		t.Error("store still open after Close")
	}
}
