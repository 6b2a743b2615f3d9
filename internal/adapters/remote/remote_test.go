package remote

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ikolvi/quicui-core/internal/application/ports"
	domainErrors "github.com/ikolvi/quicui-core/internal/domain/errors"
)

func TestInMemoryRemoteUpdateAndFetch(t *testing.T) {
	r := NewInMemoryRemote()
	ctx := context.Background()

	p, err := r.UpdateScreen(ctx, "welcome", json.RawMessage(`{"title":"Hi"}`))
	if err != nil {
		t.Fatalf("UpdateScreen() error = %v", err)
	}
	if p.Version != 1 {
		t.Errorf("Version = %d, want 1", p.Version)
	}

	p, err = r.UpdateScreen(ctx, "welcome", json.RawMessage(`{"title":"Hello"}`))
	if err != nil {
		t.Fatalf("UpdateScreen() error = %v", err)
	}
	if p.Version != 2 {
		t.Errorf("Version = %d, want 2", p.Version)
	}

	fetched, err := r.FetchScreen(ctx, "welcome")
	if err != nil {
		t.Fatalf("FetchScreen() error = %v", err)
	}
	if string(fetched.Payload) != `{"title":"Hello"}` {
		t.Errorf("Payload = %s", fetched.Payload)
	}
}

func TestInMemoryRemoteFetchMissing(t *testing.T) {
	r := NewInMemoryRemote()
	_, err := r.FetchScreen(context.Background(), "ghost")
	if !errors.Is(err, domainErrors.ErrRecordNotFound) {
		t.Fatalf("FetchScreen() error = %v, want ErrRecordNotFound", err)
	}
}

func TestInMemoryRemoteDelete(t *testing.T) {
	r := NewInMemoryRemote()
	ctx := context.Background()

	if _, err := r.UpdateScreen(ctx, "welcome", json.RawMessage(`{}`)); err != nil {
		t.Fatalf("UpdateScreen() error = %v", err)
	}
	if err := r.DeleteScreen(ctx, "welcome"); err != nil {
		t.Fatalf("DeleteScreen() error = %v", err)
	}
	if err := r.DeleteScreen(ctx, "welcome"); !errors.Is(err, domainErrors.ErrRecordNotFound) {
		t.Errorf("second DeleteScreen() error = %v, want ErrRecordNotFound", err)
	}
}

func TestInMemoryRemoteSubscription(t *testing.T) {
	r := NewInMemoryRemote()
	ctx := context.Background()

	sub, err := r.SubscribeToScreen(ctx, "welcome")
	if err != nil {
		t.Fatalf("SubscribeToScreen() error = %v", err)
	}

	if _, err := r.UpdateScreen(ctx, "welcome", json.RawMessage(`{"v":1}`)); err != nil {
		t.Fatalf("UpdateScreen() error = %v", err)
	}

	select {
	case p := <-sub.Updates:
		if p.ScreenID != "welcome" || p.Version != 1 {
			t.Errorf("pushed payload = %+v", p)
		}
	case <-time.After(time.Second):
		t.Fatal("no update pushed to subscriber")
	}

	sub.Cancel()

	// Channel should eventually close after cancel.
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-sub.Updates:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("subscription channel not closed after cancel")
		}
	}
}

func TestInMemoryRemoteFailure(t *testing.T) {
	r := NewInMemoryRemote()
	r.SetFailure(domainErrors.ErrNetwork)

	if _, err := r.FetchScreen(context.Background(), "welcome"); !errors.Is(err, domainErrors.ErrNetwork) {
		t.Errorf("FetchScreen() error = %v, want ErrNetwork", err)
	}

	r.SetFailure(nil)
	if _, err := r.UpdateScreen(context.Background(), "welcome", json.RawMessage(`{}`)); err != nil {
		t.Errorf("UpdateScreen() after clearing failure error = %v", err)
	}
}

func TestOfflineQueueBuffersNetworkFailures(t *testing.T) {
	inner := NewInMemoryRemote()
	q := NewOfflineQueue(inner, nil)
	ctx := context.Background()

	inner.SetFailure(domainErrors.ErrNetwork)

	_, err := q.UpdateScreen(ctx, "welcome", json.RawMessage(`{"title":"Hi"}`))
	if !errors.Is(err, domainErrors.ErrQueuedOffline) {
		t.Fatalf("UpdateScreen() error = %v, want ErrQueuedOffline", err)
	}
	if err := q.DeleteScreen(ctx, "old-screen"); !errors.Is(err, domainErrors.ErrQueuedOffline) {
		t.Fatalf("DeleteScreen() error = %v, want ErrQueuedOffline", err)
	}
	if q.QueueDepth() != 2 {
		t.Errorf("QueueDepth() = %d, want 2", q.QueueDepth())
	}

	// A queued failure is retryable from the orchestrator's point of view.
	if !domainErrors.IsRetryable(err) {
		t.Error("queued-offline errors must be retryable")
	}
}

func TestOfflineQueuePassesThroughNonNetworkErrors(t *testing.T) {
	inner := NewInMemoryRemote()
	q := NewOfflineQueue(inner, nil)

	err := q.DeleteScreen(context.Background(), "ghost")
	if !errors.Is(err, domainErrors.ErrRecordNotFound) {
		t.Fatalf("DeleteScreen() error = %v, want ErrRecordNotFound", err)
	}
	if q.QueueDepth() != 0 {
		t.Errorf("QueueDepth() = %d, want 0", q.QueueDepth())
	}
}

func TestOfflineQueueDrain(t *testing.T) {
	inner := NewInMemoryRemote()
	q := NewOfflineQueue(inner, nil)
	ctx := context.Background()

	inner.Seed(ports.ScreenPayload{ScreenID: "old-screen", Version: 1})
	inner.SetFailure(domainErrors.ErrNetwork)

	if _, err := q.UpdateScreen(ctx, "welcome", json.RawMessage(`{"title":"Hi"}`)); !errors.Is(err, domainErrors.ErrQueuedOffline) {
		t.Fatalf("UpdateScreen() error = %v", err)
	}
	if err := q.DeleteScreen(ctx, "old-screen"); !errors.Is(err, domainErrors.ErrQueuedOffline) {
		t.Fatalf("DeleteScreen() error = %v", err)
	}

	// Still offline: drain delivers nothing and keeps the queue.
	delivered, err := q.Drain(ctx)
	if !errors.Is(err, domainErrors.ErrNetwork) {
		t.Fatalf("Drain() while offline error = %v, want ErrNetwork", err)
	}
	if delivered != 0 || q.QueueDepth() != 2 {
		t.Errorf("delivered = %d, depth = %d, want 0 and 2", delivered, q.QueueDepth())
	}

	// Back online: everything replays in capture order.
	inner.SetFailure(nil)
	delivered, err = q.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if delivered != 2 {
		t.Errorf("delivered = %d, want 2", delivered)
	}
	if q.QueueDepth() != 0 {
		t.Errorf("QueueDepth() = %d, want 0", q.QueueDepth())
	}

	p, err := inner.FetchScreen(ctx, "welcome")
	if err != nil {
		t.Fatalf("FetchScreen() error = %v", err)
	}
	if string(p.Payload) != `{"title":"Hi"}` {
		t.Errorf("replayed payload = %s", p.Payload)
	}

	if _, err := inner.FetchScreen(ctx, "old-screen"); !errors.Is(err, domainErrors.ErrRecordNotFound) {
		t.Errorf("old-screen should have been deleted on drain, got %v", err)
	}
}
