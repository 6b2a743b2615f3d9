package remote

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ikolvi/quicui-core/internal/application/ports"
	domainErrors "github.com/ikolvi/quicui-core/internal/domain/errors"
	"github.com/ikolvi/quicui-core/internal/infrastructure/logging"
)

// queuedOpKind identifies the remote operation held in the offline queue.
type queuedOpKind string

const (
	opUpdate queuedOpKind = "update"
	opDelete queuedOpKind = "delete"
)

// queuedOp is one write captured while the remote was unreachable.
type queuedOp struct {
	Kind     queuedOpKind
	ScreenID string
	Partial  json.RawMessage
}

// OfflineQueue decorates a RemoteDataSourcePort with offline buffering.
// Writes that fail with a network error are captured and reported as
// ErrQueuedOffline; Drain replays them once connectivity returns. Reads and
// subscriptions pass through untouched.
type OfflineQueue struct {
	inner  ports.RemoteDataSourcePort
	logger *logging.Logger

	mu    sync.Mutex
	queue []queuedOp
}

// NewOfflineQueue wraps inner with offline write buffering.
func NewOfflineQueue(inner ports.RemoteDataSourcePort, logger *logging.Logger) *OfflineQueue {
	if logger == nil {
		logger = logging.Default()
	}
	return &OfflineQueue{inner: inner, logger: logger}
}

var _ ports.RemoteDataSourcePort = (*OfflineQueue)(nil)

// FetchScreen passes through to the wrapped remote.
func (q *OfflineQueue) FetchScreen(ctx context.Context, screenID string) (*ports.ScreenPayload, error) {
	return q.inner.FetchScreen(ctx, screenID)
}

// UpdateScreen attempts the remote update. A network failure queues the write
// and returns ErrQueuedOffline so callers know the change is buffered, not
// delivered.
func (q *OfflineQueue) UpdateScreen(ctx context.Context, screenID string, partial json.RawMessage) (*ports.ScreenPayload, error) {
	p, err := q.inner.UpdateScreen(ctx, screenID, partial)
	if err == nil {
		return p, nil
	}
	if !domainErrors.Is(err, domainErrors.ErrNetwork) {
		return nil, err
	}

	depth := q.enqueue(queuedOp{
		Kind:     opUpdate,
		ScreenID: screenID,
		Partial:  append(json.RawMessage(nil), partial...),
	})
	logging.LogOfflineQueued(ctx, q.logger, string(opUpdate), screenID, depth)

	return nil, domainErrors.NewError(domainErrors.CodeOffline,
		"update queued while offline", domainErrors.ErrQueuedOffline)
}

// DeleteScreen attempts the remote delete, queueing it on network failure.
func (q *OfflineQueue) DeleteScreen(ctx context.Context, screenID string) error {
	err := q.inner.DeleteScreen(ctx, screenID)
	if err == nil {
		return nil
	}
	if !domainErrors.Is(err, domainErrors.ErrNetwork) {
		return err
	}

	depth := q.enqueue(queuedOp{Kind: opDelete, ScreenID: screenID})
	logging.LogOfflineQueued(ctx, q.logger, string(opDelete), screenID, depth)

	return domainErrors.NewError(domainErrors.CodeOffline,
		"delete queued while offline", domainErrors.ErrQueuedOffline)
}

// SubscribeToScreen passes through to the wrapped remote.
func (q *OfflineQueue) SubscribeToScreen(ctx context.Context, screenID string) (*ports.Subscription, error) {
	return q.inner.SubscribeToScreen(ctx, screenID)
}

// QueueDepth reports the number of buffered writes.
func (q *OfflineQueue) QueueDepth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

// Drain replays buffered writes in capture order. It stops at the first
// network failure, keeping that operation and everything after it queued.
// Non-network failures drop the operation and continue; the record's own
// sync status still tracks the outcome. Returns the number of operations
// delivered.
func (q *OfflineQueue) Drain(ctx context.Context) (int, error) {
	q.mu.Lock()
	pending := q.queue
	q.queue = nil
	q.mu.Unlock()

	delivered := 0
	for i, op := range pending {
		var err error
		switch op.Kind {
		case opUpdate:
			_, err = q.inner.UpdateScreen(ctx, op.ScreenID, op.Partial)
		case opDelete:
			err = q.inner.DeleteScreen(ctx, op.ScreenID)
		}

		if err == nil {
			delivered++
			continue
		}
		if domainErrors.Is(err, domainErrors.ErrNetwork) {
			// Still offline. Put this and the remaining ops back, keeping
			// anything queued while we were draining behind them.
			q.mu.Lock()
			q.queue = append(append([]queuedOp(nil), pending[i:]...), q.queue...)
			q.mu.Unlock()
			return delivered, err
		}

		q.logger.WarnContext(ctx, "dropping queued operation",
			"operation", string(op.Kind),
			"screen_id", op.ScreenID,
			"error", err.Error(),
		)
	}

	return delivered, nil
}

func (q *OfflineQueue) enqueue(op queuedOp) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queue = append(q.queue, op)
	return len(q.queue)
}
