package ports

import (
	"context"
	"encoding/json"
	"time"
)

// ScreenPayload is the remote representation of a screen definition.
type ScreenPayload struct {
	ScreenID  string          `json:"screen_id"`
	Name      string          `json:"name"`
	Payload   json.RawMessage `json:"payload"`
	Version   int64           `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Subscription delivers pushed screen updates from the remote. The channel is
// closed when Cancel is called or the transport ends the stream.
type Subscription struct {
	Updates <-chan ScreenPayload
	Cancel  context.CancelFunc
}

// RemoteDataSourcePort is the abstract backend contract consumed by the sync
// orchestrator. Concrete transports (REST, Supabase) live outside this core.
//
// Failure modes are the domain sentinels: ErrRecordNotFound,
// ErrPermissionDenied, ErrNetwork, ErrRemoteConflict, and (from
// offline-aware adapters) ErrQueuedOffline, which the orchestrator treats
// exactly like a failure for retry purposes.
type RemoteDataSourcePort interface {
	// FetchScreen retrieves the remote definition of a screen.
	FetchScreen(ctx context.Context, screenID string) (*ScreenPayload, error)

	// UpdateScreen pushes a partial update and returns the resulting remote
	// payload.
	UpdateScreen(ctx context.Context, screenID string, partial json.RawMessage) (*ScreenPayload, error)

	// DeleteScreen removes the screen remotely. A confirmed deletion lets the
	// local store purge the soft-deleted record.
	DeleteScreen(ctx context.Context, screenID string) error

	// SubscribeToScreen opens a push stream of remote updates for a screen.
	SubscribeToScreen(ctx context.Context, screenID string) (*Subscription, error)
}
