package syncer

import (
	"context"

	"github.com/ikolvi/quicui-core/internal/application/ports"
	domainErrors "github.com/ikolvi/quicui-core/internal/domain/errors"
	"github.com/ikolvi/quicui-core/internal/domain/screen"
)

// WatchScreen consumes the remote push stream for one screen and folds each
// update into the local cache: clean records adopt the remote payload, dirty
// records are flagged with a conflict instead of being clobbered. The
// returned cancel stops the watch. Consumption ends when the stream closes
// or ctx is done.
func (o *Orchestrator) WatchScreen(ctx context.Context, screenID string) (context.CancelFunc, error) {
	o.mu.Lock()
	remote := o.remote
	o.mu.Unlock()
	if remote == nil {
		return nil, domainErrors.NewError(domainErrors.CodeValidation,
			"no remote data source registered", domainErrors.ErrNotInitialized)
	}

	sub, err := remote.SubscribeToScreen(ctx, screenID)
	if err != nil {
		return nil, err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				sub.Cancel()
				return
			case p, ok := <-sub.Updates:
				if !ok {
					return
				}
				if err := o.applyRemoteUpdate(ctx, p); err != nil {
					o.logger.ErrorContext(ctx, "failed to apply remote update",
						"screen_id", p.ScreenID,
						"error", err.Error(),
					)
				}
			}
		}
	}()

	return sub.Cancel, nil
}

// applyRemoteUpdate folds one pushed payload into the local store.
func (o *Orchestrator) applyRemoteUpdate(ctx context.Context, p ports.ScreenPayload) error {
	rec, err := o.store.GetByScreenID(ctx, p.ScreenID)
	if err != nil {
		if !domainErrors.Is(err, domainErrors.ErrRecordNotFound) {
			return err
		}
		// First sight of this screen: adopt the remote version as synced.
		rec = screen.NewRecord(p.ScreenID, p.Name, string(p.Payload))
		rec.MarkSynced()
		rec.Version = p.Version
		_, err = o.store.Put(ctx, rec)
		return err
	}

	if rec.NeedsSync() || rec.IsDeleted {
		// Local changes in flight diverge from the pushed payload: hold the
		// remote side for explicit resolution.
		return o.store.SetConflict(ctx, rec.LocalID, string(p.Payload))
	}

	rec.JSONPayload = string(p.Payload)
	if p.Name != "" {
		rec.Name = p.Name
	}
	rec.MarkSynced()
	rec.Version = p.Version
	_, err = o.store.Put(ctx, rec)
	return err
}
