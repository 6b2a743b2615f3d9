// Package syncer implements the sync orchestrator: the state machine that
// pushes locally modified screen records to the remote data source with
// exponential-backoff retries, pause/resume, and explicit conflict handling.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/ikolvi/quicui-core/internal/application/ports"
	domainErrors "github.com/ikolvi/quicui-core/internal/domain/errors"
	"github.com/ikolvi/quicui-core/internal/domain/screen"
	"github.com/ikolvi/quicui-core/internal/infrastructure/logging"
	"github.com/ikolvi/quicui-core/internal/infrastructure/tracing"
)

// errConflict marks a record whose pass outcome is a conflict rather than a
// failure. Conflicts never feed the retry machinery.
var errConflict = errors.New("record entered conflict")

// Config holds orchestrator tuning knobs.
type Config struct {
	MaxRetries     int           // Automatic retries after a failed pass
	InitialBackoff time.Duration // First retry delay, doubles each retry
	CompletedHold  time.Duration // How long Completed/give-up is held before Idle
}

// DefaultConfig returns the production orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     3,
		InitialBackoff: 2 * time.Second,
		CompletedHold:  2 * time.Second,
	}
}

// Orchestrator drives the sync lifecycle over the local store and the remote
// data source. At most one sync pass runs at a time.
type Orchestrator struct {
	store  ports.ScreenStorePort
	cfg    Config
	logger *logging.Logger
	tracer *tracing.Tracer

	mu            sync.Mutex
	remote        ports.RemoteDataSourcePort
	state         State
	retryCount    int
	lastSyncAt    *time.Time
	lastError     string
	gaveUp        bool
	lastCompleted *CompletedInfo
	listeners     []StateListener

	// sleep is swapped out by tests to observe backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an orchestrator over the given store. The remote data source
// may be injected later via SetRemote; sync operations before that fail with
// ErrNotInitialized.
func New(store ports.ScreenStorePort, remote ports.RemoteDataSourcePort, logger *logging.Logger, tracer *tracing.Tracer, cfg Config) *Orchestrator {
	if logger == nil {
		logger = logging.Default()
	}
	if tracer == nil {
		tracer = tracing.Default()
	}
	return &Orchestrator{
		store:  store,
		remote: remote,
		cfg:    cfg,
		logger: logger,
		tracer: tracer,
		state:  StateIdle,
		sleep:  sleepContext,
	}
}

// SetRemote installs the backend adapter. Must be called before Start unless
// a remote was passed to New.
func (o *Orchestrator) SetRemote(remote ports.RemoteDataSourcePort) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.remote = remote
}

// OnStateChange registers a listener invoked on every state transition.
func (o *Orchestrator) OnStateChange(fn StateListener) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.listeners = append(o.listeners, fn)
}

// State returns the current machine state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// LastSyncAt returns the time of the last successful sync pass, or nil.
func (o *Orchestrator) LastSyncAt() *time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastSyncAt
}

// Status assembles a point-in-time snapshot including store-derived counts.
func (o *Orchestrator) Status(ctx context.Context) (*Status, error) {
	pending, err := o.store.GetNeedingSync(ctx)
	if err != nil {
		return nil, err
	}
	conflicts, err := o.store.GetWithConflicts(ctx)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	return &Status{
		State:         o.state,
		RetryCount:    o.retryCount,
		LastSyncAt:    o.lastSyncAt,
		LastError:     o.lastError,
		GaveUp:        o.gaveUp,
		PendingCount:  len(pending),
		ConflictCount: len(conflicts),
		LastCompleted: o.lastCompleted,
	}, nil
}

// Start begins a sync cycle: one pass over every record needing sync, with
// automatic backoff retries on failure. Start while a pass is in progress is
// a deterministic no-op. Start blocks the calling goroutine until the cycle
// reaches Idle, Paused, or Conflict; callers wanting background sync run it
// in their own goroutine.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.remote == nil {
		o.mu.Unlock()
		return domainErrors.NewError(domainErrors.CodeValidation,
			"no remote data source registered", domainErrors.ErrNotInitialized)
	}
	switch o.state {
	case StateInProgress, StateCompleted, StateFailed:
		o.mu.Unlock()
		o.logger.InfoContext(ctx, "sync already running, start ignored")
		return nil
	case StatePaused:
		o.mu.Unlock()
		o.logger.InfoContext(ctx, "sync paused, start ignored")
		return nil
	}
	o.retryCount = 0
	o.gaveUp = false
	o.mu.Unlock()

	return o.runCycle(ctx, o.store.GetNeedingSync)
}

// Pause halts syncing. An in-flight pass stops before its next record; a
// remote call already issued is never rolled back.
func (o *Orchestrator) Pause() {
	o.mu.Lock()
	if o.state == StatePaused {
		o.mu.Unlock()
		return
	}
	o.state = StatePaused
	listeners := append([]StateListener(nil), o.listeners...)
	o.mu.Unlock()

	o.logger.Info("sync paused")
	for _, fn := range listeners {
		fn(StatePaused)
	}
}

// Resume restarts the whole sync pass after a pause. Resuming when not
// paused is a no-op.
func (o *Orchestrator) Resume(ctx context.Context) error {
	o.mu.Lock()
	if o.state != StatePaused {
		o.mu.Unlock()
		return nil
	}
	o.state = StateIdle
	o.retryCount = 0
	o.mu.Unlock()

	o.logger.InfoContext(ctx, "sync resumed")
	return o.runCycle(ctx, o.store.GetNeedingSync)
}

// ResolveConflict applies a resolution to a conflicted record and runs a
// nested sync pass over just that record, re-joining the normal
// success/failure path.
func (o *Orchestrator) ResolveConflict(ctx context.Context, screenID string, resolution Resolution) error {
	o.mu.Lock()
	if o.remote == nil {
		o.mu.Unlock()
		return domainErrors.NewError(domainErrors.CodeValidation,
			"no remote data source registered", domainErrors.ErrNotInitialized)
	}
	if o.state == StateInProgress {
		o.mu.Unlock()
		return domainErrors.NewError(domainErrors.CodeValidation,
			"cannot resolve conflicts while a sync pass is in progress", nil)
	}
	o.mu.Unlock()

	rec, err := o.store.GetByScreenID(ctx, screenID)
	if err != nil {
		return err
	}
	if !rec.HasConflict {
		return domainErrors.NewError(domainErrors.CodeConflict,
			fmt.Sprintf("screen %s has no conflict to resolve", screenID), domainErrors.ErrNoConflict)
	}

	switch resolution {
	case ResolutionKeepLocal:
		rec.ClearConflict()
		rec.MarkPending()
	case ResolutionAcceptRemote:
		rec.JSONPayload = rec.RemoteVersion
		rec.ClearConflict()
		rec.MarkPending()
	default:
		return domainErrors.NewError(domainErrors.CodeValidation,
			fmt.Sprintf("unknown resolution %q", resolution), nil)
	}

	if _, err := o.store.Put(ctx, rec); err != nil {
		return err
	}

	o.logger.InfoContext(ctx, "conflict resolution applied",
		"screen_id", screenID,
		"resolution", string(resolution),
	)

	o.mu.Lock()
	o.retryCount = 0
	o.gaveUp = false
	o.state = StateIdle
	o.mu.Unlock()

	localID := rec.LocalID
	return o.runCycle(ctx, func(ctx context.Context) ([]*screen.Record, error) {
		fresh, err := o.store.Get(ctx, localID)
		if err != nil {
			return nil, err
		}
		if !fresh.NeedsSync() {
			return nil, nil
		}
		return []*screen.Record{fresh}, nil
	})
}

// ClearSyncState resets the machine to Idle and forgets retry and last-sync
// bookkeeping. Administrative reset, not part of the normal lifecycle.
func (o *Orchestrator) ClearSyncState() {
	o.mu.Lock()
	o.retryCount = 0
	o.lastSyncAt = nil
	o.lastError = ""
	o.gaveUp = false
	o.lastCompleted = nil
	o.state = StateIdle
	listeners := append([]StateListener(nil), o.listeners...)
	o.mu.Unlock()

	o.logger.Info("sync state cleared")
	for _, fn := range listeners {
		fn(StateIdle)
	}
}

// recordSelector picks the records a pass operates on.
type recordSelector func(ctx context.Context) ([]*screen.Record, error)

// runCycle executes passes until one succeeds, retries are exhausted, or the
// machine is paused. Retry waits double per retry starting at InitialBackoff.
func (o *Orchestrator) runCycle(ctx context.Context, selectRecords recordSelector) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = o.cfg.InitialBackoff
	bo.RandomizationFactor = 0
	bo.Multiplier = 2
	bo.MaxInterval = o.cfg.InitialBackoff << 10

	for {
		o.setState(StateInProgress)

		res, err := o.runPass(ctx, selectRecords)

		if o.State() == StatePaused {
			// Pause landed mid-pass. Whatever was already pushed stays
			// pushed; the rest waits for Resume.
			return nil
		}

		if err == nil {
			o.finishCycle(ctx, res)
			return nil
		}

		o.mu.Lock()
		o.lastError = err.Error()
		rc := o.retryCount
		o.mu.Unlock()
		o.setState(StateFailed)
		logging.LogSyncPassFailed(ctx, o.logger, "", err, rc)

		if rc >= o.cfg.MaxRetries {
			return o.giveUp(ctx, err)
		}

		o.mu.Lock()
		o.retryCount++
		o.mu.Unlock()

		if serr := o.sleep(ctx, bo.NextBackOff()); serr != nil {
			o.setState(StateIdle)
			return serr
		}
		if o.State() == StatePaused {
			return nil
		}
	}
}

// passResult tallies one pass.
type passResult struct {
	synced    int
	conflicts int
	started   time.Time
}

// runPass pushes every selected record once, in query order.
func (o *Orchestrator) runPass(ctx context.Context, selectRecords recordSelector) (passResult, error) {
	res := passResult{started: time.Now()}

	records, err := selectRecords(ctx)
	if err != nil {
		return res, err
	}

	passID := uuid.NewString()
	ctx = logging.WithSyncPassID(ctx, passID)
	sctx, span := o.tracer.StartSyncPassSpan(ctx, passID, len(records))

	logging.LogSyncPassStart(sctx, o.logger, passID, len(records))

	var firstErr error
	for _, rec := range records {
		if o.State() == StatePaused {
			break
		}
		if rec.HasConflict {
			// Held for manual resolution; never auto-pushed.
			res.conflicts++
			continue
		}

		switch err := o.syncRecord(sctx, rec); {
		case err == nil:
			res.synced++
		case errors.Is(err, errConflict):
			res.conflicts++
		default:
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	span.SetItemsSynced(res.synced)
	span.SetConflictCount(res.conflicts)
	o.mu.Lock()
	span.SetRetryCount(o.retryCount)
	o.mu.Unlock()

	if firstErr != nil {
		span.EndWithError(firstErr)
		return res, firstErr
	}
	span.End()
	logging.LogSyncPassComplete(sctx, o.logger, passID, res.synced, time.Since(res.started))
	return res, nil
}

// syncRecord pushes one record. Returns nil on success, errConflict when the
// record entered conflict, or the transport error on failure.
func (o *Orchestrator) syncRecord(ctx context.Context, rec *screen.Record) error {
	o.mu.Lock()
	remote := o.remote
	o.mu.Unlock()

	rctx, span := o.tracer.StartRecordSpan(ctx, rec.ScreenID, rec.Version)

	if rec.IsDeleted {
		span.SetOperation("delete")
		err := remote.DeleteScreen(rctx, rec.ScreenID)
		if err != nil && !domainErrors.Is(err, domainErrors.ErrRecordNotFound) {
			o.markFailed(rctx, rec, err)
			span.EndWithError(err)
			return err
		}
		// Remote deletion confirmed (or it was already gone); the
		// soft-deleted record can be purged.
		if err := o.store.Purge(rctx, rec.LocalID); err != nil {
			span.EndWithError(err)
			return err
		}
		span.End()
		return nil
	}

	span.SetOperation("update")
	payload, err := remote.UpdateScreen(rctx, rec.ScreenID, json.RawMessage(rec.JSONPayload))
	if err != nil {
		if domainErrors.Is(err, domainErrors.ErrRemoteConflict) {
			remoteJSON := ""
			if p, ferr := remote.FetchScreen(rctx, rec.ScreenID); ferr == nil {
				remoteJSON = string(p.Payload)
			}
			if serr := o.store.SetConflict(rctx, rec.LocalID, remoteJSON); serr != nil {
				span.EndWithError(serr)
				return serr
			}
			logging.LogConflictDetected(rctx, o.logger, rec.ScreenID, rec.Version, remoteJSON)
			span.SetConflict(remoteJSON)
			span.End()
			return errConflict
		}
		o.markFailed(rctx, rec, err)
		span.EndWithError(err)
		return err
	}

	// Optimistic commit: only mark synced if the record was not modified
	// locally while the push was in flight.
	if err := o.store.MarkSyncedIf(rctx, rec.LocalID, rec.Version); err != nil {
		if domainErrors.Is(err, domainErrors.ErrVersionChanged) {
			if serr := o.store.SetConflict(rctx, rec.LocalID, string(payload.Payload)); serr != nil {
				span.EndWithError(serr)
				return serr
			}
			logging.LogConflictDetected(rctx, o.logger, rec.ScreenID, rec.Version, string(payload.Payload))
			span.SetConflict(string(payload.Payload))
			span.End()
			return errConflict
		}
		span.EndWithError(err)
		return err
	}

	logging.LogRecordSynced(rctx, o.logger, rec.ScreenID, rec.Version+1)
	span.End()
	return nil
}

// markFailed records a failed push attempt on the record. QueuedOffline
// counts exactly like any other failure for retry purposes.
func (o *Orchestrator) markFailed(ctx context.Context, rec *screen.Record, cause error) {
	if err := o.store.MarkFailed(ctx, rec.LocalID); err != nil {
		o.logger.ErrorContext(ctx, "failed to record sync failure",
			"screen_id", rec.ScreenID,
			"error", err.Error(),
		)
		return
	}
	logging.LogRecordFailed(ctx, o.logger, rec.ScreenID, cause, rec.FailedAttempts+1)
}

// finishCycle handles the Completed (or Conflict) tail of a successful pass.
func (o *Orchestrator) finishCycle(ctx context.Context, res passResult) {
	now := time.Now()
	info := &CompletedInfo{
		ItemsSynced: res.synced,
		Timestamp:   now,
		Duration:    time.Since(res.started),
	}

	o.mu.Lock()
	o.lastSyncAt = &now
	o.lastCompleted = info
	o.lastError = ""
	o.retryCount = 0
	o.mu.Unlock()

	if res.conflicts > 0 {
		o.setState(StateConflict)
		o.logger.InfoContext(ctx, "sync pass ended with conflicts pending",
			"items_synced", res.synced,
			"conflicts", res.conflicts,
		)
		return
	}

	o.setState(StateCompleted)
	// Idle is the resting state after every cycle, even when the hold is
	// cut short by cancellation. setState drops the move if Pause landed
	// during the hold.
	_ = o.sleep(ctx, o.cfg.CompletedHold)
	if o.State() == StateCompleted {
		o.setState(StateIdle)
	}
}

// giveUp ends a cycle whose retries are exhausted. Unlike the transient
// Failed state, give-up is reported explicitly to the caller and in Status.
func (o *Orchestrator) giveUp(ctx context.Context, cause error) error {
	o.mu.Lock()
	attempts := o.retryCount
	o.retryCount = 0
	o.gaveUp = true
	o.mu.Unlock()

	logging.LogSyncGiveUp(ctx, o.logger, "", attempts)

	// Idle even when the hold is cut short; a machine parked in Failed
	// would ignore every future Start.
	_ = o.sleep(ctx, o.cfg.CompletedHold)
	o.setState(StateIdle)
	return domainErrors.NewError(domainErrors.CodeNetwork,
		fmt.Sprintf("sync gave up after %d retries", attempts), cause)
}

// setState transitions the machine and notifies listeners. Pause wins: a
// transition attempted while Paused is dropped, except the explicit moves
// out of Paused handled by Resume.
func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	if o.state == StatePaused {
		o.mu.Unlock()
		return
	}
	if o.state == s {
		o.mu.Unlock()
		return
	}
	o.state = s
	listeners := append([]StateListener(nil), o.listeners...)
	o.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
