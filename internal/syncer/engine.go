// Package syncer reconciles the local cache with the remote store.
//
// Engine is the only component allowed to write to the remote store or to
// overwrite cached groups from remote state. It owns the "no concurrent
// sync" invariant: one full push at a time, competing calls fail fast.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nvats/spliteasy/internal/metrics"
	"github.com/nvats/spliteasy/internal/models"
	"github.com/nvats/spliteasy/internal/remote"
	"github.com/nvats/spliteasy/internal/storage"
)

// Ensure the concrete adapter satisfies the engine's contract.
var _ RemoteStore = (*remote.Store)(nil)

var (
	// ErrSyncInProgress is returned to a PushAll caller that overlapped a
	// running sync. The sync is not queued; the caller should tell the user
	// and try later.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrMissingID is returned before any remote or queue side effect when
	// a required identifier is empty.
	ErrMissingID = errors.New("missing required id")

	// ErrOffline is returned by operations that need the remote store right
	// now and cannot be deferred to the offline queue.
	ErrOffline = errors.New("remote store unreachable")
)

// Severity classifies a UI notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Notifier is the UI collaborator hook. The engine never renders anything
// itself; it reports state changes and the collaborator decides how to show
// them.
type Notifier interface {
	Notify(message string, severity Severity)
	RefreshCurrentGroupView()
}

// RemoteStore is the schema-aware remote adapter the engine pushes to and
// pulls from (implemented by remote.Store).
type RemoteStore interface {
	ResolveSchema(ctx context.Context)
	UpsertUser(ctx context.Context, u *models.User) error
	UpsertGroup(ctx context.Context, g *models.Group) error
	UpsertExpense(ctx context.Context, e *models.Expense, groupID string) error
	FetchGroup(ctx context.Context, groupID string) (*models.Group, error)
	DeleteExpense(ctx context.Context, expenseID string) error
	DeleteGroup(ctx context.Context, groupID string) error
	AddMember(ctx context.Context, groupID, userID string) (bool, error)
}

// Options configures an Engine. Zero values get sensible defaults.
type Options struct {
	// Remote is the remote store adapter; nil means no remote configured
	// (every push becomes a documented no-op).
	Remote RemoteStore

	// Online is the external connectivity signal, read before any remote
	// call. nil means always online.
	Online func() bool

	// Notifier receives UI-facing state change messages. nil disables them.
	Notifier Notifier

	// Metrics receives instrumentation. nil disables it.
	Metrics *metrics.Sync

	// Logger defaults to slog.Default.
	Logger *slog.Logger

	// PaceDelay is the cooperative pause between group pushes, bounding
	// remote load. Defaults to 200ms.
	PaceDelay time.Duration
}

// Engine orchestrates full-state sync, pulls, and the offline delete queue.
type Engine struct {
	cache    storage.Cache
	queue    storage.DeleteQueue
	remote   RemoteStore
	online   func() bool
	notifier Notifier
	metrics  *metrics.Sync
	logger   *slog.Logger
	pace     time.Duration

	syncing atomic.Bool
}

// NewEngine creates a sync engine over the given local state.
func NewEngine(cache storage.Cache, queue storage.DeleteQueue, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	online := opts.Online
	if online == nil {
		online = func() bool { return true }
	}
	pace := opts.PaceDelay
	if pace == 0 {
		pace = 200 * time.Millisecond
	}
	return &Engine{
		cache:    cache,
		queue:    queue,
		remote:   opts.Remote,
		online:   online,
		notifier: opts.Notifier,
		metrics:  opts.Metrics,
		logger:   logger,
		pace:     pace,
	}
}

// Syncing reports whether a full push is currently running.
func (e *Engine) Syncing() bool { return e.syncing.Load() }

// PushAll pushes the current user, then every cached group and its expenses,
// strictly sequentially with a pacing delay between groups. Offline, no
// remote configured, or no signed-in user are documented no-ops, not errors.
// A second caller overlapping a running push gets ErrSyncInProgress.
//
// A remote failure aborts the remaining steps and is returned to the caller;
// partial sync is a recoverable state because the next PushAll re-upserts
// everything idempotently.
func (e *Engine) PushAll(ctx context.Context) error {
	if !e.syncing.CompareAndSwap(false, true) {
		return ErrSyncInProgress
	}
	defer e.syncing.Store(false)

	if e.remote == nil || !e.online() {
		e.logger.Debug("skipping sync", "online", e.online(), "remote_configured", e.remote != nil)
		return nil
	}
	user := e.cache.CurrentUser()
	if user == nil {
		e.logger.Debug("skipping sync, no current user")
		return nil
	}

	e.logger.Info("starting full sync", "user_id", user.ID)
	e.remote.ResolveSchema(ctx)

	if err := e.pushAll(ctx, user); err != nil {
		if e.metrics != nil {
			e.metrics.PushErrors.Inc()
		}
		e.notify("Sync failed: "+err.Error(), SeverityError)
		return err
	}

	e.cache.SetLastSyncTime(time.Now())
	if e.metrics != nil {
		e.metrics.PushTotal.Inc()
	}
	e.logger.Info("full sync complete")
	e.notify("All data synced to cloud", SeveritySuccess)
	return nil
}

func (e *Engine) pushAll(ctx context.Context, user *models.User) error {
	if err := e.remote.UpsertUser(ctx, user); err != nil {
		return fmt.Errorf("failed to push user: %w", err)
	}

	groups := e.cache.Load()
	for i := range groups {
		g := &groups[i]
		if g.CreatedBy == "" {
			g.CreatedBy = user.ID
		}
		if len(g.Members) == 0 {
			g.Members = []string{user.ID}
		}
		if err := e.remote.UpsertGroup(ctx, g); err != nil {
			return fmt.Errorf("failed to push group %s: %w", g.ID, err)
		}
		for j := range g.Expenses {
			exp := &g.Expenses[j]
			if exp.CreatedBy == "" {
				exp.CreatedBy = user.ID
			}
			if err := e.remote.UpsertExpense(ctx, exp, g.ID); err != nil {
				return fmt.Errorf("failed to push expense %s: %w", exp.ID, err)
			}
		}

		if i < len(groups)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(e.pace):
			}
		}
	}
	return nil
}

// PullGroup fetches one group from the remote store and overwrites the local
// copy with it. Local-only edits to that group are lost (last-write-wins).
// Returns nil, nil when the group does not exist remotely.
func (e *Engine) PullGroup(ctx context.Context, groupID string) (*models.Group, error) {
	if groupID == "" {
		return nil, fmt.Errorf("pull group: %w", ErrMissingID)
	}
	if e.remote == nil {
		return nil, ErrOffline
	}

	group, err := e.remote.FetchGroup(ctx, groupID)
	if err != nil {
		if e.metrics != nil {
			e.metrics.PullErrors.Inc()
		}
		return nil, err
	}
	if group == nil {
		return nil, nil
	}

	groups := e.cache.Load()
	replaced := false
	for i := range groups {
		if groups[i].ID == groupID {
			groups[i] = *group
			replaced = true
			break
		}
	}
	if !replaced {
		groups = append(groups, *group)
	}
	e.cache.Save(groups)
	if e.metrics != nil {
		e.metrics.PullTotal.Inc()
	}
	return group, nil
}

// FetchGroup reads one group from the remote store without touching the
// cache. Callers that only want part of the result (the realtime listener
// merging expenses) use this and write the cache themselves.
func (e *Engine) FetchGroup(ctx context.Context, groupID string) (*models.Group, error) {
	if e.remote == nil {
		return nil, ErrOffline
	}
	return e.remote.FetchGroup(ctx, groupID)
}

// DeleteExpense deletes an expense remotely, or queues the delete when
// offline. Optimistic local removal is the caller's responsibility.
func (e *Engine) DeleteExpense(ctx context.Context, expenseID string) error {
	return e.deleteEntity(ctx, models.EntityExpense, expenseID)
}

// DeleteGroup deletes a group (and, remotely, its expenses), or queues the
// delete when offline.
func (e *Engine) DeleteGroup(ctx context.Context, groupID string) error {
	return e.deleteEntity(ctx, models.EntityGroup, groupID)
}

func (e *Engine) deleteEntity(ctx context.Context, entityType models.EntityType, id string) error {
	if id == "" {
		return fmt.Errorf("delete %s: %w", entityType, ErrMissingID)
	}

	if e.remote == nil || !e.online() {
		e.logger.Info("offline, queueing delete for later replay",
			"entity_type", entityType, "entity_id", id)
		e.queue.Enqueue(entityType, id)
		if e.metrics != nil {
			e.metrics.QueuedDeletes.Inc()
			e.metrics.PendingDeletes.Set(float64(len(e.queue.Drain())))
		}
		return nil
	}

	var err error
	switch entityType {
	case models.EntityGroup:
		err = e.remote.DeleteGroup(ctx, id)
	default:
		err = e.remote.DeleteExpense(ctx, id)
	}
	if err != nil {
		return err
	}

	// Defensive cleanup even if this id was never queued.
	e.queue.Dequeue(entityType, id)
	if e.metrics != nil {
		e.metrics.PendingDeletes.Set(float64(len(e.queue.Drain())))
	}
	return nil
}

// AddMember joins userID to groupID on the remote store. Idempotent: joining
// a group the user already belongs to succeeds.
func (e *Engine) AddMember(ctx context.Context, groupID, userID string) (bool, error) {
	if groupID == "" || userID == "" {
		return false, fmt.Errorf("add member: %w", ErrMissingID)
	}
	if e.remote == nil || !e.online() {
		return false, ErrOffline
	}
	return e.remote.AddMember(ctx, groupID, userID)
}

// ReplayPendingDeletes replays every queued delete against the remote store,
// removing entries as they succeed. Failed entries stay queued for the next
// reconnect; their errors are joined into the return value.
func (e *Engine) ReplayPendingDeletes(ctx context.Context) error {
	if e.remote == nil || !e.online() {
		return nil
	}

	pending := e.queue.Drain()
	if len(pending) == 0 {
		return nil
	}
	e.logger.Info("replaying pending deletes", "count", len(pending))

	var errs []error
	for _, pd := range pending {
		var err error
		switch pd.EntityType {
		case models.EntityGroup:
			err = e.remote.DeleteGroup(ctx, pd.EntityID)
		default:
			err = e.remote.DeleteExpense(ctx, pd.EntityID)
		}
		if err != nil {
			e.logger.Warn("pending delete replay failed, keeping queued",
				"entity_type", pd.EntityType, "entity_id", pd.EntityID, "error", err)
			errs = append(errs, err)
			continue
		}
		e.queue.Dequeue(pd.EntityType, pd.EntityID)
	}
	if e.metrics != nil {
		e.metrics.PendingDeletes.Set(float64(len(e.queue.Drain())))
	}
	return errors.Join(errs...)
}

func (e *Engine) notify(message string, severity Severity) {
	if e.notifier != nil {
		e.notifier.Notify(message, severity)
	}
}
