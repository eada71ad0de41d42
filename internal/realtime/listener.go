package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/nvats/spliteasy/internal/metrics"
	"github.com/nvats/spliteasy/internal/models"
	"github.com/nvats/spliteasy/internal/schema"
	"github.com/nvats/spliteasy/internal/storage"
	"github.com/nvats/spliteasy/internal/syncer"
)

// GroupPuller is the slice of the sync engine the listener needs: a pull
// that overwrites the cache, and a fetch that does not (implemented by
// syncer.Engine).
type GroupPuller interface {
	PullGroup(ctx context.Context, groupID string) (*models.Group, error)
	FetchGroup(ctx context.Context, groupID string) (*models.Group, error)
}

// ViewState tells the listener what the UI collaborator currently shows, so
// it can decide between re-pulling the open group and refreshing the list.
type ViewState interface {
	// CurrentGroupID returns the id of the group view that is open, or ""
	// when none is.
	CurrentGroupID() string

	// GroupListActive reports whether a "list all groups" view is showing.
	GroupListActive() bool
}

// Options configures a Listener.
type Options struct {
	// QueueSize bounds the apply queue; bursts beyond it drop the oldest
	// queued event. Defaults to 32.
	QueueSize int

	// Metrics receives instrumentation. nil disables it.
	Metrics *metrics.Sync

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Listener owns the single realtime subscription for the process and applies
// relevant change events to the local cache and the open view.
type Listener struct {
	stream   Stream
	puller   GroupPuller
	cache    storage.Cache
	mapper   *schema.Mapper
	view     ViewState
	notifier syncer.Notifier
	metrics  *metrics.Sync
	logger   *slog.Logger
	size     int

	mu   sync.Mutex
	stop func()
	wg   sync.WaitGroup
}

// NewListener wires a listener. notifier may be nil.
func NewListener(stream Stream, puller GroupPuller, cache storage.Cache, mapper *schema.Mapper, view ViewState, notifier syncer.Notifier, opts Options) *Listener {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	size := opts.QueueSize
	if size <= 0 {
		size = 32
	}
	return &Listener{
		stream:   stream,
		puller:   puller,
		cache:    cache,
		mapper:   mapper,
		view:     view,
		notifier: notifier,
		metrics:  opts.Metrics,
		logger:   logger,
		size:     size,
	}
}

// Start opens the subscription for the groups and expenses tables. Starting
// while a subscription is already active is a no-op.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stop != nil {
		l.logger.Debug("realtime listener already active")
		return nil
	}

	events, stop, err := l.stream.Subscribe(ctx, []string{
		string(schema.TableGroups),
		string(schema.TableExpenses),
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to change stream: %w", err)
	}
	l.stop = stop

	// Bounded apply queue: the dispatcher never blocks on a slow pull, and
	// overflow drops the oldest queued event instead of growing without
	// limit.
	tasks := make(chan Event, l.size)

	l.wg.Add(2)
	go func() {
		defer l.wg.Done()
		defer close(tasks)
		for ev := range events {
			if l.metrics != nil {
				l.metrics.RealtimeEvents.WithLabelValues(ev.Table).Inc()
			}
			select {
			case tasks <- ev:
			default:
				select {
				case <-tasks:
					if l.metrics != nil {
						l.metrics.DroppedEvents.Inc()
					}
					l.logger.Warn("realtime apply queue full, dropping oldest event")
				default:
				}
				tasks <- ev
			}
		}
	}()
	go func() {
		defer l.wg.Done()
		for ev := range tasks {
			l.handle(ctx, ev)
		}
	}()

	l.logger.Info("realtime listener started")
	return nil
}

// Stop tears down the subscription and clears the stored handle so a future
// Start can succeed. Safe to call when not started.
func (l *Listener) Stop() {
	l.mu.Lock()
	stop := l.stop
	l.stop = nil
	l.mu.Unlock()
	if stop == nil {
		return
	}
	stop()
	l.wg.Wait()
	l.logger.Info("realtime listener stopped")
}

// Active reports whether a subscription is currently held.
func (l *Listener) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stop != nil
}

func (l *Listener) handle(ctx context.Context, ev Event) {
	switch ev.Table {
	case string(schema.TableGroups):
		l.handleGroupEvent(ctx, ev)
	case string(schema.TableExpenses):
		l.handleExpenseEvent(ctx, ev)
	default:
		l.logger.Debug("ignoring event for unwatched table", "table", ev.Table)
	}
}

// handleGroupEvent re-pulls the open group, or refreshes the group list,
// when the changed group involves the current user. Rows for groups the user
// does not belong to are filtered locally with no cache writes and no
// notifications.
func (l *Listener) handleGroupEvent(ctx context.Context, ev Event) {
	if ev.Type != EventInsert && ev.Type != EventUpdate {
		return
	}

	user := l.cache.CurrentUser()
	if user == nil {
		return
	}

	mp := l.mapper.Resolve(ctx)
	row := ev.New
	if len(row) == 0 {
		row = ev.Old
	}
	members := rowMembers(row, mp)
	if !slices.Contains(members, user.ID) {
		return
	}

	groupID := rowID(row, mp.Column(schema.TableGroups, "id"))
	if groupID == "" {
		return
	}

	if l.view.CurrentGroupID() == groupID {
		if _, err := l.puller.PullGroup(ctx, groupID); err != nil {
			l.logger.Warn("failed to re-pull changed group", "group_id", groupID, "error", err)
			return
		}
		l.notify("Group updated by another user", syncer.SeverityInfo)
		l.refresh()
		return
	}

	if l.view.GroupListActive() {
		l.refresh()
	}
}

// handleExpenseEvent re-pulls the owning group when the expense belongs to
// the group currently open, adopting only the pulled expense list and total
// so other already-loaded fields stay as the view knows them.
func (l *Listener) handleExpenseEvent(ctx context.Context, ev Event) {
	mp := l.mapper.Resolve(ctx)
	col := mp.Column(schema.TableExpenses, "groupId")
	groupID := rowID(ev.New, col)
	if groupID == "" {
		groupID = rowID(ev.Old, col)
	}
	if groupID == "" || l.view.CurrentGroupID() != groupID {
		return
	}

	pulled, err := l.puller.FetchGroup(ctx, groupID)
	if err != nil {
		l.logger.Warn("failed to fetch group after expense change", "group_id", groupID, "error", err)
		return
	}
	if pulled == nil {
		return
	}

	groups := l.cache.Load()
	for i := range groups {
		if groups[i].ID == groupID {
			groups[i].Expenses = pulled.Expenses
			groups[i].TotalExpenses = pulled.TotalExpenses
			break
		}
	}
	l.cache.Save(groups)

	l.notify(fmt.Sprintf("Expense %s by another user", ev.Type.ActionLabel()), syncer.SeverityInfo)
	l.refresh()
}

func (l *Listener) notify(message string, severity syncer.Severity) {
	if l.notifier != nil {
		l.notifier.Notify(message, severity)
	}
}

func (l *Listener) refresh() {
	if l.notifier != nil {
		l.notifier.RefreshCurrentGroupView()
	}
}

func rowID(row map[string]any, col string) string {
	if row == nil {
		return ""
	}
	if s, ok := row[col].(string); ok {
		return s
	}
	return ""
}

// rowMembers reads the member list from a group row image, falling back to
// the legacy participants column.
func rowMembers(row map[string]any, mp schema.Mapping) []string {
	members := anyStrings(row[mp.Column(schema.TableGroups, "members")])
	if len(members) == 0 {
		members = anyStrings(row[mp.Column(schema.TableGroups, "participants")])
	}
	return members
}

func anyStrings(v any) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
