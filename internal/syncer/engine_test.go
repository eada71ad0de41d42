package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nvats/spliteasy/internal/models"
	"github.com/nvats/spliteasy/internal/storage"
)

// fakeCache is an in-memory storage.Cache.
type fakeCache struct {
	mu       sync.Mutex
	groups   []models.Group
	user     *models.User
	lastSync time.Time
	saves    int
}

var _ storage.Cache = (*fakeCache)(nil)

func (c *fakeCache) Load() []models.Group {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Group, len(c.groups))
	copy(out, c.groups)
	return out
}

func (c *fakeCache) Save(groups []models.Group) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range groups {
		groups[i].Recompute()
	}
	c.groups = groups
	c.saves++
}

func (c *fakeCache) CurrentUser() *models.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

func (c *fakeCache) SetCurrentUser(u *models.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = u
}

func (c *fakeCache) LastSyncTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSync
}

func (c *fakeCache) SetLastSyncTime(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSync = t
}

func (c *fakeCache) Close() error { return nil }

// fakeQueue is an in-memory storage.DeleteQueue.
type fakeQueue struct {
	mu       sync.Mutex
	entries  []models.PendingDelete
	enqueues int
}

var _ storage.DeleteQueue = (*fakeQueue)(nil)

func (q *fakeQueue) Enqueue(entityType models.EntityType, id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.enqueues++
	for _, e := range q.entries {
		if e.EntityType == entityType && e.EntityID == id {
			return
		}
	}
	q.entries = append(q.entries, models.PendingDelete{
		EntityType: entityType, EntityID: id, EnqueuedAt: time.Now(),
	})
}

func (q *fakeQueue) Dequeue(entityType models.EntityType, id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.entries[:0]
	for _, e := range q.entries {
		if e.EntityType != entityType || e.EntityID != id {
			kept = append(kept, e)
		}
	}
	q.entries = kept
}

func (q *fakeQueue) Drain() []models.PendingDelete {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]models.PendingDelete, len(q.entries))
	copy(out, q.entries)
	return out
}

// fakeRemote records pushes in call order and serves one configurable group.
type fakeRemote struct {
	mu         sync.Mutex
	calls      []string
	group      *models.Group
	fetchErr   error
	upsertErr  map[string]error // keyed by "user"/"group"/"expense"
	deleteErr  error
	blockUntil chan struct{} // when set, UpsertUser blocks
}

var _ RemoteStore = (*fakeRemote)(nil)

func (r *fakeRemote) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *fakeRemote) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

func (r *fakeRemote) ResolveSchema(ctx context.Context) { r.record("resolve") }

func (r *fakeRemote) UpsertUser(ctx context.Context, u *models.User) error {
	if r.blockUntil != nil {
		<-r.blockUntil
	}
	r.record("user:" + u.ID)
	return r.upsertErr["user"]
}

func (r *fakeRemote) UpsertGroup(ctx context.Context, g *models.Group) error {
	r.record("group:" + g.ID)
	return r.upsertErr["group"]
}

func (r *fakeRemote) UpsertExpense(ctx context.Context, e *models.Expense, groupID string) error {
	r.record("expense:" + e.ID)
	return r.upsertErr["expense"]
}

func (r *fakeRemote) FetchGroup(ctx context.Context, groupID string) (*models.Group, error) {
	r.record("fetch:" + groupID)
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	if r.group == nil || r.group.ID != groupID {
		return nil, nil
	}
	g := *r.group
	return &g, nil
}

func (r *fakeRemote) DeleteExpense(ctx context.Context, expenseID string) error {
	r.record("delete-expense:" + expenseID)
	return r.deleteErr
}

func (r *fakeRemote) DeleteGroup(ctx context.Context, groupID string) error {
	r.record("delete-group:" + groupID)
	return r.deleteErr
}

func (r *fakeRemote) AddMember(ctx context.Context, groupID, userID string) (bool, error) {
	r.record("add-member:" + groupID + ":" + userID)
	return true, nil
}

func newTestEngine(cache *fakeCache, queue *fakeQueue, remote RemoteStore, online bool) *Engine {
	return NewEngine(cache, queue, Options{
		Remote:    remote,
		Online:    func() bool { return online },
		PaceDelay: time.Millisecond,
	})
}

func signedIn() *fakeCache {
	return &fakeCache{user: &models.User{ID: "alice1", Name: "Alice"}}
}

func TestPushAll(t *testing.T) {
	t.Run("pushes user then groups then expenses", func(t *testing.T) {
		cache := signedIn()
		g1 := models.NewGroup("Trip", "alice1", nil)
		g1.Expenses = []models.Expense{
			{ID: "e1", Amount: 50, SplitBetween: []string{"alice1"}},
			{ID: "e2", Amount: 30, SplitBetween: []string{"alice1"}},
		}
		g2 := models.NewGroup("Flat", "alice1", nil)
		cache.groups = []models.Group{*g1, *g2}
		remote := &fakeRemote{}
		e := newTestEngine(cache, &fakeQueue{}, remote, true)

		if err := e.PushAll(context.Background()); err != nil {
			t.Fatalf("push failed: %v", err)
		}

		want := []string{"resolve", "user:alice1", "group:" + g1.ID, "expense:e1", "expense:e2", "group:" + g2.ID}
		got := remote.Calls()
		if len(got) != len(want) {
			t.Fatalf("expected calls %v, got %v", want, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("call %d: expected %s, got %s", i, want[i], got[i])
			}
		}
		if cache.LastSyncTime().IsZero() {
			t.Error("expected last sync time to be recorded")
		}
	})

	t.Run("offline is a no-op", func(t *testing.T) {
		cache := signedIn()
		remote := &fakeRemote{}
		e := newTestEngine(cache, &fakeQueue{}, remote, false)

		if err := e.PushAll(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(remote.Calls()) != 0 {
			t.Errorf("expected no remote calls, got %v", remote.Calls())
		}
		if !cache.LastSyncTime().IsZero() {
			t.Error("a skipped sync must not record a sync time")
		}
	})

	t.Run("no remote configured is a no-op", func(t *testing.T) {
		e := newTestEngine(signedIn(), &fakeQueue{}, nil, true)
		if err := e.PushAll(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("no user is a no-op", func(t *testing.T) {
		remote := &fakeRemote{}
		e := newTestEngine(&fakeCache{}, &fakeQueue{}, remote, true)
		if err := e.PushAll(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(remote.Calls()) != 0 {
			t.Errorf("expected no remote calls, got %v", remote.Calls())
		}
	})

	t.Run("aborts on mid-push failure", func(t *testing.T) {
		cache := signedIn()
		g1 := models.NewGroup("Trip", "alice1", nil)
		g2 := models.NewGroup("Flat", "alice1", nil)
		cache.groups = []models.Group{*g1, *g2}
		remote := &fakeRemote{upsertErr: map[string]error{"group": errors.New("boom")}}
		e := newTestEngine(cache, &fakeQueue{}, remote, true)

		if err := e.PushAll(context.Background()); err == nil {
			t.Fatal("expected an error")
		}
		for _, call := range remote.Calls() {
			if call == "group:"+g2.ID {
				t.Error("push should have stopped before the second group")
			}
		}
		if !cache.LastSyncTime().IsZero() {
			t.Error("a failed sync must not record a sync time")
		}
	})

	t.Run("concurrent push fails fast", func(t *testing.T) {
		cache := signedIn()
		release := make(chan struct{})
		remote := &fakeRemote{blockUntil: release}
		e := newTestEngine(cache, &fakeQueue{}, remote, true)

		started := make(chan struct{})
		done := make(chan error, 1)
		go func() {
			close(started)
			done <- e.PushAll(context.Background())
		}()
		<-started
		// Wait for the first push to take the slot.
		for !e.Syncing() {
			time.Sleep(time.Millisecond)
		}

		if err := e.PushAll(context.Background()); !errors.Is(err, ErrSyncInProgress) {
			t.Errorf("expected ErrSyncInProgress, got %v", err)
		}

		close(release)
		if err := <-done; err != nil {
			t.Fatalf("first push failed: %v", err)
		}
		if err := e.PushAll(context.Background()); err != nil {
			t.Errorf("the slot must free up after completion, got %v", err)
		}
	})
}

func TestPullGroup(t *testing.T) {
	t.Run("overwrites the local copy", func(t *testing.T) {
		cache := signedIn()
		local := models.NewGroup("Trip", "alice1", []string{"bob2"})
		local.Expenses = []models.Expense{{ID: "e1", Amount: 100, SplitBetween: []string{"alice1", "bob2"}}}
		cache.Save([]models.Group{*local})

		remoteCopy := *local
		remoteCopy.Expenses = []models.Expense{{ID: "e1", GroupID: local.ID, Amount: 150, SplitBetween: []string{"alice1", "bob2"}}}
		remoteCopy.Recompute()
		remote := &fakeRemote{group: &remoteCopy}
		e := newTestEngine(cache, &fakeQueue{}, remote, true)

		got, err := e.PullGroup(context.Background(), local.ID)
		if err != nil {
			t.Fatalf("pull failed: %v", err)
		}
		if got.TotalExpenses != 150 {
			t.Errorf("expected total 150, got %f", got.TotalExpenses)
		}
		if got.Expenses[0].PerPersonAmount != 75 {
			t.Errorf("expected per-person 75, got %f", got.Expenses[0].PerPersonAmount)
		}
		if len(got.Members) != 2 {
			t.Errorf("membership should be untouched by an amount change, got %v", got.Members)
		}

		cached := cache.Load()
		if len(cached) != 1 || cached[0].TotalExpenses != 150 {
			t.Errorf("cache not overwritten: %+v", cached)
		}
	})

	t.Run("appends a group not cached yet", func(t *testing.T) {
		cache := signedIn()
		g := models.NewGroup("New", "alice1", nil)
		remote := &fakeRemote{group: g}
		e := newTestEngine(cache, &fakeQueue{}, remote, true)

		if _, err := e.PullGroup(context.Background(), g.ID); err != nil {
			t.Fatalf("pull failed: %v", err)
		}
		if cached := cache.Load(); len(cached) != 1 || cached[0].ID != g.ID {
			t.Errorf("expected the pulled group to be cached, got %+v", cached)
		}
	})

	t.Run("missing remote group leaves cache alone", func(t *testing.T) {
		cache := signedIn()
		e := newTestEngine(cache, &fakeQueue{}, &fakeRemote{}, true)

		got, err := e.PullGroup(context.Background(), "nope")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil group, got %+v", got)
		}
		if cache.saves != 0 {
			t.Error("a missing group must not write the cache")
		}
	})

	t.Run("empty id is rejected", func(t *testing.T) {
		e := newTestEngine(signedIn(), &fakeQueue{}, &fakeRemote{}, true)
		if _, err := e.PullGroup(context.Background(), ""); !errors.Is(err, ErrMissingID) {
			t.Errorf("expected ErrMissingID, got %v", err)
		}
	})
}

func TestDeleteOffline(t *testing.T) {
	t.Run("queues exactly once", func(t *testing.T) {
		queue := &fakeQueue{}
		remote := &fakeRemote{}
		e := newTestEngine(signedIn(), queue, remote, false)

		if err := e.DeleteGroup(context.Background(), "g1"); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if err := e.DeleteGroup(context.Background(), "g1"); err != nil {
			t.Fatalf("repeat delete failed: %v", err)
		}

		if len(remote.Calls()) != 0 {
			t.Errorf("offline delete must not reach the remote, got %v", remote.Calls())
		}
		pending := queue.Drain()
		if len(pending) != 1 || pending[0].EntityType != models.EntityGroup || pending[0].EntityID != "g1" {
			t.Errorf("unexpected queue: %+v", pending)
		}
	})

	t.Run("online delete dequeues", func(t *testing.T) {
		queue := &fakeQueue{}
		queue.Enqueue(models.EntityExpense, "e1")
		remote := &fakeRemote{}
		e := newTestEngine(signedIn(), queue, remote, true)

		if err := e.DeleteExpense(context.Background(), "e1"); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if calls := remote.Calls(); len(calls) != 1 || calls[0] != "delete-expense:e1" {
			t.Errorf("unexpected remote calls: %v", calls)
		}
		if len(queue.Drain()) != 0 {
			t.Error("a successful remote delete must clear the queued entry")
		}
	})

	t.Run("remote failure keeps nothing queued", func(t *testing.T) {
		queue := &fakeQueue{}
		remote := &fakeRemote{deleteErr: errors.New("boom")}
		e := newTestEngine(signedIn(), queue, remote, true)

		if err := e.DeleteGroup(context.Background(), "g1"); err == nil {
			t.Fatal("expected an error")
		}
		// Online failures surface to the caller; only offline deletes queue.
		if len(queue.Drain()) != 0 {
			t.Errorf("unexpected queue: %+v", queue.Drain())
		}
	})

	t.Run("empty id fails before any side effect", func(t *testing.T) {
		queue := &fakeQueue{}
		e := newTestEngine(signedIn(), queue, &fakeRemote{}, false)
		if err := e.DeleteGroup(context.Background(), ""); !errors.Is(err, ErrMissingID) {
			t.Errorf("expected ErrMissingID, got %v", err)
		}
		if queue.enqueues != 0 {
			t.Error("validation failure must not enqueue")
		}
	})
}

func TestReplayPendingDeletes(t *testing.T) {
	t.Run("replays and dequeues", func(t *testing.T) {
		queue := &fakeQueue{}
		queue.Enqueue(models.EntityGroup, "g1")
		queue.Enqueue(models.EntityExpense, "e1")
		remote := &fakeRemote{}
		e := newTestEngine(signedIn(), queue, remote, true)

		if err := e.ReplayPendingDeletes(context.Background()); err != nil {
			t.Fatalf("replay failed: %v", err)
		}
		if len(queue.Drain()) != 0 {
			t.Errorf("expected empty queue, got %+v", queue.Drain())
		}
		if calls := remote.Calls(); len(calls) != 2 {
			t.Errorf("expected 2 remote deletes, got %v", calls)
		}
	})

	t.Run("failed entries stay queued", func(t *testing.T) {
		queue := &fakeQueue{}
		queue.Enqueue(models.EntityGroup, "g1")
		remote := &fakeRemote{deleteErr: errors.New("boom")}
		e := newTestEngine(signedIn(), queue, remote, true)

		if err := e.ReplayPendingDeletes(context.Background()); err == nil {
			t.Fatal("expected an error")
		}
		if len(queue.Drain()) != 1 {
			t.Error("failed replays must stay queued for the next reconnect")
		}
	})

	t.Run("offline replay is a no-op", func(t *testing.T) {
		queue := &fakeQueue{}
		queue.Enqueue(models.EntityGroup, "g1")
		remote := &fakeRemote{}
		e := newTestEngine(signedIn(), queue, remote, false)

		if err := e.ReplayPendingDeletes(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(remote.Calls()) != 0 {
			t.Errorf("expected no remote calls, got %v", remote.Calls())
		}
	})
}

func TestAddMemberValidation(t *testing.T) {
	remote := &fakeRemote{}
	e := newTestEngine(signedIn(), &fakeQueue{}, remote, true)

	if _, err := e.AddMember(context.Background(), "", "u1"); !errors.Is(err, ErrMissingID) {
		t.Errorf("expected ErrMissingID, got %v", err)
	}
	if _, err := e.AddMember(context.Background(), "g1", ""); !errors.Is(err, ErrMissingID) {
		t.Errorf("expected ErrMissingID, got %v", err)
	}
	if len(remote.Calls()) != 0 {
		t.Errorf("validation failures must not reach the remote, got %v", remote.Calls())
	}

	offline := newTestEngine(signedIn(), &fakeQueue{}, remote, false)
	if _, err := offline.AddMember(context.Background(), "g1", "u1"); !errors.Is(err, ErrOffline) {
		t.Errorf("expected ErrOffline, got %v", err)
	}
}
