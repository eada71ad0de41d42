package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/nvats/spliteasy/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGroupsRoundtrip(t *testing.T) {
	s := newTestStore(t)

	if got := s.Load(); len(got) != 0 {
		t.Fatalf("expected empty cache, got %d groups", len(got))
	}

	g := models.NewGroup("Goa Trip", "alice1", []string{"bob2"})
	g.Expenses = []models.Expense{
		{ID: "e1", Name: "Dinner", Amount: 120, SplitBetween: []string{"alice1", "bob2"}},
	}
	s.Save([]models.Group{*g})

	got := s.Load()
	if len(got) != 1 {
		t.Fatalf("expected 1 group, got %d", len(got))
	}
	if got[0].Name != "Goa Trip" || len(got[0].Members) != 2 {
		t.Errorf("unexpected group: %+v", got[0])
	}
	// Save recomputes derived fields before persisting.
	if got[0].TotalExpenses != 120 {
		t.Errorf("expected total 120, got %f", got[0].TotalExpenses)
	}
	if got[0].Expenses[0].PerPersonAmount != 60 {
		t.Errorf("expected per-person 60, got %f", got[0].Expenses[0].PerPersonAmount)
	}
}

func TestCorruptedGroupsReadAsEmpty(t *testing.T) {
	s := newTestStore(t)
	s.setValue(keyGroups, "{not json")

	if got := s.Load(); len(got) != 0 {
		t.Errorf("expected empty cache for corrupted data, got %d groups", len(got))
	}
}

func TestCurrentUser(t *testing.T) {
	s := newTestStore(t)

	if s.CurrentUser() != nil {
		t.Fatal("expected no user initially")
	}

	u := models.NewUser("Alice")
	s.SetCurrentUser(u)
	got := s.CurrentUser()
	if got == nil || got.ID != u.ID || got.Name != "Alice" {
		t.Errorf("unexpected user: %+v", got)
	}

	s.SetCurrentUser(nil)
	if s.CurrentUser() != nil {
		t.Error("expected sign-out to clear the user")
	}
}

func TestLastSyncTime(t *testing.T) {
	s := newTestStore(t)

	if !s.LastSyncTime().IsZero() {
		t.Fatal("expected zero time initially")
	}

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.SetLastSyncTime(now)
	if got := s.LastSyncTime(); !got.Equal(now) {
		t.Errorf("expected %v, got %v", now, got)
	}
}

func TestDeleteQueue(t *testing.T) {
	t.Run("enqueue is idempotent", func(t *testing.T) {
		s := newTestStore(t)
		s.Enqueue(models.EntityGroup, "g1")
		s.Enqueue(models.EntityGroup, "g1")
		s.Enqueue(models.EntityGroup, "g1")

		if got := s.Drain(); len(got) != 1 {
			t.Errorf("expected 1 entry after duplicate enqueues, got %d", len(got))
		}
	})

	t.Run("same id under different entity types", func(t *testing.T) {
		s := newTestStore(t)
		s.Enqueue(models.EntityGroup, "x1")
		s.Enqueue(models.EntityExpense, "x1")

		if got := s.Drain(); len(got) != 2 {
			t.Errorf("expected 2 entries, got %d", len(got))
		}
	})

	t.Run("dequeue removes only the matching entry", func(t *testing.T) {
		s := newTestStore(t)
		s.Enqueue(models.EntityGroup, "g1")
		s.Enqueue(models.EntityExpense, "e1")

		s.Dequeue(models.EntityGroup, "g1")

		got := s.Drain()
		if len(got) != 1 || got[0].EntityType != models.EntityExpense || got[0].EntityID != "e1" {
			t.Errorf("unexpected queue contents: %+v", got)
		}
	})

	t.Run("drain does not consume", func(t *testing.T) {
		s := newTestStore(t)
		s.Enqueue(models.EntityExpense, "e1")

		if got := s.Drain(); len(got) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(got))
		}
		if got := s.Drain(); len(got) != 1 {
			t.Errorf("drain must not consume entries, got %d", len(got))
		}
	})

	t.Run("dequeue of unknown entry is a no-op", func(t *testing.T) {
		s := newTestStore(t)
		s.Dequeue(models.EntityGroup, "never-queued")
		if got := s.Drain(); len(got) != 0 {
			t.Errorf("expected empty queue, got %+v", got)
		}
	})
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	s, err := New(path, nil)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	s.Save([]models.Group{*models.NewGroup("Trip", "alice1", nil)})
	s.Enqueue(models.EntityGroup, "g-old")
	if err := s.Close(); err != nil {
		t.Fatalf("failed to close: %v", err)
	}

	reopened, err := New(path, nil)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer reopened.Close()

	if got := reopened.Load(); len(got) != 1 || got[0].Name != "Trip" {
		t.Errorf("groups did not survive reopen: %+v", got)
	}
	if got := reopened.Drain(); len(got) != 1 || got[0].EntityID != "g-old" {
		t.Errorf("pending deletes did not survive reopen: %+v", got)
	}
}
