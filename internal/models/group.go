package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Group represents a set of members sharing expenses. The group's expenses
// are embedded so the local cache can render a group without extra lookups.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string `json:"id"`

	// Name is the display name of the group (e.g., "Goa Trip", "Flatmates").
	Name string `json:"name"`

	// Members lists the user IDs belonging to this group, in join order.
	// It must stay non-empty and must contain CreatedBy.
	Members []string `json:"members"`

	// CreatedBy is the user ID that created the group.
	CreatedBy string `json:"createdBy"`

	// CreatedAt is when the group was created.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is refreshed on every remote write (last-write-wins).
	UpdatedAt time.Time `json:"updatedAt"`

	// Expenses holds the group's expenses, newest first.
	Expenses []Expense `json:"expenses"`

	// TotalExpenses is a cached aggregate: the sum of all expense amounts.
	// Never authoritative; recomputed via Recompute whenever expenses change.
	TotalExpenses float64 `json:"totalExpenses"`
}

// NewGroup creates a group owned by createdBy. The creator is always included
// in the member list even when omitted from members.
func NewGroup(name, createdBy string, members []string) *Group {
	now := time.Now().UTC()
	g := &Group{
		ID:        uuid.New().String(),
		Name:      name,
		Members:   slices.Clone(members),
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if !g.HasMember(createdBy) {
		g.Members = append([]string{createdBy}, g.Members...)
	}
	return g
}

// HasMember reports whether userID belongs to the group.
func (g *Group) HasMember(userID string) bool {
	return slices.Contains(g.Members, userID)
}

// Recompute re-derives TotalExpenses and every expense's PerPersonAmount.
// Upstream callers may hold stale derived fields, so this runs before every
// persist.
func (g *Group) Recompute() {
	total := 0.0
	for i := range g.Expenses {
		g.Expenses[i].RecomputeShare()
		total += g.Expenses[i].Amount
	}
	g.TotalExpenses = total
}
