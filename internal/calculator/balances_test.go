package calculator

import (
	"math"
	"testing"

	"github.com/nvats/spliteasy/internal/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.001
}

func TestGroupBalances(t *testing.T) {
	t.Run("even split single payer", func(t *testing.T) {
		g := &models.Group{
			Members: []string{"alice", "bob", "carol"},
			Expenses: []models.Expense{
				{Amount: 300, PaidBy: "alice", SplitBetween: []string{"alice", "bob", "carol"}},
			},
		}
		balances := GroupBalances(g)
		if len(balances) != 3 {
			t.Fatalf("expected 3 balances, got %d", len(balances))
		}
		// Sorted by user ID: alice, bob, carol.
		if !almostEqual(balances[0].NetBalance, 200) {
			t.Errorf("alice net: expected 200, got %f", balances[0].NetBalance)
		}
		if !almostEqual(balances[1].NetBalance, -100) {
			t.Errorf("bob net: expected -100, got %f", balances[1].NetBalance)
		}
		if !almostEqual(balances[2].NetBalance, -100) {
			t.Errorf("carol net: expected -100, got %f", balances[2].NetBalance)
		}
	})

	t.Run("inactive member shows zero balance", func(t *testing.T) {
		g := &models.Group{
			Members: []string{"alice", "bob", "idle"},
			Expenses: []models.Expense{
				{Amount: 100, PaidBy: "alice", SplitBetween: []string{"alice", "bob"}},
			},
		}
		balances := GroupBalances(g)
		if len(balances) != 3 {
			t.Fatalf("expected 3 balances, got %d", len(balances))
		}
		if balances[2].UserID != "idle" || !almostEqual(balances[2].NetBalance, 0) {
			t.Errorf("expected idle member with zero balance, got %+v", balances[2])
		}
	})

	t.Run("stale per-person shares are recomputed", func(t *testing.T) {
		g := &models.Group{
			Members: []string{"alice", "bob"},
			Expenses: []models.Expense{
				{Amount: 100, PaidBy: "alice", SplitBetween: []string{"alice", "bob"}, PerPersonAmount: 999},
			},
		}
		balances := GroupBalances(g)
		if !almostEqual(balances[1].TotalOwed, 50) {
			t.Errorf("expected bob to owe 50, got %f", balances[1].TotalOwed)
		}
	})

	t.Run("nets cancel across expenses", func(t *testing.T) {
		g := &models.Group{
			Members: []string{"alice", "bob"},
			Expenses: []models.Expense{
				{Amount: 100, PaidBy: "alice", SplitBetween: []string{"alice", "bob"}},
				{Amount: 100, PaidBy: "bob", SplitBetween: []string{"alice", "bob"}},
			},
		}
		for _, b := range GroupBalances(g) {
			if !almostEqual(b.NetBalance, 0) {
				t.Errorf("%s: expected zero net, got %f", b.UserID, b.NetBalance)
			}
		}
	})
}

func TestSettleUp(t *testing.T) {
	t.Run("single debt", func(t *testing.T) {
		g := &models.Group{
			Members: []string{"alice", "bob"},
			Expenses: []models.Expense{
				{Amount: 100, PaidBy: "alice", SplitBetween: []string{"alice", "bob"}},
			},
		}
		edges := SettleUp(GroupBalances(g))
		if len(edges) != 1 {
			t.Fatalf("expected 1 payment, got %d", len(edges))
		}
		e := edges[0]
		if e.From != "bob" || e.To != "alice" || !almostEqual(e.Amount, 50) {
			t.Errorf("unexpected payment: %+v", e)
		}
	})

	t.Run("one creditor several debtors", func(t *testing.T) {
		g := &models.Group{
			Members: []string{"alice", "bob", "carol"},
			Expenses: []models.Expense{
				{Amount: 300, PaidBy: "alice", SplitBetween: []string{"alice", "bob", "carol"}},
			},
		}
		edges := SettleUp(GroupBalances(g))
		if len(edges) != 2 {
			t.Fatalf("expected 2 payments, got %d", len(edges))
		}
		total := edges[0].Amount + edges[1].Amount
		if !almostEqual(total, 200) {
			t.Errorf("payments should total 200, got %f", total)
		}
		for _, e := range edges {
			if e.To != "alice" {
				t.Errorf("all payments should go to alice, got %+v", e)
			}
		}
	})

	t.Run("settled group needs no payments", func(t *testing.T) {
		g := &models.Group{
			Members: []string{"alice", "bob"},
			Expenses: []models.Expense{
				{Amount: 80, PaidBy: "alice", SplitBetween: []string{"alice", "bob"}},
				{Amount: 80, PaidBy: "bob", SplitBetween: []string{"alice", "bob"}},
			},
		}
		if edges := SettleUp(GroupBalances(g)); len(edges) != 0 {
			t.Errorf("expected no payments, got %+v", edges)
		}
	})

	t.Run("payments clear every balance", func(t *testing.T) {
		g := &models.Group{
			Members: []string{"a", "b", "c", "d"},
			Expenses: []models.Expense{
				{Amount: 120, PaidBy: "a", SplitBetween: []string{"a", "b", "c", "d"}},
				{Amount: 60, PaidBy: "b", SplitBetween: []string{"b", "c"}},
				{Amount: 90, PaidBy: "c", SplitBetween: []string{"a", "d"}},
			},
		}
		balances := GroupBalances(g)
		net := map[string]float64{}
		for _, b := range balances {
			net[b.UserID] = b.NetBalance
		}
		for _, e := range SettleUp(balances) {
			net[e.From] += e.Amount
			net[e.To] -= e.Amount
		}
		for user, n := range net {
			if math.Abs(n) > epsilon {
				t.Errorf("%s left with net %f after settlement", user, n)
			}
		}
	})
}
