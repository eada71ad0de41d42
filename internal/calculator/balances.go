// Package calculator computes settlement balances from a group's expenses.
package calculator

import (
	"sort"

	"github.com/nvats/spliteasy/internal/models"
)

// MemberBalance represents the balance information for one group member.
type MemberBalance struct {
	UserID     string
	NetBalance float64 // Positive = owed money, Negative = owes money
	TotalPaid  float64 // Total amount paid across all expenses
	TotalOwed  float64 // Total of this person's shares
}

// DebtEdge represents a suggested payment from one person to another.
type DebtEdge struct {
	From   string // Person who owes
	To     string // Person who is owed
	Amount float64
}

// epsilon absorbs floating point noise when matching debts.
const epsilon = 0.01

// GroupBalances computes each member's net position across the group's
// expenses: the payer contributed the full amount, every participant owes
// their per-person share.
//
// Results are sorted by user ID so output is deterministic.
func GroupBalances(g *models.Group) []MemberBalance {
	balances := make(map[string]*MemberBalance)
	at := func(userID string) *MemberBalance {
		if b, ok := balances[userID]; ok {
			return b
		}
		b := &MemberBalance{UserID: userID}
		balances[userID] = b
		return b
	}

	// Members with no expense activity still show up with a zero balance.
	for _, m := range g.Members {
		at(m)
	}

	for i := range g.Expenses {
		exp := &g.Expenses[i]
		if exp.PaidBy == "" {
			continue
		}
		exp.RecomputeShare()

		at(exp.PaidBy).TotalPaid += exp.Amount
		for _, participant := range exp.SplitBetween {
			at(participant).TotalOwed += exp.PerPersonAmount
		}
	}

	result := make([]MemberBalance, 0, len(balances))
	for _, b := range balances {
		b.NetBalance = b.TotalPaid - b.TotalOwed
		result = append(result, *b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result
}

// SettleUp suggests a minimal-ish set of payments clearing all debts, using
// greedy matching of debtors against creditors.
func SettleUp(balances []MemberBalance) []DebtEdge {
	var creditors, debtors []MemberBalance
	for _, b := range balances {
		switch {
		case b.NetBalance > epsilon:
			creditors = append(creditors, b)
		case b.NetBalance < -epsilon:
			debtors = append(debtors, b)
		}
	}

	owed := make(map[string]float64, len(creditors))
	owes := make(map[string]float64, len(debtors))
	for _, c := range creditors {
		owed[c.UserID] = c.NetBalance
	}
	for _, d := range debtors {
		owes[d.UserID] = -d.NetBalance
	}

	var edges []DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		debtor := debtors[i].UserID
		creditor := creditors[j].UserID

		amount := owes[debtor]
		if owed[creditor] < amount {
			amount = owed[creditor]
		}
		if amount > epsilon {
			edges = append(edges, DebtEdge{From: debtor, To: creditor, Amount: amount})
		}

		owes[debtor] -= amount
		owed[creditor] -= amount
		if owes[debtor] < epsilon {
			i++
		}
		if owed[creditor] < epsilon {
			j++
		}
	}
	return edges
}
