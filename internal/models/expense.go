package models

import (
	"time"

	"github.com/google/uuid"
)

// Expense represents a single shared expense split equally between the users
// in SplitBetween.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string `json:"id"`

	// GroupID is the group this expense belongs to.
	GroupID string `json:"groupId"`

	// Name describes the expense (e.g., "Dinner", "Fuel").
	Name string `json:"name"`

	// Amount is the total expense amount. Must be >= 0.
	Amount float64 `json:"amount"`

	// PaidBy is the user ID that paid the full amount.
	PaidBy string `json:"paidBy"`

	// SplitBetween lists the user IDs sharing the expense. Must be non-empty.
	SplitBetween []string `json:"splitBetween"`

	// CreatedBy is the user ID that recorded the expense.
	CreatedBy string `json:"createdBy"`

	// Date is when the expense happened (defaults to creation time).
	Date time.Time `json:"date"`

	// PerPersonAmount is a cached aggregate: Amount / len(SplitBetween).
	// Never read as ground truth from storage; recomputed on every write.
	PerPersonAmount float64 `json:"perPersonAmount"`
}

// NewExpense creates an expense with a fresh ID and derived share.
func NewExpense(groupID, name string, amount float64, paidBy, createdBy string, splitBetween []string) *Expense {
	e := &Expense{
		ID:           uuid.New().String(),
		GroupID:      groupID,
		Name:         name,
		Amount:       amount,
		PaidBy:       paidBy,
		SplitBetween: splitBetween,
		CreatedBy:    createdBy,
		Date:         time.Now().UTC(),
	}
	e.RecomputeShare()
	return e
}

// RecomputeShare re-derives PerPersonAmount from Amount and SplitBetween.
// An empty split leaves the whole amount on one share rather than dividing
// by zero.
func (e *Expense) RecomputeShare() {
	n := len(e.SplitBetween)
	if n == 0 {
		n = 1
	}
	e.PerPersonAmount = e.Amount / float64(n)
}
