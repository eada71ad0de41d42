// Package models defines the core domain models for SplitEasy.
//
// # Models
//
//   - User: the local identity; client-generated, never arbitrated by the server
//   - Group: a set of members sharing expenses, with its expenses embedded
//   - Expense: a single shared expense, split equally between participants
//   - PendingDelete: a deletion recorded while offline, replayed on reconnect
//
// # Derived fields
//
// Group.TotalExpenses and Expense.PerPersonAmount are cached aggregates.
// They are never authoritative: callers recompute them on every write via
// Group.Recompute / Expense.RecomputeShare rather than trusting whatever a
// storage layer returned.
//
// # Design Principles
//
//  1. **Local first**: models serialize to JSON exactly as the local cache
//     stores them; remote column naming is the schema package's problem
//  2. **Avoid circular references**: use ID strings instead of pointers for
//     relationships (Expense.GroupID, Group.CreatedBy)
//  3. **Trust assumption**: user IDs are derived client-side from the display
//     name and are treated as globally unique without server arbitration
package models
