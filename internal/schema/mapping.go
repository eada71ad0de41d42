// Package schema discovers the remote store's actual column naming.
//
// The remote tables were created by hand at different times and the column
// spelling is not guaranteed (created_at vs createdat, group_id vs groupid).
// Mapper probes the live store once per process and produces a Mapping that
// every remote operation translates through, instead of guessing column
// names ad hoc per read.
package schema

// Table names the three logical tables the sync engine works with.
type Table string

const (
	TableUsers    Table = "users"
	TableGroups   Table = "groups"
	TableExpenses Table = "expenses"
)

// Mapping translates logical field names to physical column names, per table.
// Treat a resolved Mapping as read-only.
type Mapping map[Table]map[string]string

// Column returns the physical column for a logical field. Unknown fields map
// to themselves so callers never index into a missing entry.
func (m Mapping) Column(table Table, field string) string {
	if cols, ok := m[table]; ok {
		if col, ok := cols[field]; ok {
			return col
		}
	}
	return field
}

// Default returns the snake_case guess used before (and after a failed)
// live discovery.
func Default() Mapping {
	return Mapping{
		TableUsers: {
			"id":        "id",
			"name":      "name",
			"createdAt": "created_at",
			"updatedAt": "updated_at",
		},
		TableGroups: {
			"id":            "id",
			"name":          "name",
			"createdBy":     "created_by",
			"members":       "members",
			"participants":  "participants",
			"totalExpenses": "total_expenses",
			"expenseCount":  "expense_count",
			"createdAt":     "created_at",
			"updatedAt":     "updated_at",
		},
		TableExpenses: {
			"id":              "id",
			"groupId":         "group_id",
			"description":     "description",
			"amount":          "amount",
			"paidBy":          "paid_by",
			"splitBetween":    "split_between",
			"createdBy":       "created_by",
			"createdAt":       "created_at",
			"updatedAt":       "updated_at",
			"perPersonAmount": "per_person_amount",
		},
	}
}
