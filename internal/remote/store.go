package remote

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nvats/spliteasy/internal/models"
	"github.com/nvats/spliteasy/internal/schema"
)

// Store is the schema-aware adapter over a Tabular store. Every method
// resolves the column mapping first, then translates logical field names to
// physical ones before touching the remote.
//
// Writes are last-write-wins: upserts overwrite the remote row by primary
// key and stamp a fresh updated_at unconditionally, with no version check.
type Store struct {
	tab    Tabular
	mapper *schema.Mapper
	logger *slog.Logger

	// now is swappable in tests.
	now func() time.Time
}

// NewStore creates a schema-aware store. A nil logger falls back to
// slog.Default.
func NewStore(tab Tabular, mapper *schema.Mapper, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{tab: tab, mapper: mapper, logger: logger, now: time.Now}
}

// Probe satisfies schema.ProbeFunc: a one-row select restricted to the
// candidate column. Missing columns surface as ErrUnknownColumn.
func Probe(tab Tabular) schema.ProbeFunc {
	return func(ctx context.Context, table schema.Table, column string) error {
		_, err := tab.Select(ctx, string(table), SelectQuery{
			Columns: []string{column},
			Limit:   1,
		})
		return err
	}
}

// ResolveSchema forces column discovery; safe to call repeatedly.
func (s *Store) ResolveSchema(ctx context.Context) {
	s.mapper.Resolve(ctx)
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// UpsertUser writes the user row, refreshing updated_at.
func (s *Store) UpsertUser(ctx context.Context, u *models.User) error {
	if u == nil || u.ID == "" {
		return fmt.Errorf("upsert user: %w", ErrMissingID)
	}
	mp := s.mapper.Resolve(ctx)
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now().UTC()
	}
	row := Row{
		mp.Column(schema.TableUsers, "id"):        u.ID,
		mp.Column(schema.TableUsers, "name"):      u.Name,
		mp.Column(schema.TableUsers, "createdAt"): createdAt.UTC().Format(time.RFC3339),
		mp.Column(schema.TableUsers, "updatedAt"): s.timestamp(),
	}
	if err := s.tab.Upsert(ctx, string(schema.TableUsers), row); err != nil {
		return fmt.Errorf("failed to upsert user %s: %w", u.ID, err)
	}
	return nil
}

// UpsertGroup writes the group row. The legacy participants column is kept
// in sync with members for tables created before the rename, and the cached
// total/expense-count aggregates are recomputed before writing.
func (s *Store) UpsertGroup(ctx context.Context, g *models.Group) error {
	if g == nil || g.ID == "" {
		return fmt.Errorf("upsert group: %w", ErrMissingID)
	}
	g.Recompute()
	mp := s.mapper.Resolve(ctx)
	createdAt := g.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now().UTC()
	}
	row := Row{
		mp.Column(schema.TableGroups, "id"):            g.ID,
		mp.Column(schema.TableGroups, "name"):          g.Name,
		mp.Column(schema.TableGroups, "createdBy"):     g.CreatedBy,
		mp.Column(schema.TableGroups, "members"):       g.Members,
		mp.Column(schema.TableGroups, "participants"):  g.Members,
		mp.Column(schema.TableGroups, "totalExpenses"): g.TotalExpenses,
		mp.Column(schema.TableGroups, "expenseCount"):  len(g.Expenses),
		mp.Column(schema.TableGroups, "createdAt"):     createdAt.UTC().Format(time.RFC3339),
		mp.Column(schema.TableGroups, "updatedAt"):     s.timestamp(),
	}
	if err := s.tab.Upsert(ctx, string(schema.TableGroups), row); err != nil {
		return fmt.Errorf("failed to upsert group %s: %w", g.ID, err)
	}
	return nil
}

// UpsertExpense writes the expense row under groupID, re-deriving the
// per-person share first.
func (s *Store) UpsertExpense(ctx context.Context, e *models.Expense, groupID string) error {
	if e == nil || e.ID == "" || groupID == "" {
		return fmt.Errorf("upsert expense: %w", ErrMissingID)
	}
	e.RecomputeShare()
	mp := s.mapper.Resolve(ctx)
	date := e.Date
	if date.IsZero() {
		date = s.now().UTC()
	}
	row := Row{
		mp.Column(schema.TableExpenses, "id"):              e.ID,
		mp.Column(schema.TableExpenses, "groupId"):         groupID,
		mp.Column(schema.TableExpenses, "description"):     e.Name,
		mp.Column(schema.TableExpenses, "amount"):          e.Amount,
		mp.Column(schema.TableExpenses, "paidBy"):          e.PaidBy,
		mp.Column(schema.TableExpenses, "splitBetween"):    e.SplitBetween,
		mp.Column(schema.TableExpenses, "createdBy"):       e.CreatedBy,
		mp.Column(schema.TableExpenses, "createdAt"):       date.UTC().Format(time.RFC3339),
		mp.Column(schema.TableExpenses, "updatedAt"):       s.timestamp(),
		mp.Column(schema.TableExpenses, "perPersonAmount"): e.PerPersonAmount,
	}
	if err := s.tab.Upsert(ctx, string(schema.TableExpenses), row); err != nil {
		return fmt.Errorf("failed to upsert expense %s: %w", e.ID, err)
	}
	return nil
}

// FetchGroup assembles a complete group: the group row plus all its expenses
// ordered newest first, with TotalExpenses recomputed. Returns nil when the
// group row does not exist. Any other failure is a hard error. A failure
// fetching expenses alone is tolerated: the group comes back without them.
func (s *Store) FetchGroup(ctx context.Context, groupID string) (*models.Group, error) {
	if groupID == "" {
		return nil, fmt.Errorf("fetch group: %w", ErrMissingID)
	}
	mp := s.mapper.Resolve(ctx)

	rows, err := s.tab.Select(ctx, string(schema.TableGroups), SelectQuery{
		Eq:    map[string]any{mp.Column(schema.TableGroups, "id"): groupID},
		Limit: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch group %s: %w", groupID, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	row := rows[0]

	group := &models.Group{
		ID:        rowString(row, mp.Column(schema.TableGroups, "id")),
		Name:      rowString(row, mp.Column(schema.TableGroups, "name")),
		CreatedBy: rowString(row, mp.Column(schema.TableGroups, "createdBy")),
		CreatedAt: rowTime(row, mp.Column(schema.TableGroups, "createdAt")),
		UpdatedAt: rowTime(row, mp.Column(schema.TableGroups, "updatedAt")),
		Members:   rowStrings(row, mp.Column(schema.TableGroups, "members")),
	}
	if len(group.Members) == 0 {
		// Historical schema variant stored the member list under participants.
		group.Members = rowStrings(row, mp.Column(schema.TableGroups, "participants"))
	}

	expRows, err := s.tab.Select(ctx, string(schema.TableExpenses), SelectQuery{
		Eq:         map[string]any{mp.Column(schema.TableExpenses, "groupId"): groupID},
		OrderBy:    mp.Column(schema.TableExpenses, "createdAt"),
		Descending: true,
	})
	if err != nil {
		s.logger.Warn("failed to fetch group expenses", "group_id", groupID, "error", err)
	} else {
		for _, er := range expRows {
			group.Expenses = append(group.Expenses, models.Expense{
				ID:           rowString(er, mp.Column(schema.TableExpenses, "id")),
				GroupID:      groupID,
				Name:         rowString(er, mp.Column(schema.TableExpenses, "description")),
				Amount:       rowFloat(er, mp.Column(schema.TableExpenses, "amount")),
				PaidBy:       rowString(er, mp.Column(schema.TableExpenses, "paidBy")),
				SplitBetween: rowStrings(er, mp.Column(schema.TableExpenses, "splitBetween")),
				CreatedBy:    rowString(er, mp.Column(schema.TableExpenses, "createdBy")),
				Date:         rowTime(er, mp.Column(schema.TableExpenses, "createdAt")),
			})
		}
	}

	group.Recompute()
	return group, nil
}

// DeleteExpense removes one expense row. Deleting a row that is already gone
// is not an error; it is logged and ignored.
func (s *Store) DeleteExpense(ctx context.Context, expenseID string) error {
	if expenseID == "" {
		return fmt.Errorf("delete expense: %w", ErrMissingID)
	}
	mp := s.mapper.Resolve(ctx)
	n, err := s.tab.Delete(ctx, string(schema.TableExpenses),
		mp.Column(schema.TableExpenses, "id"), expenseID)
	if err != nil {
		return fmt.Errorf("failed to delete expense %s: %w", expenseID, err)
	}
	if n == 0 {
		s.logger.Warn("no expense rows deleted", "expense_id", expenseID)
	}
	return nil
}

// DeleteGroup removes a group and its dependent expenses. Expense deletion
// is best-effort: a failure there is logged and the group row is still
// deleted, accepting transiently orphaned expense rows.
func (s *Store) DeleteGroup(ctx context.Context, groupID string) error {
	if groupID == "" {
		return fmt.Errorf("delete group: %w", ErrMissingID)
	}
	mp := s.mapper.Resolve(ctx)

	if _, err := s.tab.Delete(ctx, string(schema.TableExpenses),
		mp.Column(schema.TableExpenses, "groupId"), groupID); err != nil {
		s.logger.Warn("failed to delete group expenses", "group_id", groupID, "error", err)
	}

	if _, err := s.tab.Delete(ctx, string(schema.TableGroups),
		mp.Column(schema.TableGroups, "id"), groupID); err != nil {
		return fmt.Errorf("failed to delete group %s: %w", groupID, err)
	}
	return nil
}

// AddMember appends userID to the group's member list. Returns true when the
// user ends up a member, including when they already were one. Both the
// members and the legacy participants columns are written, plus a fresh
// updated_at.
func (s *Store) AddMember(ctx context.Context, groupID, userID string) (bool, error) {
	if groupID == "" || userID == "" {
		return false, fmt.Errorf("add member: %w", ErrMissingID)
	}
	mp := s.mapper.Resolve(ctx)

	rows, err := s.tab.Select(ctx, string(schema.TableGroups), SelectQuery{
		Eq:    map[string]any{mp.Column(schema.TableGroups, "id"): groupID},
		Limit: 1,
	})
	if err != nil {
		return false, fmt.Errorf("failed to fetch group %s: %w", groupID, err)
	}
	if len(rows) == 0 {
		return false, fmt.Errorf("group %s not found", groupID)
	}

	members := rowStrings(rows[0], mp.Column(schema.TableGroups, "members"))
	if len(members) == 0 {
		members = rowStrings(rows[0], mp.Column(schema.TableGroups, "participants"))
	}
	for _, m := range members {
		if m == userID {
			return true, nil
		}
	}
	members = append(members, userID)

	set := Row{
		mp.Column(schema.TableGroups, "members"):      members,
		mp.Column(schema.TableGroups, "participants"): members,
		mp.Column(schema.TableGroups, "updatedAt"):    s.timestamp(),
	}
	if err := s.tab.Update(ctx, string(schema.TableGroups), set,
		mp.Column(schema.TableGroups, "id"), groupID); err != nil {
		return false, fmt.Errorf("failed to update group members: %w", err)
	}
	return true, nil
}
