package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvats/spliteasy/internal/syncer"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push all local data to the cloud",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.engine.ReplayPendingDeletes(cmd.Context()); err != nil {
			fmt.Printf("Some queued deletions could not be replayed: %v\n", err)
		}
		if err := a.engine.PushAll(cmd.Context()); err != nil {
			if errors.Is(err, syncer.ErrSyncInProgress) {
				return fmt.Errorf("a sync is already running")
			}
			return fmt.Errorf("sync failed: %w", err)
		}
		fmt.Println("Sync complete.")
		return nil
	},
}

var pullCmd = &cobra.Command{
	Use:   "pull <group-id>",
	Short: "Fetch a group from the cloud into the local cache",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		group, err := a.engine.PullGroup(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to pull group: %w", err)
		}
		if group == nil {
			return fmt.Errorf("group %s does not exist remotely", args[0])
		}
		fmt.Printf("Pulled %q: %d member(s), %d expense(s), total %.2f\n",
			group.Name, len(group.Members), len(group.Expenses), group.TotalExpenses)
		return nil
	},
}

var deleteGroupCmd = &cobra.Command{
	Use:   "delete-group <group-id>",
	Short: "Delete a group locally and remotely (queued when offline)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		groups := a.store.Load()
		kept := groups[:0]
		for _, g := range groups {
			if g.ID != args[0] {
				kept = append(kept, g)
			}
		}
		if len(kept) == len(groups) {
			fmt.Printf("Group %s was not in the local cache.\n", args[0])
		}
		a.store.Save(kept)

		if err := a.engine.DeleteGroup(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete group remotely: %w", err)
		}
		fmt.Println("Deleted.")
		return nil
	},
}

var deleteExpenseCmd = &cobra.Command{
	Use:   "delete-expense <group-id> <expense-id>",
	Short: "Delete an expense locally and remotely (queued when offline)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		groups := a.store.Load()
		found := false
		for i := range groups {
			if groups[i].ID != args[0] {
				continue
			}
			expenses := groups[i].Expenses[:0]
			for _, e := range groups[i].Expenses {
				if e.ID == args[1] {
					found = true
					continue
				}
				expenses = append(expenses, e)
			}
			groups[i].Expenses = expenses
			groups[i].Recompute()
		}
		if !found {
			fmt.Printf("Expense %s was not in the local cache.\n", args[1])
		}
		a.store.Save(groups)

		if err := a.engine.DeleteExpense(cmd.Context(), args[1]); err != nil {
			return fmt.Errorf("failed to delete expense remotely: %w", err)
		}
		fmt.Println("Deleted.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd, pullCmd, deleteGroupCmd, deleteExpenseCmd)
}
