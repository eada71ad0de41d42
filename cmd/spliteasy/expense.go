package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvats/spliteasy/internal/models"
)

var addExpenseCmd = &cobra.Command{
	Use:   "add-expense <group-id> <name> <amount>",
	Short: "Record an expense in a group",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		user := a.store.CurrentUser()
		if user == nil {
			return fmt.Errorf("no identity yet, run 'spliteasy login <name>' first")
		}

		var amount float64
		if _, err := fmt.Sscanf(args[2], "%f", &amount); err != nil || amount <= 0 {
			return fmt.Errorf("invalid amount %q", args[2])
		}

		groups := a.store.Load()
		idx := -1
		for i := range groups {
			if groups[i].ID == args[0] {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("group %s not in local cache", args[0])
		}
		group := &groups[idx]

		paidBy, _ := cmd.Flags().GetString("paid-by")
		if paidBy == "" {
			paidBy = user.ID
		}
		splitFlag, _ := cmd.Flags().GetString("split")
		split := group.Members
		if splitFlag != "" {
			split = strings.Split(splitFlag, ",")
		}

		expense := models.NewExpense(group.ID, args[1], amount, paidBy, user.ID, split)
		group.Expenses = append(group.Expenses, *expense)
		group.Recompute()
		a.store.Save(groups)

		fmt.Printf("Added %q: %.2f paid by %s, %.2f each across %d people\n",
			expense.Name, expense.Amount, expense.PaidBy, expense.PerPersonAmount, len(expense.SplitBetween))
		fmt.Println("Run 'spliteasy sync' to push it to the cloud.")
		return nil
	},
}

func init() {
	addExpenseCmd.Flags().String("paid-by", "", "user ID who paid (defaults to you)")
	addExpenseCmd.Flags().String("split", "", "comma-separated user IDs to split between (defaults to all members)")
	rootCmd.AddCommand(addExpenseCmd)
}
