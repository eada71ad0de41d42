package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvats/spliteasy/internal/calculator"
	"github.com/nvats/spliteasy/internal/models"
)

var loginCmd = &cobra.Command{
	Use:   "login <name>",
	Short: "Create (or replace) the local identity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		user := models.NewUser(args[0])
		a.store.SetCurrentUser(user)
		fmt.Printf("Signed in as %s (%s)\n", user.Name, user.ID)
		fmt.Println("Share this ID with friends so they can add you to groups.")
		return nil
	},
}

var createGroupCmd = &cobra.Command{
	Use:   "create-group <name>",
	Short: "Create a group in the local cache",
	Args:  cobra.ExactArgs(1),
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

		memberList, _ := cmd.Flags().GetString("members")
		var members []string
		if memberList != "" {
			members = strings.Split(memberList, ",")
		}

		group := models.NewGroup(args[0], user.ID, members)
		groups := append(a.store.Load(), *group)
		a.store.Save(groups)

		fmt.Printf("Created group %q (%s) with %d member(s)\n", group.Name, group.ID, len(group.Members))
		fmt.Println("Run 'spliteasy sync' to push it to the cloud.")
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List locally cached groups",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		groups := a.store.Load()
		if len(groups) == 0 {
			fmt.Println("No groups yet.")
			return nil
		}
		for _, g := range groups {
			fmt.Printf("%s  %-20s  members=%d  expenses=%d  total=%.2f\n",
				g.ID, g.Name, len(g.Members), len(g.Expenses), g.TotalExpenses)
		}
		if t := a.store.LastSyncTime(); !t.IsZero() {
			fmt.Printf("Last synced: %s\n", t.Local())
		}
		return nil
	},
}

var joinCmd = &cobra.Command{
	Use:   "join <group-id>",
	Short: "Join a remote group as the current user",
	Args:  cobra.ExactArgs(1),
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

		ok, err := a.engine.AddMember(cmd.Context(), args[0], user.ID)
		if err != nil {
			return fmt.Errorf("failed to join group: %w", err)
		}
		if !ok {
			return fmt.Errorf("could not join group %s", args[0])
		}

		// Pull the joined group so it shows up locally.
		group, err := a.engine.PullGroup(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("joined, but failed to pull group: %w", err)
		}
		if group != nil {
			fmt.Printf("Joined %q (%d members)\n", group.Name, len(group.Members))
		}
		return nil
	},
}

var balancesCmd = &cobra.Command{
	Use:   "balances <group-id>",
	Short: "Show who owes whom in a group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		var group *models.Group
		for _, g := range a.store.Load() {
			if g.ID == args[0] {
				group = &g
				break
			}
		}
		if group == nil {
			return fmt.Errorf("group %s not in local cache (try 'spliteasy pull %s')", args[0], args[0])
		}

		balances := calculator.GroupBalances(group)
		fmt.Printf("Balances for %q (total %.2f):\n", group.Name, group.TotalExpenses)
		for _, b := range balances {
			fmt.Printf("  %-16s paid=%.2f owed=%.2f net=%+.2f\n",
				b.UserID, b.TotalPaid, b.TotalOwed, b.NetBalance)
		}

		edges := calculator.SettleUp(balances)
		if len(edges) == 0 {
			fmt.Println("All settled up.")
			return nil
		}
		fmt.Println("Suggested payments:")
		for _, e := range edges {
			fmt.Printf("  %s -> %s: %.2f\n", e.From, e.To, e.Amount)
		}
		return nil
	},
}

func init() {
	createGroupCmd.Flags().String("members", "", "comma-separated user IDs to include")
	rootCmd.AddCommand(loginCmd, createGroupCmd, listCmd, joinCmd, balancesCmd)
}
