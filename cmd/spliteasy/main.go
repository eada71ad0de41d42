// Command spliteasy keeps a local copy of shared group-expense data
// synchronized with a remote store. It is a thin front over the sync engine:
// commands mutate the local cache and ask the engine to reconcile.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "spliteasy",
	Short: "Offline-first shared expense tracking with cloud sync",
	Long: `spliteasy tracks shared group expenses in a local database and keeps it
synchronized with a remote store when connectivity allows.

All data lives locally first: every command works offline, and deletions made
offline are queued and replayed automatically on reconnect. 'spliteasy watch'
keeps running, applying live changes made by other group members.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default: ./spliteasy.yaml)")
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
