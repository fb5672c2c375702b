package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/bibvault/pkg/core"
)

var (
	syncDryRun bool
	syncCommit bool
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the notes folder with the bibliography",
	Long: `Create a note for every new entry, refresh the header of changed entries
(renaming the file when the title changed), restore notes that went missing and
move the notes of removed entries to the removed folder.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		vault := openVault()

		if syncDryRun {
			plan, summary, err := vault.Plan(ctx)
			if err != nil {
				fatal("Failed to plan", err)
			}
			printPlan(plan)
			printSummary(summary)
			return
		}

		summary, err := vault.Sync(ctx)
		if err != nil {
			fatal("Sync failed", err)
		}
		printSummary(summary)

		if !syncCommit {
			return
		}
		committed, err := vault.Commit(ctx, summary)
		if err != nil {
			fatal("Failed to commit notes", err)
		}
		if committed {
			fmt.Println("Committed changes.")
		} else {
			fmt.Println("Nothing to commit.")
		}
	},
}

func printSummary(s core.Summary) {
	prefix := ""
	if s.DryRun {
		prefix = "(dry run) "
	}
	fmt.Printf("%s%d entries: %d created, %d restored, %d updated (%d renamed), %d unchanged, %d removed\n",
		prefix, s.Entries, s.Created, s.Restored, s.Updated, s.Renamed, s.Unchanged, s.Removed)
	if s.Skipped > 0 || s.Failed > 0 {
		fmt.Printf("%s%d malformed entries skipped, %d notes failed\n", prefix, s.Skipped, s.Failed)
	}
}

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Print the plan without writing anything")
	syncCmd.Flags().BoolVar(&syncCommit, "commit", false, "Commit the notes folder when the vault is a git repository")
	syncCmd.MarkFlagsMutuallyExclusive("dry-run", "commit")
	rootCmd.AddCommand(syncCmd)
}
