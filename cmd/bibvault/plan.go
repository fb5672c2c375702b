package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/bibvault/pkg/core"
)

var planJSON bool

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show what sync would do",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		plan, summary, err := openVault().Plan(context.Background())
		if err != nil {
			fatal("Failed to plan", err)
		}

		if planJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			out := struct {
				core.Plan
				Summary core.Summary `json:"summary"`
			}{plan, summary}
			if err := encoder.Encode(out); err != nil {
				fatal("Error encoding JSON", err)
			}
			return
		}

		printPlan(plan)
		printSummary(summary)
	},
}

// printPlan prints one line per action that touches the filesystem.
func printPlan(plan core.Plan) {
	for _, a := range plan.Actions {
		switch {
		case a.Kind == core.ActionSkip:
			continue
		case a.Kind == core.ActionRemove:
			fmt.Printf("remove   %-20s %s\n", a.RefID, a.From)
		case a.Restore:
			fmt.Printf("restore  %-20s %s\n", a.RefID, a.To)
		case a.Renames():
			fmt.Printf("%-8s %-20s %s -> %s\n", a.Kind, a.RefID, a.From, a.To)
		default:
			fmt.Printf("%-8s %-20s %s\n", a.Kind, a.RefID, a.To)
		}
	}
}

func init() {
	planCmd.Flags().BoolVar(&planJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(planCmd)
}
