package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/bibvault/pkg/adapters/fs"
	"github.com/aretw0/bibvault/pkg/core"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the vault, archive and last run",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		st, err := openVault().Status(context.Background())
		if err != nil {
			fatal("Failed to read status", err)
		}

		if statusJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(st); err != nil {
				fatal("Error encoding JSON", err)
			}
			return
		}

		fmt.Println("Vault:       ", st.Vault)
		fmt.Println("Notes:       ", st.Notes)
		fmt.Println("Bibliography:", st.Bibliography)

		svc, ok := st.Service.(core.ServiceState)
		if !ok {
			return
		}
		fmt.Println("Layout:      ", svc.Layout)
		archive, ok := svc.Archive.(fs.ArchiveState)
		if !ok {
			return
		}
		fmt.Println("Archive:     ", archive.Path)
		fmt.Printf("Records:      %d\n", archive.Records)
		if archive.Legacy {
			fmt.Println("Format:       legacy, upgraded on the next sync")
		}
		if archive.UpdatedAt != nil {
			fmt.Printf("Last sync:    %s (run %s)\n", archive.UpdatedAt.Local().Format("2006-01-02 15:04:05"), archive.LastRunID)
		}
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(statusCmd)
}
