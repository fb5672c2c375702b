package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/bibvault"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of bibvault",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("bibvault version %s\n", strings.TrimSpace(bibvault.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
