package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aretw0/bibvault"
	"github.com/aretw0/bibvault/internal/config"
	"github.com/aretw0/bibvault/pkg/core"
)

var (
	verbose    bool
	configFile string
	cfg        config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bibvault",
	Short: "Keep a folder of markdown notes in step with a BibTeX bibliography",
	Long: `bibvault turns every entry of a BibTeX export into a markdown note with a
YAML frontmatter header. Your own notes below the header are never touched:
renamed titles rename the file, removed entries are moved aside, not deleted.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)

		if cmd.Name() == "version" || cmd.Name() == "init" {
			return nil
		}

		v := viper.New()
		for key, flag := range map[string]string{
			config.KeyVault:   "vault",
			config.KeyBib:     "bib",
			config.KeyArchive: "archive",
			config.KeyFolder:  "folder",
		} {
			if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
				return err
			}
		}

		loaded, err := config.Load(v, configFile)
		if err != nil {
			return err
		}
		cfg = loaded
		if path := v.ConfigFileUsed(); path != "" {
			logger.Debug("using config file", "file", path)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fatal("Error", err)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVar(&configFile, "config", "", "Config file (default: bibvault.yaml in the working directory or a parent)")
	flags.String("vault", "", "Vault path")
	flags.String("bib", "", "BibTeX file")
	flags.String("archive", "", "Archive file holding the sync state")
	flags.String("folder", "", "Notes folder inside the vault")
}

// openVault wires a vault from the loaded configuration.
func openVault() *bibvault.Vault {
	v, err := bibvault.New(cfg.Vault,
		bibvault.WithConfig(cfg),
		bibvault.WithLogger(slog.Default()),
	)
	if err != nil {
		fatal("Failed to open vault", err)
	}
	return v
}

// hint suggests a fix for errors a user can act on.
func hint(err error) string {
	switch {
	case errors.Is(err, core.ErrVaultNotFound):
		return "set the vault path with --vault, BIBVAULT_VAULT or 'vault:' in bibvault.yaml."
	case errors.Is(err, core.ErrBibNotFound):
		return "export your library as BibTeX and point --bib at it."
	case errors.Is(err, core.ErrArchiveLocked):
		return fmt.Sprintf("another sync is running. Locks of dead runs are cleared on their own; if it persists, delete %s.lock.", cfg.Archive)
	}
	return ""
}
