package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/bibvault/internal/config"
)

var initForce bool

// fileConfig is the layout of a generated bibvault.yaml.
type fileConfig struct {
	Vault         string `yaml:"vault"`
	Bib           string `yaml:"bib"`
	Archive       string `yaml:"archive"`
	Folder        string `yaml:"folder"`
	RemovedFolder string `yaml:"removed_folder"`
	NoteType      string `yaml:"note_type"`
	FilenameStyle string `yaml:"filename_style"`
	MaxFilename   int    `yaml:"max_filename"`
	LockTimeout   string `yaml:"lock_timeout"`
}

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init [vault]",
	Short: "Write a bibvault.yaml in the current directory",
	Long: `Write a bibvault.yaml holding the default settings in the current directory.
The optional argument sets the vault path.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cwd, err := os.Getwd()
		if err != nil {
			fatal("Failed to get CWD", err)
		}
		path := filepath.Join(cwd, config.FileName+".yaml")
		if _, err := os.Stat(path); err == nil && !initForce {
			fatal("Refusing to overwrite "+path, errors.New("file exists, use --force"))
		}

		defaults := config.Defaults()
		fc := fileConfig{
			Vault:         defaults.Vault,
			Bib:           defaults.Bib,
			Archive:       defaults.Archive,
			Folder:        defaults.Folder,
			RemovedFolder: defaults.RemovedFolder,
			NoteType:      defaults.NoteType,
			FilenameStyle: defaults.FilenameStyle,
			MaxFilename:   defaults.MaxFilename,
			LockTimeout:   defaults.LockTimeout.String(),
		}
		if len(args) == 1 {
			fc.Vault = args[0]
		}

		data, err := yaml.Marshal(fc)
		if err != nil {
			fatal("Failed to encode config", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			fatal("Failed to write config", err)
		}
		fmt.Println("Wrote", path)
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing bibvault.yaml")
	rootCmd.AddCommand(initCmd)
}
