// Package config loads bibvault settings from defaults, a config file, .env,
// the environment and command line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// FileName is the base name of the config file, without extension.
	FileName = "bibvault"
	// EnvPrefix prefixes environment overrides, e.g. BIBVAULT_VAULT.
	EnvPrefix = "BIBVAULT"
)

// Keys.
const (
	KeyVault         = "vault"
	KeyBib           = "bib"
	KeyArchive       = "archive"
	KeyFolder        = "folder"
	KeyRemovedFolder = "removed_folder"
	KeyNoteType      = "note_type"
	KeyFilenameStyle = "filename_style"
	KeyMaxFilename   = "max_filename"
	KeyLockTimeout   = "lock_timeout"
)

// Config is the resolved configuration of a run.
type Config struct {
	Vault         string        `mapstructure:"vault" json:"vault"`
	Bib           string        `mapstructure:"bib" json:"bib"`
	Archive       string        `mapstructure:"archive" json:"archive"`
	Folder        string        `mapstructure:"folder" json:"folder"`
	RemovedFolder string        `mapstructure:"removed_folder" json:"removed_folder"`
	NoteType      string        `mapstructure:"note_type" json:"note_type"`
	FilenameStyle string        `mapstructure:"filename_style" json:"filename_style"`
	MaxFilename   int           `mapstructure:"max_filename" json:"max_filename"`
	LockTimeout   time.Duration `mapstructure:"lock_timeout" json:"lock_timeout"`
}

// SetDefaults registers the default of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyVault, "~/Documents/Obsidian Vault")
	v.SetDefault(KeyBib, "references.bib")
	v.SetDefault(KeyArchive, "obsidian_archive.json")
	v.SetDefault(KeyFolder, "Papers")
	v.SetDefault(KeyRemovedFolder, "Removed")
	v.SetDefault(KeyNoteType, "paper")
	v.SetDefault(KeyFilenameStyle, "title")
	v.SetDefault(KeyMaxFilename, 250)
	v.SetDefault(KeyLockTimeout, 5*time.Second)
}

// Defaults returns the configuration used when nothing overrides it.
// Paths are left unexpanded.
func Defaults() Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// The defaults always decode.
	_ = v.Unmarshal(&cfg)
	return cfg
}

// Load reads the configuration into v and decodes it. An explicit configFile
// must exist; otherwise bibvault.yaml is searched from the working directory
// upwards, then in the user config directory, and may be absent.
func Load(v *viper.Viper, configFile string) (Config, error) {
	SetDefaults(v)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(ExpandHome(configFile))
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
	} else if path := Find(); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Vault = ExpandHome(cfg.Vault)
	cfg.Bib = ExpandHome(cfg.Bib)
	cfg.Archive = ExpandHome(cfg.Archive)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges and the folder names.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Vault, validation.Required),
		validation.Field(&c.Bib, validation.Required),
		validation.Field(&c.Archive, validation.Required),
		validation.Field(&c.Folder, validation.Required, validation.By(plainDir)),
		validation.Field(&c.RemovedFolder, validation.Required, validation.By(plainName)),
		validation.Field(&c.NoteType, validation.Required),
		validation.Field(&c.FilenameStyle, validation.In("title", "slug")),
		validation.Field(&c.MaxFilename, validation.Min(32), validation.Max(255)),
		validation.Field(&c.LockTimeout, validation.Min(time.Duration(0))),
	)
}

// plainDir accepts a relative folder that stays inside the vault.
func plainDir(value any) error {
	s, _ := value.(string)
	clean := filepath.Clean(s)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return validation.NewError("validation_folder_outside_vault", "must be a folder inside the vault")
	}
	return nil
}

// plainName accepts a single path element.
func plainName(value any) error {
	s, _ := value.(string)
	if s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
		return validation.NewError("validation_folder_name", "must be a plain folder name")
	}
	return nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// Find looks for bibvault.yaml from the working directory upwards, then in
// the user config directory. It returns "" when there is none.
func Find() string {
	if wd, err := os.Getwd(); err == nil {
		if path := findUp(wd); path != "" {
			return path
		}
	}
	if dir, err := os.UserConfigDir(); err == nil {
		if path := configIn(filepath.Join(dir, FileName)); path != "" {
			return path
		}
	}
	return ""
}

// findUp walks from startDir to the filesystem root.
func findUp(startDir string) string {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return ""
	}
	for {
		if path := configIn(dir); path != "" {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func configIn(dir string) string {
	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(dir, FileName+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}
