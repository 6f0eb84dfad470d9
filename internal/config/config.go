package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Source types.
const (
	SourceGmail = "gmail"
	SourceIMAP  = "imap"
	SourceMbox  = "mbox"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New loads configuration from the given file, or searches the default
// locations when file is empty. A missing config file is not an error.
func New(file string) (*Config, error) {
	v := NewEmptyViper()
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DefaultDir())
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("PLEDGETALLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// DefaultDir is where credentials, the token cache, the database and the
// optional config file live.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pledgetally"
	}
	return filepath.Join(home, ".config", "pledgetally")
}

func setDefaults(v *viper.Viper) {
	dir := DefaultDir()

	v.SetDefault("source.type", SourceGmail)

	v.SetDefault("gmail.config_dir", dir)
	v.SetDefault("gmail.workers", 16)

	v.SetDefault("imap.server", "")
	v.SetDefault("imap.username", "")
	v.SetDefault("imap.password", "")
	v.SetDefault("imap.mailbox", "Sent")

	v.SetDefault("mbox.path", "")

	v.SetDefault("operator.address", "")

	v.SetDefault("store.enabled", true)
	v.SetDefault("store.path", filepath.Join(dir, "pledgetally.db"))

	v.SetDefault("scan.recipient", "")
	v.SetDefault("scan.range", "30d")
	v.SetDefault("scan.lenient_range", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", filepath.Join(dir, "pledgetally.log"))
}

// BindFlag lets a command-line flag override a config key when set.
func (c *Config) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("bind %s: flag not defined", key)
	}
	return c.v.BindPFlag(key, flag)
}

// Set overrides a key for the rest of the process.
func (c *Config) Set(key string, value any) {
	c.v.Set(key, value)
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// FileUsed returns the config file that was read, or "" when only
// defaults, environment and flags apply.
func (c *Config) FileUsed() string {
	return c.v.ConfigFileUsed()
}

// Validate checks the settings the selected source needs.
func (c *Config) Validate() error {
	switch t := c.GetString("source.type"); t {
	case SourceGmail:
		if c.GetString("gmail.config_dir") == "" {
			return errors.New("gmail.config_dir is required")
		}
		if c.GetInt("gmail.workers") <= 0 {
			return fmt.Errorf("gmail.workers must be positive, got %d", c.GetInt("gmail.workers"))
		}
	case SourceIMAP:
		for _, k := range []string{"imap.server", "imap.username", "imap.password"} {
			if c.GetString(k) == "" {
				return fmt.Errorf("%s is required for the imap source", k)
			}
		}
	case SourceMbox:
		p := c.GetString("mbox.path")
		if p == "" {
			return errors.New("mbox.path is required for the mbox source")
		}
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("mbox file not accessible: %w", err)
		}
	default:
		return fmt.Errorf("unsupported source type: %s", t)
	}
	if c.GetBool("store.enabled") && c.GetString("store.path") == "" {
		return errors.New("store.path is required when the store is enabled")
	}
	return nil
}
