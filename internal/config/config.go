package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	FileName         = "config.yaml"
	GlobalFileName   = ".strataconfig.yaml"
	EnvPrefix        = "STRATA"
	BackendBolt      = "bolt"
	BackendFile      = "file"
	DefaultCacheSize = 4096
)

// Keys
const (
	UserNameKey        = "user.name"
	UserEmailKey       = "user.email"
	LogLevelKey        = "log.level"
	LogFormatKey       = "log.format"
	LogOutputKey       = "log.output"
	StorageBackendKey  = "storage.backend"
	StorageCacheKey    = "storage.cache_size"
	RetryMaxElapsedKey = "retry.max_elapsed"
	ColorUIKey         = "color.ui"
)

var ErrUnknownKey = errors.New("unknown config key")

// Config represents strata configuration
type Config struct {
	User    UserConfig    `mapstructure:"user"`
	Log     LogConfig     `mapstructure:"log"`
	Storage StorageConfig `mapstructure:"storage"`
	Retry   RetryConfig   `mapstructure:"retry"`
	Color   ColorConfig   `mapstructure:"color"`
}

// UserConfig holds user identity information
type UserConfig struct {
	Name  string `mapstructure:"name"`
	Email string `mapstructure:"email"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type StorageConfig struct {
	Backend   string `mapstructure:"backend"`
	CacheSize int    `mapstructure:"cache_size"`
}

type RetryConfig struct {
	MaxElapsed time.Duration `mapstructure:"max_elapsed"`
}

type ColorConfig struct {
	UI bool `mapstructure:"ui"`
}

// validators checks raw values for every settable key.
var validators = map[string]func(string) error{
	UserNameKey:       func(string) error { return nil },
	UserEmailKey:      func(string) error { return nil },
	LogLevelKey:       oneOf("trace", "debug", "info", "warn", "warning", "error", "none"),
	LogFormatKey:      oneOf("text", "json"),
	LogOutputKey:      func(string) error { return nil },
	StorageBackendKey: oneOf(BackendBolt, BackendFile),
	StorageCacheKey: func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("expected a non-negative integer, got %q", v)
		}
		return nil
	},
	RetryMaxElapsedKey: func(v string) error {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return fmt.Errorf("expected a non-negative duration, got %q", v)
		}
		return nil
	},
	ColorUIKey: func(v string) error {
		_, err := strconv.ParseBool(v)
		return err
	},
}

func oneOf(allowed ...string) func(string) error {
	return func(v string) error {
		for _, a := range allowed {
			if strings.EqualFold(v, a) {
				return nil
			}
		}
		return fmt.Errorf("expected one of %s, got %q", strings.Join(allowed, ", "), v)
	}
}

// Keys returns every settable key, sorted.
func Keys() []string {
	keys := make([]string, 0, len(validators))
	for k := range validators {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(UserNameKey, "")
	v.SetDefault(UserEmailKey, "")
	v.SetDefault(LogLevelKey, "warn")
	v.SetDefault(LogFormatKey, "text")
	v.SetDefault(LogOutputKey, "=")
	v.SetDefault(StorageBackendKey, BackendBolt)
	v.SetDefault(StorageCacheKey, DefaultCacheSize)
	v.SetDefault(RetryMaxElapsedKey, "5s")
	v.SetDefault(ColorUIKey, true)
}

// globalConfigPath returns the path to the global config file
func globalConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, GlobalFileName), nil
}

// repoConfigPath returns the path to the repository config file
func repoConfigPath(repoDir string) string {
	return filepath.Join(repoDir, FileName)
}

// newViper layers defaults, the global file, the repository file and STRATA_*
// environment variables, later layers winning.
func newViper(repoDir string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var paths []string
	if global, err := globalConfigPath(); err == nil {
		paths = append(paths, global)
	}
	if repoDir != "" {
		paths = append(paths, repoConfigPath(repoDir))
	}
	for _, p := range paths {
		v.SetConfigFile(p)
		if err := v.MergeInConfig(); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read config %s: %w", p, err)
		}
	}
	return v, nil
}

// Load reads configuration for the repository stored in repoDir. An empty repoDir
// loads only defaults, the global file and the environment.
func Load(repoDir string) (*Config, error) {
	v, err := newViper(repoDir)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
	))); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg as the repository config file. Empty identity fields are left out
// so that they do not mask the global file.
func Save(repoDir string, cfg *Config) error {
	v := viper.New()
	if cfg.User.Name != "" {
		v.Set(UserNameKey, cfg.User.Name)
	}
	if cfg.User.Email != "" {
		v.Set(UserEmailKey, cfg.User.Email)
	}
	v.Set(LogLevelKey, cfg.Log.Level)
	v.Set(LogFormatKey, cfg.Log.Format)
	v.Set(LogOutputKey, cfg.Log.Output)
	v.Set(StorageBackendKey, cfg.Storage.Backend)
	v.Set(StorageCacheKey, cfg.Storage.CacheSize)
	v.Set(RetryMaxElapsedKey, cfg.Retry.MaxElapsed.String())
	v.Set(ColorUIKey, cfg.Color.UI)
	return writeConfig(v, repoConfigPath(repoDir))
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		return &Config{
			Log:     LogConfig{Level: "warn", Format: "text", Output: "="},
			Storage: StorageConfig{Backend: BackendBolt, CacheSize: DefaultCacheSize},
			Retry:   RetryConfig{MaxElapsed: 5 * time.Second},
			Color:   ColorConfig{UI: true},
		}
	}
	return cfg
}

// GetValue retrieves a configuration value by key (e.g., "user.name")
func GetValue(repoDir, key string) (string, error) {
	if _, ok := validators[key]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	v, err := newViper(repoDir)
	if err != nil {
		return "", err
	}
	return v.GetString(key), nil
}

// SetValue sets a configuration value in the repository file, or in the global file
// when global is true. Other keys in that file are preserved.
func SetValue(repoDir, key, value string, global bool) error {
	validate, ok := validators[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if err := validate(value); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	path := repoConfigPath(repoDir)
	if global {
		var err error
		if path, err = globalConfigPath(); err != nil {
			return err
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	v.Set(key, value)
	return writeConfig(v, path)
}

func writeConfig(v *viper.Viper, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// Author returns the formatted author string "Name <email>", or "" when no name is
// configured.
func (c *Config) Author() string {
	switch {
	case c.User.Name == "":
		return ""
	case c.User.Email == "":
		return c.User.Name
	default:
		return fmt.Sprintf("%s <%s>", c.User.Name, c.User.Email)
	}
}
