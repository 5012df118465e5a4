// Package config loads agentkit settings from config files, .env files and
// AGENTKIT_ environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	envPrefix         = "AGENTKIT"
	projectConfigFile = "agentkit.yaml"
)

// Config is the resolved agentkit configuration
type Config struct {
	Agents AgentsConfig `mapstructure:"agents"`
	Hooks  HooksConfig  `mapstructure:"hooks"`
	Log    LogConfig    `mapstructure:"log"`
}

// AgentsConfig locates the agent libraries
type AgentsConfig struct {
	BaseDir     string `mapstructure:"base_dir"`
	OverrideDir string `mapstructure:"override_dir"`
	Extension   string `mapstructure:"extension"`
}

// HooksConfig locates the hook libraries
type HooksConfig struct {
	BaseDir     string `mapstructure:"base_dir"`
	OverrideDir string `mapstructure:"override_dir"`
}

// LogConfig controls diagnostic output
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultDir is the per-user agentkit directory
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".agentkit"
	}
	return filepath.Join(home, ".agentkit")
}

// Defaults returns the configuration used when nothing overrides it.
// Bundled resources live under library/, user resources under user/.
func Defaults() Config {
	dir := DefaultDir()
	return Config{
		Agents: AgentsConfig{
			BaseDir:     filepath.Join(dir, "library", "agents"),
			OverrideDir: filepath.Join(dir, "user", "agents"),
			Extension:   ".md",
		},
		Hooks: HooksConfig{
			BaseDir:     filepath.Join(dir, "library", "hooks"),
			OverrideDir: filepath.Join(dir, "user", "hooks"),
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Init registers defaults, environment overrides and the config file on v.
// configFile, when set, must exist; otherwise ./agentkit.yaml is preferred
// over $HOME/.agentkit/config.yaml and a missing file is not an error.
func Init(v *viper.Viper, configFile string) error {
	loadEnvFiles()

	defaults := Defaults()
	v.SetDefault("agents.base_dir", defaults.Agents.BaseDir)
	v.SetDefault("agents.override_dir", defaults.Agents.OverrideDir)
	v.SetDefault("agents.extension", defaults.Agents.Extension)
	v.SetDefault("hooks.base_dir", defaults.Hooks.BaseDir)
	v.SetDefault("hooks.override_dir", defaults.Hooks.OverrideDir)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	switch {
	case configFile != "":
		v.SetConfigFile(configFile)
	case fileExists(projectConfigFile):
		v.SetConfigFile(projectConfigFile)
	default:
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DefaultDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return errors.Wrap(err, "failed to read config")
	}
	return nil
}

// Load decodes the configuration registered on v
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}

	for _, dir := range []*string{
		&cfg.Agents.BaseDir,
		&cfg.Agents.OverrideDir,
		&cfg.Hooks.BaseDir,
		&cfg.Hooks.OverrideDir,
	} {
		*dir = expandHome(*dir)
	}
	return &cfg, nil
}

// loadEnvFiles loads .env.local and .env from the working directory and the
// agentkit directory. godotenv never overrides a variable that is already set,
// so the environment wins over .env.local, which wins over .env.
func loadEnvFiles() {
	for _, name := range []string{".env.local", ".env"} {
		for _, dir := range []string{".", DefaultDir()} {
			path := filepath.Join(dir, name)
			if fileExists(path) {
				_ = godotenv.Load(path)
			}
		}
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
