// Package config provides Viper-based configuration loading for the hexdraft server.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings for run history.
type DatabaseConfig struct {
	// Enabled turns run-history persistence on. When false no connection is made.
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// TelnetConfig holds Telnet acceptor settings.
type TelnetConfig struct {
	// Host is the bind address for the Telnet listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the Telnet listener. 0 picks a free port.
	Port int `mapstructure:"port"`
	// ReadTimeout is the per-read timeout for Telnet connections.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the per-write timeout for Telnet connections.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// MaxSessions caps concurrent connections. 0 is unlimited.
	MaxSessions int `mapstructure:"max_sessions"`
	// IdleTimeout is how long a player may send nothing before being warned. 0 disables.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	// IdleGracePeriod is how long after the warning the player is disconnected.
	IdleGracePeriod time.Duration `mapstructure:"idle_grace_period"`
	// ShutdownGrace is how long players see the shutdown notice before connections close.
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (t TelnetConfig) Addr() string {
	return fmt.Sprintf("%s:%d", t.Host, t.Port)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
	// File is an optional path for a rotated log file. Empty disables the file sink.
	File string `mapstructure:"file"`
	// MaxSizeMB is the size at which the log file is rotated.
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of rotated files kept.
	MaxBackups int `mapstructure:"max_backups"`
	// MaxAgeDays is the number of days rotated files are kept.
	MaxAgeDays int `mapstructure:"max_age_days"`
}

// GameConfig holds the initial layout and economy of a new game.
type GameConfig struct {
	Rows       int `mapstructure:"rows"`
	Cols       int `mapstructure:"cols"`
	StartRow   int `mapstructure:"start_row"`
	StartCol   int `mapstructure:"start_col"`
	ExitRow    int `mapstructure:"exit_row"`
	ExitCol    int `mapstructure:"exit_col"`
	StartSteps int `mapstructure:"start_steps"`
	StartKeys  int `mapstructure:"start_keys"`
	StartGems  int `mapstructure:"start_gems"`
	// RefreshCost is the gem price of rerolling a draft.
	RefreshCost int `mapstructure:"refresh_cost"`
	// BlockedStartDirections names spawn-room hallways that start disabled.
	BlockedStartDirections []string `mapstructure:"blocked_start_directions"`
	// EffectsFile is an optional YAML effect table. Empty uses the built-in table.
	EffectsFile string `mapstructure:"effects_file"`
	// ScriptDir is an optional directory of Lua effect hooks. Empty disables scripting.
	ScriptDir string `mapstructure:"script_dir"`
	// ScriptInstructionLimit caps Lua opcodes per hook call. 0 uses the scripting default.
	ScriptInstructionLimit int `mapstructure:"script_instruction_limit"`
	// DebugCommands enables the cheat command.
	DebugCommands bool `mapstructure:"debug_commands"`
}

// DraftConfig holds the probabilities and retry policy of draft generation.
type DraftConfig struct {
	// HallwayChance is the probability a hallway is attempted at all.
	HallwayChance float64 `mapstructure:"hallway_chance"`
	// ConnectChance is the probability an attempted in-grid hallway is kept.
	ConnectChance float64 `mapstructure:"connect_chance"`
	// KeyChance is the probability a non key-granting room needs a key.
	KeyChance float64 `mapstructure:"key_chance"`
	// MaxAttempts caps batch regeneration. 0 retries without bound.
	MaxAttempts int `mapstructure:"max_attempts"`
}

// ShopConfig holds shop prices in gems.
type ShopConfig struct {
	KeyPrice    int `mapstructure:"key_price"`
	StepsPrice  int `mapstructure:"steps_price"`
	StepsAmount int `mapstructure:"steps_amount"`
}

// Config is the top-level application configuration.
type Config struct {
	Telnet   TelnetConfig   `mapstructure:"telnet"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Game     GameConfig     `mapstructure:"game"`
	Draft    DraftConfig    `mapstructure:"draft"`
	Shop     ShopConfig     `mapstructure:"shop"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateTelnet(c.Telnet); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Database.Enabled {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := c.Game.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := c.Draft.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateShop(c.Shop); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateTelnet(t TelnetConfig) error {
	var errs []string
	if t.Port < 0 || t.Port > 65535 {
		errs = append(errs, fmt.Sprintf("telnet.port must be 0-65535, got %d", t.Port))
	}
	if t.ReadTimeout < 0 {
		errs = append(errs, "telnet.read_timeout must not be negative")
	}
	if t.WriteTimeout < 0 {
		errs = append(errs, "telnet.write_timeout must not be negative")
	}
	if t.IdleTimeout < 0 || t.IdleGracePeriod < 0 {
		errs = append(errs, "telnet.idle_timeout and telnet.idle_grace_period must not be negative")
	}
	if t.ShutdownGrace < 0 {
		errs = append(errs, "telnet.shutdown_grace must not be negative")
	}
	if t.MaxSessions < 0 {
		errs = append(errs, fmt.Sprintf("telnet.max_sessions must be >= 0, got %d", t.MaxSessions))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	if l.File != "" && l.MaxSizeMB < 1 {
		return fmt.Errorf("logging.max_size_mb must be >= 1 when logging.file is set, got %d", l.MaxSizeMB)
	}
	return nil
}

// Validate checks that the spawn and exit lie on the grid and the economy is non-negative.
//
// Postcondition: Returns nil if valid, or an error describing all violations.
func (g GameConfig) Validate() error {
	var errs []string
	if g.Rows < 1 || g.Cols < 1 {
		errs = append(errs, fmt.Sprintf("game.rows and game.cols must be >= 1, got %dx%d", g.Rows, g.Cols))
	}
	inGrid := func(r, c int) bool { return r >= 0 && r < g.Rows && c >= 0 && c < g.Cols }
	if !inGrid(g.StartRow, g.StartCol) {
		errs = append(errs, fmt.Sprintf("game start (%d,%d) is outside the grid", g.StartRow, g.StartCol))
	}
	if !inGrid(g.ExitRow, g.ExitCol) {
		errs = append(errs, fmt.Sprintf("game exit (%d,%d) is outside the grid", g.ExitRow, g.ExitCol))
	}
	if g.StartRow == g.ExitRow && g.StartCol == g.ExitCol {
		errs = append(errs, "game start and exit must differ")
	}
	if g.StartSteps < 0 || g.StartKeys < 0 || g.StartGems < 0 {
		errs = append(errs, "game starting resources must not be negative")
	}
	if g.RefreshCost < 0 {
		errs = append(errs, fmt.Sprintf("game.refresh_cost must be >= 0, got %d", g.RefreshCost))
	}
	if g.ScriptInstructionLimit < 0 {
		errs = append(errs, "game.script_instruction_limit must not be negative")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Validate checks that every probability lies in [0,1] and the retry cap is non-negative.
func (d DraftConfig) Validate() error {
	var errs []string
	for name, p := range map[string]float64{
		"draft.hallway_chance": d.HallwayChance,
		"draft.connect_chance": d.ConnectChance,
		"draft.key_chance":     d.KeyChance,
	} {
		if p < 0 || p > 1 {
			errs = append(errs, fmt.Sprintf("%s must be in [0,1], got %v", name, p))
		}
	}
	if d.MaxAttempts < 0 {
		errs = append(errs, fmt.Sprintf("draft.max_attempts must be >= 0, got %d", d.MaxAttempts))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateShop(s ShopConfig) error {
	if s.KeyPrice < 0 || s.StepsPrice < 0 || s.StepsAmount < 0 {
		return errors.New("shop prices and amounts must not be negative")
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with HEXDRAFT_ prefix
	v.SetEnvPrefix("HEXDRAFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the reference configuration without reading any file.
//
// Postcondition: Returns a Config that passes Validate.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := LoadFromViper(v)
	if err != nil {
		panic(fmt.Sprintf("config: built-in defaults are invalid: %v", err))
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("telnet.host", "0.0.0.0")
	v.SetDefault("telnet.port", 4000)
	v.SetDefault("telnet.read_timeout", "10m")
	v.SetDefault("telnet.write_timeout", "30s")
	v.SetDefault("telnet.max_sessions", 64)
	v.SetDefault("telnet.idle_timeout", "5m")
	v.SetDefault("telnet.idle_grace_period", "1m")
	v.SetDefault("telnet.shutdown_grace", "2s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 14)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "hexdraft")
	v.SetDefault("database.password", "hexdraft")
	v.SetDefault("database.name", "hexdraft")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("game.rows", 5)
	v.SetDefault("game.cols", 13)
	v.SetDefault("game.start_row", 2)
	v.SetDefault("game.start_col", 0)
	v.SetDefault("game.exit_row", 2)
	v.SetDefault("game.exit_col", 9)
	v.SetDefault("game.start_steps", 40)
	v.SetDefault("game.start_keys", 1)
	v.SetDefault("game.start_gems", 0)
	v.SetDefault("game.refresh_cost", 2)
	v.SetDefault("game.blocked_start_directions", []string{"south_west", "north_west"})
	v.SetDefault("game.debug_commands", false)

	v.SetDefault("draft.hallway_chance", 0.4)
	v.SetDefault("draft.connect_chance", 0.4)
	v.SetDefault("draft.key_chance", 0.5)
	v.SetDefault("draft.max_attempts", 1000)

	v.SetDefault("shop.key_price", 3)
	v.SetDefault("shop.steps_price", 2)
	v.SetDefault("shop.steps_amount", 5)
}
