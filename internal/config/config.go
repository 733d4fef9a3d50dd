// Package config provides Viper-based configuration loading for stylewatch.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cory-johannsen/stylewatch/internal/game/rotation"
)

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// EngineConfig holds the rotation constants and scheduling of the inference engine.
type EngineConfig struct {
	// RotationLength is the number of actions between forced style changes.
	RotationLength int `mapstructure:"rotation_length"`
	// ActionInterval is the number of ticks between two hostile actions.
	ActionInterval int `mapstructure:"action_interval"`
	// MaxAttackRange bounds movement-based disambiguation, in tiles.
	MaxAttackRange int `mapstructure:"max_attack_range"`
	// FlinchGraceTicks is how many ticks past a due action a hit can still flinch.
	FlinchGraceTicks int `mapstructure:"flinch_grace_ticks"`
	// TickInterval is the wall-clock duration of one tick.
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// Parallel runs the per-hostile stage of each tick concurrently.
	Parallel bool `mapstructure:"parallel"`
}

// ProjectileConfig describes the flight time of one projectile style.
type ProjectileConfig struct {
	BaseDelay int `mapstructure:"base_delay"`
	Speed     int `mapstructure:"speed"`
}

// ProjectilesConfig holds the ranged and magic flight settings.
type ProjectilesConfig struct {
	Ranged ProjectileConfig `mapstructure:"ranged"`
	Magic  ProjectileConfig `mapstructure:"magic"`
}

// FeedConfig holds the prediction websocket feed settings.
type FeedConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	// Path is the HTTP path upgraded to a websocket.
	Path string `mapstructure:"path"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (f FeedConfig) Addr() string {
	return fmt.Sprintf("%s:%d", f.Host, f.Port)
}

// ProfileConfig selects the hostile profile. An empty Path uses the built-in profile.
type ProfileConfig struct {
	Path string `mapstructure:"path"`
}

// ArenaConfig selects the terrain used for line-of-sight checks. An empty Path treats
// every tile as open.
type ArenaConfig struct {
	Path string `mapstructure:"path"`
}

// ReplayConfig selects a recorded session to drive the engine.
type ReplayConfig struct {
	Path string `mapstructure:"path"`
	// Unthrottled replays ticks back to back instead of at TickInterval.
	Unthrottled bool `mapstructure:"unthrottled"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging     LoggingConfig     `mapstructure:"logging"`
	Engine      EngineConfig      `mapstructure:"engine"`
	Projectiles ProjectilesConfig `mapstructure:"projectiles"`
	Feed        FeedConfig        `mapstructure:"feed"`
	Profile     ProfileConfig     `mapstructure:"profile"`
	Arena       ArenaConfig       `mapstructure:"arena"`
	Replay      ReplayConfig      `mapstructure:"replay"`
}

// Rules converts the engine and projectile settings into rotation constants.
//
// Postcondition: Returns rotation.Rules carrying every configured value.
func (c Config) Rules() rotation.Rules {
	return rotation.Rules{
		RotationLength:   c.Engine.RotationLength,
		ActionInterval:   c.Engine.ActionInterval,
		MaxAttackRange:   c.Engine.MaxAttackRange,
		FlinchGraceTicks: c.Engine.FlinchGraceTicks,
		Ranged:           rotation.ProjectileTiming{BaseDelay: c.Projectiles.Ranged.BaseDelay, Speed: c.Projectiles.Ranged.Speed},
		Magic:            rotation.ProjectileTiming{BaseDelay: c.Projectiles.Magic.BaseDelay, Speed: c.Projectiles.Magic.Speed},
	}
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateEngine(c.Engine); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateProjectiles(c.Projectiles); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateFeed(c.Feed); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
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
	return nil
}

func validateEngine(e EngineConfig) error {
	var errs []string
	if e.RotationLength < 1 {
		errs = append(errs, fmt.Sprintf("engine.rotation_length must be >= 1, got %d", e.RotationLength))
	}
	if e.ActionInterval < 1 {
		errs = append(errs, fmt.Sprintf("engine.action_interval must be >= 1, got %d", e.ActionInterval))
	}
	if e.MaxAttackRange < 1 {
		errs = append(errs, fmt.Sprintf("engine.max_attack_range must be >= 1, got %d", e.MaxAttackRange))
	}
	if e.FlinchGraceTicks < 0 {
		errs = append(errs, fmt.Sprintf("engine.flinch_grace_ticks must be >= 0, got %d", e.FlinchGraceTicks))
	}
	if e.TickInterval <= 0 {
		errs = append(errs, "engine.tick_interval must be positive")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateProjectiles(p ProjectilesConfig) error {
	var errs []string
	for _, named := range []struct {
		name string
		pc   ProjectileConfig
	}{{"ranged", p.Ranged}, {"magic", p.Magic}} {
		name, pc := named.name, named.pc
		if pc.BaseDelay < 0 {
			errs = append(errs, fmt.Sprintf("projectiles.%s.base_delay must be >= 0, got %d", name, pc.BaseDelay))
		}
		if pc.Speed < 1 {
			errs = append(errs, fmt.Sprintf("projectiles.%s.speed must be >= 1, got %d", name, pc.Speed))
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateFeed(f FeedConfig) error {
	if !f.Enabled {
		return nil
	}
	var errs []string
	if f.Host == "" {
		errs = append(errs, "feed.host must not be empty")
	}
	if f.Port < 1 || f.Port > 65535 {
		errs = append(errs, fmt.Sprintf("feed.port must be 1-65535, got %d", f.Port))
	}
	if !strings.HasPrefix(f.Path, "/") {
		errs = append(errs, fmt.Sprintf("feed.path must start with '/', got %q", f.Path))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path uses defaults and environment only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()

	// Environment variable overrides with STYLEWATCH_ prefix
	v.SetEnvPrefix("STYLEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
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

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	rules := rotation.DefaultRules()
	v.SetDefault("engine.rotation_length", rules.RotationLength)
	v.SetDefault("engine.action_interval", rules.ActionInterval)
	v.SetDefault("engine.max_attack_range", rules.MaxAttackRange)
	v.SetDefault("engine.flinch_grace_ticks", rules.FlinchGraceTicks)
	v.SetDefault("engine.tick_interval", "600ms")
	v.SetDefault("engine.parallel", false)

	v.SetDefault("projectiles.ranged.base_delay", rules.Ranged.BaseDelay)
	v.SetDefault("projectiles.ranged.speed", rules.Ranged.Speed)
	v.SetDefault("projectiles.magic.base_delay", rules.Magic.BaseDelay)
	v.SetDefault("projectiles.magic.speed", rules.Magic.Speed)

	v.SetDefault("feed.enabled", true)
	v.SetDefault("feed.host", "127.0.0.1")
	v.SetDefault("feed.port", 8787)
	v.SetDefault("feed.path", "/ws")

	v.SetDefault("profile.path", "")
	v.SetDefault("arena.path", "")
	v.SetDefault("replay.path", "")
	v.SetDefault("replay.unthrottled", false)
}
