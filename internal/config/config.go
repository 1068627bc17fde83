// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

// Package config loads the recordmap CLI settings from TOML and the
// environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
)

// Environment overrides, applied after the file.
const (
	EnvLogLevel = "RECORDMAP_LOG_LEVEL"
	EnvNoColor  = "RECORDMAP_LOG_NOCOLOR"
	EnvLocation = "RECORDMAP_LOCATION"
	EnvFormat   = "RECORDMAP_FORMAT"
)

// Output formats accepted by Decode.Format.
var Formats = []string{"dump", "string", "json", "yaml", "cbor"}

type Config struct {
	Log    LogConfig
	Dump   DumpConfig
	Decode DecodeConfig
}

type LogConfig struct {
	Level   string
	NoColor bool
}

type DumpConfig struct {
	BytesPerLine int
}

type DecodeConfig struct {
	// Location is an IANA zone name for Date and DateTime values.
	Location    string
	Format      string
	MaxElements int
}

type fileConfig struct {
	Log struct {
		Level   string `toml:"level"`
		NoColor bool   `toml:"no_color"`
	} `toml:"log"`
	Dump struct {
		BytesPerLine int `toml:"bytes_per_line"`
	} `toml:"dump"`
	Decode struct {
		Location    string `toml:"location"`
		Format      string `toml:"format"`
		MaxElements int    `toml:"max_elements"`
	} `toml:"decode"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Log:    LogConfig{Level: "info"},
		Dump:   DumpConfig{BytesPerLine: 16},
		Decode: DecodeConfig{Location: "UTC", Format: "dump", MaxElements: 1 << 20},
	}
}

// Load reads path over the defaults, then applies the environment. An
// empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("log", "level") {
		c.Log.Level = strings.TrimSpace(raw.Log.Level)
	}
	if meta.IsDefined("log", "no_color") {
		c.Log.NoColor = raw.Log.NoColor
	}
	if meta.IsDefined("dump", "bytes_per_line") {
		c.Dump.BytesPerLine = raw.Dump.BytesPerLine
	}
	if meta.IsDefined("decode", "location") {
		c.Decode.Location = strings.TrimSpace(raw.Decode.Location)
	}
	if meta.IsDefined("decode", "format") {
		c.Decode.Format = strings.ToLower(strings.TrimSpace(raw.Decode.Format))
	}
	if meta.IsDefined("decode", "max_elements") {
		c.Decode.MaxElements = raw.Decode.MaxElements
	}
	return nil
}

// ApplyEnv overrides settings from lookup, which is os.LookupEnv outside
// tests.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvLogLevel); ok && strings.TrimSpace(v) != "" {
		c.Log.Level = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvNoColor); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			c.Log.NoColor = b
		} else {
			c.Log.NoColor = v != ""
		}
	}
	if v, ok := lookup(EnvLocation); ok && strings.TrimSpace(v) != "" {
		c.Decode.Location = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvFormat); ok && strings.TrimSpace(v) != "" {
		c.Decode.Format = strings.ToLower(strings.TrimSpace(v))
	}
}

// Validate checks every setting that can be wrong.
func (c Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	if c.Dump.BytesPerLine < 1 {
		return fmt.Errorf("config: dump.bytes_per_line must be positive, got %d", c.Dump.BytesPerLine)
	}
	if _, err := c.TimeLocation(); err != nil {
		return err
	}
	if !ValidFormat(c.Decode.Format) {
		return fmt.Errorf("config: decode.format %q is not one of %s", c.Decode.Format, strings.Join(Formats, ", "))
	}
	if c.Decode.MaxElements < 1 {
		return fmt.Errorf("config: decode.max_elements must be positive, got %d", c.Decode.MaxElements)
	}
	return nil
}

// TimeLocation resolves Decode.Location.
func (c Config) TimeLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Decode.Location)
	if err != nil {
		return nil, fmt.Errorf("config: decode.location: %w", err)
	}
	return loc, nil
}

// ValidFormat reports whether format is one of Formats.
func ValidFormat(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}
