// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

// Package logging builds the zerolog loggers used by the CLI and tests.
package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/MultiTechSystems/recordmap/internal/config"
)

// New returns a console logger writing to out at the configured level.
func New(out io.Writer, cfg config.LogConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), err
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	console := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    cfg.NoColor,
	}
	return zerolog.New(console).Level(level).With().Timestamp().Str("app", "recordmap").Logger(), nil
}

// TB is the part of testing.TB that ForTest needs.
type TB interface {
	Helper()
	Log(args ...any)
}

// ForTest returns a debug logger that writes through t.Log, without
// timestamps or color.
func ForTest(t TB) zerolog.Logger {
	console := zerolog.ConsoleWriter{
		Out:     testWriter{t},
		NoColor: true,
		PartsExclude: []string{
			zerolog.TimestampFieldName,
		},
	}
	return zerolog.New(console).Level(zerolog.DebugLevel)
}

type testWriter struct {
	t TB
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}
