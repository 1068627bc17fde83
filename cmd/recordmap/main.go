// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

// recordmap decodes binary records with a map description and prints the
// decoded tree.
//
//	recordmap schema --map tracks.yaml
//	recordmap decode --map tracks.yaml --format json capture.bin
//	recordmap lookup --map tracks.yaml --path tracks[1].code capture.bin.zst
//	recordmap compile --map tracks.yaml --out tracks.rmb
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/MultiTechSystems/recordmap/internal/config"
	"github.com/MultiTechSystems/recordmap/internal/logging"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// errUsage marks errors that should be followed by the usage text.
var errUsage = errors.New("usage")

type command struct {
	name    string
	summary string
	run     func(a *app, args []string) error
}

var commands = []command{
	{"schema", "print the node table of a map", runSchema},
	{"decode", "decode input buffers and print them", runDecode},
	{"lookup", "print the value at one path", runLookup},
	{"compile", "write a map in the compact binary format", runCompile},
}

// app carries what every command needs once global flags are read.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	cfg config.Config
	log zerolog.Logger
}

// globals are accepted by every command.
type globals struct {
	configPath string
	logLevel   string
}

func (g *globals) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&g.configPath, "config", "", "TOML configuration file")
	fs.StringVar(&g.logLevel, "log-level", "", "log level (overrides config and "+config.EnvLogLevel+")")
}

// setup loads configuration and builds the logger after flags are parsed.
func (g *globals) setup(a *app) error {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	log, err := logging.New(a.stderr, cfg.Log)
	if err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	a.cfg = cfg
	a.log = log
	return nil
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr, log: zerolog.Nop()}
	if len(args) == 0 {
		printUsage(stderr)
		return fmt.Errorf("%w: no command given", errUsage)
	}
	switch args[0] {
	case "-h", "--help", "help":
		printUsage(stdout)
		return nil
	}
	for _, c := range commands {
		if c.name == args[0] {
			return c.run(a, args[1:])
		}
	}
	printUsage(stderr)
	return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
}

// parse parses a command's flags. It returns done when help was printed.
func parse(a *app, fs *pflag.FlagSet, g *globals, args []string) (done bool, err error) {
	fs.SetOutput(a.stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return true, nil
		}
		return false, fmt.Errorf("%w: %v", errUsage, err)
	}
	return false, g.setup(a)
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage:\n  recordmap <command> [flags]\n\nCommands:\n")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-8s %s\n", c.name, c.summary)
	}
	fmt.Fprintf(w, "\nRun \"recordmap <command> --help\" for the flags of a command.\n")
}
