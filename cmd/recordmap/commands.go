// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/MultiTechSystems/recordmap/data"
	"github.com/MultiTechSystems/recordmap/dump"
	"github.com/MultiTechSystems/recordmap/internal/config"
	"github.com/MultiTechSystems/recordmap/internal/input"
	"github.com/MultiTechSystems/recordmap/registry"
	"github.com/MultiTechSystems/recordmap/schema"
)

func runSchema(a *app, args []string) error {
	var g globals
	var mapPath string
	fs := pflag.NewFlagSet("schema", pflag.ContinueOnError)
	fs.StringVar(&mapPath, "map", "", "map description (.yaml, .json, .jsonc, .toml or .rmb)")
	g.addFlags(fs)
	if done, err := parse(a, fs, &g, args); done || err != nil {
		return err
	}
	if mapPath == "" {
		return fmt.Errorf("%w: --map is required", errUsage)
	}

	m, err := schema.LoadMap(mapPath)
	if err != nil {
		return err
	}
	if m.Name != "" {
		fmt.Fprintf(a.stdout, "%s v%d\n", m.Name, m.Version)
	}
	if m.Description != "" {
		fmt.Fprintf(a.stdout, "%s\n", m.Description)
	}
	if m.Name != "" || m.Description != "" {
		fmt.Fprintln(a.stdout)
	}
	return dump.WriteSchema(a.stdout, m.File)
}

func runCompile(a *app, args []string) error {
	var g globals
	var mapPath, outPath string
	fs := pflag.NewFlagSet("compile", pflag.ContinueOnError)
	fs.StringVar(&mapPath, "map", "", "map description (.yaml, .json, .jsonc or .toml)")
	fs.StringVarP(&outPath, "out", "o", "", "output file for the binary map (default stdout)")
	g.addFlags(fs)
	if done, err := parse(a, fs, &g, args); done || err != nil {
		return err
	}
	if mapPath == "" {
		return fmt.Errorf("%w: --map is required", errUsage)
	}

	m, err := schema.LoadMap(mapPath)
	if err != nil {
		return err
	}
	enc, err := schema.EncodeBinary(m)
	if err != nil {
		return fmt.Errorf("%s: %w", mapPath, err)
	}
	if outPath == "" {
		_, err = a.stdout.Write(enc)
		return err
	}
	if err := os.WriteFile(outPath, enc, 0o644); err != nil {
		return err
	}
	a.log.Info().Str("map", mapPath).Str("out", outPath).Int("bytes", len(enc)).Msg("map compiled")
	return nil
}

// decoder loads a map into a registry and decodes inputs with it.
type decoder struct {
	reg     *registry.Registry
	metrics *prometheus.Registry
	name    string
	opts    []data.Option
}

func (a *app) newDecoder(mapPath, location string) (*decoder, error) {
	if mapPath == "" {
		return nil, fmt.Errorf("%w: --map is required", errUsage)
	}
	desc, err := os.ReadFile(mapPath)
	if err != nil {
		return nil, err
	}
	if location != "" {
		a.cfg.Decode.Location = location
	}
	loc, err := a.cfg.TimeLocation()
	if err != nil {
		return nil, err
	}

	promReg := prometheus.NewRegistry()
	d := &decoder{
		reg:     registry.New(a.log, registry.WithMetrics(registry.NewMetrics(promReg))),
		metrics: promReg,
		name:    filepath.Base(mapPath),
		opts: []data.Option{
			data.WithLogger(a.log),
			data.WithLocation(loc),
			data.WithMaxElements(a.cfg.Decode.MaxElements),
		},
	}
	if _, err := d.reg.Register(d.name, desc, schema.FormatForPath(mapPath)); err != nil {
		return nil, fmt.Errorf("%s: %w", mapPath, err)
	}
	return d, nil
}

func (d *decoder) decode(a *app, path string) (*data.Node, error) {
	buf, err := input.Read(path, a.stdin)
	if err != nil {
		return nil, err
	}
	n, err := d.reg.Decode(d.name, buf, d.opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	a.log.Debug().Str("input", path).Int("bytes", len(buf)).Msg("decoded input")
	return n, nil
}

func runDecode(a *app, args []string) error {
	var g globals
	var mapPath, format, location, metricsPath string
	var bytesPerLine int
	fs := pflag.NewFlagSet("decode", pflag.ContinueOnError)
	fs.StringVar(&mapPath, "map", "", "map description (.yaml, .json, .jsonc, .toml or .rmb)")
	fs.StringVarP(&format, "format", "f", "", "output format: dump, string, json, yaml or cbor (default from config)")
	fs.IntVar(&bytesPerLine, "bytes-per-line", 0, "row width of the hex section of the dump (default from config)")
	fs.StringVar(&location, "location", "", "time zone for Date and DateTime fields (default from config)")
	fs.StringVar(&metricsPath, "metrics", "", "write decode metrics to this file in Prometheus text format")
	g.addFlags(fs)
	if done, err := parse(a, fs, &g, args); done || err != nil {
		return err
	}

	inputs := fs.Args()
	if len(inputs) == 0 {
		return fmt.Errorf("%w: no input given (use - for stdin)", errUsage)
	}
	if format != "" {
		a.cfg.Decode.Format = format
	}
	if !config.ValidFormat(a.cfg.Decode.Format) {
		return fmt.Errorf("%w: unknown format %q", errUsage, a.cfg.Decode.Format)
	}
	if bytesPerLine > 0 {
		a.cfg.Dump.BytesPerLine = bytesPerLine
	}

	d, err := a.newDecoder(mapPath, location)
	if err != nil {
		return err
	}
	for i, path := range inputs {
		n, err := d.decode(a, path)
		if err != nil {
			return err
		}
		if len(inputs) > 1 && a.cfg.Decode.Format != "cbor" {
			if i > 0 {
				fmt.Fprintln(a.stdout)
			}
			fmt.Fprintf(a.stdout, "==> %s <==\n", path)
		}
		if err := a.write(n); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	if metricsPath != "" {
		return prometheus.WriteToTextfile(metricsPath, d.metrics)
	}
	return nil
}

// write prints n in the configured format.
func (a *app) write(n *data.Node) error {
	switch a.cfg.Decode.Format {
	case "string":
		_, err := fmt.Fprintln(a.stdout, n.String())
		return err
	case "json":
		out, err := json.MarshalIndent(n, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(a.stdout, "%s\n", out)
		return err
	case "yaml":
		enc := yaml.NewEncoder(a.stdout)
		enc.SetIndent(2)
		if err := enc.Encode(n); err != nil {
			return err
		}
		return enc.Close()
	case "cbor":
		out, err := n.MarshalCBOR()
		if err != nil {
			return err
		}
		_, err = a.stdout.Write(out)
		return err
	}
	return dump.WriteData(a.stdout, n, a.cfg.Dump.BytesPerLine)
}

func runLookup(a *app, args []string) error {
	var g globals
	var mapPath, path, location string
	fs := pflag.NewFlagSet("lookup", pflag.ContinueOnError)
	fs.StringVar(&mapPath, "map", "", "map description (.yaml, .json, .jsonc, .toml or .rmb)")
	fs.StringVarP(&path, "path", "p", "", "path of the node to print, for example header.tracks[2].code")
	fs.StringVar(&location, "location", "", "time zone for Date and DateTime fields (default from config)")
	g.addFlags(fs)
	if done, err := parse(a, fs, &g, args); done || err != nil {
		return err
	}
	if path == "" {
		return fmt.Errorf("%w: --path is required", errUsage)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: lookup takes exactly one input", errUsage)
	}

	d, err := a.newDecoder(mapPath, location)
	if err != nil {
		return err
	}
	root, err := d.decode(a, fs.Arg(0))
	if err != nil {
		return err
	}
	n := root.Item(path)
	if n == nil {
		return fmt.Errorf("path %q not found", path)
	}
	_, err = fmt.Fprintln(a.stdout, n.String())
	return err
}
