// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the board wiring and timing of a panel.
type Config struct {
	Pins   PinConfig    `yaml:"pins"`
	Timing TimingConfig `yaml:"timing"`
	Panel  PanelConfig  `yaml:"panel"`
}

// PinConfig names the host pins, as known to gpioreg.
type PinConfig struct {
	Data    []string `yaml:"data"`
	DC      string   `yaml:"dc"`
	WR      string   `yaml:"wr"`
	CfgData string   `yaml:"cfg_data"`
	CfgClk  string   `yaml:"cfg_clk"`
	CfgStr  string   `yaml:"cfg_str"`
	Pulse   string   `yaml:"pulse"`
}

// TimingConfig holds the clock rates the panel timings are expressed in.
type TimingConfig struct {
	CPUMHz         int64 `yaml:"cpu_mhz"`
	PulseSourceMHz int64 `yaml:"pulse_source_mhz"`
	ClockDivider   uint8 `yaml:"clock_divider"`
}

// PanelConfig is the scan geometry.
type PanelConfig struct {
	Rows       int    `yaml:"rows"`
	RowBytes   int    `yaml:"row_bytes"`
	OutputTime uint16 `yaml:"output_time"`
}

// defaultConfig is the LilyGo T5 4.7" wiring on an ESP32-S3.
func defaultConfig() *Config {
	return &Config{
		Pins: PinConfig{
			Data:    []string{"GPIO6", "GPIO7", "GPIO4", "GPIO5", "GPIO2", "GPIO3", "GPIO8", "GPIO1"},
			DC:      "GPIO40",
			WR:      "GPIO41",
			CfgData: "GPIO13",
			CfgClk:  "GPIO12",
			CfgStr:  "GPIO0",
			Pulse:   "GPIO38",
		},
		Timing: TimingConfig{
			CPUMHz:         240,
			PulseSourceMHz: 80,
			ClockDivider:   8,
		},
		Panel: PanelConfig{
			Rows:       540,
			RowBytes:   240,
			OutputTime: 300,
		},
	}
}

// loadConfig reads path over the defaults.
func loadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}
	return parseConfig(raw)
}

func parseConfig(raw []byte) (*Config, error) {
	cfg := defaultConfig()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("could not decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	if n := len(cfg.Pins.Data); n != 8 {
		return fmt.Errorf("pins.data: need 8 pins, got %d", n)
	}
	for _, p := range []struct{ key, name string }{
		{"pins.dc", cfg.Pins.DC},
		{"pins.wr", cfg.Pins.WR},
		{"pins.cfg_data", cfg.Pins.CfgData},
		{"pins.cfg_clk", cfg.Pins.CfgClk},
		{"pins.cfg_str", cfg.Pins.CfgStr},
		{"pins.pulse", cfg.Pins.Pulse},
	} {
		if p.name == "" {
			return fmt.Errorf("%s: missing pin name", p.key)
		}
	}
	if cfg.Timing.CPUMHz <= 0 || cfg.Timing.PulseSourceMHz <= 0 {
		return errors.New("timing: clock rates must be positive")
	}
	if cfg.Timing.ClockDivider == 0 {
		return errors.New("timing.clock_divider: must be at least 1")
	}
	if cfg.Panel.Rows <= 0 || cfg.Panel.RowBytes <= 0 {
		return errors.New("panel: rows and row_bytes must be positive")
	}
	return nil
}
