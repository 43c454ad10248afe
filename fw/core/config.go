/* YaNFD - Yet another NDN Forwarding Daemon
 *
 * Copyright (C) 2020-2021 Eric Newberry.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package core

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// RouterRole is the configuration-time (not per-record) role of this
// router in the DDoS mitigation topology.
type RouterRole string

const (
	RoleNormal          RouterRole = "normal"
	RoleConsumerGateway RouterRole = "consumer_gateway"
	RoleProducerGateway RouterRole = "producer_gateway"
)

// Valid reports whether r is one of the known router roles.
func (r RouterRole) Valid() bool {
	switch r {
	case RoleNormal, RoleConsumerGateway, RoleProducerGateway:
		return true
	}
	return false
}

// DdosConfig holds the configuration options recognised by the DDoS
// strategy (spec section 6).
type DdosConfig struct {
	// TickInterval is the revert/drain period T. Default 100ms.
	TickInterval time.Duration `yaml:"tick_interval"`

	// DefaultRevertTicks is the initial value of each revert counter.
	DefaultRevertTicks float64 `yaml:"default_revert_ticks"`

	// RouterRole is required: it controls buffering and HINT_CHANGE
	// handling.
	RouterRole RouterRole `yaml:"router_role"`

	// MaxBufferPerFace caps the number of buffered Interests retained per
	// face; 0 means unbounded. Excess Interests are dropped tail-first.
	MaxBufferPerFace int `yaml:"max_buffer_per_face"`
}

// DefaultDdosConfig returns the spec's documented defaults. RouterRole is
// left empty since it has no default and must be set explicitly.
func DefaultDdosConfig() DdosConfig {
	return DdosConfig{
		TickInterval:       100 * time.Millisecond,
		DefaultRevertTicks: 3.0,
		MaxBufferPerFace:   0,
	}
}

// Config is the top-level forwarder configuration. Only the Ddos section
// is consumed by this repository; it exists on the top-level struct so
// that a single YAML document can configure the whole forwarder, matching
// how the daemon's other strategies and subsystems are configured.
type Config struct {
	Ddos DdosConfig `yaml:"ddos_strategy"`
}

// DefaultConfig returns a Config with every section defaulted.
func DefaultConfig() *Config {
	return &Config{Ddos: DefaultDdosConfig()}
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if !cfg.Ddos.RouterRole.Valid() {
		return nil, fmt.Errorf("router_role is required and must be one of: %s, %s, %s",
			RoleNormal, RoleConsumerGateway, RoleProducerGateway)
	}
	if cfg.Ddos.TickInterval <= 0 {
		return nil, fmt.Errorf("tick_interval must be positive")
	}

	return cfg, nil
}
