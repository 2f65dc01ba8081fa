// Package config loads the yaml topology file for the demo binary.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// NodeSpec declares one node. Peers lists explicit bidirectional links;
// when no node in the file lists peers, the cluster is a full mesh.
type NodeSpec struct {
	Name  string   `yaml:"name"`
	Peers []string `yaml:"peers,omitempty"`
}

// Config is the parsed topology file.
type Config struct {
	Cluster struct {
		// Seed makes election timing reproducible; 0 means time-seeded.
		Seed int64 `yaml:"seed,omitempty"`
		// Timing overrides, in milliseconds. Zero values keep defaults.
		HeartbeatIntervalMS int        `yaml:"heartbeat_interval_ms,omitempty"`
		ReceiveTimeoutMinMS int        `yaml:"receive_timeout_min_ms,omitempty"`
		ReceiveTimeoutMaxMS int        `yaml:"receive_timeout_max_ms,omitempty"`
		Nodes               []NodeSpec `yaml:"nodes"`
	} `yaml:"cluster"`
}

// Load reads and validates a topology file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("could not parse config file: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Cluster.Nodes) == 0 {
		return fmt.Errorf("config declares no nodes")
	}
	names := make(map[string]bool, len(c.Cluster.Nodes))
	for _, n := range c.Cluster.Nodes {
		if n.Name == "" {
			return fmt.Errorf("node with empty name")
		}
		if names[n.Name] {
			return fmt.Errorf("duplicate node name %q", n.Name)
		}
		names[n.Name] = true
	}
	for _, n := range c.Cluster.Nodes {
		for _, p := range n.Peers {
			if !names[p] {
				return fmt.Errorf("node %q lists unknown peer %q", n.Name, p)
			}
			if p == n.Name {
				return fmt.Errorf("node %q lists itself as a peer", n.Name)
			}
		}
	}
	if min, max := c.Cluster.ReceiveTimeoutMinMS, c.Cluster.ReceiveTimeoutMaxMS; min > 0 && max > 0 && max <= min {
		return fmt.Errorf("receive_timeout_max_ms must be greater than receive_timeout_min_ms")
	}
	return nil
}

// HeartbeatInterval returns the configured interval, or 0 if unset.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Cluster.HeartbeatIntervalMS) * time.Millisecond
}

// ReceiveTimeoutMin returns the configured minimum window, or 0 if unset.
func (c *Config) ReceiveTimeoutMin() time.Duration {
	return time.Duration(c.Cluster.ReceiveTimeoutMinMS) * time.Millisecond
}

// ReceiveTimeoutMax returns the configured maximum window, or 0 if unset.
func (c *Config) ReceiveTimeoutMax() time.Duration {
	return time.Duration(c.Cluster.ReceiveTimeoutMaxMS) * time.Millisecond
}
