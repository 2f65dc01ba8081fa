package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cluster.yml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
cluster:
  seed: 42
  heartbeat_interval_ms: 25
  receive_timeout_min_ms: 100
  receive_timeout_max_ms: 200
  nodes:
    - name: a
      peers: [b]
    - name: b
    - name: c
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Cluster.Seed != 42 {
		t.Fatalf("expected seed 42, got %d", cfg.Cluster.Seed)
	}
	if got := cfg.HeartbeatInterval(); got != 25*time.Millisecond {
		t.Fatalf("expected 25ms heartbeat interval, got %s", got)
	}
	if got := cfg.ReceiveTimeoutMin(); got != 100*time.Millisecond {
		t.Fatalf("expected 100ms min timeout, got %s", got)
	}
	if got := cfg.ReceiveTimeoutMax(); got != 200*time.Millisecond {
		t.Fatalf("expected 200ms max timeout, got %s", got)
	}
	if len(cfg.Cluster.Nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(cfg.Cluster.Nodes))
	}
	if cfg.Cluster.Nodes[0].Peers[0] != "b" {
		t.Fatalf("expected node a to list peer b, got %v", cfg.Cluster.Nodes[0].Peers)
	}
}

func TestLoad_MinimalConfigKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
cluster:
  nodes:
    - name: a
    - name: b
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HeartbeatInterval() != 0 || cfg.ReceiveTimeoutMin() != 0 || cfg.ReceiveTimeoutMax() != 0 {
		t.Fatal("unset timing must stay zero so node defaults apply")
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"no nodes", "cluster:\n  nodes: []\n", "no nodes"},
		{"empty name", "cluster:\n  nodes:\n    - name: \"\"\n", "empty name"},
		{"duplicate name", "cluster:\n  nodes:\n    - name: a\n    - name: a\n", "duplicate"},
		{"unknown peer", "cluster:\n  nodes:\n    - name: a\n      peers: [ghost]\n", "unknown peer"},
		{"self peer", "cluster:\n  nodes:\n    - name: a\n      peers: [a]\n", "itself"},
		{"bad window", "cluster:\n  receive_timeout_min_ms: 200\n  receive_timeout_max_ms: 100\n  nodes:\n    - name: a\n", "greater"},
		{"bad yaml", "cluster: [not a map\n", "parse"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.body)
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Fatal("expected an error")
	}
}
