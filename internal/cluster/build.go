package cluster

import (
	"clustersim/internal/config"
	"clustersim/internal/node"
)

// FromConfig builds the cluster a topology file describes. When no node
// lists explicit peers the cluster is a full mesh; otherwise only the
// listed links are made (links are always bidirectional).
func FromConfig(cfg *config.Config, logger node.Logger) (*Cluster, error) {
	ncfg := node.Config{
		HeartbeatInterval: cfg.HeartbeatInterval(),
		ReceiveTimeoutMin: cfg.ReceiveTimeoutMin(),
		ReceiveTimeoutMax: cfg.ReceiveTimeoutMax(),
	}

	c := New()
	explicit := false
	for i, spec := range cfg.Cluster.Nodes {
		n := ncfg
		n.Rand = nodeRand(cfg.Cluster.Seed, i)
		if err := c.Add(node.New(spec.Name, n, logger)); err != nil {
			return nil, err
		}
		if len(spec.Peers) > 0 {
			explicit = true
		}
	}

	if !explicit {
		c.ConnectAll()
		return c, nil
	}
	for _, spec := range cfg.Cluster.Nodes {
		for _, p := range spec.Peers {
			if err := c.Connect(spec.Name, p); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}
