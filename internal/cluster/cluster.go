// Package cluster wires node actors into a topology and drives their
// lifecycle. It is the single surface the HTTP layer and the demo binary
// talk to.
package cluster

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"clustersim/internal/node"
	"clustersim/internal/types"
)

var (
	ErrUnknownNode   = errors.New("unknown node")
	ErrNoLeader      = errors.New("no leader elected")
	ErrDuplicateName = errors.New("duplicate node name")
)

// Cluster is a set of nodes addressed by name.
type Cluster struct {
	mu    sync.Mutex
	nodes map[string]*node.Node
	order []string
}

// New returns an empty cluster.
func New() *Cluster {
	return &Cluster{nodes: make(map[string]*node.Node)}
}

// FullMesh builds a cluster of bidirectionally connected nodes. Each node
// gets its own randomness source derived from seed, so elections are
// reproducible for a fixed seed; seed 0 means time-seeded.
func FullMesh(names []string, cfg node.Config, seed int64, logger node.Logger) (*Cluster, error) {
	c := New()
	for i, name := range names {
		ncfg := cfg
		ncfg.Rand = nodeRand(seed, i)
		if err := c.Add(node.New(name, ncfg, logger)); err != nil {
			return nil, err
		}
	}
	c.ConnectAll()
	return c, nil
}

func nodeRand(seed int64, i int) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewSource(time.Now().UnixNano() + int64(i)))
	}
	return rand.New(rand.NewSource(seed + int64(i)))
}

// Add registers a node under its name.
func (c *Cluster) Add(n *node.Node) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.nodes[n.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateName, n.Name())
	}
	c.nodes[n.Name()] = n
	c.order = append(c.order, n.Name())
	return nil
}

// Connect links two nodes as mutual neighbors.
func (c *Cluster) Connect(a, b string) error {
	na, err := c.Node(a)
	if err != nil {
		return err
	}
	nb, err := c.Node(b)
	if err != nil {
		return err
	}
	na.AddNeighbor(nb)
	nb.AddNeighbor(na)
	return nil
}

// ConnectAll links every pair of nodes.
func (c *Cluster) ConnectAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range c.order {
		for _, b := range c.order {
			if a != b {
				c.nodes[a].AddNeighbor(c.nodes[b])
			}
		}
	}
}

// Node looks a node up by name.
func (c *Cluster) Node(name string) (*node.Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.nodes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, name)
	}
	return n, nil
}

// Names returns the node names in registration order.
func (c *Cluster) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Start starts every node.
func (c *Cluster) Start() {
	for _, n := range c.all() {
		n.Start()
	}
}

// Stop stops every node.
func (c *Cluster) Stop() {
	for _, n := range c.all() {
		n.Stop()
	}
}

// Join blocks until every node's loops have terminated.
func (c *Cluster) Join() {
	for _, n := range c.all() {
		n.Join()
	}
}

// StopNode gracefully stops one node.
func (c *Cluster) StopNode(name string) error {
	n, err := c.Node(name)
	if err != nil {
		return err
	}
	n.Stop()
	return nil
}

// Fail crashes one node.
func (c *Cluster) Fail(name string) error {
	n, err := c.Node(name)
	if err != nil {
		return err
	}
	n.Fail()
	return nil
}

// Propose injects a state proposal at the named node.
func (c *Cluster) Propose(name, value string) error {
	n, err := c.Node(name)
	if err != nil {
		return err
	}
	n.ProposeState(value)
	return nil
}

// Statuses snapshots every node in registration order.
func (c *Cluster) Statuses() []types.NodeStatus {
	nodes := c.all()
	out := make([]types.NodeStatus, len(nodes))
	for i, n := range nodes {
		out[i] = n.Info()
	}
	return out
}

// Leader returns the cluster's leader if there is exactly one alive node
// with the leader role and every other alive node recognizes it.
func (c *Cluster) Leader() (*node.Node, error) {
	var leader *node.Node
	alive := c.aliveNodes()
	for _, n := range alive {
		if n.Role() == types.RoleLeader {
			if leader != nil {
				return nil, fmt.Errorf("multiple leaders: %s and %s", leader.Name(), n.Name())
			}
			leader = n
		}
	}
	if leader == nil {
		return nil, ErrNoLeader
	}
	for _, n := range alive {
		l := n.Leader()
		if l == nil || l.ID() != leader.ID() {
			return nil, fmt.Errorf("%s does not recognize leader %s", n.Name(), leader.Name())
		}
	}
	return leader, nil
}

// WaitForLeader polls until Leader succeeds or the deadline passes.
// Elections are timing-dependent, so callers should budget several
// receive-timeout windows.
func (c *Cluster) WaitForLeader(timeout time.Duration) (*node.Node, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		leader, err := c.Leader()
		if err == nil {
			return leader, nil
		}
		lastErr = err
		time.Sleep(10 * time.Millisecond)
	}
	return nil, fmt.Errorf("no stable leader within %s: %w", timeout, lastErr)
}

func (c *Cluster) all() []*node.Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*node.Node, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.nodes[name])
	}
	return out
}

func (c *Cluster) aliveNodes() []*node.Node {
	var out []*node.Node
	for _, n := range c.all() {
		if n.Status() == types.StatusAlive {
			out = append(out, n)
		}
	}
	return out
}
