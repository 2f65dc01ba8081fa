// Package node implements the per-node actor of the simulated cluster: a
// message-processing state machine and an independent heartbeat loop,
// which together drive heartbeat-based failure detection,
// randomized-timeout elections and leader-routed state replication.
package node

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"clustersim/internal/mailbox"
	"clustersim/internal/types"
)

// Config holds the timing parameters of a node.
type Config struct {
	// HeartbeatInterval is the fixed period of the leader's heartbeat
	// broadcast.
	HeartbeatInterval time.Duration
	// ReceiveTimeoutMin/Max bound the randomized window the message loop
	// waits for a message before triggering an election. The jitter
	// avoids synchronized election storms across the cluster.
	ReceiveTimeoutMin time.Duration
	ReceiveTimeoutMax time.Duration
	// Rand is the randomness source for timeout jitter. Inject a seeded
	// source for reproducible elections in tests. Must not be shared
	// across nodes.
	Rand *rand.Rand
}

// DefaultConfig returns the standard simulation timing.
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: 50 * time.Millisecond,
		ReceiveTimeoutMin: 150 * time.Millisecond,
		ReceiveTimeoutMax: 300 * time.Millisecond,
	}
}

var nextID atomic.Uint64

// Node is one actor in the simulated cluster. All of its mutable state is
// guarded by mu; cross-node interaction happens only through the Peer
// surface (mailbox enqueue and Forget), never by direct field access.
type Node struct {
	id     types.NodeID
	name   string
	cfg    Config
	logger Logger
	inbox  *mailbox.Mailbox
	rand   *rand.Rand

	mu        sync.Mutex
	role      types.Role
	status    types.Status
	leader    types.Peer
	neighbors map[types.NodeID]types.Peer
	log       []string
	inboxLog  []types.Message
	votes     map[types.NodeID]types.NodeID

	started bool
	done    chan struct{}
	closing sync.Once
	wg      sync.WaitGroup
}

// New creates a node that is alive, a follower, leaderless, with an empty
// log and no neighbors. A nil logger gets a stderr logger prefixed with
// the node name.
func New(name string, cfg Config, logger Logger) *Node {
	def := DefaultConfig()
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = def.HeartbeatInterval
	}
	if cfg.ReceiveTimeoutMin <= 0 {
		cfg.ReceiveTimeoutMin = def.ReceiveTimeoutMin
	}
	if cfg.ReceiveTimeoutMax <= cfg.ReceiveTimeoutMin {
		cfg.ReceiveTimeoutMax = cfg.ReceiveTimeoutMin * 2
	}
	r := cfg.Rand
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = defaultLogger(name)
	}

	n := &Node{
		id:        types.NodeID(fmt.Sprintf("node-%d", nextID.Add(1))),
		name:      name,
		cfg:       cfg,
		logger:    logger,
		rand:      r,
		role:      types.RoleFollower,
		status:    types.StatusAlive,
		neighbors: make(map[types.NodeID]types.Peer),
		votes:     make(map[types.NodeID]types.NodeID),
		done:      make(chan struct{}),
	}
	n.inbox = mailbox.New(n)
	return n
}

// ID implements types.Peer.
func (n *Node) ID() types.NodeID { return n.id }

// Name implements types.Peer.
func (n *Node) Name() string { return n.name }

// Send implements types.Peer: it enqueues a message into this node's
// mailbox. It never blocks the caller.
func (n *Node) Send(sender types.Peer, kind types.MessageKind, content string) {
	n.inbox.Send(sender, kind, content)
}

// Forget implements types.Peer: a failing peer calls it to remove itself
// from this node's neighbor set and leader reference.
func (n *Node) Forget(p types.Peer) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.neighbors, p.ID())
	if n.leader != nil && n.leader.ID() == p.ID() {
		n.leader = nil
	}
}

// AddNeighbor attaches a peer this node can broadcast to. Symmetry is the
// caller's responsibility.
func (n *Node) AddNeighbor(p types.Peer) {
	if p.ID() == n.id {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.neighbors[p.ID()] = p
}

// RemoveNeighbor detaches a peer.
func (n *Node) RemoveNeighbor(p types.Peer) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.neighbors, p.ID())
}

// Start spawns the message loop and the heartbeat loop. Starting a node
// that is not alive, or starting twice, is a no-op.
func (n *Node) Start() {
	n.mu.Lock()
	if n.started || n.status != types.StatusAlive {
		n.mu.Unlock()
		return
	}
	n.started = true
	n.mu.Unlock()

	n.wg.Add(2)
	go n.messageLoop()
	go n.heartbeatLoop()
}

// Stop requests graceful termination. It is idempotent and does not
// override a failed status.
func (n *Node) Stop() {
	n.terminate(types.StatusStopped)
}

// Fail simulates a crash: the node removes itself from every neighbor's
// neighbor set (clearing their leader reference if it pointed here),
// empties its own neighbor set and becomes failed. Messages already in
// its mailbox are neither drained nor rejected.
func (n *Node) Fail() {
	n.mu.Lock()
	peers := make([]types.Peer, 0, len(n.neighbors))
	for _, p := range n.neighbors {
		peers = append(peers, p)
	}
	n.neighbors = make(map[types.NodeID]types.Peer)
	n.mu.Unlock()

	n.terminate(types.StatusFailed)

	for _, p := range peers {
		p.Forget(n)
	}
}

func (n *Node) terminate(status types.Status) {
	n.mu.Lock()
	if n.status == types.StatusAlive {
		n.status = status
	}
	n.mu.Unlock()
	n.closing.Do(func() {
		close(n.done)
		n.inbox.Close()
	})
}

// ProposeState injects a state-change request as if it came from an
// anonymous external client: the node sends itself a propose_state
// message.
func (n *Node) ProposeState(value string) {
	n.Send(n, types.KindProposeState, value)
}

// Join blocks until both loops have terminated.
func (n *Node) Join() {
	n.wg.Wait()
}

// Role reports the node's consensus role.
func (n *Node) Role() types.Role {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.role
}

// Status reports the node's lifecycle status.
func (n *Node) Status() types.Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.status
}

// Leader returns the currently recognized leader, or nil.
func (n *Node) Leader() types.Peer {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.leader
}

// Log returns a copy of the committed state values in commit order.
func (n *Node) Log() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.log))
	copy(out, n.log)
	return out
}

// InboxLog returns a copy of the non-housekeeping messages this node has
// processed, in receipt order.
func (n *Node) InboxLog() []types.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]types.Message, len(n.inboxLog))
	copy(out, n.inboxLog)
	return out
}

// Neighbors returns the names of the current neighbors, sorted.
func (n *Node) Neighbors() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.neighbors))
	for _, p := range n.neighbors {
		out = append(out, p.Name())
	}
	sort.Strings(out)
	return out
}

// Info returns a snapshot of the node for observability.
func (n *Node) Info() types.NodeStatus {
	n.mu.Lock()
	defer n.mu.Unlock()

	info := types.NodeStatus{
		ID:        n.id,
		Name:      n.name,
		Role:      n.role.String(),
		Status:    n.status.String(),
		Neighbors: make([]string, 0, len(n.neighbors)),
		Log:       make([]string, len(n.log)),
		InboxLog:  make([]string, len(n.inboxLog)),
	}
	if n.leader != nil {
		info.Leader = n.leader.Name()
	}
	for _, p := range n.neighbors {
		info.Neighbors = append(info.Neighbors, p.Name())
	}
	sort.Strings(info.Neighbors)
	copy(info.Log, n.log)
	for i, msg := range n.inboxLog {
		info.InboxLog[i] = msg.String()
	}
	return info
}

func (n *Node) alive() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.status == types.StatusAlive
}
