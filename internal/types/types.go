package types

import "fmt"

// NodeID identifies a node in the cluster.
type NodeID string

// Role is the consensus role of a node.
type Role int

const (
	RoleFollower Role = iota
	RoleLeader
)

func (r Role) String() string {
	switch r {
	case RoleFollower:
		return "follower"
	case RoleLeader:
		return "leader"
	default:
		return "unknown"
	}
}

// Status is the lifecycle state of a node. Stopped and failed are terminal.
type Status int

const (
	StatusAlive Status = iota
	StatusStopped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusAlive:
		return "alive"
	case StatusStopped:
		return "stopped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MessageKind identifies the protocol message type.
type MessageKind int

const (
	KindHeartbeat MessageKind = iota
	KindProposeState
	KindLogState
	KindElectionRequest
	KindElectionVote
	KindSetLeader
	// KindTimeout is synthetic: produced locally by a timed receive,
	// never sent by a peer.
	KindTimeout
)

func (k MessageKind) String() string {
	switch k {
	case KindHeartbeat:
		return "heartbeat"
	case KindProposeState:
		return "propose_state"
	case KindLogState:
		return "log_state"
	case KindElectionRequest:
		return "leader_election_request"
	case KindElectionVote:
		return "leader_election_vote"
	case KindSetLeader:
		return "set_leader"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Peer is the messaging surface one node exposes to another. Nodes hold
// each other as peers so delivery is always an enqueue into the target's
// mailbox, never a direct poke at foreign state.
type Peer interface {
	ID() NodeID
	Name() string
	// Send enqueues a message into this peer's mailbox. It never blocks.
	Send(sender Peer, kind MessageKind, content string)
	// Forget drops the given peer from this peer's neighbor set and
	// clears its leader reference if it pointed at that peer.
	Forget(p Peer)
}

// Message is a single inbound message as seen by a node's mailbox.
type Message struct {
	Sender  Peer
	Kind    MessageKind
	Content string
}

func (m Message) String() string {
	sender := "?"
	if m.Sender != nil {
		sender = m.Sender.Name()
	}
	if m.Content == "" {
		return fmt.Sprintf("%s from %s", m.Kind, sender)
	}
	return fmt.Sprintf("%s from %s: %s", m.Kind, sender, m.Content)
}

// NodeStatus is a point-in-time snapshot of a node, for observability.
type NodeStatus struct {
	ID        NodeID   `json:"id"`
	Name      string   `json:"name"`
	Role      string   `json:"role"`
	Status    string   `json:"status"`
	Leader    string   `json:"leader,omitempty"`
	Neighbors []string `json:"neighbors"`
	Log       []string `json:"log"`
	InboxLog  []string `json:"inbox_log"`
}
