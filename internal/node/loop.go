package node

import (
	"errors"
	"time"

	"clustersim/internal/mailbox"
	"clustersim/internal/types"
)

// randomReceiveTimeout draws the window the message loop waits before a
// timeout fires. Only the message loop touches n.rand.
func (n *Node) randomReceiveTimeout() time.Duration {
	delta := n.cfg.ReceiveTimeoutMax - n.cfg.ReceiveTimeoutMin
	return n.cfg.ReceiveTimeoutMin + time.Duration(n.rand.Int63n(int64(delta)))
}

// messageLoop runs the state machine until the node is stopped or failed.
// A receive timeout is not an error: it is the failure-detection signal
// that triggers an election on a non-leader.
func (n *Node) messageLoop() {
	defer n.wg.Done()

	for n.alive() {
		msg, err := n.inbox.Receive(n.randomReceiveTimeout())
		if err != nil {
			if !errors.Is(err, mailbox.ErrClosed) {
				n.logger.Printf("receive failed, leaving message loop: %v", err)
			}
			return
		}
		if !n.alive() {
			return
		}
		n.dispatch(msg)
	}
}

func (n *Node) dispatch(msg types.Message) {
	if msg.Kind != types.KindHeartbeat && msg.Kind != types.KindTimeout {
		n.mu.Lock()
		n.inboxLog = append(n.inboxLog, msg)
		n.mu.Unlock()
	}

	switch msg.Kind {
	case types.KindHeartbeat:
		n.handleHeartbeat(msg)
	case types.KindProposeState:
		n.handlePropose(msg)
	case types.KindLogState:
		n.handleLogState(msg)
	case types.KindElectionRequest:
		n.handleElectionRequest(msg)
	case types.KindElectionVote:
		n.handleElectionVote(msg)
	case types.KindSetLeader:
		n.handleSetLeader(msg)
	case types.KindTimeout:
		n.handleTimeout()
	default:
		n.logger.Printf("ignoring message of unknown kind %d from %s", msg.Kind, msg.Sender.Name())
	}
}

// handleHeartbeat only checks the sender against the recognized leader.
// A heartbeat carries no state; its liveness value is that receiving any
// message restarts the next receive-timeout race.
func (n *Node) handleHeartbeat(msg types.Message) {
	n.mu.Lock()
	stale := n.leader == nil || n.leader.ID() != msg.Sender.ID()
	n.mu.Unlock()
	if stale {
		n.logger.Printf("stale heartbeat from %s, who is not the recognized leader", msg.Sender.Name())
	}
}

// handlePropose commits on the leader and forwards on a follower. A
// follower without a leader drops the proposal with a warning; it is not
// retried or queued.
func (n *Node) handlePropose(msg types.Message) {
	n.mu.Lock()
	if n.role == types.RoleLeader {
		n.mu.Unlock()
		n.commit(msg.Content)
		return
	}
	leader := n.leader
	n.mu.Unlock()

	if leader == nil {
		n.logger.Printf("dropping proposal %q: no known leader", msg.Content)
		return
	}
	leader.Send(n, types.KindProposeState, msg.Content)
}

// commit appends a value to the leader's log and pushes it to every
// neighbor. Calling it on a non-leader is a contract violation.
func (n *Node) commit(value string) {
	n.mu.Lock()
	if n.role != types.RoleLeader {
		n.mu.Unlock()
		panic("node: commit called on a non-leader")
	}
	n.log = append(n.log, value)
	peers := n.peersLocked()
	n.mu.Unlock()

	for _, p := range peers {
		p.Send(n, types.KindLogState, value)
	}
}

func (n *Node) handleLogState(msg types.Message) {
	n.mu.Lock()
	n.log = append(n.log, msg.Content)
	n.mu.Unlock()
}

// handleElectionRequest votes unconditionally for whoever solicited the
// vote. No eligibility check, no term: the naive protocol is kept as is.
// The vote names the requester as candidate so the requester's tally can
// count it.
func (n *Node) handleElectionRequest(msg types.Message) {
	msg.Sender.Send(n, types.KindElectionVote, string(msg.Sender.ID()))
}

// handleElectionVote records one vote and tallies once a vote per current
// neighbor has arrived. The candidate wins on a strict majority of its
// neighbor count; win or lose, the working vote set is cleared.
func (n *Node) handleElectionVote(msg types.Message) {
	n.mu.Lock()
	n.votes[msg.Sender.ID()] = types.NodeID(msg.Content)
	if len(n.votes) < len(n.neighbors) {
		n.mu.Unlock()
		return
	}

	forMe := 0
	for _, candidate := range n.votes {
		if candidate == n.id {
			forMe++
		}
	}
	won := forMe > len(n.neighbors)/2
	n.votes = make(map[types.NodeID]types.NodeID)

	if !won {
		n.mu.Unlock()
		return
	}

	n.role = types.RoleLeader
	n.leader = n
	peers := n.peersLocked()
	n.mu.Unlock()

	n.logger.Printf("won election with %d votes, becoming leader", forMe)
	for _, p := range peers {
		p.Send(n, types.KindSetLeader, "")
	}
}

// handleSetLeader adopts the sender as leader unconditionally, overwriting
// any prior leader reference. This is also the only demotion path for a
// sitting leader.
func (n *Node) handleSetLeader(msg types.Message) {
	n.mu.Lock()
	n.role = types.RoleFollower
	n.leader = msg.Sender
	n.mu.Unlock()
}

func (n *Node) handleTimeout() {
	if n.Role() == types.RoleLeader {
		return
	}
	n.startElection()
}

// startElection broadcasts a vote request to every neighbor. Starting an
// election while leader is a contract violation.
func (n *Node) startElection() {
	n.mu.Lock()
	if n.role == types.RoleLeader {
		n.mu.Unlock()
		panic("node: election started while leader")
	}
	peers := n.peersLocked()
	n.mu.Unlock()

	n.logger.Printf("receive timed out, starting election among %d neighbors", len(peers))
	for _, p := range peers {
		p.Send(n, types.KindElectionRequest, "")
	}
}

// heartbeatLoop broadcasts the leader's liveness signal at a fixed period
// until the node is stopped or failed. Followers run the loop too; it
// just never sends.
func (n *Node) heartbeatLoop() {
	defer n.wg.Done()

	ticker := time.NewTicker(n.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-n.done:
			return
		case <-ticker.C:
			if !n.alive() {
				return
			}
			n.mu.Lock()
			isLeader := n.role == types.RoleLeader
			peers := n.peersLocked()
			n.mu.Unlock()

			if !isLeader {
				continue
			}
			for _, p := range peers {
				p.Send(n, types.KindHeartbeat, "")
			}
		}
	}
}

// peersLocked snapshots the neighbor set. Callers must hold n.mu.
func (n *Node) peersLocked() []types.Peer {
	peers := make([]types.Peer, 0, len(n.neighbors))
	for _, p := range n.neighbors {
		peers = append(peers, p)
	}
	return peers
}
