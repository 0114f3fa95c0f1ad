// Package peer maintains the peer related information such as the set
// of nodes connected to the relay and their status.
package peer

import (
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
)

// Peer represents information about a Node in the network.
type Peer struct {
	ID   string `json:"id"`
	Host string `json:"host"`
}

// New contructs a new peer value with a fresh identity.
func New(host string) Peer {
	return Peer{
		ID:   uuid.NewString(),
		Host: host,
	}
}

// Match validates if the specified id matches this node.
func (p Peer) Match(id string) bool {
	return p.ID == id
}

// =============================================================================

// PeerStatus represents information about the status
// of any given node.
type PeerStatus struct {
	LatestBlockHash  string `json:"latest_block_hash"`
	LatestBlockIndex uint64 `json:"latest_block_index"`
	ChainLength      int    `json:"chain_length"`
	MempoolCount     int    `json:"mempool_count"`
	MinerState       string `json:"miner_state"`
	RelayConnected   bool   `json:"relay_connected"`
}

// =============================================================================

// PeerSet represents the data representation to maintain a set of known peers.
type PeerSet struct {
	mu  sync.RWMutex
	set map[string]Peer
}

// NewPeerSet constructs a new info set to manage node peer information.
func NewPeerSet() *PeerSet {
	return &PeerSet{
		set: make(map[string]Peer),
	}
}

// Add adds a new node to the set.
func (ps *PeerSet) Add(peer Peer) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	_, exists := ps.set[peer.ID]
	if !exists {
		ps.set[peer.ID] = peer
		return true
	}

	return false
}

// Remove removes a node from the set.
func (ps *PeerSet) Remove(peer Peer) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	delete(ps.set, peer.ID)
}

// Len returns the number of known peers.
func (ps *PeerSet) Len() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	return len(ps.set)
}

// Copy returns a list of the known peers excluding the specified id.
func (ps *PeerSet) Copy(id string) []Peer {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	var peers []Peer
	for _, peer := range ps.set {
		if !peer.Match(id) {
			peers = append(peers, peer)
		}
	}

	return peers
}

// Random returns a random known peer other than the specified id. The
// boolean is false when there is no other peer.
func (ps *PeerSet) Random(id string) (Peer, bool) {
	peers := ps.Copy(id)
	if len(peers) == 0 {
		return Peer{}, false
	}

	return peers[rand.IntN(len(peers))], true
}
