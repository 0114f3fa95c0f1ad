package state

import (
	"context"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/metrics"
	"github.com/ardanlabs/powledger/foundation/blockchain/network"
)

// ProcessMessage handles a message received from the relay. Every failure
// is a local recovery path: the offending payload is dropped and logged.
func (s *State) ProcessMessage(ctx context.Context, msg network.Message) {
	s.evHandler("state: ProcessMessage: started: %s", msg)
	defer s.evHandler("state: ProcessMessage: completed: %s", msg.Type)

	switch msg.Type {
	case network.TypeMempoolUpdate:
		s.MergeMempool(msg.Transactions, metrics.SourceNetwork)

	case network.TypeNewTransaction:
		s.UpsertTransaction(*msg.Transaction, metrics.SourceNetwork)

	case network.TypeNewBlock:
		if err := s.ProcessProposedBlock(*msg.Block); err != nil {
			s.evHandler("state: ProcessMessage: block[%d]: rejected: %s", msg.Block.Index, err)
		}

	case network.TypeRequestBlockchainShare:
		if msg.TargetNodeID == "" {
			s.evHandler("state: ProcessMessage: share request without target")
			return
		}
		s.NetShareChain(msg.TargetNodeID)

	case network.TypeBlockchainSync, network.TypeBlockchainShare:
		if err := s.SyncChain(msg.Blockchain); err != nil {
			s.evHandler("state: ProcessMessage: sync: ignored: %s", err)
		}

	default:
		s.evHandler("state: ProcessMessage: unknown message type %q", msg.Type)
	}
}

// NetSendBlock announces a newly mined block to the network.
func (s *State) NetSendBlock(block database.Block) error {
	s.evHandler("state: NetSendBlock: started: blk[%d]", block.Index)
	defer s.evHandler("state: NetSendBlock: completed")

	return s.sender.Send(network.NewBlock(block))
}

// NetShareChain sends the full local chain to the network for the
// specified target node.
func (s *State) NetShareChain(targetNodeID string) {
	s.evHandler("state: NetShareChain: started: target[%s]", targetNodeID)
	defer s.evHandler("state: NetShareChain: completed")

	if err := s.sender.Send(network.NewBlockchainShare(targetNodeID, s.db.Chain())); err != nil {
		s.evHandler("state: NetShareChain: WARNING: %s", err)
	}
}

// NetRequestChainShare asks the relay to have another node share its chain
// with this node.
func (s *State) NetRequestChainShare() {
	s.evHandler("state: NetRequestChainShare: requesting chain share")

	if err := s.sender.Send(network.NewResyncRequest()); err != nil {
		s.evHandler("state: NetRequestChainShare: WARNING: %s", err)
	}
}
