// Package network provides the messages exchanged between the miner nodes
// and the relay and a websocket client for the node side of the link.
package network

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
)

// Set of message types that can be sent over the relay.
const (
	TypeMempoolUpdate          = "MEMPOOL_UPDATE"
	TypeNewTransaction         = "NEW_TRANSACTION"
	TypeNewBlock               = "NEW_BLOCK"
	TypeRequestBlockchainShare = "REQUEST_BLOCKCHAIN_SHARE"
	TypeBlockchainShare        = "BLOCKCHAIN_SHARE"
	TypeBlockchainSync         = "BLOCKCHAIN_SYNC"
)

// ShareLimit is the maximum number of transactions the relay sends a new
// node in a mempool update.
const ShareLimit = 100

// Message is the envelope for every message exchanged with the relay. Only
// the fields that belong to the type are set.
type Message struct {
	Type         string           `json:"type"`
	Transactions []database.Tx    `json:"transactions,omitempty"`
	Transaction  *database.Tx     `json:"transaction,omitempty"`
	Block        *database.Block  `json:"block,omitempty"`
	TargetNodeID string           `json:"targetNodeId,omitempty"`
	Blockchain   []database.Block `json:"blockchain,omitempty"`
}

// NewMempoolUpdate constructs a message carrying a set of transactions.
func NewMempoolUpdate(trans []database.Tx) Message {
	return Message{Type: TypeMempoolUpdate, Transactions: trans}
}

// NewTransaction constructs a message carrying a single transaction.
func NewTransaction(tx database.Tx) Message {
	return Message{Type: TypeNewTransaction, Transaction: &tx}
}

// NewBlock constructs a message announcing a newly mined block.
func NewBlock(block database.Block) Message {
	return Message{Type: TypeNewBlock, Block: &block}
}

// NewRequestBlockchainShare constructs a message asking a node to share its
// chain with the target node.
func NewRequestBlockchainShare(targetNodeID string) Message {
	return Message{Type: TypeRequestBlockchainShare, TargetNodeID: targetNodeID}
}

// NewResyncRequest constructs the message a node sends when it learns its
// chain is behind. The relay fills in the sender as the target before
// asking another node to share.
func NewResyncRequest() Message {
	return Message{Type: TypeRequestBlockchainShare}
}

// NewBlockchainShare constructs a message carrying a full chain meant for
// the target node.
func NewBlockchainShare(targetNodeID string, chain []database.Block) Message {
	return Message{Type: TypeBlockchainShare, TargetNodeID: targetNodeID, Blockchain: chain}
}

// NewBlockchainSync constructs a message carrying a full chain a node should
// consider adopting.
func NewBlockchainSync(chain []database.Block) Message {
	return Message{Type: TypeBlockchainSync, Blockchain: chain}
}

// Validate checks the message carries the payload its type requires.
func (m Message) Validate() error {
	switch m.Type {
	// A share request without a target is a resync request, the relay
	// fills in the sender.
	case TypeMempoolUpdate, TypeBlockchainSync, TypeRequestBlockchainShare:
		return nil

	case TypeNewTransaction:
		if m.Transaction == nil {
			return errors.New("transaction missing")
		}

	case TypeNewBlock:
		if m.Block == nil {
			return errors.New("block missing")
		}

	case TypeBlockchainShare:
		if m.TargetNodeID == "" {
			return errors.New("target node id missing")
		}

	default:
		return fmt.Errorf("unknown message type %q", m.Type)
	}

	return nil
}

// String implements the fmt.Stringer interface for logging.
func (m Message) String() string {
	switch m.Type {
	case TypeMempoolUpdate:
		return fmt.Sprintf("%s[%d]", m.Type, len(m.Transactions))
	case TypeNewTransaction:
		if m.Transaction != nil {
			return fmt.Sprintf("%s[%s]", m.Type, m.Transaction.Hash)
		}
	case TypeNewBlock:
		if m.Block != nil {
			return fmt.Sprintf("%s[%d:%s]", m.Type, m.Block.Index, m.Block.Hash)
		}
	case TypeRequestBlockchainShare:
		return fmt.Sprintf("%s[%s]", m.Type, m.TargetNodeID)
	case TypeBlockchainShare:
		return fmt.Sprintf("%s[%s:%d]", m.Type, m.TargetNodeID, len(m.Blockchain))
	case TypeBlockchainSync:
		return fmt.Sprintf("%s[%d]", m.Type, len(m.Blockchain))
	}

	return m.Type
}
