// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// DefaultTransPerBlock is used when the genesis file doesn't provide a value.
const DefaultTransPerBlock = 10

// Allocation represents an amount of coin given to an address before the
// first block is mined.
type Allocation struct {
	Address string `json:"address"`
	Amount  uint64 `json:"amount"`
}

// Genesis represents the genesis file.
type Genesis struct {
	Date          time.Time    `json:"date"`
	ChainID       uint16       `json:"chain_id"`        // The chain id represents an unique id for this running instance.
	TransPerBlock uint16       `json:"trans_per_block"` // The maximum number of transactions that can be in a block.
	Difficulty    uint16       `json:"difficulty"`      // How difficult it needs to be to solve the work problem.
	Allocations   []Allocation `json:"allocations"`     // Unspent outputs that exist before the first block.
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("decoding genesis: %w", err)
	}

	return genesis.withDefaults(), nil
}

// New constructs a genesis value from code. This is used by tests and by
// nodes started without a genesis file.
func New(difficulty uint16, allocations ...Allocation) Genesis {
	g := Genesis{
		Date:        time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		ChainID:     1,
		Difficulty:  difficulty,
		Allocations: allocations,
	}

	return g.withDefaults()
}

// withDefaults fills in any zero values with the package defaults.
func (g Genesis) withDefaults() Genesis {
	if g.TransPerBlock == 0 {
		g.TransPerBlock = DefaultTransPerBlock
	}

	return g
}
