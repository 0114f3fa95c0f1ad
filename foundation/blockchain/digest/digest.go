// Package digest provides helper functions for hashing blockchain values.
package digest

import (
	"crypto/sha256"
	"encoding/json"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ZeroHash represents a hash code of zeros. It is used as the previous hash
// and the hash of the genesis block.
const ZeroHash string = "0x0000000000000000000000000000000000000000000000000000000000000000"

// hashLength is the number of hex digits in a hash, not counting the prefix.
const hashLength = 64

// =============================================================================

// Hash returns a unique string for the value. The value is serialized with
// encoding/json, which orders struct fields by declaration, so the same
// value always produces the same hash.
func Hash(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return ZeroHash
	}

	return HashBytes(data)
}

// HashBytes returns the 0x prefixed hex encoding of the sha256 of data.
func HashBytes(data []byte) string {
	hash := sha256.Sum256(data)
	return hexutil.Encode(hash[:])
}

// IsHashSolved checks the hash to make sure it complies with the POW rules.
// The first difficulty hex digits after the 0x prefix must be 0.
func IsHashSolved(difficulty uint16, hash string) bool {
	digits, ok := strings.CutPrefix(hash, "0x")
	if !ok || len(digits) != hashLength {
		return false
	}

	if int(difficulty) > hashLength {
		return false
	}

	for i := range int(difficulty) {
		if digits[i] != '0' {
			return false
		}
	}

	return true
}
