package core

import (
	"crypto/sha256"
	"encoding/binary"

	"YieldVault/internal/event"
)

const GenesisHashSeed = "YieldVault:genesis:v1"

// StateHasher chains a hash over every emitted event.
type StateHasher struct {
	prevHash [32]byte
}

// NewStateHasher initializes with genesis hash
func NewStateHasher() *StateHasher {
	return &StateHasher{
		prevHash: sha256.Sum256([]byte(GenesisHashSeed)),
	}
}

// ComputeHash returns SHA-256(prev_hash || sequence || event_type || digest)
// and advances the chain tip.
func (h *StateHasher) ComputeHash(sequence int64, eventType event.EventType, stateDigest []byte) [32]byte {
	hasher := sha256.New()
	hasher.Write(h.prevHash[:])

	var buf [12]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(sequence))
	binary.LittleEndian.PutUint32(buf[8:], uint32(eventType))
	hasher.Write(buf[:])

	hasher.Write(stateDigest)

	var hash [32]byte
	copy(hash[:], hasher.Sum(nil))
	h.prevHash = hash
	return hash
}

// GetPrevHash returns current chain tip
func (h *StateHasher) GetPrevHash() [32]byte {
	return h.prevHash
}

// Resume continues the chain from a restored tip.
func (h *StateHasher) Resume(tip [32]byte) {
	h.prevHash = tip
}
