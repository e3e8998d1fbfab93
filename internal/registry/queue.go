package registry

import (
	errorsmod "cosmossdk.io/errors"

	"YieldVault/internal/types"
)

// DefaultQueueCapacity bounds each withdrawal queue unless configured otherwise.
const DefaultQueueCapacity = 30

// WithdrawalQueue is a fixed-capacity ordered list of vault ids. The slot
// order is the liquidation priority. A zero id marks a hole.
type WithdrawalQueue struct {
	slots []types.VaultID
}

func NewWithdrawalQueue(capacity int) *WithdrawalQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &WithdrawalQueue{slots: make([]types.VaultID, capacity)}
}

// Capacity returns the number of slots.
func (q *WithdrawalQueue) Capacity() int {
	return len(q.slots)
}

// Append places id into the first empty slot.
func (q *WithdrawalQueue) Append(id types.VaultID) error {
	if id == 0 {
		return types.ErrZeroVaultID
	}
	if q.Contains(id) {
		return errorsmod.Wrapf(types.ErrAlreadyListed, "%s already queued", id)
	}
	for i, slot := range q.slots {
		if slot == 0 {
			q.slots[i] = id
			return nil
		}
	}
	return errorsmod.Wrapf(types.ErrQueueFull, "capacity %d", len(q.slots))
}

// Remove clears id and compacts the queue. Returns false if id was not queued.
func (q *WithdrawalQueue) Remove(id types.VaultID) bool {
	for i, slot := range q.slots {
		if slot == id && id != 0 {
			q.slots[i] = 0
			q.Compact()
			return true
		}
	}
	return false
}

// Compact shifts every id left by the number of holes seen before it.
// One pass, relative order of survivors preserved.
func (q *WithdrawalQueue) Compact() {
	offset := 0
	for i, slot := range q.slots {
		if slot == 0 {
			offset++
			continue
		}
		if offset > 0 {
			q.slots[i-offset] = slot
			q.slots[i] = 0
		}
	}
}

// Contains reports whether id occupies a slot.
func (q *WithdrawalQueue) Contains(id types.VaultID) bool {
	if id == 0 {
		return false
	}
	for _, slot := range q.slots {
		if slot == id {
			return true
		}
	}
	return false
}

// IDs returns the queued ids in priority order, skipping holes.
func (q *WithdrawalQueue) IDs() []types.VaultID {
	ids := make([]types.VaultID, 0, len(q.slots))
	for _, slot := range q.slots {
		if slot != 0 {
			ids = append(ids, slot)
		}
	}
	return ids
}

// Len returns the number of queued ids.
func (q *WithdrawalQueue) Len() int {
	n := 0
	for _, slot := range q.slots {
		if slot != 0 {
			n++
		}
	}
	return n
}

// Slots exposes the raw slot layout, holes included.
func (q *WithdrawalQueue) Slots() []types.VaultID {
	out := make([]types.VaultID, len(q.slots))
	copy(out, q.slots)
	return out
}

// Reorder replaces the order with ids, which must be a permutation of the
// currently queued ids.
func (q *WithdrawalQueue) Reorder(ids []types.VaultID) error {
	current := q.IDs()
	if len(ids) != len(current) {
		return errorsmod.Wrapf(types.ErrInvalidQueue, "got %d ids, queue holds %d", len(ids), len(current))
	}

	seen := make(map[types.VaultID]bool, len(ids))
	for _, id := range ids {
		if seen[id] || !q.Contains(id) {
			return errorsmod.Wrapf(types.ErrInvalidQueue, "id %s duplicated or not queued", id)
		}
		seen[id] = true
	}

	for i := range q.slots {
		q.slots[i] = 0
	}
	copy(q.slots, ids)
	return nil
}
