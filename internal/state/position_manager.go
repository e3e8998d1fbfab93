package state

import (
	"bytes"
	"sort"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
)

// PositionManager owns every controller's PositionAccount.
type PositionManager struct {
	positions map[common.Address]*PositionAccount
}

func NewPositionManager() *PositionManager {
	return &PositionManager{
		positions: make(map[common.Address]*PositionAccount),
	}
}

// GetPosition returns the existing position or nil.
func (pm *PositionManager) GetPosition(controller common.Address) *PositionAccount {
	return pm.positions[controller]
}

// GetOrCreatePosition returns the existing position or registers an empty one.
func (pm *PositionManager) GetOrCreatePosition(controller common.Address) *PositionAccount {
	pos := pm.positions[controller]
	if pos == nil {
		pos = &PositionAccount{
			Controller:      controller,
			Balance:         sdkmath.ZeroInt(),
			EntrySharePrice: sdkmath.ZeroInt(),
		}
		pm.positions[controller] = pos
	}
	return pos
}

// GetAllPositions returns every position sorted by controller address.
func (pm *PositionManager) GetAllPositions() []*PositionAccount {
	out := make([]*PositionAccount, 0, len(pm.positions))
	for _, p := range pm.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Controller.Bytes(), out[j].Controller.Bytes()) < 0
	})
	return out
}

// Restore replaces all positions.
func (pm *PositionManager) Restore(positions []*PositionAccount) {
	pm.positions = make(map[common.Address]*PositionAccount, len(positions))
	for _, p := range positions {
		cp := *p
		pm.positions[p.Controller] = &cp
	}
}
