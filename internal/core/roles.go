package core

import (
	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"

	"YieldVault/internal/types"
)

// Role gates an engine entry point.
type Role string

const (
	RoleAdmin     Role = "admin"     // Vault listing, queues, exemptions
	RoleManager   Role = "manager"   // Investing and global fee accrual
	RoleRelayer   Role = "relayer"   // Processing redeem requests
	RoleGateway   Role = "gateway"   // Cross-chain settlement callbacks
	RoleEmergency Role = "emergency" // Shutdown switch
)

// Roles maps each role to its members.
type Roles struct {
	members map[Role]map[common.Address]bool
}

func NewRoles() *Roles {
	return &Roles{members: make(map[Role]map[common.Address]bool)}
}

func (r *Roles) Grant(role Role, addr common.Address) {
	m := r.members[role]
	if m == nil {
		m = make(map[common.Address]bool)
		r.members[role] = m
	}
	m[addr] = true
}

func (r *Roles) Revoke(role Role, addr common.Address) {
	delete(r.members[role], addr)
}

func (r *Roles) Has(role Role, addr common.Address) bool {
	return r.members[role][addr]
}

func (r *Roles) require(role Role, caller common.Address) error {
	if !r.Has(role, caller) {
		return errorsmod.Wrapf(types.ErrUnauthorized, "%s lacks role %s", caller.Hex(), role)
	}
	return nil
}
