package router

import (
	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"YieldVault/internal/types"
)

// Shape selects the gateway call used for the remote part of a route.
type Shape int

const (
	ShapeNone Shape = iota // No remote vault touched
	ShapeSingleChainSingleVault
	ShapeSingleChainMultiVault
	ShapeMultiChainSingleVault
	ShapeMultiChainMultiVault
)

// MarshalText encodes the shape by name.
func (s Shape) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a shape name; unknown names become ShapeNone.
func (s *Shape) UnmarshalText(b []byte) error {
	*s = ParseShape(string(b))
	return nil
}

// ParseShape is the inverse of String.
func ParseShape(name string) Shape {
	for _, sh := range []Shape{ShapeSingleChainSingleVault, ShapeSingleChainMultiVault, ShapeMultiChainSingleVault, ShapeMultiChainMultiVault} {
		if sh.String() == name {
			return sh
		}
	}
	return ShapeNone
}

func (s Shape) String() string {
	switch s {
	case ShapeSingleChainSingleVault:
		return "single_chain_single_vault"
	case ShapeSingleChainMultiVault:
		return "single_chain_multi_vault"
	case ShapeMultiChainSingleVault:
		return "multi_chain_single_vault"
	case ShapeMultiChainMultiVault:
		return "multi_chain_multi_vault"
	default:
		return "none"
	}
}

// Leg is one vault liquidation inside a route.
type Leg struct {
	ChainID       types.ChainID  `json:"chain_id"`
	VaultID       types.VaultID  `json:"vault_id"`
	Vault         common.Address `json:"vault"`
	Shares        sdkmath.Int    `json:"shares"`
	Assets        sdkmath.Int    `json:"assets"`
	DebtReduction sdkmath.Int    `json:"debt_reduction"`
}

// ChainRoute groups the legs on one remote chain, in queue order.
type ChainRoute struct {
	ChainID types.ChainID `json:"chain_id"`
	Legs    []Leg         `json:"legs"`
}

// RouteCache is the plan for one redemption. It is never persisted and is
// owned by the caller of Plan.
type RouteCache struct {
	Target    sdkmath.Int `json:"target"`
	IdleUsed  sdkmath.Int `json:"idle_used"`
	Shortfall sdkmath.Int `json:"shortfall"`

	Local  []Leg        `json:"local"`
	Remote []ChainRoute `json:"remote"`

	// Fresh oracle prices the remote legs were sized at. Nil for a
	// preview, which uses cached prices.
	Prices map[types.VaultID]sdkmath.Int `json:"prices,omitempty"`

	// Running snapshots: values before planning and as projected after
	// every leg settles at its planned amount.
	IdleBefore        sdkmath.Int `json:"idle_before"`
	DebtBefore        sdkmath.Int `json:"debt_before"`
	TotalAssetsBefore sdkmath.Int `json:"total_assets_before"`
	IdleAfter         sdkmath.Int `json:"idle_after"`
	DebtAfter         sdkmath.Int `json:"debt_after"`

	IsSingleChain bool  `json:"is_single_chain"`
	IsMultiChain  bool  `json:"is_multi_chain"`
	IsMultiVault  bool  `json:"is_multi_vault"`
	Shape         Shape `json:"shape"`
}

func newRouteCache(target, idle, debt sdkmath.Int) *RouteCache {
	return &RouteCache{
		Target:            target,
		IdleUsed:          sdkmath.ZeroInt(),
		Shortfall:         sdkmath.ZeroInt(),
		IdleBefore:        idle,
		DebtBefore:        debt,
		TotalAssetsBefore: idle.Add(debt),
		IdleAfter:         idle,
		DebtAfter:         debt,
	}
}

// IsTrivial reports whether idle funds alone cover the target.
func (c *RouteCache) IsTrivial() bool {
	return len(c.Local) == 0 && len(c.Remote) == 0
}

// HasRemote reports whether any remote vault is part of the route.
func (c *RouteCache) HasRemote() bool {
	return len(c.Remote) > 0
}

// LocalAssets sums the planned assets of local legs.
func (c *RouteCache) LocalAssets() sdkmath.Int {
	return sumAssets(c.Local)
}

// RemoteAssets sums the planned assets of every remote leg.
func (c *RouteCache) RemoteAssets() sdkmath.Int {
	total := sdkmath.ZeroInt()
	for _, cr := range c.Remote {
		total = total.Add(sumAssets(cr.Legs))
	}
	return total
}

// Covered is idle used plus every leg's planned assets.
func (c *RouteCache) Covered() sdkmath.Int {
	return c.IdleUsed.Add(c.LocalAssets()).Add(c.RemoteAssets())
}

// RemoteLegs flattens the remote legs in chain then queue order.
func (c *RouteCache) RemoteLegs() []Leg {
	var legs []Leg
	for _, cr := range c.Remote {
		legs = append(legs, cr.Legs...)
	}
	return legs
}

func (c *RouteCache) addLocal(leg Leg) {
	c.Local = append(c.Local, leg)
	c.DebtAfter = c.DebtAfter.Sub(leg.DebtReduction)
}

func (c *RouteCache) addRemote(leg Leg) {
	c.DebtAfter = c.DebtAfter.Sub(leg.DebtReduction)
	for i := range c.Remote {
		if c.Remote[i].ChainID == leg.ChainID {
			c.Remote[i].Legs = append(c.Remote[i].Legs, leg)
			return
		}
	}
	c.Remote = append(c.Remote, ChainRoute{ChainID: leg.ChainID, Legs: []Leg{leg}})
}

// classify derives the flags and Shape from the remote legs recorded so far.
func (c *RouteCache) classify() {
	chains := len(c.Remote)
	c.IsSingleChain = chains == 1
	c.IsMultiChain = chains > 1
	c.IsMultiVault = false
	for _, cr := range c.Remote {
		if len(cr.Legs) > 1 {
			c.IsMultiVault = true
			break
		}
	}

	switch {
	case chains == 0:
		c.Shape = ShapeNone
	case c.IsSingleChain && !c.IsMultiVault:
		c.Shape = ShapeSingleChainSingleVault
	case c.IsSingleChain:
		c.Shape = ShapeSingleChainMultiVault
	case !c.IsMultiVault:
		c.Shape = ShapeMultiChainSingleVault
	default:
		c.Shape = ShapeMultiChainMultiVault
	}
}

func sumAssets(legs []Leg) sdkmath.Int {
	total := sdkmath.ZeroInt()
	for _, l := range legs {
		total = total.Add(l.Assets)
	}
	return total
}
