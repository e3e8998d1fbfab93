package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/nats-io/nats.go"
)

// Subjects served by the local-chain executor.
const (
	localPrefix          = "vault.local"
	SubjectConvertAssets = localPrefix + ".convert_to_assets"
	SubjectConvertShares = localPrefix + ".convert_to_shares"
	SubjectDeposit       = localPrefix + ".deposit"
	SubjectRedeem        = localPrefix + ".redeem"
	SubjectApprove       = localPrefix + ".approve"
	SubjectRevoke        = localPrefix + ".revoke"
)

// ErrExecutor wraps an error reported by the executor itself.
var ErrExecutor = errors.New("local executor error")

// Requester is the request/reply subset of *nats.Conn.
type Requester interface {
	RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error)
}

type localRequest struct {
	Vault  common.Address `json:"vault"`
	Amount *sdkmath.Int   `json:"amount,omitempty"`
}

type localReply struct {
	Amount sdkmath.Int `json:"amount"`
	Error  string      `json:"error,omitempty"`
}

// NATSLocalVaults talks to the process that signs and sends transactions
// on the vault's own chain. Every call is a synchronous request/reply.
type NATSLocalVaults struct {
	conn    Requester
	timeout time.Duration
}

func NewNATSLocalVaults(conn Requester, timeout time.Duration) *NATSLocalVaults {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NATSLocalVaults{conn: conn, timeout: timeout}
}

func (l *NATSLocalVaults) ConvertToAssets(ctx context.Context, vault common.Address, shares sdkmath.Int) (sdkmath.Int, error) {
	return l.amount(ctx, SubjectConvertAssets, vault, shares)
}

func (l *NATSLocalVaults) ConvertToShares(ctx context.Context, vault common.Address, assets sdkmath.Int) (sdkmath.Int, error) {
	return l.amount(ctx, SubjectConvertShares, vault, assets)
}

func (l *NATSLocalVaults) Deposit(ctx context.Context, vault common.Address, assets sdkmath.Int) (sdkmath.Int, error) {
	return l.amount(ctx, SubjectDeposit, vault, assets)
}

func (l *NATSLocalVaults) Redeem(ctx context.Context, vault common.Address, shares sdkmath.Int) (sdkmath.Int, error) {
	return l.amount(ctx, SubjectRedeem, vault, shares)
}

// Approve grants the vault's asset allowance to a local sub-vault.
func (l *NATSLocalVaults) Approve(ctx context.Context, vault common.Address) error {
	_, err := l.call(ctx, SubjectApprove, localRequest{Vault: vault})
	return err
}

// Revoke withdraws the allowance.
func (l *NATSLocalVaults) Revoke(ctx context.Context, vault common.Address) error {
	_, err := l.call(ctx, SubjectRevoke, localRequest{Vault: vault})
	return err
}

func (l *NATSLocalVaults) amount(ctx context.Context, subject string, vault common.Address, amount sdkmath.Int) (sdkmath.Int, error) {
	reply, err := l.call(ctx, subject, localRequest{Vault: vault, Amount: &amount})
	if err != nil {
		return sdkmath.Int{}, err
	}
	if reply.Amount.IsNil() || reply.Amount.IsNegative() {
		return sdkmath.Int{}, fmt.Errorf("%s: invalid amount in reply", subject)
	}
	return reply.Amount, nil
}

func (l *NATSLocalVaults) call(ctx context.Context, subject string, req localRequest) (localReply, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return localReply{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	msg, err := l.conn.RequestWithContext(ctx, subject, data)
	if err != nil {
		return localReply{}, fmt.Errorf("%s %s: %w", subject, req.Vault.Hex(), err)
	}

	var reply localReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return localReply{}, fmt.Errorf("%s: decode reply: %w", subject, err)
	}
	if reply.Error != "" {
		return localReply{}, fmt.Errorf("%w: %s %s: %s", ErrExecutor, subject, req.Vault.Hex(), reply.Error)
	}
	return reply, nil
}
