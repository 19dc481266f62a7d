// Package activator decides and executes how a non-existent target gets
// created on-chain, per spec.md §4.6.
package activator

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/tron-gas-station/gasstation/internal/hexsig"
	"github.com/tron-gas-station/gasstation/internal/poll"
	"github.com/tron-gas-station/gasstation/pkg/signer"
	"github.com/tron-gas-station/gasstation/pkg/tronclient"
)

// Mode mirrors spec.md §4.6's GAS_ACCOUNT_ACTIVATION_MODE.
type Mode string

const (
	ModeTransfer       Mode = "transfer"
	ModeCreateAccount  Mode = "create_account"
)

// Config configures an Activator.
type Config struct {
	Mode              Mode
	ActivationCostSun uint64 // 1.0 TRX testnet, 1.5 TRX mainnet (spec.md §4.6)
	PoolWallet        string
	CreateAccountSupported bool // spec.md §9 Open Question: runtime-dependent
}

// Activator executes spec.md §4.6's state machine.
type Activator struct {
	client *tronclient.Client
	signer *signer.Signer
	cfg    Config
}

// New builds an Activator.
func New(client *tronclient.Client, s *signer.Signer, cfg Config) (*Activator, error) {
	if cfg.Mode == ModeCreateAccount && !cfg.CreateAccountSupported {
		return nil, errors.New("activator: create_account mode requested but not supported by this client build")
	}
	return &Activator{client: client, signer: s, cfg: cfg}, nil
}

// Outcome is the result of one Activate call.
type Outcome struct {
	TxID        string
	BroadcastOK bool
	Activated   bool
	Warning     string // non-empty on a downgraded (not fatal) timeout
}

// Broadcast builds the chosen-mode transaction, signs it via the control
// signer, and broadcasts it. Callers are expected to hold the pool-wallet
// sequence lock for the duration of this call only, not for the subsequent
// WaitConf (spec.md §5: "held only during build+sign+broadcast, not during
// verification").
func (a *Activator) Broadcast(ctx context.Context, target string) (Outcome, error) {
	var (
		tx  *tronclient.RawTransaction
		op  string
		err error
	)

	switch a.cfg.Mode {
	case ModeCreateAccount:
		op = "AccountCreateContract"
		tx, err = a.client.BuildCreateAccount(ctx, a.cfg.PoolWallet, target)
	default:
		op = "TransferContract"
		tx, err = a.client.BuildTransfer(ctx, a.cfg.PoolWallet, target, a.cfg.ActivationCostSun)
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("activator: build %s: %w", op, err)
	}

	rawData, err := hex.DecodeString(tx.RawDataHex)
	if err != nil {
		return Outcome{}, fmt.Errorf("activator: decode raw_data_hex: %w", err)
	}
	signed, err := a.signer.Sign(op, rawData)
	if err != nil {
		return Outcome{}, err // may be *signer.ErrPermissionDenied; caller maps to kind="permission"
	}
	tx.Signature = append(tx.Signature, hexsig.Encode(signed.Signature))
	if signed.PermissionID != 0 {
		for i := range tx.RawData.Contract {
			tx.RawData.Contract[i].PermissionID = signed.PermissionID
		}
	}

	resp, err := a.client.Broadcast(ctx, tx)
	if err != nil {
		return Outcome{}, fmt.Errorf("activator: broadcast: %w", err)
	}
	if !resp.Result {
		return Outcome{TxID: tx.TxID, BroadcastOK: false}, fmt.Errorf("activator: broadcast rejected: %s", resp.Message)
	}
	return Outcome{TxID: tx.TxID, BroadcastOK: true}, nil
}

// WaitConf polls every 500ms for up to 5s, declaring success as soon as the
// target's on-chain existence or a positive balance is observed, even if
// get_transaction_info still shows unconfirmed. A timed-out wait is not an
// error: the caller downgrades it to a warning (spec.md §4.6).
func (a *Activator) WaitConf(ctx context.Context, target string) Outcome {
	result := poll.Until(ctx, poll.Options{Interval: 500 * time.Millisecond, Timeout: 5 * time.Second},
		func(ctx context.Context) (bool, error) {
			acc, err := a.client.GetAccount(ctx, target)
			if err != nil {
				return false, err
			}
			return acc.Exists() || acc.BalanceSun > 0, nil
		})

	out := Outcome{Activated: result.Succeeded}
	if !result.Succeeded {
		out.Warning = "verification_timeout:activation"
	}
	return out
}

// Activate is a convenience wrapper running Broadcast then WaitConf with no
// intervening lock release; used by callers (and tests) that don't need the
// finer-grained locking Broadcast/WaitConf expose separately.
func (a *Activator) Activate(ctx context.Context, target string) (Outcome, error) {
	out, err := a.Broadcast(ctx, target)
	if err != nil {
		return out, err
	}
	wait := a.WaitConf(ctx, target)
	out.Activated = wait.Activated
	out.Warning = wait.Warning
	return out, nil
}
