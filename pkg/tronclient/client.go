// Package tronclient talks HTTP(S) to a TRON full node, solidity node and
// optional remote fallbacks (spec.md §4.2, §6). It never itself decides
// policy beyond per-call timeout/retry and the documented endpoint
// fallback/parallel-max rules; everything else is the caller's job.
package tronclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Config wires up the endpoint groups the spec's multi-endpoint read policy
// needs (spec.md §4.2: "query local full, local solidity and remote
// solidity in parallel").
type Config struct {
	FullNodeURLs     []string
	SolidityNodeURLs []string
	RemoteURLs       []string
	Timeout          time.Duration // per-call timeout, default 10s
	Retries          int           // per-call retry budget, default 3
}

// Client is a thin, retrying JSON-over-HTTP client pool. It is safe for
// concurrent use by multiple in-flight preparations (spec.md §5: "the RPC
// client's connection pool (thread-/task-safe reads)").
type Client struct {
	full     []string
	solidity []string
	remote   []string
	http     *http.Client
	retries  int
}

// New builds a Client from Config, defaulting Timeout to 10s and Retries to
// 3 per spec.md §4.2.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	retries := cfg.Retries
	if retries <= 0 {
		retries = 3
	}
	return &Client{
		full:     cfg.FullNodeURLs,
		solidity: cfg.SolidityNodeURLs,
		remote:   cfg.RemoteURLs,
		http:     &http.Client{Timeout: timeout},
		retries:  retries,
	}
}

// post issues a POST against the first of endpoints that answers, retrying
// each endpoint up to c.retries times before falling through to the next
// one (spec.md §4.2's "connection/5xx -> fallback endpoint").
func (c *Client) post(ctx context.Context, endpoints []string, path string, body, out interface{}) error {
	if len(endpoints) == 0 {
		return fmt.Errorf("tronclient: no endpoints configured for %s", path)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("tronclient: marshal request: %w", err)
	}

	var lastErr error
	for _, base := range endpoints {
		for attempt := 0; attempt < c.retries; attempt++ {
			start := time.Now()
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+path, bytes.NewReader(payload))
			if err != nil {
				lastErr = err
				continue
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := c.http.Do(req)
			if err != nil {
				lastErr = err
				log.Printf("tronclient: %s %s attempt %d failed: %v", path, base, attempt+1, err)
				continue
			}
			latency := time.Since(start)
			data, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				lastErr = readErr
				continue
			}
			if resp.StatusCode >= 500 {
				lastErr = fmt.Errorf("tronclient: %s returned %d", base, resp.StatusCode)
				continue
			}
			log.Printf("tronclient: %s %s ok in %s", path, base, latency)
			if out == nil {
				return nil
			}
			if err := json.Unmarshal(data, out); err != nil {
				lastErr = fmt.Errorf("tronclient: decode response from %s: %w", base, err)
				continue
			}
			return nil
		}
	}
	return fmt.Errorf("tronclient: all endpoints for %s exhausted: %w", path, lastErr)
}

// GetAccount fetches the target's on-chain account. A returned Account with
// an empty Address means the account does not yet exist (spec.md §4.2).
func (c *Client) GetAccount(ctx context.Context, addr string) (*Account, error) {
	var acc Account
	req := map[string]interface{}{"address": addr, "visible": true}
	if err := c.post(ctx, c.full, "/wallet/getaccount", req, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

// GetAccountResource fetches the target's current energy/bandwidth quotas.
func (c *Client) GetAccountResource(ctx context.Context, addr string) (*AccountResource, error) {
	var res AccountResource
	req := map[string]interface{}{"address": addr, "visible": true}
	if err := c.post(ctx, c.full, "/wallet/getaccountresource", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetChainParameters fetches the live chain parameter map the Resource
// Oracle needs (spec.md §4.3).
func (c *Client) GetChainParameters(ctx context.Context) (ChainParameters, error) {
	var wire chainParameterWire
	if err := c.post(ctx, c.full, "/wallet/getchainparameters", map[string]interface{}{}, &wire); err != nil {
		return nil, err
	}
	params := make(ChainParameters, len(wire.ChainParameter))
	for _, kv := range wire.ChainParameter {
		params[kv.Key] = kv.Value
	}
	return params, nil
}

// TriggerConstantContract simulates a contract call without broadcasting
// (spec.md §4.4's Simulator relies on this).
func (c *Client) TriggerConstantContract(ctx context.Context, from, contract, selector, parameterHex string) (*ConstantCallResult, error) {
	var result ConstantCallResult
	req := map[string]interface{}{
		"owner_address":     from,
		"contract_address":  contract,
		"function_selector": selector,
		"parameter":         parameterHex,
		"visible":           true,
	}
	if err := c.post(ctx, c.full, "/wallet/triggerconstantcontract", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// BuildTransfer builds an unsigned TRX transfer transaction.
func (c *Client) BuildTransfer(ctx context.Context, from, to string, sun uint64) (*RawTransaction, error) {
	var tx RawTransaction
	req := map[string]interface{}{
		"owner_address": from,
		"to_address":    to,
		"amount":        sun,
		"visible":       true,
	}
	if err := c.post(ctx, c.full, "/wallet/createtransaction", req, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// BuildCreateAccount builds an AccountCreateContract transaction that
// activates to without transferring TRX (spec.md §4.6).
func (c *Client) BuildCreateAccount(ctx context.Context, from, to string) (*RawTransaction, error) {
	var tx RawTransaction
	req := map[string]interface{}{
		"owner_address":   from,
		"account_address": to,
		"visible":         true,
	}
	if err := c.post(ctx, c.full, "/wallet/createaccount", req, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// BuildFreezeBalanceV2 freezes TRX on from for the given resource.
func (c *Client) BuildFreezeBalanceV2(ctx context.Context, from string, sun uint64, resource Resource) (*RawTransaction, error) {
	var tx RawTransaction
	req := map[string]interface{}{
		"owner_address":  from,
		"frozen_balance": sun,
		"resource":       string(resource),
		"visible":        true,
	}
	if err := c.post(ctx, c.full, "/wallet/freezebalancev2", req, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// BuildDelegateResource delegates previously-frozen resource units from
// owner to receiver, locked for lockDays (spec.md §4.7: minimum 3 days).
func (c *Client) BuildDelegateResource(ctx context.Context, owner, receiver string, sun uint64, resource Resource, lockDays int) (*RawTransaction, error) {
	var tx RawTransaction
	req := map[string]interface{}{
		"owner_address":   owner,
		"receiver_address": receiver,
		"balance":         sun,
		"resource":        string(resource),
		"lock":            true,
		"lock_period":     lockDays * 24 * 60 * 20, // blocks, ~3s/block
		"visible":         true,
	}
	if err := c.post(ctx, c.full, "/wallet/delegateresource", req, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// Broadcast submits a signed transaction. A false Result is a hard failure
// surfaced upward (spec.md §4.2).
func (c *Client) Broadcast(ctx context.Context, signed *RawTransaction) (*BroadcastResponse, error) {
	var resp BroadcastResponse
	if err := c.post(ctx, c.full, "/wallet/broadcasttransaction", signed, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetTransactionInfo looks up confirmation status by txid, preferring the
// solidity (confirmed) node per spec.md §6.
func (c *Client) GetTransactionInfo(ctx context.Context, txid string) (*TransactionInfo, error) {
	var info TransactionInfo
	req := map[string]interface{}{"value": txid}
	if err := c.post(ctx, c.solidity, "/walletsolidity/gettransactioninfobyid", req, &info); err != nil {
		if errFull := c.post(ctx, c.full, "/wallet/gettransactioninfobyid", req, &info); errFull != nil {
			return nil, err
		}
	}
	return &info, nil
}

// GetNowBlock fetches the latest block number, used by Station.Health to
// report liveness (spec.md §6's health() "latest_block" field).
func (c *Client) GetNowBlock(ctx context.Context) (uint64, error) {
	var block struct {
		BlockHeader struct {
			RawData struct {
				Number uint64 `json:"number"`
			} `json:"raw_data"`
		} `json:"block_header"`
	}
	if err := c.post(ctx, c.full, "/wallet/getnowblock", map[string]interface{}{}, &block); err != nil {
		return 0, err
	}
	return block.BlockHeader.RawData.Number, nil
}

// Resource is the tronclient view of spec.md's Resource; redefined locally
// to avoid an import cycle with the root package.
type Resource string

const (
	ResourceEnergy    Resource = "ENERGY"
	ResourceBandwidth Resource = "BANDWIDTH"
)
