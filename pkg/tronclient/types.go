package tronclient

// Account mirrors the subset of /wallet/getaccount's response this module
// reads. An empty Address means the account does not yet exist on-chain.
type Account struct {
	Address    string `json:"address"`
	BalanceSun uint64 `json:"balance"`
}

// Exists reports whether the full node returned a populated account, i.e.
// the target is activated (spec.md §3's ResourceSnapshot.activated).
func (a *Account) Exists() bool {
	return a != nil && a.Address != ""
}

// AccountResource mirrors /wallet/getaccountresource.
type AccountResource struct {
	FreeNetLimit  uint64 `json:"freeNetLimit"`
	FreeNetUsed   uint64 `json:"freeNetUsed"`
	NetLimit      uint64 `json:"NetLimit"`
	NetUsed       uint64 `json:"NetUsed"`
	EnergyLimit   uint64 `json:"EnergyLimit"`
	EnergyUsed    uint64 `json:"EnergyUsed"`
	TotalNetLimit  uint64 `json:"TotalNetLimit"`
	TotalNetWeight uint64 `json:"TotalNetWeight"`
}

// BandwidthAvailable is the sum of free and staked bandwidth headroom.
func (r AccountResource) BandwidthAvailable() uint64 {
	free := uint64(0)
	if r.FreeNetLimit > r.FreeNetUsed {
		free = r.FreeNetLimit - r.FreeNetUsed
	}
	staked := uint64(0)
	if r.NetLimit > r.NetUsed {
		staked = r.NetLimit - r.NetUsed
	}
	return free + staked
}

// EnergyAvailable is the remaining delegated/staked energy headroom.
func (r AccountResource) EnergyAvailable() uint64 {
	if r.EnergyLimit > r.EnergyUsed {
		return r.EnergyLimit - r.EnergyUsed
	}
	return 0
}

// ChainParameters is a flattened view of /wallet/getchainparameters,
// keyed by parameter name (spec.md §4.3).
type ChainParameters map[string]int64

type chainParameterWire struct {
	ChainParameter []struct {
		Key   string `json:"key"`
		Value int64  `json:"value"`
	} `json:"chainParameter"`
}

// ConstantCallResult mirrors /wallet/triggerconstantcontract's response.
type ConstantCallResult struct {
	Result struct {
		Result  bool   `json:"result"`
		Message string `json:"message"`
	} `json:"result"`
	EnergyUsed     int64    `json:"energy_used"`
	ConstantResult []string `json:"constant_result"`
	Transaction    RawTransaction `json:"transaction"`
}

// WouldSucceed applies spec.md §4.4's simulation success rule: absence of
// result.message and a non-empty constant_result.
func (c ConstantCallResult) WouldSucceed() bool {
	return c.Result.Message == "" && len(c.ConstantResult) > 0
}

// RawTransaction mirrors the transaction envelope TRON's /wallet/create*
// endpoints return: enough to sign, measure, and broadcast, without
// depending on the core.Transaction protobuf schema (out of this module's
// HTTP-only scope, see DESIGN.md Open Question 4).
type RawTransaction struct {
	TxID       string   `json:"txID"`
	RawData    RawData  `json:"raw_data"`
	RawDataHex string   `json:"raw_data_hex"`
	Signature  []string `json:"signature,omitempty"`
}

// RawData is the signable payload of a RawTransaction.
type RawData struct {
	Contract   []Contract `json:"contract"`
	RefBlockBytes string  `json:"ref_block_bytes"`
	RefBlockHash  string  `json:"ref_block_hash"`
	Expiration    int64   `json:"expiration"`
	Timestamp     int64   `json:"timestamp"`
	FeeLimit      int64   `json:"fee_limit,omitempty"`
}

// Contract is a single TRON transaction contract entry.
type Contract struct {
	Type         string                 `json:"type"`
	Parameter    map[string]interface{} `json:"parameter"`
	PermissionID int32                  `json:"Permission_id,omitempty"`
}

// BroadcastResponse mirrors /wallet/broadcasttransaction.
type BroadcastResponse struct {
	Result  bool   `json:"result"`
	TxID    string `json:"txid"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// TransactionInfo mirrors /wallet/gettransactioninfobyid.
type TransactionInfo struct {
	ID            string `json:"id"`
	BlockNumber   int64  `json:"blockNumber"`
	ContractResult []string `json:"contractResult"`
	Receipt       struct {
		Result string `json:"result"`
	} `json:"receipt"`
}

// Confirmed reports whether the node has indexed a successful receipt.
func (t *TransactionInfo) Confirmed() bool {
	return t != nil && t.ID != "" && t.Receipt.Result == "SUCCESS"
}
