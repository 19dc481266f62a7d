package tronclient

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// transferSelector is the signature TRON's triggerconstantcontract API
// expects verbatim in function_selector (unlike an EVM JSON-RPC call, TRON
// takes the human-readable signature rather than its 4-byte hash).
const transferSelector = "transfer(address,uint256)"

var (
	addressType, _ = abi.NewType("address", "", nil)
	uint256Type, _ = abi.NewType("uint256", "", nil)

	transferArgs = abi.Arguments{
		{Type: addressType},
		{Type: uint256Type},
	}
)

// EncodeTRC20Transfer ABI-encodes the parameters of transfer(address,uint256)
// for a TRC20 call, returning the function_selector and hex-encoded
// parameter blob spec.md §4.4's Simulator passes to
// trigger_constant_contract. TVM contracts are Solidity-ABI-compatible, so
// go-ethereum's packer applies unchanged.
func EncodeTRC20Transfer(to common.Address, amount *big.Int) (selector, parameterHex string, err error) {
	packed, err := transferArgs.Pack(to, amount)
	if err != nil {
		return "", "", fmt.Errorf("tronclient: pack transfer args: %w", err)
	}
	return transferSelector, hex.EncodeToString(packed), nil
}
