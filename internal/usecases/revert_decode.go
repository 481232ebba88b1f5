package usecases

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const (
	errorStringSelector = "0x08c379a0"
	panicSelector       = "0x4e487b71"
)

var revertHexPattern = regexp.MustCompile(`0x[0-9a-fA-F]{8,}`)

// knownTokenErrors names the custom errors USDC-style tokens revert with
var knownTokenErrors = map[string]string{
	"0xe450d38c": "ERC20InsufficientBalance",
	"0xfb8f41b2": "ERC20InsufficientAllowance",
	"0xec442f05": "ERC20InvalidReceiver",
	"0x96c6fd1e": "ERC20InvalidSender",
}

// RevertReason is a decoded EVM revert payload
type RevertReason struct {
	Selector string
	Name     string
	Message  string
}

// decodeRevertReason extracts revert bytes from an RPC error and decodes them.
// It reads rpc.DataError payloads first and falls back to hex in the message of revert errors.
func decodeRevertReason(err error) (RevertReason, bool) {
	if err == nil {
		return RevertReason{}, false
	}
	if data, ok := revertDataFromDataError(err); ok {
		return decodeRevertData(data), true
	}
	if !strings.Contains(strings.ToLower(err.Error()), "revert") {
		return RevertReason{}, false
	}
	for _, candidate := range revertHexPattern.FindAllString(err.Error(), -1) {
		if data, ok := parseHexBytes(candidate); ok {
			return decodeRevertData(data), true
		}
	}
	return RevertReason{}, false
}

func revertDataFromDataError(err error) ([]byte, bool) {
	type rpcDataError interface {
		ErrorData() interface{}
	}
	dataErr, ok := err.(rpcDataError)
	if !ok {
		return nil, false
	}
	switch v := dataErr.ErrorData().(type) {
	case string:
		return parseHexBytes(v)
	case []byte:
		if len(v) == 0 {
			return nil, false
		}
		return append([]byte{}, v...), true
	case map[string]interface{}:
		if raw, ok := v["data"].(string); ok {
			return parseHexBytes(raw)
		}
	}
	return nil, false
}

func parseHexBytes(raw string) ([]byte, bool) {
	value := strings.TrimSpace(strings.TrimPrefix(raw, "0x"))
	if len(value) < 8 || len(value)%2 != 0 {
		return nil, false
	}
	data, err := hex.DecodeString(value)
	if err != nil || len(data) == 0 {
		return nil, false
	}
	return data, true
}

func decodeRevertData(data []byte) RevertReason {
	if len(data) < 4 {
		return RevertReason{Message: "execution reverted"}
	}
	result := RevertReason{Selector: "0x" + hex.EncodeToString(data[:4])}

	switch result.Selector {
	case errorStringSelector:
		stringType, err := abi.NewType("string", "", nil)
		if err == nil {
			values, unpackErr := abi.Arguments{{Type: stringType}}.Unpack(data[4:])
			if unpackErr == nil && len(values) == 1 {
				if msg, ok := values[0].(string); ok {
					result.Name = "Error"
					result.Message = msg
					return result
				}
			}
		}
	case panicSelector:
		if len(data) >= 36 {
			result.Name = "Panic"
			result.Message = fmt.Sprintf("panic code: %s", new(big.Int).SetBytes(data[4:36]).String())
			return result
		}
	}

	if name, ok := knownTokenErrors[result.Selector]; ok {
		result.Name = name
		result.Message = name
		return result
	}
	result.Message = "execution reverted (" + result.Selector + ")"
	return result
}
