package hop

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// MintABIJSON is the ABI of the asset contract method called by MintAsset.
const MintABIJSON = `[
	{
		"name": "mint",
		"type": "function",
		"stateMutability": "payable",
		"inputs": [
			{"name": "owner", "type": "address"},
			{"name": "tokenId", "type": "string"},
			{"name": "tokenURI", "type": "string"}
		],
		"outputs": []
	}
]`

// mintMethod is the method name packed by PackMint.
const mintMethod = "mint"

// ParseABI parses a JSON ABI string into an abi.ABI.
func ParseABI(abiJSON string) (abi.ABI, error) {
	return abi.JSON(strings.NewReader(abiJSON))
}

// MustParseABI is like ParseABI but panics on error.
func MustParseABI(abiJSON string) abi.ABI {
	parsed, err := ParseABI(abiJSON)
	if err != nil {
		panic(err)
	}
	return parsed
}

var mintABI = MustParseABI(MintABIJSON)

// MintCall is the decoded form of a mint calldata payload.
type MintCall struct {
	Owner    common.Address
	TokenID  string
	TokenURI string
}

// PackMint returns the calldata for mint(owner, tokenId, tokenURI).
func PackMint(owner common.Address, tokenID, tokenURI string) ([]byte, error) {
	return mintABI.Pack(mintMethod, owner, tokenID, tokenURI)
}

// UnpackMint decodes calldata produced by PackMint.
func UnpackMint(calldata []byte) (MintCall, error) {
	method := mintABI.Methods[mintMethod]
	if len(calldata) < 4 || string(calldata[:4]) != string(method.ID) {
		return MintCall{}, fmt.Errorf("hop: calldata is not a %s call", method.Sig)
	}

	values, err := method.Inputs.Unpack(calldata[4:])
	if err != nil {
		return MintCall{}, err
	}

	owner, ok := values[0].(common.Address)
	if !ok {
		return MintCall{}, fmt.Errorf("hop: mint owner has type %T", values[0])
	}
	tokenID, _ := values[1].(string)
	tokenURI, _ := values[2].(string)

	return MintCall{Owner: owner, TokenID: tokenID, TokenURI: tokenURI}, nil
}
