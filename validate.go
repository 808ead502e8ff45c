package hop

import (
	"errors"

	ethav "github.com/KOREAN139/ethereum-address-validator"
	"github.com/ethereum/go-ethereum/common"
)

// Validator checks and normalises addresses supplied to the contract.
type Validator interface {
	Validate(address string) (common.Address, error)
}

// EthValidator accepts 0x-prefixed 20 byte hex addresses.
type EthValidator struct{}

var errNotHexAddress = errors.New("not a 0x-prefixed 20 byte hex address")

// Validate implements Validator.
func (EthValidator) Validate(address string) (common.Address, error) {
	if !common.IsHexAddress(address) || !hasHexPrefix(address) {
		return common.Address{}, errNotHexAddress
	}

	addr := common.HexToAddress(address)
	if err := ethav.Validate(addr.Hex()); err != nil {
		return common.Address{}, err
	}
	return addr, nil
}

func hasHexPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

// validateField runs v and wraps a failure as an AddressError.
func validateField(v Validator, field, address string) (common.Address, error) {
	addr, err := v.Validate(address)
	if err != nil {
		return common.Address{}, &AddressError{Field: field, Address: address, Err: err}
	}
	return addr, nil
}
