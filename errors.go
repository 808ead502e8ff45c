package hop

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions.
var (
	// ErrUnauthorized indicates an address failed validation, a reply carried
	// an unknown correlation id, or the sender may not perform the operation.
	ErrUnauthorized = errors.New("hop: unauthorized")

	// ErrMissingFunds indicates an operation that needs exactly one attached
	// coin received none.
	ErrMissingFunds = errors.New("hop: you must send the coins you wish to transfer")

	// ErrUpstream indicates the host reported that a dispatched call failed.
	ErrUpstream = errors.New("hop: dispatched call failed")

	// ErrEncoding indicates a command could not be turned into a dispatch.
	ErrEncoding = errors.New("hop: dispatch encoding failed")

	// ErrInvalidMessage indicates an execute message with zero or several
	// variants set.
	ErrInvalidMessage = errors.New("hop: execute message must set exactly one variant")

	// ErrUnknownCommand indicates a Command value outside the closed variant set.
	ErrUnknownCommand = errors.New("hop: unknown command type")
)

// AddressError indicates an address rejected by the contract's Validator.
type AddressError struct {
	Field   string
	Address string
	Err     error
}

func (e *AddressError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("hop: invalid %s address %q: %v", e.Field, e.Address, e.Err)
	}
	return fmt.Sprintf("hop: invalid %s address %q", e.Field, e.Address)
}

// Unwrap lets errors.Is match ErrUnauthorized.
func (e *AddressError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUnauthorized}
	}
	return []error{ErrUnauthorized, e.Err}
}

// EncodingError indicates a failure while encoding a command into a dispatch.
type EncodingError struct {
	Command CommandType
	Err     error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("hop: encoding %s: %v", e.Command, e.Err)
}

func (e *EncodingError) Unwrap() []error {
	return []error{ErrEncoding, e.Err}
}

// UpstreamError carries the failure reported by the host for a dispatched call.
// The message is propagated verbatim.
type UpstreamError struct {
	ReplyID uint64
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("hop: reply %d: %s", e.ReplyID, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return ErrUpstream
}

// MessageError wraps a failure to decode an execute message.
type MessageError struct {
	Err error
}

func (e *MessageError) Error() string {
	return fmt.Sprintf("hop: decoding execute message: %v", e.Err)
}

func (e *MessageError) Unwrap() []error {
	return []error{ErrInvalidMessage, e.Err}
}

// ReplyIDError indicates a reply whose id is not the reserved chain id.
type ReplyIDError struct {
	ID uint64
}

func (e *ReplyIDError) Error() string {
	return fmt.Sprintf("hop: unauthorized: unknown reply id %d", e.ID)
}

func (e *ReplyIDError) Unwrap() error {
	return ErrUnauthorized
}
