package hop

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Dispatch lifetimes.
const (
	// PacketLifetime is the timeout of cross-chain transfer packets.
	PacketLifetime = time.Hour

	// NotifyLifetime is the timeout of notification packets.
	NotifyLifetime = 5 * time.Minute
)

// SwapMsgTypeURL is the target of swap dispatches.
const SwapMsgTypeURL = "/osmosis.gamm.v1beta1.MsgSwapExactAmountIn"

// Encoder turns a chained command into the dispatch that executes it on the
// chain's target contract.
type Encoder interface {
	EncodeCommand(cmd Command, target common.Address, funds Funds) (Dispatch, error)
}

// DispatchEncoder is the default Encoder. It also builds the dispatches of
// the single-shot operations.
type DispatchEncoder struct {
	newID func() string
}

// NewDispatchEncoder creates an encoder. A nil idFunc uses random UUIDs.
func NewDispatchEncoder(idFunc func() string) *DispatchEncoder {
	if idFunc == nil {
		idFunc = func() string { return uuid.New().String() }
	}
	return &DispatchEncoder{newID: idFunc}
}

// EncodeCommand wraps cmd in its execute envelope and addresses it to target
// with funds attached. A ChainHop therefore starts a nested chain on target.
func (e *DispatchEncoder) EncodeCommand(cmd Command, target common.Address, funds Funds) (Dispatch, error) {
	if cmd == nil {
		return Dispatch{}, &EncodingError{Err: ErrUnknownCommand}
	}

	msg, err := WrapCommand(cmd)
	if err != nil {
		return Dispatch{}, &EncodingError{Command: cmd.Type(), Err: err}
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return Dispatch{}, &EncodingError{Command: cmd.Type(), Err: err}
	}

	if funds == nil {
		funds = Funds{}
	}

	return Dispatch{
		ID:       e.newID(),
		Kind:     DispatchContractExecute,
		Target:   target.Hex(),
		Funds:    funds.Clone(),
		Encoding: EncodingJSON,
		Payload:  payload,
	}, nil
}

// BankSend builds a transfer of funds to recipient.
func (e *DispatchEncoder) BankSend(recipient common.Address, funds Funds) Dispatch {
	if funds == nil {
		funds = Funds{}
	}
	return Dispatch{
		ID:     e.newID(),
		Kind:   DispatchBankSend,
		Target: recipient.Hex(),
		Funds:  funds.Clone(),
	}
}

// IBCTransfer builds a cross-chain transfer of coin that expires at timeout.
func (e *DispatchEncoder) IBCTransfer(channelID, recipient string, coin Coin, timeout time.Time) Dispatch {
	return Dispatch{
		ID:        e.newID(),
		Kind:      DispatchIBCTransfer,
		Target:    recipient,
		ChannelID: channelID,
		Funds:     Funds{coin.clone()},
		Timeout:   timeout,
	}
}

// SwapAmountInRoute is one hop of a swap route.
type SwapAmountInRoute struct {
	PoolID        uint64 `json:"pool_id"`
	TokenOutDenom string `json:"token_out_denom"`
}

// MsgSwapExactAmountIn is the payload of a swap dispatch.
type MsgSwapExactAmountIn struct {
	Sender            string              `json:"sender"`
	Routes            []SwapAmountInRoute `json:"routes"`
	TokenIn           Coin                `json:"token_in"`
	TokenOutMinAmount string              `json:"token_out_min_amount"`
}

// SwapExactAmountIn builds a single-route swap of coin on behalf of sender.
func (e *DispatchEncoder) SwapExactAmountIn(sender common.Address, s Swap, coin Coin) (Dispatch, error) {
	payload, err := json.Marshal(MsgSwapExactAmountIn{
		Sender: sender.Hex(),
		Routes: []SwapAmountInRoute{{
			PoolID:        s.PoolID,
			TokenOutDenom: s.TokenOutDenom,
		}},
		TokenIn:           coin,
		TokenOutMinAmount: s.TokenOutMinAmount,
	})
	if err != nil {
		return Dispatch{}, &EncodingError{Command: CommandTypeSwap, Err: err}
	}

	return Dispatch{
		ID:       e.newID(),
		Kind:     DispatchSwap,
		Target:   SwapMsgTypeURL,
		Funds:    Funds{},
		Encoding: EncodingJSON,
		Payload:  payload,
	}, nil
}

// DecodeSwapMsg decodes the payload of a swap dispatch.
func DecodeSwapMsg(payload []byte) (MsgSwapExactAmountIn, error) {
	var msg MsgSwapExactAmountIn
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if len(msg.Routes) == 0 {
		return msg, errors.New("hop: swap message has no routes")
	}
	return msg, nil
}

// Mint builds a mint call on the asset contract, forwarding funds.
func (e *DispatchEncoder) Mint(contract, owner common.Address, tokenID, tokenURI string, funds Funds) (Dispatch, error) {
	calldata, err := PackMint(owner, tokenID, tokenURI)
	if err != nil {
		return Dispatch{}, &EncodingError{Command: CommandTypeMint, Err: err}
	}
	if funds == nil {
		funds = Funds{}
	}

	return Dispatch{
		ID:       e.newID(),
		Kind:     DispatchContractExecute,
		Target:   contract.Hex(),
		Funds:    funds.Clone(),
		Encoding: EncodingABI,
		Payload:  calldata,
	}, nil
}

// Packet builds an empty packet on channelID that expires at timeout.
func (e *DispatchEncoder) Packet(channelID string, timeout time.Time) Dispatch {
	return Dispatch{
		ID:        e.newID(),
		Kind:      DispatchIBCPacket,
		ChannelID: channelID,
		Funds:     Funds{},
		Payload:   []byte{},
		Timeout:   timeout,
	}
}
