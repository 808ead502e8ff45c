package hop

import (
	"encoding/json"
	"fmt"
)

// CommandType identifies a Command variant.
type CommandType uint8

const (
	// CommandTypeTransfer sends funds to an address.
	CommandTypeTransfer CommandType = iota

	// CommandTypeCrossChainTransfer sends a single coin over an IBC channel.
	CommandTypeCrossChainTransfer

	// CommandTypeSwap swaps the attached coin through a pool.
	CommandTypeSwap

	// CommandTypeMint mints an asset on an asset contract.
	CommandTypeMint

	// CommandTypeHop starts a nested chain on another contract.
	CommandTypeHop

	// CommandTypeNotify sends a zero-payload packet over an IBC channel.
	CommandTypeNotify
)

var commandTypeNames = [...]string{
	CommandTypeTransfer:           "transfer",
	CommandTypeCrossChainTransfer: "ibc_transfer",
	CommandTypeSwap:               "swap",
	CommandTypeMint:               "mint",
	CommandTypeHop:                "hop",
	CommandTypeNotify:             "notify",
}

func (t CommandType) String() string {
	if int(t) < len(commandTypeNames) {
		return commandTypeNames[t]
	}
	return fmt.Sprintf("command(%d)", uint8(t))
}

// Command is one dispatchable operation of a chain.
// This is a sealed interface - only types within this package implement it.
type Command interface {
	isCommand()

	// Type returns the variant of the command.
	Type() CommandType
}

// TransferFunds sends every attached coin to Address.
type TransferFunds struct {
	Address string `json:"address"`
}

func (TransferFunds) isCommand() {}

// Type returns CommandTypeTransfer.
func (TransferFunds) Type() CommandType { return CommandTypeTransfer }

// CrossChainTransfer sends the attached coin to Address over ChannelID.
type CrossChainTransfer struct {
	ChannelID string `json:"channel_id"`
	Address   string `json:"address"`
}

func (CrossChainTransfer) isCommand() {}

// Type returns CommandTypeCrossChainTransfer.
func (CrossChainTransfer) Type() CommandType { return CommandTypeCrossChainTransfer }

// Swap swaps the attached coin in pool PoolID for at least
// TokenOutMinAmount of TokenOutDenom.
type Swap struct {
	PoolID            uint64 `json:"pool_id"`
	TokenOutDenom     string `json:"token_out_denom"`
	TokenOutMinAmount string `json:"token_out_min_amount"`
}

func (Swap) isCommand() {}

// Type returns CommandTypeSwap.
func (Swap) Type() CommandType { return CommandTypeSwap }

// MintAsset mints TokenID with TokenURI to Owner on the asset Contract.
type MintAsset struct {
	Owner    string `json:"owner"`
	Contract string `json:"contract"`
	TokenID  string `json:"token_id"`
	TokenURI string `json:"token_uri"`
}

func (MintAsset) isCommand() {}

// Type returns CommandTypeMint.
func (MintAsset) Type() CommandType { return CommandTypeMint }

// ChainHop starts a nested chain of Commands on Contract.
// Commands may themselves contain ChainHop values.
type ChainHop struct {
	Contract string
	Commands []Command
}

func (ChainHop) isCommand() {}

// Type returns CommandTypeHop.
func (ChainHop) Type() CommandType { return CommandTypeHop }

type chainHopJSON struct {
	Contract string       `json:"contract"`
	Commands []ExecuteMsg `json:"commands"`
}

// MarshalJSON encodes the nested commands as execute envelopes.
func (h ChainHop) MarshalJSON() ([]byte, error) {
	msgs, err := WrapCommands(h.Commands)
	if err != nil {
		return nil, err
	}
	return json.Marshal(chainHopJSON{Contract: h.Contract, Commands: msgs})
}

// UnmarshalJSON decodes nested execute envelopes back into commands.
func (h *ChainHop) UnmarshalJSON(data []byte) error {
	var raw chainHopJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	cmds, err := UnwrapCommands(raw.Commands)
	if err != nil {
		return err
	}
	h.Contract = raw.Contract
	h.Commands = cmds
	return nil
}

// Notify sends an empty packet over ChannelID.
type Notify struct {
	ChannelID string `json:"channel_id"`
}

func (Notify) isCommand() {}

// Type returns CommandTypeNotify.
func (Notify) Type() CommandType { return CommandTypeNotify }

// CancelHop clears the contract's pending chain. It is an administrative
// message and never part of a chain.
type CancelHop struct{}

// ExecuteMsg is the tagged envelope used to invoke the contract and to
// persist and forward commands. Exactly one field is set.
type ExecuteMsg struct {
	Transfer    *TransferFunds      `json:"transfer,omitempty"`
	IBCTransfer *CrossChainTransfer `json:"ibc_transfer,omitempty"`
	Swap        *Swap               `json:"swap,omitempty"`
	Mint        *MintAsset          `json:"mint,omitempty"`
	Hop         *ChainHop           `json:"hop,omitempty"`
	Notify      *Notify             `json:"notify,omitempty"`
	CancelHop   *CancelHop          `json:"cancel_hop,omitempty"`
}

// WrapCommand places cmd in an execute envelope.
func WrapCommand(cmd Command) (ExecuteMsg, error) {
	switch c := cmd.(type) {
	case TransferFunds:
		return ExecuteMsg{Transfer: &c}, nil
	case CrossChainTransfer:
		return ExecuteMsg{IBCTransfer: &c}, nil
	case Swap:
		return ExecuteMsg{Swap: &c}, nil
	case MintAsset:
		return ExecuteMsg{Mint: &c}, nil
	case ChainHop:
		return ExecuteMsg{Hop: &c}, nil
	case Notify:
		return ExecuteMsg{Notify: &c}, nil
	default:
		return ExecuteMsg{}, fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
}

// WrapCommands wraps every command, preserving order.
func WrapCommands(cmds []Command) ([]ExecuteMsg, error) {
	msgs := make([]ExecuteMsg, len(cmds))
	for i, cmd := range cmds {
		msg, err := WrapCommand(cmd)
		if err != nil {
			return nil, err
		}
		msgs[i] = msg
	}
	return msgs, nil
}

// Command returns the command held by the envelope. CancelHop is not a
// command and yields ErrInvalidMessage.
func (m ExecuteMsg) Command() (Command, error) {
	var (
		cmd Command
		n   int
	)
	if m.Transfer != nil {
		cmd, n = *m.Transfer, n+1
	}
	if m.IBCTransfer != nil {
		cmd, n = *m.IBCTransfer, n+1
	}
	if m.Swap != nil {
		cmd, n = *m.Swap, n+1
	}
	if m.Mint != nil {
		cmd, n = *m.Mint, n+1
	}
	if m.Hop != nil {
		cmd, n = *m.Hop, n+1
	}
	if m.Notify != nil {
		cmd, n = *m.Notify, n+1
	}
	if m.CancelHop != nil {
		n++
		cmd = nil
	}
	if n != 1 || cmd == nil {
		return nil, ErrInvalidMessage
	}
	return cmd, nil
}

// UnwrapCommands converts envelopes back into commands, preserving order.
func UnwrapCommands(msgs []ExecuteMsg) ([]Command, error) {
	cmds := make([]Command, len(msgs))
	for i, msg := range msgs {
		cmd, err := msg.Command()
		if err != nil {
			return nil, fmt.Errorf("command %d: %w", i, err)
		}
		cmds[i] = cmd
	}
	return cmds, nil
}

// MarshalCommands encodes commands as a JSON array of execute envelopes.
// This is the persisted form of pending_commands.
func MarshalCommands(cmds []Command) ([]byte, error) {
	msgs, err := WrapCommands(cmds)
	if err != nil {
		return nil, err
	}
	return json.Marshal(msgs)
}

// UnmarshalCommands is the inverse of MarshalCommands.
func UnmarshalCommands(data []byte) ([]Command, error) {
	var msgs []ExecuteMsg
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, err
	}
	return UnwrapCommands(msgs)
}

// Sequence returns cmds in stack order so that a chain started with the
// result executes them first to last. BeginChain itself dispatches the last
// element of its input first.
func Sequence(cmds ...Command) []Command {
	out := make([]Command, len(cmds))
	for i, cmd := range cmds {
		out[len(cmds)-1-i] = cmd
	}
	return out
}
