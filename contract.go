package hop

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Contract identity reported by Instantiate.
const (
	ContractName    = "go-hop"
	ContractVersion = "0.1.0"
)

// Contract is a hop contract instance. Every method is one host invocation
// and runs to completion; nothing but the Store carries state between them.
type Contract struct {
	store     Store
	balances  BalanceQuerier
	validator Validator
	encoder   Encoder
	ops       *DispatchEncoder
	logger    *zap.Logger
	admin     string
	cfg       *contractConfig
}

// New creates a Contract with the given options.
func New(opts ...ContractOption) *Contract {
	cfg := defaultContractConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.store == nil {
		cfg.store = NewMemoryStore()
	}

	ops := NewDispatchEncoder(cfg.idFunc)
	if cfg.encoder == nil {
		cfg.encoder = ops
	}

	return &Contract{
		store:     cfg.store,
		balances:  cfg.balances,
		validator: cfg.validator,
		encoder:   cfg.encoder,
		ops:       ops,
		logger:    cfg.logger,
		admin:     cfg.admin,
		cfg:       cfg,
	}
}

// Instantiate acknowledges contract creation. It writes no state.
func (c *Contract) Instantiate(ctx context.Context, env Env, info MessageInfo) (*Response, error) {
	c.logger.Info("contract instantiated",
		zap.String("contract", env.Contract.Hex()),
		zap.String("sender", info.Sender),
	)
	return NewResponse().
		AddAttribute("method", "instantiate").
		AddAttribute("contract_name", ContractName).
		AddAttribute("contract_version", ContractVersion), nil
}

// ExecuteJSON decodes raw as an ExecuteMsg and executes it.
func (c *Contract) ExecuteJSON(ctx context.Context, env Env, info MessageInfo, raw []byte) (*Response, error) {
	var msg ExecuteMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, &MessageError{Err: err}
	}
	return c.Execute(ctx, env, info, msg)
}

// Execute routes msg to its operation.
func (c *Contract) Execute(ctx context.Context, env Env, info MessageInfo, msg ExecuteMsg) (*Response, error) {
	if msg.CancelHop != nil {
		if msg.Transfer != nil || msg.IBCTransfer != nil || msg.Swap != nil ||
			msg.Mint != nil || msg.Hop != nil || msg.Notify != nil {
			return nil, ErrInvalidMessage
		}
		return c.CancelChain(ctx, env, info)
	}

	cmd, err := msg.Command()
	if err != nil {
		return nil, err
	}

	switch cmd := cmd.(type) {
	case TransferFunds:
		return c.Transfer(ctx, env, info, cmd.Address)
	case CrossChainTransfer:
		return c.CrossChainTransfer(ctx, env, info, cmd.ChannelID, cmd.Address)
	case Swap:
		return c.Swap(ctx, env, info, cmd)
	case MintAsset:
		return c.MintAsset(ctx, env, info, cmd)
	case ChainHop:
		return c.BeginChain(ctx, env, info, cmd.Contract, cmd.Commands)
	case Notify:
		return c.Notify(ctx, env, info, cmd.ChannelID)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
}

// Transfer sends every attached coin to address. Zero attached funds
// produce a zero-amount transfer.
func (c *Contract) Transfer(ctx context.Context, env Env, info MessageInfo, address string) (*Response, error) {
	to, err := validateField(c.validator, "recipient", address)
	if err != nil {
		return nil, err
	}

	d := c.ops.BankSend(to, info.Funds)
	c.logger.Debug("transfer", zap.String("to", to.Hex()), zap.Stringer("funds", info.Funds))

	return NewResponse().
		AddAttribute("method", "execute_transfer").
		AddMessage(d), nil
}

// CrossChainTransfer sends the last attached coin to address over channelID.
func (c *Contract) CrossChainTransfer(ctx context.Context, env Env, info MessageInfo, channelID, address string) (*Response, error) {
	coin, _, ok := info.Funds.popLast()
	if !ok {
		return nil, ErrMissingFunds
	}

	timeout := env.BlockTime.Add(c.cfg.packetLifetime)
	d := c.ops.IBCTransfer(channelID, address, coin, timeout)
	c.logger.Debug("ibc transfer",
		zap.String("channel", channelID),
		zap.String("to", address),
		zap.Stringer("coin", coin),
		zap.Time("timeout", timeout),
	)

	return NewResponse().
		AddAttribute("action", "execute_ibc_transfer").
		AddMessage(d), nil
}

// Swap swaps the last attached coin through s.PoolID.
func (c *Contract) Swap(ctx context.Context, env Env, info MessageInfo, s Swap) (*Response, error) {
	coin, _, ok := info.Funds.popLast()
	if !ok {
		return nil, ErrMissingFunds
	}

	d, err := c.ops.SwapExactAmountIn(env.Contract, s, coin)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("swap",
		zap.Uint64("pool", s.PoolID),
		zap.Stringer("token_in", coin),
		zap.String("token_out_denom", s.TokenOutDenom),
	)

	return NewResponse().
		AddAttribute("method", "execute_swap").
		AddMessage(d), nil
}

// MintAsset mints m.TokenID on the asset contract, forwarding attached funds.
func (c *Contract) MintAsset(ctx context.Context, env Env, info MessageInfo, m MintAsset) (*Response, error) {
	contract, err := validateField(c.validator, "asset contract", m.Contract)
	if err != nil {
		return nil, err
	}
	owner, err := validateField(c.validator, "owner", m.Owner)
	if err != nil {
		return nil, err
	}

	d, err := c.ops.Mint(contract, owner, m.TokenID, m.TokenURI, info.Funds)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("mint",
		zap.String("contract", contract.Hex()),
		zap.String("owner", owner.Hex()),
		zap.String("token_id", m.TokenID),
	)

	return NewResponse().
		AddAttribute("method", "execute_mint").
		AddAttribute("token_id", m.TokenID).
		AddMessage(d), nil
}

// Notify sends an empty packet over channelID.
func (c *Contract) Notify(ctx context.Context, env Env, info MessageInfo, channelID string) (*Response, error) {
	timeout := env.BlockTime.Add(c.cfg.notifyLifetime)
	d := c.ops.Packet(channelID, timeout)
	c.logger.Debug("notify", zap.String("channel", channelID), zap.Time("timeout", timeout))

	return NewResponse().
		AddAttribute("method", "execute_notify").
		AddAttribute("channel", channelID).
		AddMessage(d), nil
}

// Pending returns the persisted chain.
func (c *Contract) Pending(ctx context.Context) (PendingChain, error) {
	return c.store.Load(ctx)
}

// CancelChain discards the pending chain. Only the configured admin may
// cancel; an acknowledgement still in flight then finds nothing to resume.
func (c *Contract) CancelChain(ctx context.Context, env Env, info MessageInfo) (*Response, error) {
	if c.admin == "" || !strings.EqualFold(c.admin, info.Sender) {
		return nil, fmt.Errorf("%w: sender %q may not cancel", ErrUnauthorized, info.Sender)
	}

	p, err := c.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("hop: loading pending chain: %w", err)
	}
	if err := c.store.Clear(ctx); err != nil {
		return nil, fmt.Errorf("hop: clearing pending chain: %w", err)
	}

	c.logger.Info("pending chain cancelled",
		zap.String("target", p.Target.Hex()),
		zap.Int("dropped", p.Len()),
	)

	return NewResponse().
		AddAttribute("method", "cancel_hop").
		AddAttribute("dropped", fmt.Sprint(p.Len())), nil
}
