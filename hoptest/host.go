// Package hoptest provides an in-memory host runtime for driving hop
// contracts end to end.
//
// A Host owns a Ledger, swap pools, an asset registry and a record of sent
// packets. Host.Execute invokes a registered contract and then processes the
// sub-calls it returns depth-first, delivering each acknowledgement to the
// issuing contract before moving on, the way the chain runtime does.
package hoptest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	hop "github.com/branched-services/go-hop"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// MaxDepth bounds contract-to-contract recursion.
const MaxDepth = 16

var (
	// ErrNoContract indicates a dispatch to an address with no registered contract.
	ErrNoContract = errors.New("hoptest: no contract at address")

	// ErrNoPool indicates a swap against an unknown pool.
	ErrNoPool = errors.New("hoptest: unknown pool")

	// ErrSlippage indicates a swap that would return less than its minimum.
	ErrSlippage = errors.New("hoptest: token out below minimum")

	// ErrTokenExists indicates a mint of an already minted token id.
	ErrTokenExists = errors.New("hoptest: token already minted")

	// ErrExpired indicates a packet whose timeout is not after the block time.
	ErrExpired = errors.New("hoptest: packet timeout already passed")

	// ErrMaxDepth indicates runaway recursion between contracts.
	ErrMaxDepth = errors.New("hoptest: max call depth exceeded")
)

// Pool swaps TokenIn for TokenOut at the fixed rate RateNum/RateDen.
type Pool struct {
	ID       uint64
	TokenIn  string
	TokenOut string
	RateNum  int64
	RateDen  int64
}

// Asset is a minted token.
type Asset struct {
	Owner    common.Address
	TokenURI string
}

// Packet is an outbound cross-chain packet.
type Packet struct {
	Sender    common.Address
	ChannelID string
	Receiver  string
	Funds     hop.Funds
	Payload   []byte
	Timeout   time.Time
}

// Event records one processed dispatch.
type Event struct {
	Caller   common.Address
	Dispatch hop.Dispatch
	Err      error
}

// Host is a simulated chain runtime. It is not safe for concurrent use.
type Host struct {
	ledger    *Ledger
	pools     map[uint64]Pool
	assets    map[common.Address]map[string]Asset
	packets   []Packet
	contracts map[common.Address]*hop.Contract
	events    []Event

	blockTime time.Time
	chainID   string
	logger    *zap.Logger
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithBlockTime sets the block time reported in every Env.
func WithBlockTime(t time.Time) HostOption {
	return func(h *Host) {
		h.blockTime = t
	}
}

// WithChainID sets the chain id reported in every Env.
func WithChainID(id string) HostOption {
	return func(h *Host) {
		h.chainID = id
	}
}

// WithLogger sets the logger used to trace dispatches.
func WithLogger(l *zap.Logger) HostOption {
	return func(h *Host) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHost returns an empty host.
func NewHost(opts ...HostOption) *Host {
	h := &Host{
		ledger:    NewLedger(),
		pools:     make(map[uint64]Pool),
		assets:    make(map[common.Address]map[string]Asset),
		contracts: make(map[common.Address]*hop.Contract),
		blockTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		chainID:   "hoptest-1",
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Ledger returns the host ledger. It doubles as the hop.BalanceQuerier of
// contracts running on the host.
func (h *Host) Ledger() *Ledger { return h.ledger }

// Env returns the environment seen by the contract at addr.
func (h *Host) Env(addr common.Address) hop.Env {
	return hop.Env{Contract: addr, BlockTime: h.blockTime, ChainID: h.chainID}
}

// AddPool registers a swap pool.
func (h *Host) AddPool(p Pool) {
	h.pools[p.ID] = p
}

// Register places c at addr.
func (h *Host) Register(addr common.Address, c *hop.Contract) {
	h.contracts[addr] = c
}

// Asset returns the token minted as id on contract.
func (h *Host) Asset(contract common.Address, id string) (Asset, bool) {
	a, ok := h.assets[contract][id]
	return a, ok
}

// Packets returns every packet sent so far.
func (h *Host) Packets() []Packet {
	return append([]Packet(nil), h.packets...)
}

// Events returns every processed dispatch in execution order.
func (h *Host) Events() []Event {
	return append([]Event(nil), h.events...)
}

// Execute invokes the contract at addr on behalf of sender with funds, then
// processes the resulting sub-calls. Funds move from sender to the contract
// first. A failure anywhere rolls back host state.
func (h *Host) Execute(ctx context.Context, addr common.Address, sender string, funds hop.Funds, msg hop.ExecuteMsg) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return h.ExecuteJSON(ctx, addr, sender, funds, raw)
}

// ExecuteJSON is Execute with a raw message.
func (h *Host) ExecuteJSON(ctx context.Context, addr common.Address, sender string, funds hop.Funds, raw []byte) error {
	snap := h.snapshot()
	if err := h.invoke(ctx, addr, sender, funds, raw, 0); err != nil {
		h.restore(snap)
		return err
	}
	return nil
}

func (h *Host) invoke(ctx context.Context, addr common.Address, sender string, funds hop.Funds, raw []byte, depth int) error {
	if depth > MaxDepth {
		return ErrMaxDepth
	}

	c, ok := h.contracts[addr]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoContract, addr.Hex())
	}

	if err := h.ledger.Transfer(sender, addr.Hex(), funds); err != nil {
		return err
	}

	resp, err := c.ExecuteJSON(ctx, h.Env(addr), hop.MessageInfo{Sender: sender, Funds: funds.Clone()}, raw)
	if err != nil {
		return err
	}
	return h.process(ctx, addr, c, resp, depth)
}

// process performs the messages of resp in order. A sub-call that asked for
// a reply has its own effects rolled back on failure and the failure is
// handed to the contract; the contract's reply error then fails the caller.
func (h *Host) process(ctx context.Context, addr common.Address, c *hop.Contract, resp *hop.Response, depth int) error {
	for _, sub := range resp.Messages {
		snap := h.snapshot()
		err := h.dispatch(ctx, addr, sub.Dispatch, depth)
		h.events = append(h.events, Event{Caller: addr, Dispatch: sub.Dispatch, Err: err})

		h.logger.Debug("dispatch processed",
			zap.String("caller", addr.Hex()),
			zap.Stringer("kind", sub.Dispatch.Kind),
			zap.String("id", sub.Dispatch.ID),
			zap.Error(err),
		)

		if sub.ReplyOn == hop.ReplyNever {
			if err != nil {
				return err
			}
			continue
		}

		result := hop.SubCallResult{Ok: &hop.SubCallResponse{}}
		if err != nil {
			h.restore(snap)
			result = hop.SubCallResult{Err: err.Error()}
		}

		reply, err := c.Reply(ctx, h.Env(addr), hop.Reply{ID: sub.ID, Result: result})
		if err != nil {
			return err
		}
		// A reply runs in the same contract frame; only invoke adds depth.
		if err := h.process(ctx, addr, c, reply, depth); err != nil {
			return err
		}
	}
	return nil
}

func (h *Host) dispatch(ctx context.Context, caller common.Address, d hop.Dispatch, depth int) error {
	switch d.Kind {
	case hop.DispatchBankSend:
		return h.ledger.Transfer(caller.Hex(), d.Target, d.Funds)

	case hop.DispatchIBCTransfer:
		if !d.Timeout.After(h.blockTime) {
			return ErrExpired
		}
		if err := h.ledger.Burn(caller.Hex(), d.Funds); err != nil {
			return err
		}
		h.packets = append(h.packets, Packet{
			Sender:    caller,
			ChannelID: d.ChannelID,
			Receiver:  d.Target,
			Funds:     d.Funds.Clone(),
			Timeout:   d.Timeout,
		})
		return nil

	case hop.DispatchIBCPacket:
		if !d.Timeout.After(h.blockTime) {
			return ErrExpired
		}
		h.packets = append(h.packets, Packet{
			Sender:    caller,
			ChannelID: d.ChannelID,
			Payload:   append([]byte(nil), d.Payload...),
			Timeout:   d.Timeout,
		})
		return nil

	case hop.DispatchSwap:
		return h.swap(caller, d)

	case hop.DispatchContractExecute:
		target := common.HexToAddress(d.Target)
		if d.Encoding == hop.EncodingABI {
			return h.mint(caller, target, d)
		}
		return h.invoke(ctx, target, caller.Hex(), d.Funds, d.Payload, depth+1)

	default:
		return fmt.Errorf("hoptest: unsupported dispatch kind %s", d.Kind)
	}
}

func (h *Host) swap(caller common.Address, d hop.Dispatch) error {
	msg, err := hop.DecodeSwapMsg(d.Payload)
	if err != nil {
		return err
	}
	if !common.IsHexAddress(msg.Sender) || common.HexToAddress(msg.Sender) != caller {
		return fmt.Errorf("hoptest: swap sender %s is not the caller %s", msg.Sender, caller.Hex())
	}

	route := msg.Routes[0]
	pool, ok := h.pools[route.PoolID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoPool, route.PoolID)
	}
	if msg.TokenIn.Denom != pool.TokenIn || route.TokenOutDenom != pool.TokenOut {
		return fmt.Errorf("hoptest: pool %d swaps %s for %s", pool.ID, pool.TokenIn, pool.TokenOut)
	}

	out := new(big.Int).Mul(msg.TokenIn.Amount, big.NewInt(pool.RateNum))
	out.Quo(out, big.NewInt(pool.RateDen))

	minOut := new(big.Int)
	if msg.TokenOutMinAmount != "" {
		if _, ok := minOut.SetString(msg.TokenOutMinAmount, 10); !ok {
			return fmt.Errorf("hoptest: invalid token_out_min_amount %q", msg.TokenOutMinAmount)
		}
	}
	if out.Cmp(minOut) < 0 {
		return fmt.Errorf("%w: got %s%s, want %s", ErrSlippage, out, pool.TokenOut, minOut)
	}

	if err := h.ledger.Burn(caller.Hex(), hop.Funds{msg.TokenIn}); err != nil {
		return err
	}
	h.ledger.Mint(caller.Hex(), hop.Coin{Denom: pool.TokenOut, Amount: out})
	return nil
}

func (h *Host) mint(caller, contract common.Address, d hop.Dispatch) error {
	call, err := hop.UnpackMint(d.Payload)
	if err != nil {
		return err
	}
	if _, ok := h.assets[contract][call.TokenID]; ok {
		return fmt.Errorf("%w: %s", ErrTokenExists, call.TokenID)
	}
	if err := h.ledger.Transfer(caller.Hex(), contract.Hex(), d.Funds); err != nil {
		return err
	}

	if h.assets[contract] == nil {
		h.assets[contract] = make(map[string]Asset)
	}
	h.assets[contract][call.TokenID] = Asset{Owner: call.Owner, TokenURI: call.TokenURI}
	return nil
}

type hostState struct {
	balances map[string]map[string]*big.Int
	assets   map[common.Address]map[string]Asset
	packets  int
}

// snapshot captures ledger, assets and packets. Contract stores are not
// captured.
func (h *Host) snapshot() hostState {
	assets := make(map[common.Address]map[string]Asset, len(h.assets))
	for c, m := range h.assets {
		cp := make(map[string]Asset, len(m))
		for id, a := range m {
			cp[id] = a
		}
		assets[c] = cp
	}
	return hostState{balances: h.ledger.snapshot(), assets: assets, packets: len(h.packets)}
}

func (h *Host) restore(s hostState) {
	h.ledger.restore(s.balances)
	h.assets = s.assets
	h.packets = h.packets[:s.packets]
}
