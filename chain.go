package hop

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// ChainReplyID is the correlation id attached to every chained dispatch.
// A single id suffices because only one chain is in flight per contract.
const ChainReplyID uint64 = 1

// BalanceQuerier reports the balances currently held by an account.
type BalanceQuerier interface {
	AllBalances(ctx context.Context, addr common.Address) (Funds, error)
}

// ErrNoBalanceQuerier indicates a chain was resumed on a contract built
// without WithBalances.
var ErrNoBalanceQuerier = errors.New("hop: no balance querier configured")

// BeginChain starts executing cmds, in order, against target.
//
// The last command is dispatched at once with the attached funds; the rest
// are persisted and dispatched one per successful Reply. Starting a chain
// replaces any chain already pending.
func (c *Contract) BeginChain(ctx context.Context, env Env, info MessageInfo, target string, cmds []Command) (*Response, error) {
	addr, err := validateField(c.validator, "contract", target)
	if err != nil {
		return nil, err
	}

	p := PendingChain{
		Remaining: append([]Command(nil), cmds...),
		Target:    addr,
	}

	resp := NewResponse().
		AddAttribute("method", "execute_hop").
		AddAttribute("contract", addr.Hex()).
		AddAttribute("commands", strconv.Itoa(len(cmds)))

	if err := c.dispatchNext(ctx, &p, info.Funds, resp); err != nil {
		return nil, err
	}

	c.logger.Info("chain started",
		zap.String("target", addr.Hex()),
		zap.Int("commands", len(cmds)),
		zap.Stringer("funds", info.Funds),
	)
	return resp, nil
}

// Reply handles the acknowledgement of a chained dispatch.
//
// On success the contract's balances are re-queried and the next pending
// command is dispatched with them. On failure the error is returned as an
// UpstreamError and the pending commands are left untouched.
func (c *Contract) Reply(ctx context.Context, env Env, reply Reply) (*Response, error) {
	if reply.ID != ChainReplyID {
		return nil, &ReplyIDError{ID: reply.ID}
	}

	if reply.Result.Failed() {
		c.logger.Warn("chained dispatch failed",
			zap.Uint64("reply_id", reply.ID),
			zap.String("error", reply.Result.Err),
		)
		return nil, &UpstreamError{ReplyID: reply.ID, Message: reply.Result.Err}
	}

	p, err := c.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("hop: loading pending chain: %w", err)
	}

	resp := NewResponse().AddAttribute("method", "reply")

	if p.Len() == 0 {
		c.logger.Info("chain complete", zap.String("target", p.Target.Hex()))
		return resp.AddAttribute("status", "complete"), nil
	}

	if c.balances == nil {
		return nil, ErrNoBalanceQuerier
	}
	funds, err := c.balances.AllBalances(ctx, env.Contract)
	if err != nil {
		return nil, fmt.Errorf("hop: querying balances of %s: %w", env.Contract.Hex(), err)
	}

	if err := c.dispatchNext(ctx, &p, funds, resp); err != nil {
		return nil, err
	}
	return resp.AddAttribute("status", "dispatched"), nil
}

// dispatchNext pops the last command of p, encodes it for p.Target with
// funds and persists the shortened chain. Encoding happens before the write
// so a failed encoding leaves the store untouched.
func (c *Contract) dispatchNext(ctx context.Context, p *PendingChain, funds Funds, resp *Response) error {
	cmd, ok := p.pop()
	if ok {
		d, err := c.encoder.EncodeCommand(cmd, p.Target, funds)
		if err != nil {
			return err
		}
		resp.AddSubCall(ChainReplyID, d)
		resp.AddAttribute("dispatched", cmd.Type().String())

		c.logger.Debug("dispatching command",
			zap.Stringer("command", cmd.Type()),
			zap.String("dispatch_id", d.ID),
			zap.String("target", p.Target.Hex()),
			zap.Int("remaining", p.Len()),
		)
	}

	if err := c.store.Save(ctx, *p); err != nil {
		return fmt.Errorf("hop: saving pending chain: %w", err)
	}
	resp.AddAttribute("remaining", strconv.Itoa(p.Len()))
	return nil
}
