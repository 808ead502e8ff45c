// Package hop implements a contract that executes a chain ("hop") of
// operations one at a time, gating each step on the host's acknowledgement
// of the previous one.
//
// The host executes dispatched calls asynchronously and reports each outcome
// through a later Reply, so the contract cannot sequence a chain with an
// ordinary loop. Instead the undispatched remainder of the chain is kept in a
// Store and every successful Reply pops and dispatches the next command.
//
// # Basic Usage
//
//	contract := hop.New(
//	    hop.WithStore(hop.NewMemoryStore()),
//	    hop.WithBalances(ledger),
//	)
//
//	resp, err := contract.BeginChain(ctx, env, info, target, []hop.Command{
//	    hop.Swap{PoolID: 1, TokenOutDenom: "uosmo", TokenOutMinAmount: "1"},
//	    hop.TransferFunds{Address: recipient},
//	})
//
//	// The host executes resp.Messages and then calls back:
//	resp, err = contract.Reply(ctx, env, hop.Reply{
//	    ID:     hop.ChainReplyID,
//	    Result: hop.SubCallResult{Ok: &hop.SubCallResponse{}},
//	})
//
// # Commands
//
// Commands form a closed set:
//
//   - TransferFunds: send all funds to an address
//   - CrossChainTransfer: send one coin over an IBC channel
//   - Swap: swap one coin through a pool
//   - MintAsset: mint an asset on an asset contract
//   - ChainHop: start a nested chain on another contract
//   - Notify: send an empty packet over an IBC channel
//
// Inside a chain every command is wrapped in its ExecuteMsg envelope and sent
// to the chain's target contract, which performs it as a single-shot
// operation. A ChainHop sent this way starts a chain on the target.
//
// # Ordering
//
// Commands run in the order given. The engine treats the persisted list as a
// stack and pops from the end, so BeginChain dispatches the last element
// first; callers pass commands through Sequence to keep first-to-last order.
//
// # Failure
//
// A failed Reply returns an UpstreamError and leaves the undispatched
// commands in the Store. They stay there until a new chain replaces them or
// the admin sends cancel_hop. Confirmed steps are never rolled back.
package hop
