// Package ethhost reads a hop contract's balances from an Ethereum JSON-RPC
// node.
//
// The native balance is reported under a configured denomination and every
// configured ERC-20 token under its own. RPC endpoints are tried in order
// until one answers.
package ethhost

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"

	hop "github.com/branched-services/go-hop"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// ERC20BalanceABI is the subset of the ERC-20 ABI used by the Querier.
const ERC20BalanceABI = `[
	{
		"name": "balanceOf",
		"type": "function",
		"stateMutability": "view",
		"inputs": [{"name": "account", "type": "address"}],
		"outputs": [{"name": "", "type": "uint256"}]
	}
]`

var erc20ABI = hop.MustParseABI(ERC20BalanceABI)

// ErrNoEndpoints indicates a Querier built without RPC URLs.
var ErrNoEndpoints = errors.New("ethhost: no rpc endpoints configured")

// Backend is the part of ethclient.Client used by the Querier.
type Backend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	Close()
}

// Dialer connects to the node at url.
type Dialer func(ctx context.Context, url string) (Backend, error)

// Token maps a denomination to an ERC-20 contract.
type Token struct {
	Denom   string `yaml:"denom"`
	Address string `yaml:"address"`
}

// Querier is a hop.BalanceQuerier backed by Ethereum JSON-RPC.
type Querier struct {
	urls        []string
	nativeDenom string
	tokens      []token
	dial        Dialer
	logger      *zap.Logger
}

type token struct {
	denom   string
	address common.Address
}

var _ hop.BalanceQuerier = (*Querier)(nil)

// Option configures a Querier.
type Option func(*Querier)

// WithDialer replaces ethclient.DialContext.
func WithDialer(d Dialer) Option {
	return func(q *Querier) {
		q.dial = d
	}
}

// WithLogger sets the logger used to report failing endpoints.
func WithLogger(l *zap.Logger) Option {
	return func(q *Querier) {
		if l != nil {
			q.logger = l
		}
	}
}

// WithTokens adds ERC-20 tokens to report.
func WithTokens(tokens ...Token) Option {
	return func(q *Querier) {
		for _, t := range tokens {
			q.tokens = append(q.tokens, token{denom: t.Denom, address: common.HexToAddress(t.Address)})
		}
	}
}

// New returns a Querier over urls reporting native balances as nativeDenom.
// Token addresses must be valid hex addresses.
func New(urls []string, nativeDenom string, opts ...Option) (*Querier, error) {
	if len(urls) == 0 {
		return nil, ErrNoEndpoints
	}

	q := &Querier{
		urls:        append([]string(nil), urls...),
		nativeDenom: nativeDenom,
		dial:        dialEthclient,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(q)
	}

	seen := make(map[string]bool, len(q.tokens))
	for _, t := range q.tokens {
		if t.denom == "" || t.denom == nativeDenom || seen[t.denom] {
			return nil, fmt.Errorf("ethhost: duplicate or empty token denom %q", t.denom)
		}
		seen[t.denom] = true
	}
	sort.Slice(q.tokens, func(i, j int) bool { return q.tokens[i].denom < q.tokens[j].denom })

	return q, nil
}

func dialEthclient(ctx context.Context, url string) (Backend, error) {
	return ethclient.DialContext(ctx, url)
}

// AllBalances implements hop.BalanceQuerier. Zero balances are omitted.
func (q *Querier) AllBalances(ctx context.Context, addr common.Address) (hop.Funds, error) {
	return withClient(ctx, q, func(b Backend) (hop.Funds, error) {
		var funds hop.Funds

		if q.nativeDenom != "" {
			native, err := b.BalanceAt(ctx, addr, nil)
			if err != nil {
				return nil, fmt.Errorf("native balance: %w", err)
			}
			funds = append(funds, hop.Coin{Denom: q.nativeDenom, Amount: native})
		}

		for _, t := range q.tokens {
			amount, err := balanceOf(ctx, b, t.address, addr)
			if err != nil {
				return nil, fmt.Errorf("%s balance: %w", t.denom, err)
			}
			funds = append(funds, hop.Coin{Denom: t.denom, Amount: amount})
		}

		return funds.Normalize(), nil
	})
}

func balanceOf(ctx context.Context, b Backend, tokenAddr, account common.Address) (*big.Int, error) {
	data, err := erc20ABI.Pack("balanceOf", account)
	if err != nil {
		return nil, err
	}

	out, err := b.CallContract(ctx, ethereum.CallMsg{To: &tokenAddr, Data: data}, nil)
	if err != nil {
		return nil, err
	}

	values, err := erc20ABI.Unpack("balanceOf", out)
	if err != nil {
		return nil, err
	}
	amount := *abi.ConvertType(values[0], new(*big.Int)).(**big.Int)
	return amount, nil
}

// withClient runs f against each endpoint in turn and returns the first
// success. The error of the last attempt is returned when all fail.
func withClient[T any](ctx context.Context, q *Querier, f func(Backend) (T, error)) (res T, err error) {
	for _, url := range q.urls {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}

		var b Backend
		b, err = q.dial(ctx, url)
		if err != nil {
			q.logger.Warn("rpc dial failed", zap.String("url", url), zap.Error(err))
			continue
		}

		res, err = f(b)
		b.Close()
		if err == nil {
			return res, nil
		}
		q.logger.Warn("rpc call failed", zap.String("url", url), zap.Error(err))
	}
	return res, fmt.Errorf("ethhost: all endpoints failed: %w", err)
}
