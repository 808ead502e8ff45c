package hoptest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	hop "github.com/branched-services/go-hop"
	"github.com/ethereum/go-ethereum/common"
)

// ErrInsufficientFunds indicates an account cannot cover a debit.
var ErrInsufficientFunds = errors.New("hoptest: insufficient funds")

// ErrNegativeAmount indicates a debit of a coin below zero.
var ErrNegativeAmount = errors.New("hoptest: negative coin amount")

// Ledger tracks balances per account. Hex addresses are keyed by their
// checksummed form; any other string (such as a remote-chain recipient) is
// used verbatim.
type Ledger struct {
	mu       sync.Mutex
	balances map[string]map[string]*big.Int
}

var _ hop.BalanceQuerier = (*Ledger)(nil)

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[string]map[string]*big.Int)}
}

func accountKey(addr string) string {
	if common.IsHexAddress(addr) {
		return common.HexToAddress(addr).Hex()
	}
	return addr
}

// Mint credits coins to addr out of thin air.
func (l *Ledger) Mint(addr string, coins ...hop.Coin) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.credit(accountKey(addr), coins)
}

// Balances returns the normalized funds held by addr.
func (l *Ledger) Balances(addr string) hop.Funds {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.funds(accountKey(addr))
}

// Balance returns the amount of denom held by addr.
func (l *Ledger) Balance(addr, denom string) *big.Int {
	return l.Balances(addr).AmountOf(denom)
}

// AllBalances implements hop.BalanceQuerier.
func (l *Ledger) AllBalances(ctx context.Context, addr common.Address) (hop.Funds, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.Balances(addr.Hex()), nil
}

// Transfer moves funds from one account to another. Nothing moves if from
// cannot cover every coin.
func (l *Ledger) Transfer(from, to string, funds hop.Funds) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	from, to = accountKey(from), accountKey(to)
	if err := l.debit(from, funds); err != nil {
		return err
	}
	l.credit(to, funds)
	return nil
}

// Burn removes funds from addr.
func (l *Ledger) Burn(addr string, funds hop.Funds) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.debit(accountKey(addr), funds)
}

func (l *Ledger) funds(key string) hop.Funds {
	var out hop.Funds
	for denom, amount := range l.balances[key] {
		out = append(out, hop.Coin{Denom: denom, Amount: new(big.Int).Set(amount)})
	}
	return out.Normalize()
}

func (l *Ledger) credit(key string, coins []hop.Coin) {
	acct := l.balances[key]
	if acct == nil {
		acct = make(map[string]*big.Int)
		l.balances[key] = acct
	}
	for _, c := range coins {
		if c.Amount == nil {
			continue
		}
		cur, ok := acct[c.Denom]
		if !ok {
			cur = new(big.Int)
			acct[c.Denom] = cur
		}
		cur.Add(cur, c.Amount)
	}
}

func (l *Ledger) debit(key string, coins []hop.Coin) error {
	for _, c := range coins {
		if c.Amount != nil && c.Amount.Sign() < 0 {
			return fmt.Errorf("%w: %s", ErrNegativeAmount, c)
		}
	}
	need := hop.Funds(coins).Normalize()
	acct := l.balances[key]

	for _, c := range need {
		have := new(big.Int)
		if acct != nil && acct[c.Denom] != nil {
			have = acct[c.Denom]
		}
		if have.Cmp(c.Amount) < 0 {
			return fmt.Errorf("%w: %s has %s%s, needs %s", ErrInsufficientFunds, key, have, c.Denom, c)
		}
	}
	for _, c := range need {
		acct[c.Denom].Sub(acct[c.Denom], c.Amount)
	}
	return nil
}

// snapshot returns a deep copy of all balances.
func (l *Ledger) snapshot() map[string]map[string]*big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]map[string]*big.Int, len(l.balances))
	for k, acct := range l.balances {
		cp := make(map[string]*big.Int, len(acct))
		for d, a := range acct {
			cp[d] = new(big.Int).Set(a)
		}
		out[k] = cp
	}
	return out
}

func (l *Ledger) restore(s map[string]map[string]*big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.balances = s
}
