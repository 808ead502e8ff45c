package hop

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"strings"
)

// Coin is an amount of a single denomination.
// Amounts are encoded as decimal strings so they survive JSON round trips.
type Coin struct {
	Denom  string
	Amount *big.Int
}

// NewCoin creates a coin from an int64 amount.
func NewCoin(denom string, amount int64) Coin {
	return Coin{Denom: denom, Amount: big.NewInt(amount)}
}

type coinJSON struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// MarshalJSON implements json.Marshaler.
func (c Coin) MarshalJSON() ([]byte, error) {
	return json.Marshal(coinJSON{Denom: c.Denom, Amount: c.amount().String()})
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Coin) UnmarshalJSON(data []byte) error {
	var raw coinJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	amount := new(big.Int)
	if raw.Amount != "" {
		if _, ok := amount.SetString(raw.Amount, 10); !ok {
			return fmt.Errorf("hop: invalid coin amount %q", raw.Amount)
		}
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("hop: negative coin amount %q", raw.Amount)
	}
	c.Denom = raw.Denom
	c.Amount = amount
	return nil
}

// String renders the coin as "<amount><denom>".
func (c Coin) String() string {
	return c.amount().String() + c.Denom
}

// IsZero reports whether the coin carries no value.
func (c Coin) IsZero() bool {
	return c.Amount == nil || c.Amount.Sign() == 0
}

func (c Coin) amount() *big.Int {
	if c.Amount == nil {
		return new(big.Int)
	}
	return c.Amount
}

// clone returns a deep copy of the coin.
func (c Coin) clone() Coin {
	return Coin{Denom: c.Denom, Amount: new(big.Int).Set(c.amount())}
}

// Funds is the set of coins attached to an invocation or held by an account.
type Funds []Coin

// Clone returns a deep copy of the funds.
func (f Funds) Clone() Funds {
	if f == nil {
		return nil
	}
	out := make(Funds, len(f))
	for i, c := range f {
		out[i] = c.clone()
	}
	return out
}

// AmountOf returns the total amount held in denom.
func (f Funds) AmountOf(denom string) *big.Int {
	total := new(big.Int)
	for _, c := range f {
		if c.Denom == denom {
			total.Add(total, c.amount())
		}
	}
	return total
}

// Normalize merges duplicate denominations, drops zero coins and sorts by
// denomination.
func (f Funds) Normalize() Funds {
	totals := make(map[string]*big.Int, len(f))
	for _, c := range f {
		if t, ok := totals[c.Denom]; ok {
			t.Add(t, c.amount())
			continue
		}
		totals[c.Denom] = new(big.Int).Set(c.amount())
	}

	out := make(Funds, 0, len(totals))
	for denom, amount := range totals {
		if amount.Sign() == 0 {
			continue
		}
		out = append(out, Coin{Denom: denom, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Denom < out[j].Denom })
	return out
}

// String renders the funds as a comma separated list.
func (f Funds) String() string {
	parts := make([]string, len(f))
	for i, c := range f {
		parts[i] = c.String()
	}
	return strings.Join(parts, ",")
}

// popLast removes and returns the last coin, mirroring how single-coin
// operations take the final attached coin.
func (f Funds) popLast() (Coin, Funds, bool) {
	if len(f) == 0 {
		return Coin{}, f, false
	}
	return f[len(f)-1], f[:len(f)-1], true
}
