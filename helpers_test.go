package hop

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/go-cmp/cmp"
)

var (
	contractAddr = common.HexToAddress("0x1000000000000000000000000000000000000001")
	targetAddr   = common.HexToAddress("0x2000000000000000000000000000000000000002")
	aliceAddr    = common.HexToAddress("0x3000000000000000000000000000000000000003")
	assetAddr    = common.HexToAddress("0x4000000000000000000000000000000000000004")
	adminAddr    = common.HexToAddress("0x5000000000000000000000000000000000000005")

	testBlockTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
)

// bigIntComparer lets go-cmp compare *big.Int by value.
var bigIntComparer = cmp.Comparer(func(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Cmp(b) == 0
})

func testEnv() Env {
	return Env{Contract: contractAddr, BlockTime: testBlockTime, ChainID: "hop-test-1"}
}

// sequentialIDs returns a generator of "d1", "d2", ...
func sequentialIDs() func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("d%d", n)
	}
}

// fakeBalances is a BalanceQuerier returning a fixed set of funds.
type fakeBalances struct {
	funds Funds
	err   error
	calls int
}

func (f *fakeBalances) AllBalances(ctx context.Context, addr common.Address) (Funds, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.funds.Clone(), nil
}

// failingStore is a Store whose Save always fails.
type failingStore struct {
	*MemoryStore
	err error
}

func (s failingStore) Save(ctx context.Context, p PendingChain) error {
	return s.err
}

// encoderFunc adapts a function to the Encoder interface.
type encoderFunc func(cmd Command) (Dispatch, error)

func (f encoderFunc) EncodeCommand(cmd Command, _ common.Address, _ Funds) (Dispatch, error) {
	return f(cmd)
}

func okReply() Reply {
	return Reply{ID: ChainReplyID, Result: SubCallResult{Ok: &SubCallResponse{}}}
}

// decodeChained returns the command carried by a chained dispatch.
func decodeChained(t *testing.T, d Dispatch) Command {
	t.Helper()

	if d.Kind != DispatchContractExecute {
		t.Fatalf("Expected contract execute dispatch, got %s", d.Kind)
	}
	if d.Encoding != EncodingJSON {
		t.Fatalf("Expected json encoding, got %q", d.Encoding)
	}

	var msg ExecuteMsg
	if err := json.Unmarshal(d.Payload, &msg); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	cmd, err := msg.Command()
	if err != nil {
		t.Fatalf("Failed to read command: %v", err)
	}
	return cmd
}

func mustPending(t *testing.T, c *Contract) PendingChain {
	t.Helper()

	p, err := c.Pending(context.Background())
	if err != nil {
		t.Fatalf("Expected no error loading pending chain, got %v", err)
	}
	return p
}
