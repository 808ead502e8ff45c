package hop

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newTestContract(opts ...ContractOption) *Contract {
	return New(append([]ContractOption{WithDispatchIDs(sequentialIDs())}, opts...)...)
}

func TestInstantiate(t *testing.T) {
	c := newTestContract()

	resp, err := c.Instantiate(context.Background(), testEnv(), MessageInfo{Sender: aliceAddr.Hex()})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if v, _ := resp.Attribute("contract_name"); v != ContractName {
		t.Errorf("Expected contract_name %q, got %q", ContractName, v)
	}
	if v, _ := resp.Attribute("contract_version"); v != ContractVersion {
		t.Errorf("Expected contract_version %q, got %q", ContractVersion, v)
	}
	if len(resp.Messages) != 0 {
		t.Errorf("Expected no messages, got %d", len(resp.Messages))
	}
	if n := mustPending(t, c).Len(); n != 0 {
		t.Errorf("Expected no state written, got %d pending", n)
	}
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()
	c := newTestContract()

	t.Run("sends all attached funds", func(t *testing.T) {
		funds := Funds{NewCoin("uatom", 3), NewCoin("uosmo", 100)}
		resp, err := c.Transfer(ctx, testEnv(), MessageInfo{Funds: funds}, aliceAddr.Hex())
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if v, _ := resp.Attribute("method"); v != "execute_transfer" {
			t.Errorf("Expected method execute_transfer, got %q", v)
		}
		if len(resp.Messages) != 1 {
			t.Fatalf("Expected 1 message, got %d", len(resp.Messages))
		}
		d := resp.Messages[0].Dispatch
		if d.Kind != DispatchBankSend || d.Target != aliceAddr.Hex() {
			t.Errorf("Expected bank send to %s, got %s to %s", aliceAddr.Hex(), d.Kind, d.Target)
		}
		if resp.Messages[0].ReplyOn != ReplyNever {
			t.Error("Expected fire-and-forget dispatch")
		}
		if diff := cmp.Diff(funds, d.Funds, bigIntComparer); diff != "" {
			t.Errorf("Unexpected funds (-want +got):\n%s", diff)
		}
	})

	t.Run("zero funds still dispatch", func(t *testing.T) {
		resp, err := c.Transfer(ctx, testEnv(), MessageInfo{}, aliceAddr.Hex())
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if len(resp.Messages) != 1 || len(resp.Messages[0].Dispatch.Funds) != 0 {
			t.Errorf("Expected one empty transfer, got %+v", resp.Messages)
		}
	})

	t.Run("invalid recipient", func(t *testing.T) {
		_, err := c.Transfer(ctx, testEnv(), MessageInfo{}, "not-an-address")
		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("Expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestCrossChainTransfer(t *testing.T) {
	ctx := context.Background()
	c := newTestContract()

	t.Run("sends the last coin with one hour timeout", func(t *testing.T) {
		funds := Funds{NewCoin("uatom", 1), NewCoin("uosmo", 50)}
		resp, err := c.CrossChainTransfer(ctx, testEnv(), MessageInfo{Funds: funds}, "channel-0", "cosmos1abc")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if v, _ := resp.Attribute("action"); v != "execute_ibc_transfer" {
			t.Errorf("Expected action execute_ibc_transfer, got %q", v)
		}
		d := resp.Messages[0].Dispatch
		if d.ChannelID != "channel-0" || d.Target != "cosmos1abc" {
			t.Errorf("Unexpected routing %q -> %q", d.ChannelID, d.Target)
		}
		if diff := cmp.Diff(Funds{NewCoin("uosmo", 50)}, d.Funds, bigIntComparer); diff != "" {
			t.Errorf("Unexpected funds (-want +got):\n%s", diff)
		}
		if want := testBlockTime.Add(3600 * time.Second); !d.Timeout.Equal(want) {
			t.Errorf("Expected timeout %s, got %s", want, d.Timeout)
		}
	})

	t.Run("no funds", func(t *testing.T) {
		_, err := c.CrossChainTransfer(ctx, testEnv(), MessageInfo{}, "channel-0", "cosmos1abc")
		if !errors.Is(err, ErrMissingFunds) {
			t.Errorf("Expected ErrMissingFunds, got %v", err)
		}
	})

	t.Run("configured lifetime", func(t *testing.T) {
		c := newTestContract(WithPacketLifetime(time.Minute))
		resp, err := c.CrossChainTransfer(ctx, testEnv(), MessageInfo{Funds: Funds{NewCoin("u", 1)}}, "channel-0", "x")
		if err != nil {
			t.Fatal(err)
		}
		if want := testBlockTime.Add(time.Minute); !resp.Messages[0].Dispatch.Timeout.Equal(want) {
			t.Errorf("Expected timeout %s, got %s", want, resp.Messages[0].Dispatch.Timeout)
		}
	})
}

func TestSwapOperation(t *testing.T) {
	ctx := context.Background()
	c := newTestContract()
	s := Swap{PoolID: 1, TokenOutDenom: "uatom", TokenOutMinAmount: "10"}

	t.Run("swaps the last coin", func(t *testing.T) {
		funds := Funds{NewCoin("uion", 4), NewCoin("uosmo", 100)}
		resp, err := c.Swap(ctx, testEnv(), MessageInfo{Funds: funds}, s)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if v, _ := resp.Attribute("method"); v != "execute_swap" {
			t.Errorf("Expected method execute_swap, got %q", v)
		}

		msg, err := DecodeSwapMsg(resp.Messages[0].Dispatch.Payload)
		if err != nil {
			t.Fatal(err)
		}
		if msg.Sender != contractAddr.Hex() {
			t.Errorf("Expected sender %s, got %s", contractAddr.Hex(), msg.Sender)
		}
		if diff := cmp.Diff(NewCoin("uosmo", 100), msg.TokenIn, bigIntComparer); diff != "" {
			t.Errorf("Unexpected token in (-want +got):\n%s", diff)
		}
	})

	t.Run("no funds", func(t *testing.T) {
		_, err := c.Swap(ctx, testEnv(), MessageInfo{}, s)
		if !errors.Is(err, ErrMissingFunds) {
			t.Errorf("Expected ErrMissingFunds, got %v", err)
		}
	})
}

func TestMintAssetOperation(t *testing.T) {
	ctx := context.Background()
	c := newTestContract()

	t.Run("mints on the asset contract", func(t *testing.T) {
		m := MintAsset{Owner: aliceAddr.Hex(), Contract: assetAddr.Hex(), TokenID: "1", TokenURI: "ipfs://1"}
		resp, err := c.MintAsset(ctx, testEnv(), MessageInfo{Funds: Funds{NewCoin("uosmo", 2)}}, m)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if v, _ := resp.Attribute("token_id"); v != "1" {
			t.Errorf("Expected token_id 1, got %q", v)
		}
		d := resp.Messages[0].Dispatch
		call, err := UnpackMint(d.Payload)
		if err != nil {
			t.Fatal(err)
		}
		if call.Owner != aliceAddr || call.TokenURI != "ipfs://1" {
			t.Errorf("Unexpected mint call %+v", call)
		}
	})

	t.Run("invalid contract", func(t *testing.T) {
		m := MintAsset{Owner: aliceAddr.Hex(), Contract: "nft", TokenID: "1"}
		_, err := c.MintAsset(ctx, testEnv(), MessageInfo{}, m)
		var addrErr *AddressError
		if !errors.As(err, &addrErr) || addrErr.Field != "asset contract" {
			t.Errorf("Expected AddressError on asset contract, got %v", err)
		}
	})

	t.Run("invalid owner", func(t *testing.T) {
		m := MintAsset{Owner: "0x12", Contract: assetAddr.Hex(), TokenID: "1"}
		_, err := c.MintAsset(ctx, testEnv(), MessageInfo{}, m)
		var addrErr *AddressError
		if !errors.As(err, &addrErr) || addrErr.Field != "owner" {
			t.Errorf("Expected AddressError on owner, got %v", err)
		}
	})
}

func TestNotifyOperation(t *testing.T) {
	c := newTestContract()

	resp, err := c.Notify(context.Background(), testEnv(), MessageInfo{}, "channel-9")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	d := resp.Messages[0].Dispatch
	if d.Kind != DispatchIBCPacket || d.ChannelID != "channel-9" {
		t.Errorf("Expected packet on channel-9, got %s on %q", d.Kind, d.ChannelID)
	}
	if want := testBlockTime.Add(300 * time.Second); !d.Timeout.Equal(want) {
		t.Errorf("Expected timeout %s, got %s", want, d.Timeout)
	}
}

func TestExecuteJSON(t *testing.T) {
	ctx := context.Background()
	c := newTestContract(WithBalances(&fakeBalances{}))

	t.Run("routes transfer", func(t *testing.T) {
		raw := `{"transfer":{"address":"` + aliceAddr.Hex() + `"}}`
		resp, err := c.ExecuteJSON(ctx, testEnv(), MessageInfo{}, []byte(raw))
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if v, _ := resp.Attribute("method"); v != "execute_transfer" {
			t.Errorf("Expected execute_transfer, got %q", v)
		}
	})

	t.Run("routes hop", func(t *testing.T) {
		raw := `{"hop":{"contract":"` + targetAddr.Hex() + `","commands":[{"notify":{"channel_id":"c"}}]}}`
		resp, err := c.ExecuteJSON(ctx, testEnv(), MessageInfo{}, []byte(raw))
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if v, _ := resp.Attribute("method"); v != "execute_hop" {
			t.Errorf("Expected execute_hop, got %q", v)
		}
		if len(resp.Messages) != 1 || resp.Messages[0].ID != ChainReplyID {
			t.Errorf("Expected one chained sub-call, got %+v", resp.Messages)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := c.ExecuteJSON(ctx, testEnv(), MessageInfo{}, []byte(`{"transfer":`))
		var msgErr *MessageError
		if !errors.As(err, &msgErr) || !errors.Is(err, ErrInvalidMessage) {
			t.Errorf("Expected MessageError, got %v", err)
		}
	})

	t.Run("two variants", func(t *testing.T) {
		raw := `{"notify":{"channel_id":"a"},"transfer":{"address":"x"}}`
		_, err := c.ExecuteJSON(ctx, testEnv(), MessageInfo{}, []byte(raw))
		if !errors.Is(err, ErrInvalidMessage) {
			t.Errorf("Expected ErrInvalidMessage, got %v", err)
		}
	})

	t.Run("empty message", func(t *testing.T) {
		_, err := c.ExecuteJSON(ctx, testEnv(), MessageInfo{}, []byte(`{}`))
		if !errors.Is(err, ErrInvalidMessage) {
			t.Errorf("Expected ErrInvalidMessage, got %v", err)
		}
	})

	t.Run("cancel combined with a command", func(t *testing.T) {
		raw := `{"cancel_hop":{},"notify":{"channel_id":"a"}}`
		_, err := c.ExecuteJSON(ctx, testEnv(), MessageInfo{}, []byte(raw))
		if !errors.Is(err, ErrInvalidMessage) {
			t.Errorf("Expected ErrInvalidMessage, got %v", err)
		}
	})
}

func TestCancelChain(t *testing.T) {
	ctx := context.Background()
	cmds := []Command{Notify{ChannelID: "a"}, Notify{ChannelID: "b"}, Notify{ChannelID: "c"}}

	t.Run("admin clears pending chain", func(t *testing.T) {
		c := newTestContract(WithAdmin(adminAddr.Hex()))
		if _, err := c.BeginChain(ctx, testEnv(), MessageInfo{}, targetAddr.Hex(), cmds); err != nil {
			t.Fatal(err)
		}

		resp, err := c.Execute(ctx, testEnv(), MessageInfo{Sender: strings.ToLower(adminAddr.Hex())}, ExecuteMsg{CancelHop: &CancelHop{}})
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if v, _ := resp.Attribute("dropped"); v != "2" {
			t.Errorf("Expected dropped 2, got %q", v)
		}
		if n := mustPending(t, c).Len(); n != 0 {
			t.Errorf("Expected empty chain, got %d", n)
		}

		// An acknowledgement still in flight finds nothing to resume.
		resp, err = c.Reply(ctx, testEnv(), okReply())
		if err != nil || len(resp.Messages) != 0 {
			t.Errorf("Expected quiet completion, got %v, %+v", err, resp)
		}
	})

	t.Run("other sender", func(t *testing.T) {
		c := newTestContract(WithAdmin(adminAddr.Hex()))
		_, err := c.CancelChain(ctx, testEnv(), MessageInfo{Sender: aliceAddr.Hex()})
		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("Expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("no admin configured", func(t *testing.T) {
		c := newTestContract()
		_, err := c.CancelChain(ctx, testEnv(), MessageInfo{Sender: ""})
		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("Expected ErrUnauthorized, got %v", err)
		}
	})
}
