package hop

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// DispatchKind specifies which host module executes a dispatch.
type DispatchKind uint8

const (
	// DispatchBankSend moves funds to Target.
	DispatchBankSend DispatchKind = iota

	// DispatchIBCTransfer sends a single coin to Target over ChannelID.
	DispatchIBCTransfer

	// DispatchSwap submits a swap message; Target is the message type URL.
	DispatchSwap

	// DispatchContractExecute executes Payload on the contract at Target.
	DispatchContractExecute

	// DispatchIBCPacket sends Payload over ChannelID.
	DispatchIBCPacket
)

var dispatchKindNames = [...]string{
	DispatchBankSend:        "bank_send",
	DispatchIBCTransfer:     "ibc_transfer",
	DispatchSwap:            "swap",
	DispatchContractExecute: "contract_execute",
	DispatchIBCPacket:       "ibc_packet",
}

func (k DispatchKind) String() string {
	if int(k) < len(dispatchKindNames) {
		return dispatchKindNames[k]
	}
	return fmt.Sprintf("dispatch(%d)", uint8(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k DispatchKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *DispatchKind) UnmarshalText(text []byte) error {
	for i, name := range dispatchKindNames {
		if name == string(text) {
			*k = DispatchKind(i)
			return nil
		}
	}
	return fmt.Errorf("hop: unknown dispatch kind %q", text)
}

// Payload encodings.
const (
	EncodingJSON = "json"
	EncodingABI  = "abi"
)

// Dispatch describes one outbound call the host is asked to make.
type Dispatch struct {
	ID        string       `json:"id"`
	Kind      DispatchKind `json:"kind"`
	Target    string       `json:"target"`
	ChannelID string       `json:"channel_id,omitempty"`
	Funds     Funds        `json:"funds"`
	Encoding  string       `json:"encoding,omitempty"`
	Payload   []byte       `json:"payload,omitempty"`
	Timeout   time.Time    `json:"timeout,omitzero"`
}

// ReplyOn controls when the host calls back with the outcome of a sub-call.
type ReplyOn uint8

const (
	// ReplyNever is fire-and-forget.
	ReplyNever ReplyOn = iota

	// ReplyAlways reports both success and failure.
	ReplyAlways
)

// SubCall is a dispatch plus its acknowledgement routing.
type SubCall struct {
	ID       uint64   `json:"id"`
	Dispatch Dispatch `json:"dispatch"`
	ReplyOn  ReplyOn  `json:"reply_on"`
}

// Attribute is a key/value annotation on a Response.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Response is the structured result of a successful invocation.
type Response struct {
	Attributes []Attribute `json:"attributes"`
	Messages   []SubCall   `json:"messages"`
}

// NewResponse returns an empty response.
func NewResponse() *Response {
	return &Response{Attributes: []Attribute{}, Messages: []SubCall{}}
}

// AddAttribute appends an attribute and returns r for chaining.
func (r *Response) AddAttribute(key, value string) *Response {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value})
	return r
}

// AddMessage appends a fire-and-forget dispatch.
func (r *Response) AddMessage(d Dispatch) *Response {
	r.Messages = append(r.Messages, SubCall{Dispatch: d, ReplyOn: ReplyNever})
	return r
}

// AddSubCall appends a dispatch that must be acknowledged under id.
func (r *Response) AddSubCall(id uint64, d Dispatch) *Response {
	r.Messages = append(r.Messages, SubCall{ID: id, Dispatch: d, ReplyOn: ReplyAlways})
	return r
}

// Attribute returns the value of the first attribute named key.
func (r *Response) Attribute(key string) (string, bool) {
	for _, a := range r.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// SubCallResponse is the data returned by a successful sub-call.
type SubCallResponse struct {
	Data []byte `json:"data,omitempty"`
}

// SubCallResult is the outcome of a sub-call. Exactly one of Ok or Err is set.
type SubCallResult struct {
	Ok  *SubCallResponse `json:"ok,omitempty"`
	Err string           `json:"error,omitempty"`
}

// Failed reports whether the result is a failure.
func (r SubCallResult) Failed() bool {
	return r.Ok == nil
}

// Reply is the host acknowledgement of a sub-call.
type Reply struct {
	ID     uint64        `json:"id"`
	Result SubCallResult `json:"result"`
}

// Env describes the executing contract and block.
type Env struct {
	Contract  common.Address
	BlockTime time.Time
	ChainID   string
}

// MessageInfo describes the caller of an invocation.
type MessageInfo struct {
	Sender string `json:"sender"`
	Funds  Funds  `json:"funds"`
}
