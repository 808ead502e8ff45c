package hop

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Persisted state keys.
const (
	KeyPendingCommands = "pending_commands"
	KeyChainTarget     = "chain_target"
)

// PendingChain is the durable record of the chain in flight.
//
// Remaining holds exactly the commands not yet dispatched, in caller order.
// The next command to dispatch is the last element.
type PendingChain struct {
	Remaining []Command
	Target    common.Address
}

// Len returns the number of undispatched commands.
func (p PendingChain) Len() int {
	return len(p.Remaining)
}

// pop removes the last command. It reports false when none remain.
func (p *PendingChain) pop() (Command, bool) {
	n := len(p.Remaining)
	if n == 0 {
		return nil, false
	}
	cmd := p.Remaining[n-1]
	p.Remaining = p.Remaining[:n-1:n-1]
	return cmd, true
}

// Store persists the contract's single PendingChain.
//
// Load returns an empty PendingChain, not an error, when nothing was saved.
type Store interface {
	Load(ctx context.Context) (PendingChain, error)
	Save(ctx context.Context, p PendingChain) error
	Clear(ctx context.Context) error
}

// MemoryStore is a Store held in process memory. Commands are kept in their
// persisted JSON form so a loaded chain never aliases a saved one.
type MemoryStore struct {
	mu       sync.Mutex
	commands []byte
	target   common.Address
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load implements Store.
func (s *MemoryStore) Load(ctx context.Context) (PendingChain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := PendingChain{Target: s.target}
	if len(s.commands) == 0 {
		return p, nil
	}

	cmds, err := UnmarshalCommands(s.commands)
	if err != nil {
		return PendingChain{}, err
	}
	p.Remaining = cmds
	return p, nil
}

// Save implements Store.
func (s *MemoryStore) Save(ctx context.Context, p PendingChain) error {
	data, err := MarshalCommands(p.Remaining)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.commands = data
	s.target = p.Target
	return nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.commands = nil
	s.target = common.Address{}
	return nil
}
