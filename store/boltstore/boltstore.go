// Package boltstore persists a hop contract's pending chain in a BoltDB file.
//
// Each contract gets its own bucket nested under the "hop" root bucket. The
// bucket holds the pending_commands and chain_target keys.
package boltstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	hop "github.com/branched-services/go-hop"
	"github.com/ethereum/go-ethereum/common"
	"go.etcd.io/bbolt"
)

// rootBucketKey is the bucket that holds one sub-bucket per contract.
var rootBucketKey = []byte("hop")

var (
	pendingCommandsKey = []byte(hop.KeyPendingCommands)
	chainTargetKey     = []byte(hop.KeyChainTarget)
)

// Store is a hop.Store backed by BoltDB.
type Store struct {
	db       *bbolt.DB
	contract []byte
	owned    bool
}

var _ hop.Store = (*Store)(nil)

// New returns a store for contract inside an already open database.
// The caller remains responsible for closing db.
func New(db *bbolt.DB, contract common.Address) *Store {
	return &Store{
		db:       db,
		contract: []byte(contract.Hex()),
	}
}

// Open opens (creating if needed) the database file at path and returns a
// store for contract. Close releases the file.
func Open(ctx context.Context, path string, contract common.Address) (*Store, error) {
	opts := &bbolt.Options{Timeout: time.Second}
	dl, hasDeadline := ctx.Deadline()
	if hasDeadline {
		opts.Timeout = time.Until(dl)
		if opts.Timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}

	db, err := bbolt.Open(path, 0600, opts)
	if err != nil {
		if errors.Is(err, bbolt.ErrTimeout) && hasDeadline {
			return nil, context.DeadlineExceeded
		}
		return nil, fmt.Errorf("boltstore: opening %s: %w", path, err)
	}

	s := New(db, contract)
	s.owned = true
	return s, nil
}

// Close closes the database if it was opened by Open.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

// Load implements hop.Store.
func (s *Store) Load(ctx context.Context) (hop.PendingChain, error) {
	if err := ctx.Err(); err != nil {
		return hop.PendingChain{}, err
	}

	var (
		commands []byte
		target   []byte
	)

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := s.bucket(tx)
		if b == nil {
			return nil
		}
		// Values are only valid for the life of the transaction.
		commands = clone(b.Get(pendingCommandsKey))
		target = clone(b.Get(chainTargetKey))
		return nil
	})
	if err != nil {
		return hop.PendingChain{}, fmt.Errorf("boltstore: %w", err)
	}

	return decode(commands, target)
}

// Save implements hop.Store.
func (s *Store) Save(ctx context.Context, p hop.PendingChain) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := hop.MarshalCommands(p.Remaining)
	if err != nil {
		return fmt.Errorf("boltstore: encoding %s: %w", hop.KeyPendingCommands, err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists(rootBucketKey)
		if err != nil {
			return err
		}
		b, err := root.CreateBucketIfNotExists(s.contract)
		if err != nil {
			return err
		}
		if err := b.Put(pendingCommandsKey, data); err != nil {
			return err
		}
		return b.Put(chainTargetKey, []byte(p.Target.Hex()))
	})
}

// Clear implements hop.Store.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(rootBucketKey)
		if root == nil {
			return nil
		}
		err := root.DeleteBucket(s.contract)
		if errors.Is(err, bbolt.ErrBucketNotFound) {
			return nil
		}
		return err
	})
}

func (s *Store) bucket(tx *bbolt.Tx) *bbolt.Bucket {
	root := tx.Bucket(rootBucketKey)
	if root == nil {
		return nil
	}
	return root.Bucket(s.contract)
}

func decode(commands, target []byte) (hop.PendingChain, error) {
	var p hop.PendingChain

	if len(target) > 0 {
		if !common.IsHexAddress(string(target)) {
			return hop.PendingChain{}, fmt.Errorf("boltstore: corrupt %s %q", hop.KeyChainTarget, target)
		}
		p.Target = common.HexToAddress(string(target))
	}

	if len(commands) > 0 {
		cmds, err := hop.UnmarshalCommands(commands)
		if err != nil {
			return hop.PendingChain{}, fmt.Errorf("boltstore: decoding %s: %w", hop.KeyPendingCommands, err)
		}
		p.Remaining = cmds
	}

	return p, nil
}

func clone(v []byte) []byte {
	if v == nil {
		return nil
	}
	return append([]byte(nil), v...)
}
