package hop

import (
	"time"

	"go.uber.org/zap"
)

// ContractOption configures a Contract.
type ContractOption func(*contractConfig)

// contractConfig holds the collaborators and settings of a Contract.
type contractConfig struct {
	store          Store
	balances       BalanceQuerier
	validator      Validator
	encoder        Encoder
	logger         *zap.Logger
	idFunc         func() string
	admin          string
	packetLifetime time.Duration
	notifyLifetime time.Duration
}

// defaultContractConfig returns the default configuration.
func defaultContractConfig() *contractConfig {
	return &contractConfig{
		validator:      EthValidator{},
		logger:         zap.NewNop(),
		packetLifetime: PacketLifetime,
		notifyLifetime: NotifyLifetime,
	}
}

// WithStore sets the Pending-Chain Store. Default is a new MemoryStore.
func WithStore(s Store) ContractOption {
	return func(c *contractConfig) {
		c.store = s
	}
}

// WithBalances sets the source of the contract's own balances, queried
// before every resumed dispatch. Required for chains longer than one command.
func WithBalances(q BalanceQuerier) ContractOption {
	return func(c *contractConfig) {
		c.balances = q
	}
}

// WithValidator replaces the address validator. Default is EthValidator.
func WithValidator(v Validator) ContractOption {
	return func(c *contractConfig) {
		c.validator = v
	}
}

// WithEncoder replaces the chain command encoder.
func WithEncoder(e Encoder) ContractOption {
	return func(c *contractConfig) {
		c.encoder = e
	}
}

// WithLogger sets the logger. Default discards all output.
func WithLogger(l *zap.Logger) ContractOption {
	return func(c *contractConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDispatchIDs sets the generator of dispatch ids. Default is random UUIDs.
func WithDispatchIDs(f func() string) ContractOption {
	return func(c *contractConfig) {
		c.idFunc = f
	}
}

// WithAdmin sets the address allowed to cancel a pending chain.
// Without an admin, cancel_hop is always rejected.
func WithAdmin(addr string) ContractOption {
	return func(c *contractConfig) {
		c.admin = addr
	}
}

// WithPacketLifetime overrides the cross-chain transfer timeout.
// Default is one hour.
func WithPacketLifetime(d time.Duration) ContractOption {
	return func(c *contractConfig) {
		if d > 0 {
			c.packetLifetime = d
		}
	}
}

// WithNotifyLifetime overrides the notification packet timeout.
// Default is five minutes.
func WithNotifyLifetime(d time.Duration) ContractOption {
	return func(c *contractConfig) {
		if d > 0 {
			c.notifyLifetime = d
		}
	}
}
