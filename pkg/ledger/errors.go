package ledger

import "errors"

var (
	ErrInvalidPublicKey = errors.New("ledger: invalid public key")
	ErrAccountNotFound  = errors.New("ledger: account not found")

	ErrAccountDataTooShort   = errors.New("ledger: account data shorter than schema")
	ErrDiscriminatorMismatch = errors.New("ledger: account discriminator mismatch")

	ErrMaxSeedLengthExceeded = errors.New("ledger: seed exceeds maximum length")
	ErrTooManySeeds          = errors.New("ledger: too many seeds")
	ErrInvalidSeeds          = errors.New("ledger: derived address falls on the ed25519 curve")
	ErrNoViableBump          = errors.New("ledger: unable to find a viable program address bump")

	ErrMissingEndpoint = errors.New("ledger: RPC endpoint is required")
	ErrRPCRequest      = errors.New("ledger: RPC request failed")
	ErrRPCResponse     = errors.New("ledger: RPC returned an error")
)
