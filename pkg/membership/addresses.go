package membership

import (
	"github.com/creatorkit/membership/pkg/ledger"
)

// Seeds of the program-derived addresses. They are part of the program ABI.
var (
	seedCreatorConfig    = []byte("creator_config")
	seedCreatorRecord    = []byte("creator_sub")
	seedCreatorTreasury  = []byte("creator_treasury")
	seedPlatformConfig   = []byte("ecosystem_config")
	seedPlatformRecord   = []byte("ecosystem_sub")
	seedPlatformTreasury = []byte("ecosystem_treasury")
	seedGlobalConfig     = []byte("global_config")
)

// Addresses derives the accounts of the membership program.
type Addresses struct {
	program ledger.PublicKey
}

func NewAddresses(program ledger.PublicKey) Addresses {
	return Addresses{program: program}
}

func (a Addresses) Program() ledger.PublicKey { return a.program }

// Config is the address of the target's subscription config.
func (a Addresses) Config(target Target) (ledger.PublicKey, error) {
	if target.IsPlatform() {
		return a.derive(seedPlatformConfig)
	}
	return a.derive(seedCreatorConfig, target.creator.Bytes())
}

// Record is the address of the subscription record of subscriber for target.
func (a Addresses) Record(subscriber ledger.PublicKey, target Target) (ledger.PublicKey, error) {
	if target.IsPlatform() {
		return a.derive(seedPlatformRecord, subscriber.Bytes())
	}
	return a.derive(seedCreatorRecord, target.creator.Bytes(), subscriber.Bytes())
}

// Treasury is the only valid recipient of the target's membership streams.
func (a Addresses) Treasury(target Target) (ledger.PublicKey, error) {
	if target.IsPlatform() {
		return a.derive(seedPlatformTreasury)
	}
	return a.derive(seedCreatorTreasury, target.creator.Bytes())
}

// Global is the address of the fee-routing global config.
func (a Addresses) Global() (ledger.PublicKey, error) {
	return a.derive(seedGlobalConfig)
}

// WrappedAccount is the subscriber's wrapped native-currency token account.
func WrappedAccount(owner ledger.PublicKey) (ledger.PublicKey, error) {
	return ledger.AssociatedTokenAddress(owner, ledger.NativeMint)
}

func (a Addresses) derive(seeds ...[]byte) (ledger.PublicKey, error) {
	pk, _, err := ledger.FindProgramAddress(seeds, a.program)
	return pk, err
}
