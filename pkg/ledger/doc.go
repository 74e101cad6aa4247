// Package ledger holds the ledger-facing primitives of the membership engine:
// identities, program-derived addresses, token instructions, versioned account
// layouts and a JSON-RPC account reader.
//
// # Account layouts
//
// Every program account starts with an 8-byte discriminator followed by fixed
// little-endian fields. Layouts are declared as explicit field tables with
// NewSchema, and every typed record (CreatorConfig, PlatformConfig,
// PlatformSubscription, CreatorSubscription, GlobalConfig) decodes through its
// schema and encodes back to the identical bytes:
//
//	acc, err := reader.GetAccount(ctx, address)
//	if errors.Is(err, ledger.ErrAccountNotFound) {
//		// no config yet
//	}
//	cfg, err := ledger.DecodeCreatorConfig(acc.Data)
//
// Golden fixtures in testdata/records.yaml pin every offset, so a layout change
// that drifts from the program shows up as a failing test instead of a silent misread.
//
// # Derived addresses
//
// FindProgramAddress implements the standard bump search: the first off-curve
// sha256(seeds || bump || program || "ProgramDerivedAddress") from bump 255 down.
// AssociatedTokenAddress builds on it for wrapped-currency accounts.
//
// # Transactions
//
// Signing and broadcasting are not done here. Callers assemble a Transaction and
// hand it to a Submitter, which is implemented by the wallet-signing transport.
package ledger
