package ledger

import (
	"context"
	"crypto/ed25519"
)

// AccountMeta describes how an instruction touches an account.
type AccountMeta struct {
	PublicKey  PublicKey
	IsSigner   bool
	IsWritable bool
}

// Instruction is a single program invocation inside a transaction.
type Instruction struct {
	ProgramID PublicKey
	Accounts  []AccountMeta
	Data      []byte
}

// Transaction is an ordered instruction list paid for by FeePayer.
// Signers holds ephemeral keys (for example a freshly generated stream account)
// that must co-sign alongside the fee payer's wallet.
type Transaction struct {
	FeePayer     PublicKey
	Instructions []Instruction
	Signers      []ed25519.PrivateKey
}

// Submitter hands a transaction to the wallet-signing transport, which signs it
// with the fee payer's wallet plus Signers, simulates it and broadcasts it.
// It returns the transaction signature.
type Submitter interface {
	Submit(ctx context.Context, tx Transaction) (string, error)
}

// SubmitterFunc adapts a function to the Submitter interface.
type SubmitterFunc func(ctx context.Context, tx Transaction) (string, error)

func (f SubmitterFunc) Submit(ctx context.Context, tx Transaction) (string, error) {
	return f(ctx, tx)
}

// Account is a raw ledger account as returned by an AccountReader.
type Account struct {
	Address  PublicKey
	Owner    PublicKey
	Lamports uint64
	Data     []byte
}

// AccountReader fetches raw accounts. Implementations return ErrAccountNotFound
// when the address holds no account.
type AccountReader interface {
	GetAccount(ctx context.Context, address PublicKey) (*Account, error)
}

// PublicKeyOf returns the ledger identity of an ed25519 key pair.
func PublicKeyOf(key ed25519.PrivateKey) PublicKey {
	var pk PublicKey
	copy(pk[:], key.Public().(ed25519.PublicKey))
	return pk
}
