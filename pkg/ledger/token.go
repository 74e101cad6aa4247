package ledger

import "encoding/binary"

const (
	systemTransferIndex = 2

	tokenCloseAccountIndex = 9
	tokenSyncNativeIndex   = 17
)

// AssociatedTokenAddress derives the canonical token account of owner for mint.
func AssociatedTokenAddress(owner, mint PublicKey) (PublicKey, error) {
	pk, _, err := FindProgramAddress(
		[][]byte{owner[:], TokenProgramID[:], mint[:]},
		AssociatedTokenProgramID,
	)
	return pk, err
}

// CreateAssociatedTokenAccount creates the associated token account of owner for mint,
// funded by payer. It fails on-chain if the account already exists.
func CreateAssociatedTokenAccount(payer, owner, mint PublicKey) (Instruction, error) {
	ata, err := AssociatedTokenAddress(owner, mint)
	if err != nil {
		return Instruction{}, err
	}
	return Instruction{
		ProgramID: AssociatedTokenProgramID,
		Accounts: []AccountMeta{
			{PublicKey: payer, IsSigner: true, IsWritable: true},
			{PublicKey: ata, IsWritable: true},
			{PublicKey: owner},
			{PublicKey: mint},
			{PublicKey: SystemProgramID},
			{PublicKey: TokenProgramID},
		},
		Data: []byte{},
	}, nil
}

// SystemTransfer moves native lamports between two accounts.
func SystemTransfer(from, to PublicKey, lamports uint64) Instruction {
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:4], systemTransferIndex)
	binary.LittleEndian.PutUint64(data[4:12], lamports)
	return Instruction{
		ProgramID: SystemProgramID,
		Accounts: []AccountMeta{
			{PublicKey: from, IsSigner: true, IsWritable: true},
			{PublicKey: to, IsWritable: true},
		},
		Data: data,
	}
}

// SyncNative makes a wrapped-native token account's token balance match its lamports.
func SyncNative(account PublicKey) Instruction {
	return Instruction{
		ProgramID: TokenProgramID,
		Accounts:  []AccountMeta{{PublicKey: account, IsWritable: true}},
		Data:      []byte{tokenSyncNativeIndex},
	}
}

// CloseAccount closes a token account and sends its lamports to destination.
// For wrapped-native accounts this is the "unwrap" step.
func CloseAccount(account, destination, owner PublicKey) Instruction {
	return Instruction{
		ProgramID: TokenProgramID,
		Accounts: []AccountMeta{
			{PublicKey: account, IsWritable: true},
			{PublicKey: destination, IsWritable: true},
			{PublicKey: owner, IsSigner: true},
		},
		Data: []byte{tokenCloseAccountIndex},
	}
}
