package ledger

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// LamportsPerSOL is the number of smallest units in one native coin.
const LamportsPerSOL = 1_000_000_000

var amountPrinter = message.NewPrinter(language.English)

// FormatLamports renders an amount for user-facing messages, e.g. "10.03 SOL".
func FormatLamports(lamports uint64) string {
	sol := float64(lamports) / LamportsPerSOL
	return amountPrinter.Sprintf("%v SOL", number.Decimal(sol, number.MaxFractionDigits(4)))
}
