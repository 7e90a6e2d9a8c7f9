package solana

import (
	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// IsOnCurve reports whether a base58 pubkey is a valid ed25519 curve
// point. Wallet addresses are on the curve; program derived addresses
// are off it by construction, so this distinguishes a human-controlled
// wallet from a program account in copy-trade routing.
func IsOnCurve(pubkey string) bool {
	raw, err := base58.Decode(pubkey)
	if err != nil || len(raw) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(raw)
	return err == nil
}
