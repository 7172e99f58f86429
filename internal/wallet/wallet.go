// Package wallet generates standalone keypairs. The deployer uses them as
// preallocation targets when the node manages too few accounts.
package wallet

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Wallet is a freshly generated keypair. The private key is surfaced only
// at creation time so the operator can record it; nothing else in the
// deployer ever needs it.
type Wallet struct {
	Address    common.Address
	PrivateKey string // hex encoded, no 0x prefix
}

// New generates a random wallet.
func New() (Wallet, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return Wallet{}, fmt.Errorf("generate key: %w", err)
	}
	return Wallet{
		Address:    crypto.PubkeyToAddress(key.PublicKey),
		PrivateKey: hex.EncodeToString(crypto.FromECDSA(key)),
	}, nil
}
