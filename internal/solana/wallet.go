package solana

import (
	solana "github.com/gagliardetto/solana-go"

	clierr "okx-dex-agent/internal/errors"
)

// Wallet holds the signing key for swap execution.
type Wallet struct {
	key solana.PrivateKey
}

// WalletFromBase58 builds a wallet from a base58-encoded private key, the
// format the settings store carries.
func WalletFromBase58(encoded string) (*Wallet, error) {
	key, err := solana.PrivateKeyFromBase58(encoded)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeConfig, "parse wallet private key", err)
	}
	return &Wallet{key: key}, nil
}

func (w *Wallet) Address() solana.PublicKey {
	return w.key.PublicKey()
}

func (w *Wallet) signerFor(key solana.PublicKey) *solana.PrivateKey {
	if key.Equals(w.key.PublicKey()) {
		return &w.key
	}
	return nil
}
