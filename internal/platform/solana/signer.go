package solana

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

// Signer holds the wallet keypair used to sign swap transactions.
type Signer struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// NewSigner builds a signer from a base58-encoded private key. Both the
// 64-byte keypair export format used by common wallets and a bare 32-byte
// seed are accepted.
func NewSigner(base58Key string) (*Signer, error) {
	raw, err := base58.Decode(base58Key)
	if err != nil {
		return nil, fmt.Errorf("solana: decode private key: %w", err)
	}

	var priv ed25519.PrivateKey
	switch len(raw) {
	case ed25519.PrivateKeySize:
		priv = ed25519.PrivateKey(raw)
	case ed25519.SeedSize:
		priv = ed25519.NewKeyFromSeed(raw)
	default:
		return nil, fmt.Errorf("solana: private key must be %d or %d bytes, got %d",
			ed25519.SeedSize, ed25519.PrivateKeySize, len(raw))
	}

	return &Signer{
		priv: priv,
		pub:  priv.Public().(ed25519.PublicKey),
	}, nil
}

// PublicKeyBase58 returns the wallet address.
func (s *Signer) PublicKeyBase58() string {
	return base58.Encode(s.pub)
}

// Sign signs the transaction message bytes.
func (s *Signer) Sign(message []byte) []byte {
	return ed25519.Sign(s.priv, message)
}
