package solana

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

// A wire-format transaction is a compact-u16 signature count, that many
// 64-byte signatures, then the message bytes. The router builds the
// transaction with the fee payer in slot 0, so signing means filling that
// slot with our signature over the message.

// decodeCompactU16 reads a compact-u16 length prefix and returns the value
// and the number of bytes consumed.
func decodeCompactU16(data []byte) (int, int, error) {
	value := 0
	shift := uint(0)
	for i := 0; i < 3; i++ {
		if i >= len(data) {
			return 0, 0, fmt.Errorf("truncated compact-u16")
		}
		b := data[i]
		value |= int(b&0x7f) << shift
		if b&0x80 == 0 {
			if value > 0xffff {
				return 0, 0, fmt.Errorf("compact-u16 out of range")
			}
			return value, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, fmt.Errorf("compact-u16 too long")
}

// signTransaction decodes a base58 wire transaction, signs its message with
// the fee payer key, and returns the re-encoded transaction along with the
// base58 fee-payer signature. The signature doubles as the transaction ID,
// so it is known before anything is sent.
func signTransaction(txBase58 string, signer *Signer) (signedBase58, signature string, err error) {
	raw, err := base58.Decode(txBase58)
	if err != nil {
		return "", "", fmt.Errorf("solana: decode transaction: %w", err)
	}

	numSigs, prefixLen, err := decodeCompactU16(raw)
	if err != nil {
		return "", "", fmt.Errorf("solana: parse transaction: %w", err)
	}
	if numSigs == 0 {
		return "", "", fmt.Errorf("solana: transaction reserves no signature slots")
	}

	sigBytes := numSigs * ed25519.SignatureSize
	if len(raw) < prefixLen+sigBytes {
		return "", "", fmt.Errorf("solana: transaction shorter than signature table")
	}

	message := raw[prefixLen+sigBytes:]
	sig := signer.Sign(message)

	signed := make([]byte, len(raw))
	copy(signed, raw)
	copy(signed[prefixLen:], sig)

	return base58.Encode(signed), base58.Encode(sig), nil
}
