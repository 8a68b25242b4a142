package srp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"

	"golang.org/x/crypto/hkdf"
)

// RandomPassword returns a fresh 40-character base64 random password for
// device registration (spec.md §4.1 generate_hash_device "pick random
// password (40 base64 chars)").
func RandomPassword() (string, error) {
	buf := make([]byte, 30)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("srp: generating random device password: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf)[:40], nil
}

// littleK computes k = H( PAD(N) ‖ PAD(g) ), the SRP-6a multiplier
// constant. It only depends on the fixed group parameters, so it is
// computed once and reused by every exchange.
var littleK = func() *big.Int {
	h := sha256.New()
	h.Write(Pad(N))
	h.Write(Pad(G))
	return new(big.Int).SetBytes(h.Sum(nil))
}()

// randomBigInt returns a cryptographically random big.Int in [1, N-1),
// sampled from 128 bytes of randomness and reduced mod N, matching
// spec.md §4.1's get_large_A_value sampling width.
func randomBigInt() (*big.Int, error) {
	buf := make([]byte, 128)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return nil, fmt.Errorf("srp: reading random bytes: %w", err)
	}
	a := new(big.Int).SetBytes(buf)
	a.Mod(a, N)
	if a.Sign() == 0 {
		return randomBigInt()
	}
	return a, nil
}

// randomSalt returns n cryptographically random bytes, used for both the
// SRP salt and the device verifier salt.
func randomSalt(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("srp: reading random salt: %w", err)
	}
	return b, nil
}

// hmacSHA256 computes HMAC-SHA256 of data under key.
func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

// hkdfExtractKey runs HKDF-SHA256 over ikm with salt, and returns the
// first n bytes of the expanded key stream. spec.md §4.1 step 6 only
// needs the first 16 bytes (the MAC key).
func hkdfExtractKey(ikm, salt []byte, n int) ([]byte, error) {
	r := hkdf.New(sha256.New, ikm, salt, []byte("Caldera Derived Key"))
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("srp: deriving hkdf key: %w", err)
	}
	return out, nil
}

// hexEncode is a thin alias kept for readability at call sites that pass
// digest bytes straight to a wire field.
func hexEncode(b []byte) string { return hex.EncodeToString(b) }
