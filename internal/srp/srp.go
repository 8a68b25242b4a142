package srp

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
)

// ErrInvalidServerEphemeral is returned when the server's B value fails the
// SRP-6a safety check (B mod N == 0) — spec.md §4.1 step 1. The caller is
// expected to abort and restart the protocol from scratch.
var ErrInvalidServerEphemeral = errors.New("srp: server public value B is degenerate (B mod N = 0)")

// ErrInvalidScramblingParameter is returned when u = H(PAD(A) ‖ PAD(B)) is
// zero — spec.md §4.1 step 2, also an abort-and-restart condition.
var ErrInvalidScramblingParameter = errors.New("srp: scrambling parameter u is zero")

// ClientEphemeral holds the client's SRP secret/public ephemeral pair.
type ClientEphemeral struct {
	a *big.Int
	A *big.Int
}

// GetLargeAValue samples a fresh client secret a and computes the public
// ephemeral A = g^a mod N, resampling if A mod N happens to be zero
// (spec.md §4.1 get_large_A_value). The modular exponentiation is the only
// CPU-bound step in the exchange; callers that want to run it off the
// critical path can do so — this function itself is synchronous.
func GetLargeAValue() (*ClientEphemeral, error) {
	for {
		a, err := randomBigInt()
		if err != nil {
			return nil, err
		}
		A := modExp(G, a)
		if new(big.Int).Mod(A, N).Sign() == 0 {
			continue
		}
		return &ClientEphemeral{a: a, A: A}, nil
	}
}

// AHex returns the client public ephemeral as an (unpadded) hex string,
// the wire representation used in SRP_A.
func (e *ClientEphemeral) AHex() string {
	return e.A.Text(16)
}

// PasswordAuthenticationKey is the result of deriving the shared SRP
// session key: the raw HKDF output (first 16 bytes used as a MAC key) plus
// the intermediate values a caller needs for the PASSWORD_VERIFIER
// response (the scrambling parameter, for logging/testing only).
type PasswordAuthenticationKey struct {
	HKDFKey []byte
	U       *big.Int
}

// GetPasswordAuthenticationKey derives the shared authentication key from
// the client ephemeral, the user's password, and the server's challenge
// parameters (spec.md §4.1 get_password_authentication_key).
//
// poolShortID is the pool identifier without its region prefix.
// usernameForPassword is the username normally, or the deviceGroupKey for
// device SRP (spec.md §4.1 step 3). password is the user's password
// normally, or the cached device random password for device SRP.
func GetPasswordAuthenticationKey(e *ClientEphemeral, poolShortID, usernameForPassword, password, bHex, saltHex string) (*PasswordAuthenticationKey, error) {
	B, ok := new(big.Int).SetString(bHex, 16)
	if !ok {
		return nil, fmt.Errorf("srp: invalid server B hex %q", bHex)
	}
	if new(big.Int).Mod(B, N).Sign() == 0 {
		return nil, ErrInvalidServerEphemeral
	}

	uh := sha256.New()
	uh.Write(Pad(e.A))
	uh.Write(Pad(B))
	u := new(big.Int).SetBytes(uh.Sum(nil))
	if u.Sign() == 0 {
		return nil, ErrInvalidScramblingParameter
	}

	salt, err := hex.DecodeString(evenHex(saltHex))
	if err != nil {
		return nil, fmt.Errorf("srp: decoding salt: %w", err)
	}

	usernamePassword := poolShortID + ":" + usernameForPassword + ":" + password
	upHash := sha256.Sum256([]byte(usernamePassword))

	xh := sha256.New()
	xh.Write(PadHex(salt))
	xh.Write(upHash[:])
	x := new(big.Int).SetBytes(xh.Sum(nil))

	// S = (B - k*g^x)^(a + u*x) mod N
	gx := modExp(G, x)
	kgx := new(big.Int).Mul(littleK, gx)
	kgx.Mod(kgx, N)

	base := new(big.Int).Sub(B, kgx)
	base.Mod(base, N)

	ux := new(big.Int).Mul(u, x)
	exp := new(big.Int).Add(e.a, ux)

	S := modExp(base, exp)

	hkdfKey, err := hkdfExtractKey(Pad(S), Pad(u), 16)
	if err != nil {
		return nil, err
	}

	return &PasswordAuthenticationKey{HKDFKey: hkdfKey, U: u}, nil
}

// DeviceVerifier is the (salt, verifier) pair registered with the IdP for
// a new device, plus the random password the client must remember to
// re-derive the same verifier during future device-SRP exchanges.
type DeviceVerifier struct {
	SaltHex      string
	VerifierHex  string
	RandomPassword string
}

// GenerateHashDevice derives a fresh device verifier (spec.md §4.1
// generate_hash_device). randomPassword is supplied by the caller (a
// 40-character base64 string, per spec) rather than generated here, so
// that device.go owns the single source of randomness policy.
func GenerateHashDevice(deviceGroupKey, deviceKey, randomPassword string) (*DeviceVerifier, error) {
	saltBytes, err := randomSalt(16)
	if err != nil {
		return nil, err
	}

	combined := deviceGroupKey + deviceKey + ":" + randomPassword
	combinedHash := sha256.Sum256([]byte(combined))

	xh := sha256.New()
	xh.Write(PadHex(saltBytes))
	xh.Write(combinedHash[:])
	x := new(big.Int).SetBytes(xh.Sum(nil))

	verifier := modExp(G, x)

	return &DeviceVerifier{
		SaltHex:        hexEncode(saltBytes),
		VerifierHex:    verifier.Text(16),
		RandomPassword: randomPassword,
	}, nil
}

// VerifierForSignUp derives the (salt, verifier) pair an IdP would store
// for a brand-new user registration, using the same x = H(PAD(salt) ‖
// H(username:password)) derivation as the login path, so that a locally
// simulated/test IdP can accept the exact credentials a real sign-up flow
// would produce.
func VerifierForSignUp(poolShortID, username, password string) (*DeviceVerifier, error) {
	saltBytes, err := randomSalt(16)
	if err != nil {
		return nil, err
	}

	usernamePassword := poolShortID + ":" + username + ":" + password
	upHash := sha256.Sum256([]byte(usernamePassword))

	xh := sha256.New()
	xh.Write(PadHex(saltBytes))
	xh.Write(upHash[:])
	x := new(big.Int).SetBytes(xh.Sum(nil))

	verifier := modExp(G, x)

	return &DeviceVerifier{
		SaltHex:     hexEncode(saltBytes),
		VerifierHex: verifier.Text(16),
	}, nil
}

// evenHex zero-pads a hex string to even length — an odd-length hex
// string cannot be decoded by encoding/hex and is a known interop trap
// (spec.md §9 "pad-hex... is a known source of interop bugs").
func evenHex(s string) string {
	if len(s)%2 != 0 {
		return "0" + s
	}
	return s
}
