// Package srp implements the SRP-6a modular arithmetic, digest composition,
// and verifier derivation used by the authentication state machine.
package srp

import "math/big"

// n3072Hex is the 3072-bit MODP group prime from RFC 5054, the fixed
// modulus used for every SRP exchange performed by this library.
const n3072Hex = "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD129024E08" +
	"8A67CC74020BBEA63B139B22514A08798E3404DDEF9519B3CD3A431B302B0A6DF25F1437" +
	"4FE1356D6D51C245E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7EDEE386BFB" +
	"5A899FA5AE9F24117C4B1FE649286651ECE45B3DC2007CB8A163BF0598DA48361C55D39" +
	"A69163FA8FD24CF5F83655D23DCA3AD961C62F356208552BB9ED529077096966D670C35" +
	"4E4ABC9804F1746C08CA18217C32905E462E36CE3BE39E772C180E86039B2783A2EC07A" +
	"28FB5C55DF06F4C52C9DE2BCBF6955817183995497CEA956AE515D2261898FA051015728" +
	"E5A8AACAA68FFFFFFFFFFFFFFFF"

// GHex is the generator used alongside N, expressed for documentation
// purposes; the generator itself is small enough to construct directly.
const GHex = "2"

var (
	// N is the fixed 3072-bit safe prime modulus shared by client and
	// server; every SRP operation in this package reduces mod N.
	N *big.Int
	// G is the generator, g = 2.
	G *big.Int
	// nLen is the byte length of N, used to PAD(...) operands before
	// hashing per spec.md §4.1 — this padding must be bit-identical to
	// what the server expects, so it is centralised here.
	nLen int
)

func init() {
	N = new(big.Int)
	if _, ok := N.SetString(n3072Hex, 16); !ok {
		panic("srp: invalid N hex constant")
	}
	G = big.NewInt(2)
	nLen = (N.BitLen() + 7) / 8
}

// PadHex pads b to the byte length of N with leading zero bytes. Hash
// inputs in SRP must all be padded to the same width as N; a value that is
// naturally shorter (say, because its leading byte happened to be zero)
// would otherwise silently diverge from what the server hashed.
func PadHex(b []byte) []byte {
	if len(b) >= nLen {
		return b
	}
	out := make([]byte, nLen)
	copy(out[nLen-len(b):], b)
	return out
}

// Pad pads a big.Int's big-endian byte representation to the width of N.
func Pad(x *big.Int) []byte {
	return PadHex(x.Bytes())
}

// modExp computes base^exp mod N using the fixed group modulus.
func modExp(base, exp *big.Int) *big.Int {
	return new(big.Int).Exp(base, exp, N)
}
