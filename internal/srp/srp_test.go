package srp

import (
	"math/big"
	"testing"
)

func TestNIs3072Bit(t *testing.T) {
	if bl := N.BitLen(); bl != 3072 {
		t.Errorf("N.BitLen() = %d, want 3072", bl)
	}
	if G.Cmp(big.NewInt(2)) != 0 {
		t.Errorf("G = %s, want 2", G.String())
	}
}

func TestPadHexPadsToNLength(t *testing.T) {
	short := []byte{0x01, 0x02}
	padded := PadHex(short)
	if len(padded) != nLen {
		t.Fatalf("len(padded) = %d, want %d", len(padded), nLen)
	}
	for i := 0; i < nLen-2; i++ {
		if padded[i] != 0 {
			t.Fatalf("expected leading zero byte at %d, got %x", i, padded[i])
		}
	}
	if padded[nLen-2] != 0x01 || padded[nLen-1] != 0x02 {
		t.Fatalf("payload bytes not preserved: %x", padded[nLen-2:])
	}
}

func TestPadHexNoOpWhenAlreadyWide(t *testing.T) {
	full := Pad(N)
	again := PadHex(full)
	if len(again) != len(full) {
		t.Fatalf("PadHex changed length of an already-wide value")
	}
}

func TestGetLargeAValueNeverDegenerate(t *testing.T) {
	for i := 0; i < 20; i++ {
		e, err := GetLargeAValue()
		if err != nil {
			t.Fatalf("GetLargeAValue: %v", err)
		}
		if e.A.Sign() == 0 {
			t.Fatal("A must not be zero")
		}
		if new(big.Int).Mod(e.A, N).Sign() == 0 {
			t.Fatal("A mod N must not be zero")
		}
		if e.A.Cmp(N) >= 0 {
			t.Fatal("A must be reduced mod N")
		}
	}
}

func TestGetLargeAValueRandomness(t *testing.T) {
	e1, _ := GetLargeAValue()
	e2, _ := GetLargeAValue()
	if e1.AHex() == e2.AHex() {
		t.Fatal("two ephemeral generations produced identical A — randomness failure")
	}
}

func TestGetPasswordAuthenticationKeyRejectsZeroB(t *testing.T) {
	e, err := GetLargeAValue()
	if err != nil {
		t.Fatal(err)
	}
	_, err = GetPasswordAuthenticationKey(e, "abcd1234", "alice", "hunter2", "0", "aa")
	if err != ErrInvalidServerEphemeral {
		t.Fatalf("err = %v, want ErrInvalidServerEphemeral", err)
	}
}

func TestGetPasswordAuthenticationKeyRejectsBCongruentToN(t *testing.T) {
	e, err := GetLargeAValue()
	if err != nil {
		t.Fatal(err)
	}
	// B = N means B mod N == 0, the degenerate case.
	_, err = GetPasswordAuthenticationKey(e, "abcd1234", "alice", "hunter2", N.Text(16), "aa")
	if err != ErrInvalidServerEphemeral {
		t.Fatalf("err = %v, want ErrInvalidServerEphemeral", err)
	}
}

func TestGetPasswordAuthenticationKeyDeterministicGivenSameEphemeral(t *testing.T) {
	e, err := GetLargeAValue()
	if err != nil {
		t.Fatal(err)
	}

	// A fixed, arbitrary non-degenerate B and salt.
	bHex := new(big.Int).Add(modExpPublic(G, big.NewInt(12345)), big.NewInt(7)).Text(16)

	k1, err := GetPasswordAuthenticationKey(e, "us-east-1_abc123", "alice", "hunter2", bHex, "deadbeef")
	if err != nil {
		t.Fatalf("first derivation: %v", err)
	}
	k2, err := GetPasswordAuthenticationKey(e, "us-east-1_abc123", "alice", "hunter2", bHex, "deadbeef")
	if err != nil {
		t.Fatalf("second derivation: %v", err)
	}
	if string(k1.HKDFKey) != string(k2.HKDFKey) {
		t.Fatal("same inputs produced different HKDF keys")
	}
	if len(k1.HKDFKey) != 16 {
		t.Fatalf("HKDF key length = %d, want 16", len(k1.HKDFKey))
	}
}

func TestGetPasswordAuthenticationKeyOddLengthSalt(t *testing.T) {
	e, err := GetLargeAValue()
	if err != nil {
		t.Fatal(err)
	}
	bHex := new(big.Int).Add(modExpPublic(G, big.NewInt(999)), big.NewInt(3)).Text(16)
	// An odd-length salt hex must still decode (pad-hex interop trap).
	if _, err := GetPasswordAuthenticationKey(e, "pool", "bob", "pw", bHex, "abc"); err != nil {
		t.Fatalf("odd-length salt hex should be tolerated: %v", err)
	}
}

func TestGenerateHashDeviceProducesVerifier(t *testing.T) {
	dv, err := GenerateHashDevice("us-east-1_abc123", "device-1", "randompw1234567890randompw1234567890abcd")
	if err != nil {
		t.Fatalf("GenerateHashDevice: %v", err)
	}
	if dv.SaltHex == "" || dv.VerifierHex == "" {
		t.Fatal("expected non-empty salt and verifier")
	}
	v, ok := new(big.Int).SetString(dv.VerifierHex, 16)
	if !ok || v.Sign() == 0 {
		t.Fatal("verifier did not parse as a non-zero big integer")
	}
}

func TestGenerateHashDeviceSaltsAreRandom(t *testing.T) {
	dv1, _ := GenerateHashDevice("grp", "dev", "pw")
	dv2, _ := GenerateHashDevice("grp", "dev", "pw")
	if dv1.SaltHex == dv2.SaltHex {
		t.Fatal("two device hash generations produced identical salts")
	}
	if dv1.VerifierHex == dv2.VerifierHex {
		t.Fatal("two device hash generations produced identical verifiers despite different salts")
	}
}

func TestVerifierForSignUpSaltsAreRandom(t *testing.T) {
	dv1, err := VerifierForSignUp("us-east-1_abc123", "alice", "hunter2")
	if err != nil {
		t.Fatal(err)
	}
	dv2, err := VerifierForSignUp("us-east-1_abc123", "alice", "hunter2")
	if err != nil {
		t.Fatal(err)
	}
	// Different random salts must produce different verifiers even for
	// identical credentials.
	if dv1.SaltHex == dv2.SaltHex {
		t.Fatal("salts should differ between independent sign-ups")
	}
	if dv1.VerifierHex == dv2.VerifierHex {
		t.Fatal("verifiers should differ given different salts")
	}
}

// modExpPublic exposes modExp for test construction of deterministic B
// values without reaching into unexported package state from _test.go
// (same package, but kept as a thin wrapper for readability at call sites).
func modExpPublic(base, exp *big.Int) *big.Int {
	return modExp(base, exp)
}
