package storage

import "testing"

func TestCacheLastAuthUserRoundTrip(t *testing.T) {
	c := NewCache(NewMemory(), "client123")

	if _, ok := c.LastAuthUser(); ok {
		t.Fatal("expected no LastAuthUser initially")
	}

	c.SetLastAuthUser("alice")
	got, ok := c.LastAuthUser()
	if !ok || got != "alice" {
		t.Fatalf("LastAuthUser = (%q, %v), want (alice, true)", got, ok)
	}
}

func TestCacheTokensRoundTrip(t *testing.T) {
	store := NewMemory()
	c := NewCache(store, "client123")

	if _, ok := c.Tokens("alice"); ok {
		t.Fatal("expected no tokens cached initially")
	}

	want := TokenKeys{
		IDToken:      "id-token",
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		ClockDrift:   "5",
	}
	c.SetTokens("alice", want)

	got, ok := c.Tokens("alice")
	if !ok {
		t.Fatal("expected tokens after SetTokens")
	}
	if got != want {
		t.Fatalf("Tokens = %+v, want %+v", got, want)
	}

	if last, ok := c.LastAuthUser(); !ok || last != "alice" {
		t.Fatalf("SetTokens should record LastAuthUser, got (%q, %v)", last, ok)
	}

	if _, ok := store.GetItem("CognitoIdentityServiceProvider.client123.alice.idToken"); !ok {
		t.Fatal("expected literal key layout under CognitoIdentityServiceProvider prefix")
	}
}

func TestCacheTokensMissingKeyIsNotPartial(t *testing.T) {
	store := NewMemory()
	c := NewCache(store, "client123")

	store.SetItem("CognitoIdentityServiceProvider.client123.alice.idToken", "id-token")

	if _, ok := c.Tokens("alice"); ok {
		t.Fatal("Tokens should require all four keys present")
	}
}

func TestCacheClearTokensRemovesLastAuthUserOnlyWhenMatching(t *testing.T) {
	c := NewCache(NewMemory(), "client123")
	c.SetTokens("alice", TokenKeys{IDToken: "i", AccessToken: "a", RefreshToken: "r", ClockDrift: "0"})
	c.SetTokens("bob", TokenKeys{IDToken: "i2", AccessToken: "a2", RefreshToken: "r2", ClockDrift: "0"})

	c.ClearTokens("alice")

	if _, ok := c.Tokens("alice"); ok {
		t.Fatal("alice tokens should be cleared")
	}
	if last, ok := c.LastAuthUser(); !ok || last != "bob" {
		t.Fatalf("LastAuthUser should remain bob, got (%q, %v)", last, ok)
	}
}

func TestCacheDeviceRoundTrip(t *testing.T) {
	c := NewCache(NewMemory(), "client123")

	if _, ok := c.Device("alice"); ok {
		t.Fatal("expected no device cached initially")
	}

	want := DeviceKeys{DeviceKey: "dk", DeviceGroupKey: "dgk", RandomPassword: "rp"}
	c.SetDevice("alice", want)

	got, ok := c.Device("alice")
	if !ok || got != want {
		t.Fatalf("Device = (%+v, %v), want (%+v, true)", got, ok, want)
	}

	c.ClearDevice("alice")
	if _, ok := c.Device("alice"); ok {
		t.Fatal("expected device cleared")
	}
}

func TestCacheAttributeRoundTrip(t *testing.T) {
	c := NewCache(NewMemory(), "client123")

	if _, ok := c.Attribute("alice", "email"); ok {
		t.Fatal("expected no attribute initially")
	}

	c.SetAttribute("alice", "email", "alice@example.com")
	got, ok := c.Attribute("alice", "email")
	if !ok || got != "alice@example.com" {
		t.Fatalf("Attribute = (%q, %v), want (alice@example.com, true)", got, ok)
	}
}

func TestCacheIsolatedByClientID(t *testing.T) {
	store := NewMemory()
	c1 := NewCache(store, "clientA")
	c2 := NewCache(store, "clientB")

	c1.SetLastAuthUser("alice")
	if _, ok := c2.LastAuthUser(); ok {
		t.Fatal("caches for different clientIds must not see each other's keys")
	}
}
