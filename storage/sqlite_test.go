package storage

import (
	"path/filepath"
	"testing"
)

func TestSQLiteGetSetRemoveItem(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSQLite(filepath.Join(dir, "identitypool.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	defer s.Close()

	if _, ok := s.GetItem("missing"); ok {
		t.Fatal("expected no value for missing key")
	}

	s.SetItem("CognitoIdentityServiceProvider.client.LastAuthUser", "alice")
	got, ok := s.GetItem("CognitoIdentityServiceProvider.client.LastAuthUser")
	if !ok || got != "alice" {
		t.Fatalf("GetItem = (%q, %v), want (alice, true)", got, ok)
	}

	s.SetItem("CognitoIdentityServiceProvider.client.LastAuthUser", "bob")
	got, ok = s.GetItem("CognitoIdentityServiceProvider.client.LastAuthUser")
	if !ok || got != "bob" {
		t.Fatalf("overwrite: GetItem = (%q, %v), want (bob, true)", got, ok)
	}

	s.RemoveItem("CognitoIdentityServiceProvider.client.LastAuthUser")
	if _, ok := s.GetItem("CognitoIdentityServiceProvider.client.LastAuthUser"); ok {
		t.Fatal("expected key removed")
	}
}

func TestSQLiteClear(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSQLite(filepath.Join(dir, "identitypool.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	defer s.Close()

	s.SetItem("a", "1")
	s.SetItem("b", "2")
	s.Clear()

	if _, ok := s.GetItem("a"); ok {
		t.Fatal("expected a cleared")
	}
	if _, ok := s.GetItem("b"); ok {
		t.Fatal("expected b cleared")
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "identitypool.db")

	s1, err := NewSQLite(dbPath)
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	s1.SetItem("key", "value")
	if err := s1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := NewSQLite(dbPath)
	if err != nil {
		t.Fatalf("NewSQLite (reopen): %v", err)
	}
	defer s2.Close()

	got, ok := s2.GetItem("key")
	if !ok || got != "value" {
		t.Fatalf("GetItem after reopen = (%q, %v), want (value, true)", got, ok)
	}
}
