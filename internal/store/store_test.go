package store

import (
	"path/filepath"
	"testing"
)

// newTestStore creates a fresh sqlite-backed Store in a temp directory
// for each test, following the teacher's internal/core/data test
// convention of a cheap new database per invocation rather than a
// shared fixture.
func newTestStore(t *testing.T) *Store {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("error initializing test store: %s", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_AuthenticateSerial(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateAccount(1234567, "deadbeef", "", "", ""); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}

	if !s.AuthenticateSerial(1234567, "deadbeef") {
		t.Fatalf("AuthenticateSerial() = false, want true")
	}
	if s.AuthenticateSerial(1234567, "wrongkey") {
		t.Fatalf("AuthenticateSerial() = true for a wrong access key")
	}
	if s.AuthenticateSerial(9999999, "deadbeef") {
		t.Fatalf("AuthenticateSerial() = true for an unknown serial")
	}
}

func TestStore_AuthenticateSerial_RejectsBanned(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateAccount(1, "key", "", "", ""); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	if err := s.Ban(1); err != nil {
		t.Fatalf("Ban() error = %v", err)
	}
	if s.AuthenticateSerial(1, "key") {
		t.Fatalf("AuthenticateSerial() = true for a banned account")
	}
}

func TestStore_Authenticate(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateAccount(42, "", "alice", "hunter2", "alice@example.com"); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}

	serial, ok := s.Authenticate("alice", "hunter2")
	if !ok || serial != 42 {
		t.Fatalf("Authenticate() = (%d, %v), want (42, true)", serial, ok)
	}
	if _, ok := s.Authenticate("alice", "wrongpass"); ok {
		t.Fatalf("Authenticate() = true for a wrong password")
	}
	if _, ok := s.Authenticate("nobody", "hunter2"); ok {
		t.Fatalf("Authenticate() = true for an unknown username")
	}
}

func TestStore_CharacterFileRoundTrip(t *testing.T) {
	s := newTestStore(t)
	if _, ok := s.Load(7, 0); ok {
		t.Fatalf("Load() ok = true before any Save")
	}

	data := []byte{0xE7, 0x00, 0x9C, 0x39, 1, 2, 3}
	if err := s.Save(7, 0, data); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, ok := s.Load(7, 0)
	if !ok {
		t.Fatalf("Load() ok = false after Save")
	}
	if string(got) != string(data) {
		t.Fatalf("Load() = %v, want %v", got, data)
	}

	// Saving again to the same (serial, slot) overwrites rather than
	// accumulating a second row.
	updated := []byte{9, 9, 9}
	if err := s.Save(7, 0, updated); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}
	got, ok = s.Load(7, 0)
	if !ok || string(got) != string(updated) {
		t.Fatalf("Load() after overwrite = %v, want %v", got, updated)
	}
}

func TestHashPassword_Deterministic(t *testing.T) {
	h1 := HashPassword("password")
	h2 := HashPassword("password")
	if h1 != h2 {
		t.Fatalf("HashPassword() is non-deterministic: %q vs %q", h1, h2)
	}
	if h1 == "password" {
		t.Fatalf("HashPassword() returned the input unchanged")
	}
}

func Test_stripPadding(t *testing.T) {
	trimmed := stripPadding([]byte{1, 2, 3, 0, 0, 0})
	if len(trimmed) != 3 {
		t.Fatalf("stripPadding() len = %d, want 3", len(trimmed))
	}
}
