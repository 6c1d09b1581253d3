package crypto

import (
	"bytes"
	"testing"
)

func TestNewSalt_LengthAndUniqueness(t *testing.T) {
	t.Parallel()

	a, err := NewSalt()
	if err != nil {
		t.Fatalf("NewSalt: %v", err)
	}
	if len(a) != SaltLen {
		t.Fatalf("len=%d, want=%d", len(a), SaltLen)
	}
	b, err := NewSalt()
	if err != nil {
		t.Fatalf("NewSalt(2): %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatalf("two salts are equal")
	}
}

func TestHashPassword_SaltAndPasswordSensitive(t *testing.T) {
	t.Parallel()

	salt := []byte("NaCl-16-bytes?!!")
	h1 := HashPassword("p@ssw0rd", salt)
	if !bytes.Equal(h1, HashPassword("p@ssw0rd", salt)) {
		t.Fatalf("hash not deterministic for same input")
	}
	if bytes.Equal(h1, HashPassword("p@ssw0rd", []byte("another-salt----"))) {
		t.Fatalf("hash should differ when salt differs")
	}
	if bytes.Equal(h1, HashPassword("p@ssw0rd!", salt)) {
		t.Fatalf("hash should differ when password differs")
	}
}

func TestNewPasswordHash_Verify(t *testing.T) {
	t.Parallel()

	hash, salt, err := NewPasswordHash("correct horse")
	if err != nil {
		t.Fatalf("NewPasswordHash: %v", err)
	}
	if !VerifyPassword("correct horse", salt, hash) {
		t.Fatalf("expected true for correct password")
	}
	if VerifyPassword("wrong", salt, hash) {
		t.Fatalf("expected false for wrong password")
	}
	if VerifyPassword("correct horse", []byte("wrong-salt"), hash) {
		t.Fatalf("expected false for wrong salt")
	}
	if VerifyPassword("", salt, nil) {
		t.Fatalf("expected false for empty stored hash")
	}
}
