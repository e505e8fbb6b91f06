package utils

import "testing"

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "s3cret" {
		t.Fatal("hash equals plain text")
	}
	if !VerifyPassword(hash, "s3cret") {
		t.Fatal("correct password rejected")
	}
	if VerifyPassword(hash, "wrong") {
		t.Fatal("wrong password accepted")
	}
}

func TestRefreshTokenHashing(t *testing.T) {
	tok, err := NewRefreshToken(7)
	if err != nil {
		t.Fatalf("new refresh: %v", err)
	}
	if len(tok.Raw) != 96 {
		t.Fatalf("raw length = %d, want 96 hex chars", len(tok.Raw))
	}
	if HashRefreshRaw(tok.Raw) != HashRefreshRaw(tok.Raw) {
		t.Fatal("hash is not deterministic")
	}
	other, _ := NewRefreshToken(7)
	if tok.Raw == other.Raw {
		t.Fatal("two refresh tokens collided")
	}
}
