package auth

import (
	"strings"
	"testing"
)

func TestHashAndCheckPassword(t *testing.T) {
	for _, password := range []string{
		"a",
		strings.Repeat("x", 72),
		strings.Repeat("x", 73),
		strings.Repeat("x", 200),
	} {
		hash, err := HashPassword(password)
		if err != nil {
			t.Fatalf("hash %d-char password: %v", len(password), err)
		}
		if !CheckPassword(password, hash) {
			t.Fatalf("round trip failed for %d-char password", len(password))
		}
	}
}

func TestCheckPasswordRejectsWrong(t *testing.T) {
	hash, err := HashPassword("correct horse 1!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if CheckPassword("battery staple 2?", hash) {
		t.Fatal("wrong password accepted")
	}
	if CheckPassword("", hash) {
		t.Fatal("empty password accepted")
	}
}

func TestTruncationIsAppliedOnBothPaths(t *testing.T) {
	base := strings.Repeat("p", 72)
	hash, err := HashPassword(base + "tail-one")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	// Inputs identical in the first 72 bytes verify against each other.
	if !CheckPassword(base+"tail-two", hash) {
		t.Fatal("72-byte truncation must make over-long passwords equivalent")
	}
	if CheckPassword(base[:71], hash) {
		t.Fatal("shorter password must not verify")
	}
}
