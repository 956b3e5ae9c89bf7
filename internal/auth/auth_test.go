package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestHashAndVerify(t *testing.T) {
	h, err := Hash("secret", TestParams())
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(h, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("hash=%q", h)
	}
	ok, err := Verify("secret", h)
	if err != nil || !ok {
		t.Fatalf("Verify: %v %v", ok, err)
	}
	ok, err = Verify("wrong", h)
	if err != nil || ok {
		t.Fatalf("Verify(wrong): %v %v", ok, err)
	}
}

func TestHash_Empty(t *testing.T) {
	if _, err := Hash("", TestParams()); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("err=%v", err)
	}
}

func TestVerify_Malformed(t *testing.T) {
	for _, h := range []string{"plain", "$bcrypt$x$y$z$w", "$argon2id$v=18$m=1,t=1,p=1$AA$AA", "$argon2id$v=19$bad$AA$AA"} {
		if _, err := Verify("secret", h); !errors.Is(err, ErrBadHash) {
			t.Fatalf("Verify(%q) err=%v", h, err)
		}
	}
}

func TestNewSessionToken(t *testing.T) {
	a, err := NewSessionToken()
	if err != nil {
		t.Fatalf("NewSessionToken: %v", err)
	}
	b, _ := NewSessionToken()
	if a == b || len(a) < 40 {
		t.Fatalf("tokens %q %q", a, b)
	}
}
