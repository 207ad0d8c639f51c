package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordService_Hash(t *testing.T) {
	ps := NewPasswordServiceForTest(bcrypt.MinCost)

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"typical", "secret123", false},
		{"unicode", "пароль-密码", false},
		{"surrounding whitespace kept", "  padded  ", false},
		{"exactly the bcrypt limit", strings.Repeat("a", MaxPasswordBytes), false},
		{"over the bcrypt limit", strings.Repeat("a", MaxPasswordBytes+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := ps.Hash(tt.password)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Hash(%d bytes) error = nil, want error", len(tt.password))
				}
				return
			}
			if err != nil {
				t.Fatalf("Hash() error = %v", err)
			}
			if !strings.HasPrefix(hash, "$2") {
				t.Errorf("Hash() = %q, want a bcrypt hash", hash)
			}
			if err := ps.Verify(hash, tt.password); err != nil {
				t.Errorf("Verify() on own hash error = %v", err)
			}
		})
	}
}

func TestPasswordService_HashIsSalted(t *testing.T) {
	ps := NewPasswordServiceForTest(bcrypt.MinCost)

	first, err := ps.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	second, err := ps.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if first == second {
		t.Error("two hashes of the same password are identical")
	}
}

func TestPasswordService_HonoursCost(t *testing.T) {
	ps := NewPasswordServiceForTest(bcrypt.MinCost + 1)

	hash, err := ps.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("bcrypt.Cost() error = %v", err)
	}
	if cost != bcrypt.MinCost+1 {
		t.Errorf("cost = %d, want %d", cost, bcrypt.MinCost+1)
	}

	if got := NewPasswordService().cost; got != defaultCost {
		t.Errorf("NewPasswordService cost = %d, want %d", got, defaultCost)
	}
}

func TestPasswordService_Verify(t *testing.T) {
	ps := NewPasswordServiceForTest(bcrypt.MinCost)

	hash, err := ps.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	tests := []struct {
		name         string
		hash         string
		password     string
		wantMismatch bool
		wantErr      bool
	}{
		{"correct", hash, "secret123", false, false},
		{"wrong", hash, "secret124", true, true},
		{"empty", hash, "", true, true},
		{"case matters", hash, "SECRET123", true, true},
		{"corrupt hash", "not-a-bcrypt-hash", "secret123", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ps.Verify(tt.hash, tt.password)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Verify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := errors.Is(err, ErrPasswordMismatch); got != tt.wantMismatch {
				t.Errorf("errors.Is(err, ErrPasswordMismatch) = %v, want %v", got, tt.wantMismatch)
			}
		})
	}
}
