package userinfra_test

import (
	"testing"

	"github.com/Abraxas-365/authgate/pkg/iam/user/userinfra"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCompare(t *testing.T) {
	svc := userinfra.NewBcryptPasswordService(bcrypt.MinCost)

	hash, err := svc.Hash("s3cret")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "s3cret" {
		t.Fatalf("hash equals plaintext")
	}

	if !svc.Compare(hash, "s3cret") {
		t.Errorf("correct password rejected")
	}
	if svc.Compare(hash, "wrong") {
		t.Errorf("wrong password accepted")
	}
}

func TestCompareNeverErrors(t *testing.T) {
	svc := userinfra.NewBcryptPasswordService(bcrypt.MinCost)

	cases := []struct {
		name      string
		hash      string
		candidate string
	}{
		{"empty hash", "", "s3cret"},
		{"empty candidate", "$2a$10$abcdefghijklmnopqrstuv", ""},
		{"both empty", "", ""},
		{"malformed hash", "not-a-bcrypt-hash", "s3cret"},
		{"truncated hash", "$2a$10$tooshort", "s3cret"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if svc.Compare(tc.hash, tc.candidate) {
				t.Errorf("Compare(%q, %q) = true", tc.hash, tc.candidate)
			}
		})
	}
}

func TestOutOfRangeCostFallsBack(t *testing.T) {
	svc := userinfra.NewBcryptPasswordService(99)

	hash, err := svc.Hash("s3cret")
	if err != nil {
		t.Fatalf("Hash with clamped cost: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("Cost: %v", err)
	}
	if cost != bcrypt.DefaultCost {
		t.Errorf("cost = %d, want default %d", cost, bcrypt.DefaultCost)
	}
}
