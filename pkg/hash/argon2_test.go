package hash

import (
	"strings"
	"testing"
)

// fastParams keeps the tests quick without changing the code path.
var fastParams = Params{
	Memory:      8 * 1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

func TestPasswordVerifyRoundTrip(t *testing.T) {
	encoded, err := PasswordWithParams("correct horse battery staple", fastParams)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$") {
		t.Fatalf("encoded = %q, want PHC argon2id format", encoded)
	}

	ok, err := Verify("correct horse battery staple", encoded)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("correct password did not verify")
	}

	ok, err = Verify("wrong password", encoded)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatal("wrong password verified")
	}
}

func TestHashesAreSalted(t *testing.T) {
	a, err := PasswordWithParams("password", fastParams)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	b, err := PasswordWithParams("password", fastParams)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if a == b {
		t.Fatal("two hashes of the same password are identical")
	}
}

func TestVerifyRejectsBadEncodings(t *testing.T) {
	for _, encoded := range []string{"", "plaintext", "$argon2i$v=19$m=1,t=1,p=1$AA$AA", "$argon2id$v=19$m=1,t=1,p=1$!!$AA"} {
		if _, err := Verify("password", encoded); err == nil {
			t.Errorf("Verify with hash %q: expected error", encoded)
		}
	}
}
