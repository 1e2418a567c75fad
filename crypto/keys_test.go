package crypto

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestAddressRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr, err := key.PubKey().Address(DefaultPrefix)
	if err != nil {
		t.Fatalf("derive address: %v", err)
	}
	encoded := addr.String()
	if !strings.HasPrefix(encoded, DefaultPrefix+"1") {
		t.Fatalf("unexpected encoding %q", encoded)
	}
	decoded, err := DecodeAddress(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.String() != encoded {
		t.Fatalf("round trip mismatch: %s != %s", decoded.String(), encoded)
	}
}

func TestValidatorWithPrefix(t *testing.T) {
	addr, err := DeriveAddress(DefaultPrefix, []byte("donor"))
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	v := Validator{Prefix: DefaultPrefix}
	got, err := v.Validate(strings.ToUpper(addr.String()))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got != addr.String() {
		t.Fatalf("expected canonical lowercase address, got %q", got)
	}

	other, err := DeriveAddress("comdex", []byte("donor"))
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if _, err := v.Validate(other.String()); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected prefix mismatch, got %v", err)
	}
	if _, err := v.Validate("not-bech32"); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected decode failure, got %v", err)
	}
}

func TestValidatorUnchecked(t *testing.T) {
	v := Validator{}
	got, err := v.Validate("  abc ")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got != "abc" {
		t.Fatalf("expected trimmed address, got %q", got)
	}
	for _, bad := range []string{"", "   ", "a b"} {
		if _, err := v.Validate(bad); !errors.Is(err, ErrInvalidAddress) {
			t.Fatalf("expected %q to be rejected, got %v", bad, err)
		}
	}
}

func TestKeystoreRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	path := filepath.Join(t.TempDir(), "keys", "donor.keystore")
	if err := SaveToKeystoreWithParams(path, key, "secret", LightKeystore); err != nil {
		t.Fatalf("save keystore: %v", err)
	}
	loaded, err := LoadFromKeystore(path, "secret")
	if err != nil {
		t.Fatalf("load keystore: %v", err)
	}
	if string(loaded.Bytes()) != string(key.Bytes()) {
		t.Fatalf("loaded key differs from saved key")
	}
	if _, err := LoadFromKeystore(path, "wrong"); err == nil {
		t.Fatalf("expected wrong passphrase to fail")
	}
}
