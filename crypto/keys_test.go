package crypto

import (
	"strings"
	"testing"
)

func TestAddressRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr := key.PubKey().Address()
	encoded := addr.String()
	if !strings.HasPrefix(encoded, string(ReliefPrefix)) {
		t.Fatalf("expected %q prefix, got %q", ReliefPrefix, encoded)
	}
	decoded, err := DecodeAddress(encoded)
	if err != nil {
		t.Fatalf("decode address: %v", err)
	}
	if string(decoded.Bytes()) != string(addr.Bytes()) {
		t.Fatalf("address payload mismatch after round trip")
	}
	if decoded.Prefix() != ReliefPrefix {
		t.Fatalf("unexpected prefix %q", decoded.Prefix())
	}
}

func TestDecodeAddressRejectsGarbage(t *testing.T) {
	if _, err := DecodeAddress("not-bech32"); err == nil {
		t.Fatalf("expected error for malformed address")
	}
}

func TestPrivateKeyBytesRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	restored, err := PrivateKeyFromBytes(key.Bytes())
	if err != nil {
		t.Fatalf("restore key: %v", err)
	}
	if restored.PubKey().Address().String() != key.PubKey().Address().String() {
		t.Fatalf("restored key derives a different address")
	}
}
