package walletcap

import "testing"

func TestAddressFromUncompressedPubMatchesSignerAddress(t *testing.T) {
	signer, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	got := AddressFromUncompressedPub(signer.PublicKeyBytes())
	want := signer.Address().Hex()
	if got != want {
		t.Errorf("AddressFromUncompressedPub = %s, want %s", got, want)
	}
}

func TestAddressFromUncompressedPubRejectsWrongLength(t *testing.T) {
	if got := AddressFromUncompressedPub([]byte{0x04, 0x01}); got != "" {
		t.Errorf("expected empty string for malformed pubkey, got %s", got)
	}
}

func TestEIP55ChecksumIsDeterministic(t *testing.T) {
	addr := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a,
		0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10, 0x11, 0x12, 0x13, 0x14}
	first := EIP55(addr)
	second := EIP55(addr)
	if first != second {
		t.Errorf("EIP55 not deterministic: %s vs %s", first, second)
	}
	if len(first) != 42 {
		t.Errorf("checksummed address length = %d, want 42", len(first))
	}
}
