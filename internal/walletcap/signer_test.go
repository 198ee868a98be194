package walletcap

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	eth_crypto "github.com/ethereum/go-ethereum/crypto"
)

func TestGenerateKey(t *testing.T) {
	signer, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if signer.Address() == (common.Address{}) {
		t.Error("generated zero address")
	}
}

func TestFromPrivateKeyHexRoundTrip(t *testing.T) {
	signer1, _ := GenerateKey()
	privHex := signer1.PrivateKeyHex()

	signer2, err := FromPrivateKeyHex(privHex)
	if err != nil {
		t.Fatalf("FromPrivateKeyHex: %v", err)
	}
	if signer2.Address() != signer1.Address() {
		t.Errorf("address = %s, want %s", signer2.Address().Hex(), signer1.Address().Hex())
	}
}

func TestSignAndVerify(t *testing.T) {
	signer, _ := GenerateKey()
	message := []byte("cradle settlement")

	sig, err := signer.SignMessage(message)
	if err != nil {
		t.Fatalf("SignMessage: %v", err)
	}
	if len(sig) != 65 {
		t.Fatalf("signature length = %d, want 65", len(sig))
	}

	hash := eth_crypto.Keccak256Hash(message).Bytes()
	if !VerifySignature(signer.Address(), hash, sig) {
		t.Error("expected signature to verify")
	}

	wrong := common.HexToAddress("0x0000000000000000000000000000000000000001")
	if VerifySignature(wrong, hash, sig) {
		t.Error("signature should not verify against an unrelated address")
	}
}

func TestRecoverAddress(t *testing.T) {
	signer, _ := GenerateKey()
	message := []byte("recover me")
	sig, err := signer.SignMessage(message)
	if err != nil {
		t.Fatalf("SignMessage: %v", err)
	}

	hash := eth_crypto.Keccak256Hash(message).Bytes()
	recovered, err := RecoverAddress(hash, sig)
	if err != nil {
		t.Fatalf("RecoverAddress: %v", err)
	}
	if recovered != signer.Address() {
		t.Errorf("recovered = %s, want %s", recovered.Hex(), signer.Address().Hex())
	}
}
