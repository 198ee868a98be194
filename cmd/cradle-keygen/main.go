// cradle-keygen generates a throwaway wallet keypair and a signed
// sample PlaceOrder envelope, for pasting into POST /api/v1/process
// during local testing. Adapted from the node's cmd/sign-order, which
// did the same thing for its own EIP-712 order shape.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"github.com/cradle-exchange/cradle/internal/walletcap"
)

type sampleEnvelope struct {
	OrderBook struct {
		PlaceOrder struct {
			Wallet        string `json:"wallet"`
			WalletAddress string `json:"wallet_address"`
			MarketID      string `json:"market_id"`
			BidAsset      string `json:"bid_asset"`
			AskAsset      string `json:"ask_asset"`
			BidAmount     string `json:"bid_amount"`
			AskAmount     string `json:"ask_amount"`
			OrderType     string `json:"order_type"`
			Mode          string `json:"mode"`
			Signature     string `json:"signature"`
		} `json:"PlaceOrder"`
	} `json:"OrderBook"`
}

func main() {
	signer, err := walletcap.GenerateKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate key: %v\n", err)
		os.Exit(1)
	}

	// Cross-check the address two ways: the go-ethereum-derived one on
	// the signer, and the EIP-55 checksum computed independently from
	// the raw public key. A mismatch would mean the two packages have
	// drifted on the keccak/checksum convention.
	derived := walletcap.AddressFromUncompressedPub(signer.PublicKeyBytes())
	if derived != signer.Address().Hex() {
		fmt.Fprintf(os.Stderr, "address mismatch: signer=%s eip55=%s\n", signer.Address().Hex(), derived)
		os.Exit(1)
	}

	fmt.Printf("Address:     %s\n", signer.Address().Hex())
	fmt.Printf("Private Key: %s (dev use only, never fund this key)\n\n", signer.PrivateKeyHex())

	wallet := uuid.New()
	marketID := uuid.New()
	bidAsset := uuid.New()
	askAsset := uuid.New()

	var env sampleEnvelope
	env.OrderBook.PlaceOrder.Wallet = wallet.String()
	env.OrderBook.PlaceOrder.WalletAddress = signer.Address().Hex()
	env.OrderBook.PlaceOrder.MarketID = marketID.String()
	env.OrderBook.PlaceOrder.BidAsset = bidAsset.String()
	env.OrderBook.PlaceOrder.AskAsset = askAsset.String()
	env.OrderBook.PlaceOrder.BidAmount = "100"
	env.OrderBook.PlaceOrder.AskAmount = "2"
	env.OrderBook.PlaceOrder.OrderType = "limit"
	env.OrderBook.PlaceOrder.Mode = "gtc"

	signedMessage := []byte(env.OrderBook.PlaceOrder.Wallet + env.OrderBook.PlaceOrder.MarketID)
	sig, err := signer.SignMessage(signedMessage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign order: %v\n", err)
		os.Exit(1)
	}
	env.OrderBook.PlaceOrder.Signature = fmt.Sprintf("0x%x", sig)

	hash := crypto.Keccak256Hash(signedMessage).Bytes()
	if !walletcap.VerifySignature(signer.Address(), hash, sig) {
		fmt.Fprintln(os.Stderr, "generated signature failed self-verification")
		os.Exit(1)
	}
	if recovered, err := walletcap.RecoverAddress(hash, sig); err != nil || recovered != signer.Address() {
		fmt.Fprintf(os.Stderr, "recovered address mismatch: %v %s\n", err, recovered.Hex())
		os.Exit(1)
	}

	out, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal envelope: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Sample PlaceOrder envelope (random market/asset ids, substitute real ones):")
	fmt.Println(string(out))
	fmt.Println()
	fmt.Println("POST it to http://localhost:8080/api/v1/process")
}
