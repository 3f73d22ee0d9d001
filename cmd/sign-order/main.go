package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nadoxyz/makerbot/params"
	"github.com/nadoxyz/makerbot/pkg/crypto"
	"github.com/nadoxyz/makerbot/pkg/exchange"
	"github.com/nadoxyz/makerbot/pkg/util"
)

func main() {
	cfg := params.LoadFromEnv("")

	// Step 1: Generate or load key
	var signer *crypto.LocalSigner
	var err error
	if hexKey := os.Getenv("PRIVATE_KEY"); hexKey != "" {
		fmt.Println("Loading key from PRIVATE_KEY...")
		signer, err = crypto.FromPrivateKeyHex(hexKey)
	} else {
		fmt.Println("Generating new keypair...")
		signer, err = crypto.GenerateKey()
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Address: %s\n", crypto.ChecksumAddress(signer.Address()))
	if os.Getenv("PRIVATE_KEY") == "" {
		fmt.Printf("Private Key: %s (KEEP SECRET!)\n", signer.PrivateKeyHex())
	}
	fmt.Println()

	// Step 2: Build order intent
	product, ok := cfg.FindProduct(envOr("PAIR", "ETH-USDC"))
	if !ok {
		fmt.Printf("Error: unknown pair %q\n", os.Getenv("PAIR"))
		os.Exit(1)
	}

	price := decimal.RequireFromString(envOr("PRICE", "2450.50"))
	amount := decimal.RequireFromString(envOr("AMOUNT", "0.5"))

	clock := util.RealClock{}
	builder := exchange.NewBuilder(
		clock,
		exchange.NewNonceSource(clock),
		cfg.Trading.LatencyBuffer,
		cfg.Trading.OrderExpiry,
	)
	sender := exchange.NewSender(signer.Address(), cfg.Trading.SubaccountName)

	intent, err := builder.PlaceOrder(product.ID, sender, price, amount, exchange.OrderTypeLimit, false)
	if err != nil {
		fmt.Printf("Error building order: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Order Details:")
	fmt.Printf("  Pair: %s (product %d)\n", product.Pair, product.ID)
	fmt.Printf("  Sender: %s\n", intent.Sender.Hex())
	fmt.Printf("  PriceX18: %s\n", intent.PriceX18.String())
	fmt.Printf("  AmountX18: %s\n", intent.AmountX18.String())
	fmt.Printf("  Expiration: %s\n", time.Unix(int64(intent.Expiration), 0).UTC().Format(time.RFC3339))
	fmt.Printf("  Nonce: %d\n\n", intent.Nonce)

	// Step 3: Sign with EIP-712
	td := intent.TypedData(cfg.Gateway.ChainID)
	signature, err := signer.SignTypedData(context.Background(), td)
	if err != nil {
		fmt.Printf("Error signing: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Signature: 0x%x\n\n", signature)

	// Step 4: Verify signature
	fmt.Println("Verifying signature...")
	valid, err := crypto.VerifyTypedData(signer.Address(), td, signature)
	if err != nil {
		fmt.Printf("Error verifying: %v\n", err)
		os.Exit(1)
	}
	if !valid {
		fmt.Println("✗ Signature INVALID")
		os.Exit(1)
	}
	fmt.Println("✓ Signature VALID")
	fmt.Println()

	// Step 5: Serialize the execute body
	body, err := json.MarshalIndent(intent.Wire(signature), "", "  ")
	if err != nil {
		fmt.Printf("Error marshaling JSON: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("To submit this order to the gateway:")
	fmt.Printf("  POST %s/execute\n", cfg.Gateway.Endpoint)
	fmt.Println("  Content-Type: application/json")
	fmt.Println("  Body:")
	fmt.Println(string(body))
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
