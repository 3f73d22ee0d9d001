package crypto

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Signer errors, classified with errors.Is by the submission orchestrator.
var (
	// ErrSignerUnavailable means no signer is connected/configured.
	ErrSignerUnavailable = errors.New("crypto: no signer available")

	// ErrSignerRejected means the signer declined to sign the payload.
	ErrSignerRejected = errors.New("crypto: signer rejected request")
)

// Signer is the external-signer boundary: it produces an EIP-712 signature
// over typed data without exposing key material to the caller. A browser
// wallet, a remote signing service, or LocalSigner below can sit behind it.
type Signer interface {
	Address() common.Address
	SignTypedData(ctx context.Context, td apitypes.TypedData) ([]byte, error)
}

// LocalSigner signs with an in-process secp256k1 key. Used by the bot
// daemon and the sign-order tool; production dashboards delegate to a
// wallet instead.
type LocalSigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// GenerateKey creates a LocalSigner with a fresh random key pair.
func GenerateKey() (*LocalSigner, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return newLocalSigner(privateKey), nil
}

// FromPrivateKeyHex creates a LocalSigner from a hex-encoded private key
// (64 hex chars, no 0x prefix).
func FromPrivateKeyHex(hexKey string) (*LocalSigner, error) {
	privateKey, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return newLocalSigner(privateKey), nil
}

func newLocalSigner(privateKey *ecdsa.PrivateKey) *LocalSigner {
	return &LocalSigner{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
	}
}

// Address returns the Ethereum address derived from the public key.
func (s *LocalSigner) Address() common.Address {
	return s.address
}

// PrivateKeyHex returns the private key as hex string (WITHOUT 0x prefix).
// WARNING: Keep this secret! Never expose to users or logs.
func (s *LocalSigner) PrivateKeyHex() string {
	return fmt.Sprintf("%x", crypto.FromECDSA(s.privateKey))
}

// SignTypedData hashes the typed data per EIP-712 and signs the digest.
// Returns a 65-byte [R || S || V] signature with V in {27, 28}, the form
// wallets emit and the gateway verifies.
func (s *LocalSigner) SignTypedData(ctx context.Context, td apitypes.TypedData) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	digest, err := TypedDataDigest(td)
	if err != nil {
		return nil, err
	}

	signature, err := crypto.Sign(digest, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	signature[64] += 27
	return signature, nil
}

// RecoverAddress recovers the signer's address from a digest and signature.
// Accepts V in {0, 1} or {27, 28}.
func RecoverAddress(digest []byte, signature []byte) (common.Address, error) {
	if len(signature) != 65 {
		return common.Address{}, fmt.Errorf("invalid signature length: %d", len(signature))
	}
	if len(digest) != 32 {
		return common.Address{}, fmt.Errorf("invalid digest length: %d", len(digest))
	}

	sig := make([]byte, 65)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	publicKeyBytes, err := crypto.Ecrecover(digest, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}

	publicKey, err := crypto.UnmarshalPubkey(publicKeyBytes)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to unmarshal public key: %w", err)
	}

	return crypto.PubkeyToAddress(*publicKey), nil
}

// VerifyTypedData checks that signature was produced over td by address.
func VerifyTypedData(address common.Address, td apitypes.TypedData, signature []byte) (bool, error) {
	digest, err := TypedDataDigest(td)
	if err != nil {
		return false, err
	}
	recovered, err := RecoverAddress(digest, signature)
	if err != nil {
		return false, err
	}
	return recovered == address, nil
}
