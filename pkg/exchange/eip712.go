package exchange

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// EIP-712 domain constants for the Nado gateway.
const (
	DomainName    = "Nado"
	DomainVersion = "0.0.1"

	// EndpointContract is the fixed verifying contract for cancellations.
	// Orders verify against the per-product contract instead; the gateway
	// routes cancels through its endpoint contract, so the two signature
	// domains differ.
	EndpointContract = "0x05ec92D78ED421f3D3Ada77FFdE167106565974E"
)

var eip712DomainType = []apitypes.Type{
	{Name: "name", Type: "string"},
	{Name: "version", Type: "string"},
	{Name: "chainId", Type: "uint256"},
	{Name: "verifyingContract", Type: "address"},
}

// orderType is the signed field set for place-order messages. Field order is
// signature-critical: the gateway hashes exactly this sequence.
var orderType = []apitypes.Type{
	{Name: "sender", Type: "bytes32"},
	{Name: "priceX18", Type: "int128"},
	{Name: "amount", Type: "int128"},
	{Name: "expiration", Type: "uint64"},
	{Name: "nonce", Type: "uint64"},
	{Name: "appendix", Type: "uint128"},
}

var cancellationProductsType = []apitypes.Type{
	{Name: "sender", Type: "bytes32"},
	{Name: "productIds", Type: "uint32[]"},
	{Name: "nonce", Type: "uint64"},
}

// ProductContract derives the per-product verifying contract address: the
// product id left-padded to 20 bytes.
func ProductContract(productID uint32) common.Address {
	return common.BigToAddress(new(big.Int).SetUint64(uint64(productID)))
}

func domain(chainID int64, verifyingContract common.Address) apitypes.TypedDataDomain {
	return apitypes.TypedDataDomain{
		Name:              DomainName,
		Version:           DomainVersion,
		ChainId:           (*math.HexOrDecimal256)(big.NewInt(chainID)),
		VerifyingContract: verifyingContract.Hex(),
	}
}

// TypedData returns the EIP-712 payload an external signer hashes and signs
// for this order. The domain binds the signature to the order's product
// contract.
func (o *OrderIntent) TypedData(chainID int64) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": eip712DomainType,
			"Order":        orderType,
		},
		PrimaryType: "Order",
		Domain:      domain(chainID, ProductContract(o.ProductID)),
		Message: apitypes.TypedDataMessage{
			"sender":     o.Sender.Hex(),
			"priceX18":   o.PriceX18.String(),
			"amount":     o.AmountX18.String(),
			"expiration": strconv.FormatUint(o.Expiration, 10),
			"nonce":      strconv.FormatUint(o.Nonce, 10),
			"appendix":   strconv.FormatUint(o.Appendix, 10),
		},
	}
}

// TypedData returns the EIP-712 payload for this cancellation. Cancels
// always verify against the fixed endpoint contract regardless of product.
func (c *CancelIntent) TypedData(chainID int64) apitypes.TypedData {
	ids := make([]interface{}, len(c.ProductIDs))
	for i, id := range c.ProductIDs {
		ids[i] = strconv.FormatUint(uint64(id), 10)
	}

	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain":         eip712DomainType,
			"CancellationProducts": cancellationProductsType,
		},
		PrimaryType: "CancellationProducts",
		Domain:      domain(chainID, common.HexToAddress(EndpointContract)),
		Message: apitypes.TypedDataMessage{
			"sender":     c.Sender.Hex(),
			"productIds": ids,
			"nonce":      strconv.FormatUint(c.Nonce, 10),
		},
	}
}
