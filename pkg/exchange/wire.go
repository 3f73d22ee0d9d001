package exchange

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Wire types for POST {gateway}/execute. Field names and nesting are
// gateway-defined and reproduced exactly; the signature was computed over
// the same field values the body carries.

// OrderWire is the order object inside a place_order body. All numeric
// fields travel as decimal strings.
type OrderWire struct {
	Sender     string `json:"sender"`
	PriceX18   string `json:"priceX18"`
	Amount     string `json:"amount"`
	Expiration string `json:"expiration"`
	Nonce      string `json:"nonce"`
	Appendix   string `json:"appendix"`
}

type PlaceOrderWire struct {
	ProductID uint32    `json:"product_id"`
	Order     OrderWire `json:"order"`
	Signature string    `json:"signature"`
}

// PlaceOrderBody is the top-level execute payload for order placement.
type PlaceOrderBody struct {
	PlaceOrder PlaceOrderWire `json:"place_order"`
}

type CancelProductOrdersWire struct {
	Sender     string   `json:"sender"`
	ProductIDs []uint32 `json:"productIds"`
	Nonce      string   `json:"nonce"`
	Signature  string   `json:"signature"`
}

// CancelBody is the top-level execute payload for product-wide cancellation.
type CancelBody struct {
	CancelProductOrders CancelProductOrdersWire `json:"cancel_product_orders"`
}

// Wire assembles the execute body for a signed order.
func (o *OrderIntent) Wire(signature []byte) PlaceOrderBody {
	return PlaceOrderBody{
		PlaceOrder: PlaceOrderWire{
			ProductID: o.ProductID,
			Order: OrderWire{
				Sender:     o.Sender.Hex(),
				PriceX18:   o.PriceX18.String(),
				Amount:     o.AmountX18.String(),
				Expiration: strconv.FormatUint(o.Expiration, 10),
				Nonce:      strconv.FormatUint(o.Nonce, 10),
				Appendix:   strconv.FormatUint(o.Appendix, 10),
			},
			Signature: hexutil.Encode(signature),
		},
	}
}

// Wire assembles the execute body for a signed cancellation.
func (c *CancelIntent) Wire(signature []byte) CancelBody {
	ids := make([]uint32, len(c.ProductIDs))
	copy(ids, c.ProductIDs)
	return CancelBody{
		CancelProductOrders: CancelProductOrdersWire{
			Sender:     c.Sender.Hex(),
			ProductIDs: ids,
			Nonce:      strconv.FormatUint(c.Nonce, 10),
			Signature:  hexutil.Encode(signature),
		},
	}
}

// ExecuteResponse is the gateway's reply to an execute call.
type ExecuteResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Data    struct {
		Digest string `json:"digest"`
	} `json:"data"`
}

// Success reports whether the gateway accepted the request.
func (r *ExecuteResponse) Success() bool { return r.Status == "success" }

// Digest returns the gateway-assigned order digest, empty when omitted.
func (r *ExecuteResponse) Digest() string { return r.Data.Digest }

// Err converts a non-success response into an ErrExchangeRejected error.
func (r *ExecuteResponse) Err() error {
	if r.Success() {
		return nil
	}
	reason := r.Error
	if reason == "" {
		reason = r.Message
	}
	if reason == "" {
		reason = "status " + r.Status
	}
	return fmt.Errorf("%w: %s", ErrExchangeRejected, reason)
}
