package exchange

import (
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nadoxyz/makerbot/pkg/util"
	"github.com/nadoxyz/makerbot/pkg/x18"
)

// OrderIntent is a place-order message ready for EIP-712 signing. It is
// never mutated after construction and is discarded once the submission
// attempt resolves.
type OrderIntent struct {
	ProductID  uint32
	Sender     Sender
	PriceX18   *big.Int
	AmountX18  *big.Int // positive = long, negative = short
	Expiration uint64   // unix seconds
	Nonce      uint64
	Appendix   uint64
}

// IsLong reports whether the intent buys the base asset.
func (o *OrderIntent) IsLong() bool { return o.AmountX18.Sign() >= 0 }

// CancelIntent is a cancel-products message covering every resting order on
// the listed products.
type CancelIntent struct {
	Sender     Sender
	ProductIDs []uint32
	Nonce      uint64
}

// Builder assembles signable intents. It is pure with respect to its inputs
// except for the nonce draw and the wall-clock read for expiration; it never
// performs network I/O.
type Builder struct {
	clock         util.Clock
	nonces        *NonceSource
	latencyBuffer time.Duration
	orderExpiry   time.Duration
}

func NewBuilder(clock util.Clock, nonces *NonceSource, latencyBuffer, orderExpiry time.Duration) *Builder {
	return &Builder{
		clock:         clock,
		nonces:        nonces,
		latencyBuffer: latencyBuffer,
		orderExpiry:   orderExpiry,
	}
}

// PlaceOrder builds a place-order intent for one ladder rung. Price and
// amount are converted with exact X18 semantics: the ladder generator has
// already floored its prices to 18 digits, so a conversion failure here
// means the caller bypassed validation and the intent is rejected with
// x18.ErrPrecision before anything reaches the signer.
func (b *Builder) PlaceOrder(productID uint32, sender Sender, price, amount decimal.Decimal, typ OrderType, reduceOnly bool) (*OrderIntent, error) {
	priceX18, err := x18.ToX18Exact(price)
	if err != nil {
		return nil, fmt.Errorf("order price %s: %w", price, err)
	}
	amountX18, err := x18.ToX18Exact(amount)
	if err != nil {
		return nil, fmt.Errorf("order amount %s: %w", amount, err)
	}

	return &OrderIntent{
		ProductID:  productID,
		Sender:     sender,
		PriceX18:   priceX18,
		AmountX18:  amountX18,
		Expiration: uint64(b.clock.Now().Add(b.orderExpiry).Unix()),
		Nonce:      b.nonces.Next(b.latencyBuffer),
		Appendix:   EncodeAppendix(typ, false, reduceOnly),
	}, nil
}

// CancelProducts builds a cancel intent covering the given products with a
// fresh nonce.
func (b *Builder) CancelProducts(sender Sender, productIDs []uint32) *CancelIntent {
	ids := make([]uint32, len(productIDs))
	copy(ids, productIDs)
	return &CancelIntent{
		Sender:     sender,
		ProductIDs: ids,
		Nonce:      b.nonces.Next(b.latencyBuffer),
	}
}
