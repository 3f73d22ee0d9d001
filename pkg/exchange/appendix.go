package exchange

import (
	"fmt"
	"strings"
)

// OrderType selects the order's time-in-force semantics on the book.
type OrderType uint8

const (
	OrderTypeLimit    OrderType = 0
	OrderTypeIOC      OrderType = 1
	OrderTypeFOK      OrderType = 2
	OrderTypePostOnly OrderType = 3
)

func (t OrderType) String() string {
	switch t {
	case OrderTypeLimit:
		return "LIMIT"
	case OrderTypeIOC:
		return "IOC"
	case OrderTypeFOK:
		return "FOK"
	case OrderTypePostOnly:
		return "POST_ONLY"
	default:
		return fmt.Sprintf("OrderType(%d)", uint8(t))
	}
}

// ParseOrderType maps the dashboard's order type labels to the enum.
func ParseOrderType(s string) (OrderType, error) {
	switch strings.ToUpper(s) {
	case "", "LIMIT":
		return OrderTypeLimit, nil
	case "IOC":
		return OrderTypeIOC, nil
	case "FOK":
		return OrderTypeFOK, nil
	case "POST_ONLY":
		return OrderTypePostOnly, nil
	default:
		return 0, fmt.Errorf("unknown order type %q", s)
	}
}

// appendixVersion is the protocol version carried in appendix bits 0-7.
const appendixVersion = 1

// Appendix layout:
//
//	bits 0-7   protocol version (currently 1)
//	bit  8     isolated-margin flag
//	bits 9-10  order type
//	bit  11    reduce-only flag
//
// All higher bits must be zero.

// EncodeAppendix packs order metadata into the appendix integer.
func EncodeAppendix(typ OrderType, isolated, reduceOnly bool) uint64 {
	v := uint64(appendixVersion)
	if isolated {
		v |= 1 << 8
	}
	v |= uint64(typ&0x3) << 9
	if reduceOnly {
		v |= 1 << 11
	}
	return v
}

// DecodeAppendix unpacks an appendix integer. Encoding then decoding is the
// identity; anything that could not have come from EncodeAppendix fails with
// ErrInvalidAppendix.
func DecodeAppendix(v uint64) (typ OrderType, isolated, reduceOnly bool, err error) {
	if v>>12 != 0 {
		return 0, false, false, fmt.Errorf("%w: high bits set in %#x", ErrInvalidAppendix, v)
	}
	if version := v & 0xff; version != appendixVersion {
		return 0, false, false, fmt.Errorf("%w: unsupported version %d", ErrInvalidAppendix, version)
	}
	typ = OrderType((v >> 9) & 0x3)
	isolated = v&(1<<8) != 0
	reduceOnly = v&(1<<11) != 0
	return typ, isolated, reduceOnly, nil
}
