package exchange

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// SubaccountLen is the byte width of the subaccount label inside a sender.
const SubaccountLen = 12

// Sender is the 32-byte exchange account identifier: a 20-byte owner address
// followed by a 12-byte subaccount name (UTF-8, zero-padded on the right,
// truncated when longer). It is immutable once constructed.
type Sender [32]byte

// NewSender builds a sender from an owner address and subaccount name.
func NewSender(owner common.Address, subaccount string) Sender {
	var s Sender
	copy(s[:common.AddressLength], owner.Bytes())

	name := []byte(subaccount)
	if len(name) > SubaccountLen {
		name = name[:SubaccountLen]
	}
	copy(s[common.AddressLength:], name)
	return s
}

// SenderFromHex parses an owner address in hex form and builds a sender.
// Fails with ErrInvalidAddress when the address is not a well-formed 20-byte
// hex address.
func SenderFromHex(owner, subaccount string) (Sender, error) {
	if !common.IsHexAddress(owner) {
		return Sender{}, fmt.Errorf("%w: %q", ErrInvalidAddress, owner)
	}
	return NewSender(common.HexToAddress(owner), subaccount), nil
}

// Owner returns the 20-byte owner address portion.
func (s Sender) Owner() common.Address {
	return common.BytesToAddress(s[:common.AddressLength])
}

// Subaccount returns the subaccount name with zero padding stripped.
func (s Sender) Subaccount() string {
	return string(bytes.TrimRight(s[common.AddressLength:], "\x00"))
}

// Hex returns the wire form: 0x followed by 64 lowercase hex characters.
func (s Sender) Hex() string {
	return "0x" + hex.EncodeToString(s[:])
}

// ParseSenderHex decodes a 32-byte sender from its wire form.
func ParseSenderHex(v string) (Sender, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(v, "0x"))
	if err != nil || len(raw) != 32 {
		return Sender{}, fmt.Errorf("%w: sender %q", ErrInvalidAddress, v)
	}
	var s Sender
	copy(s[:], raw)
	return s, nil
}
