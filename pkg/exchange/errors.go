package exchange

import "errors"

// Error kinds surfaced by the gateway client and wire encoders. Callers
// classify failures with errors.Is; every error carries the kind plus
// request context via wrapping.
var (
	// ErrInvalidAddress marks a malformed owner address (not 20 bytes).
	ErrInvalidAddress = errors.New("exchange: invalid account address")

	// ErrInvalidAppendix marks an appendix that cannot decode back to its
	// fields (unknown version or dirty high bits).
	ErrInvalidAppendix = errors.New("exchange: invalid order appendix")

	// ErrNetwork marks a transport-level failure before any exchange
	// response was decoded.
	ErrNetwork = errors.New("exchange: network failure")

	// ErrExchangeRejected marks a well-formed response whose status is not
	// "success".
	ErrExchangeRejected = errors.New("exchange: request rejected")
)
