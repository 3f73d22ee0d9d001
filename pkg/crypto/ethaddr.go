package crypto

import (
	"encoding/hex"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// ChecksumAddress renders a 20-byte address as an EIP-55 checksummed hex
// string for display and logs.
func ChecksumAddress(addr common.Address) string {
	hexaddr := hex.EncodeToString(addr[:]) // lower

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(hexaddr))
	hash := h.Sum(nil)

	out := make([]byte, 2+len(hexaddr))
	copy(out, "0x")
	for i, c := range []byte(hexaddr) {
		if c >= '0' && c <= '9' {
			out[2+i] = c
			continue
		}
		// each hex char maps to 4 bits; i>>1 picks the byte, even/odd
		// decides high/low nibble
		nibble := hash[i>>1] & 0x0f
		if i%2 == 0 {
			nibble = (hash[i>>1] >> 4) & 0x0f
		}
		if nibble >= 8 {
			out[2+i] = c - 'a' + 'A'
		} else {
			out[2+i] = c
		}
	}
	return string(out)
}
