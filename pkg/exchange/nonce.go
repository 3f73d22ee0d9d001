package exchange

import (
	"math/rand"
	"sync"
	"time"

	"github.com/nadoxyz/makerbot/pkg/util"
)

// saltBits is the width of the random salt packed below the timestamp.
const saltBits = 20

// NonceSource produces the gateway's time-biased nonces:
//
//	nonce = (recv_time_millis << 20) | salt, salt in [0, 2^20)
//
// recv_time is pushed slightly into the future so the gateway still accepts
// the order after network latency. Uniqueness within a submission batch is
// all that matters; the salt is not secret, so math/rand is sufficient.
type NonceSource struct {
	clock util.Clock

	mu  sync.Mutex
	rng *rand.Rand
}

func NewNonceSource(clock util.Clock) *NonceSource {
	return &NonceSource{
		clock: clock,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next returns a fresh nonce with the given forward latency buffer.
// It never fails.
func (n *NonceSource) Next(latencyBuffer time.Duration) uint64 {
	recvMillis := uint64(n.clock.Now().Add(latencyBuffer).UnixMilli())

	n.mu.Lock()
	salt := uint64(n.rng.Intn(1 << saltBits))
	n.mu.Unlock()

	return recvMillis<<saltBits | salt
}
