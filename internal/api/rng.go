package api

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
)

// newRand returns a *math/rand.Rand seeded from crypto/rand, good for one
// challenge-generation call. Handing each request its own generator avoids
// sharing a single *rand.Rand (not safe for concurrent use) across the
// goroutines serving concurrent /generate-captcha requests.
func newRand() *mrand.Rand {
	var seed [8]byte
	_, _ = rand.Read(seed[:])
	return mrand.New(mrand.NewSource(int64(binary.BigEndian.Uint64(seed[:]))))
}
