package pow

import "strconv"

// Solve is a reference implementation of the client-side solver contract:
// it searches nonces 0, 1, 2, … and returns the first lowercase-hex nonce
// (rendered without fixed padding) whose hash satisfies difficulty. It
// exists so server-side tests can exercise Verify end-to-end without a
// separate WASM/browser solver; it is not on any request path.
func Solve(salt string, difficulty int) string {
	for n := uint32(0); ; n++ {
		nonceHex := strconv.FormatUint(uint64(n), 16)
		if SatisfiesDifficulty(salt, nonceHex, difficulty) {
			return nonceHex
		}
	}
}
