package server

import (
	"crypto/rand"
	"math/big"
)

// cryptoRandIndex picks a uniform index in [0, n) for room-code
// generation; stdlib crypto/rand is used directly since no random
// source appears anywhere in the example pack worth pulling in for
// five bytes of entropy.
func cryptoRandIndex(n int) int {
	max := big.NewInt(int64(n))
	v, err := rand.Int(rand.Reader, max)
	if err != nil {
		return 0
	}
	return int(v.Int64())
}
