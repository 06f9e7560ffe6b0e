package engine

import (
	crand "crypto/rand"
	"errors"
	"math/big"
)

var errInvalidRange = errors.New("invalid random range")

// Injectable for deterministic tests.
var (
	randomIndex   = secureRandomInt
	randomPercent = func() (int, error) { return secureRandomInt(100) }
)

func secureRandomInt(max int) (int, error) {
	if max <= 0 {
		return 0, errInvalidRange
	}

	n, err := crand.Int(crand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}
