package http

import (
	"errors"
	"math"
)

var errInvalidNumber = errors.New("invalid number")

// atou parses an unsigned decimal number with an optional leading '+'. Other signs,
// spaces and empty input are rejected.
func atou(s string) (uint64, error) {
	if len(s) > 0 && s[0] == '+' {
		s = s[1:]
	}
	if len(s) == 0 {
		return 0, errInvalidNumber
	}

	var n uint64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, errInvalidNumber
		}

		d := uint64(c - '0')
		if n > (math.MaxUint64-d)/10 {
			return 0, errInvalidNumber
		}
		n = n*10 + d
	}

	return n, nil
}
