// utils/code.go
package utils

import (
	"crypto/rand"
	"strings"
)

// codeAlphabet omits 0/O and 1/I so a code can be read back to shop staff
// without ambiguity. 32 symbols, so a random byte mod 32 stays uniform.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const codeLength = 8

// GenerateRedemptionCode returns an 8-character code drawn uniformly, with
// replacement, from the 32-symbol alphabet. Codes are random, not unique;
// the Redemption ledger keys on its own id, not the code.
func GenerateRedemptionCode() string {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf)
}

// ValidRedemptionCode reports whether code has the exact generated format:
// 8 characters, all from the alphabet.
func ValidRedemptionCode(code string) bool {
	if len(code) != codeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(codeAlphabet, rune(code[i])) {
			return false
		}
	}
	return true
}
