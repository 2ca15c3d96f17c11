package vouchers

import (
	"crypto/rand"
	"fmt"
)

// codeAlphabet is uppercase alphanumeric. Codes are matched exactly as
// stored; operators type them, so there is no lowercase variant.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const defaultCodeLength = 8

// NewCode returns a random voucher code of the requested length. Uniqueness
// is enforced by the database index; callers retry on collision.
func NewCode(length int) (string, error) {
	if length <= 0 {
		length = defaultCodeLength
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate voucher code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
