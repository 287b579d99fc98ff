package crypto

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// DefaultCodeLength is the number of digits in an emailed one-time code
const DefaultCodeLength = 6

var randomInt = rand.Int

// GenerateNumericCode returns a zero-padded, uniformly distributed numeric code.
func GenerateNumericCode(digits int) (string, error) {
	if digits <= 0 || digits > 18 {
		return "", fmt.Errorf("invalid code length %d", digits)
	}

	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := randomInt(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("failed to generate numeric code: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}
