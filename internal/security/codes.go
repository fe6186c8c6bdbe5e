package security

import (
	"crypto/rand"
	"errors"
	"math/big"
)

const digits = "0123456789"

var (
	errNegativeLength = errors.New("length must be non-negative")
	errEmptyAlphabet  = errors.New("alphabet must not be empty")
)

// NumericCode returns a uniformly random decimal code. Leading zeros are kept.
func NumericCode(length int) (string, error) {
	return RandomString(length, digits)
}

// RandomString draws length characters from alphabet using crypto/rand
// without modulo bias.
func RandomString(length int, alphabet string) (string, error) {
	switch {
	case length < 0:
		return "", errNegativeLength
	case length == 0:
		return "", nil
	case alphabet == "":
		return "", errEmptyAlphabet
	}

	size := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for index := range out {
		position, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		out[index] = alphabet[position.Int64()]
	}
	return string(out), nil
}
