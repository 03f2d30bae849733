package random

import (
	"crypto/rand"
	"math/big"

	"github.com/myrjola/misttheater/internal/errors"
)

var allowedLetters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

// Letters returns n random ASCII letters.
func Letters(n uint) (string, error) {
	letters := make([]rune, n)
	for i := range letters {
		letterIndex, err := Index(len(allowedLetters))
		if err != nil {
			return "", err
		}
		letters[i] = allowedLetters[letterIndex]
	}
	return string(letters), nil
}

// Index returns a uniformly random index in [0, n). n must be positive.
func Index(n int) (int, error) {
	if n <= 0 {
		return 0, errors.New("random index from empty range")
	}
	i, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, errors.Wrap(err, "read random")
	}
	return int(i.Int64()), nil
}

// Source picks indexes. The dialogue fallback takes one so that tests can make choices predictable.
type Source interface {
	Intn(n int) int
}

// CryptoSource is a Source backed by crypto/rand. It falls back to index 0 when the reader fails.
type CryptoSource struct{}

func (CryptoSource) Intn(n int) int {
	i, err := Index(n)
	if err != nil {
		return 0
	}
	return i
}
