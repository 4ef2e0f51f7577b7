package order

import (
	"crypto/rand"
	"time"

	"github.com/go-faster/errors"
)

// numberAlphabet is base36 upper-case. Six characters give 36^6 (~2.2e9)
// combinations per day, so random collisions are negligible; the store still
// retries once on a unique-constraint conflict.
const (
	numberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	numberSuffix   = 6
)

// GenerateNumber produces a human-readable order number of the form
// ORD-20260827-X7K2QD.
func GenerateNumber(now time.Time) (string, error) {
	buf := make([]byte, numberSuffix)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "read random suffix")
	}
	for i, b := range buf {
		buf[i] = numberAlphabet[int(b)%len(numberAlphabet)]
	}
	return "ORD-" + now.UTC().Format("20060102") + "-" + string(buf), nil
}
