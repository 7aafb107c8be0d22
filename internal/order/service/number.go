package service

import (
	"crypto/rand"
	"math/big"
	"time"
)

const numberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// maxNumberAttempts bounds regeneration when an order number collides.
const maxNumberAttempts = 5

// NewOrderNumber formats ORD-YYMMDD-XXXX where XXXX is drawn from [A-Z0-9].
func NewOrderNumber(now time.Time) (string, error) {
	suffix := make([]byte, 4)
	limit := big.NewInt(int64(len(numberAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		suffix[i] = numberAlphabet[n.Int64()]
	}
	return "ORD-" + now.Format("060102") + "-" + string(suffix), nil
}
