package services

import (
	"crypto/rand"
	"math/big"

	log "github.com/sirupsen/logrus"
)

// CryptoDice draws from crypto/rand
type CryptoDice struct{}

// NewCryptoDice creates dice backed by the system CSPRNG
func NewCryptoDice() *CryptoDice {
	return &CryptoDice{}
}

// Roll returns a uniform integer in [1, sides]
func (CryptoDice) Roll(sides int) int {
	if sides <= 1 {
		return 1
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(sides)))
	if err != nil {
		// crypto/rand only fails if the OS entropy source is broken
		log.WithError(err).Error("Failed to read random number, rolling lowest face")
		return 1
	}
	return int(n.Int64()) + 1
}

// Chance reports true with the given percent probability
func (d CryptoDice) Chance(percent int) bool {
	if percent <= 0 {
		return false
	}
	if percent >= 100 {
		return true
	}
	return d.Roll(100) <= percent
}
