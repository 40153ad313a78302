// Package cryptorand adapts crypto/rand to math/rand's Source interface,
// for deck shuffles that shouldn't be predictable from a boot-time seed.
package cryptorand

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
)

// New returns a generator drawing from the OS entropy source.
func New() *rand.Rand {
	return rand.New(Source{})
}

// Source implements rand.Source. Seed is a no-op, there's nothing to seed.
type Source struct{}

func (Source) Int63() int64 {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		panic(err)
	}
	return int64(binary.LittleEndian.Uint64(buf[:]) &^ (1 << 63))
}

func (Source) Seed(int64) {}
