// Package room generates short human-entered join codes.
package room

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

// codeAlphabet omits O/0/1/I so codes survive being read off a projector.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the join code length.
const CodeLength = 6

var (
	mu  sync.Mutex
	rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// NewCode returns a fresh join code. Codes are not secrets; uniqueness is
// enforced by the store at insert time, not here.
func NewCode() string {
	mu.Lock()
	defer mu.Unlock()
	return codeFrom(rnd)
}

// NewCodeFrom generates a code from the given source, for deterministic
// tests.
func NewCodeFrom(r *rand.Rand) string {
	return codeFrom(r)
}

func codeFrom(r *rand.Rand) string {
	var b strings.Builder
	b.Grow(CodeLength)
	for i := 0; i < CodeLength; i++ {
		b.WriteByte(codeAlphabet[r.Intn(len(codeAlphabet))])
	}
	return b.String()
}

// Normalize maps user input onto the canonical code form used as the store
// lookup key.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
