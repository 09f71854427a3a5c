package cryptofolio

import (
	"errors"
	"sync/atomic"
)

// ErrKeysExhausted is returned when every credential in a pool has been
// rejected during a single operation.
var ErrKeysExhausted = errors.New("all api keys exhausted")

// KeyPool rotates through a fixed set of API credentials. Scanners advance to
// the next key when the provider rate-limits the current one, and give up
// with ErrKeysExhausted once a single operation has burned through the whole
// set.
type KeyPool struct {
	keys []string
	next atomic.Uint32
}

// NewKeyPool returns a pool over the given keys. Empty keys are dropped.
func NewKeyPool(keys ...string) *KeyPool {
	p := &KeyPool{}
	for _, k := range keys {
		if k != "" {
			p.keys = append(p.keys, k)
		}
	}
	return p
}

// Len returns the number of usable keys.
func (p *KeyPool) Len() int { return len(p.keys) }

// Current returns the key requests should use right now.
func (p *KeyPool) Current() (string, error) {
	if len(p.keys) == 0 {
		return "", ErrKeysExhausted
	}
	return p.keys[int(p.next.Load())%len(p.keys)], nil
}

// Rotate advances to the next key, after the current one was rate-limited.
func (p *KeyPool) Rotate() {
	if len(p.keys) > 1 {
		p.next.Add(1)
	}
}
