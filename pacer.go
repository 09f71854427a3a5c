package cryptofolio

import (
	"sync"
	"time"
)

// pacer enforces a fixed minimum interval between successive calls. Pricing
// and scanning share free-tier APIs whose rate limits are unforgiving, so
// batch loops gate every request through one of these.
//
// The clock is injectable so tests can drive it without sleeping.
type pacer struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

func newPacer(interval time.Duration) *pacer {
	return &pacer{interval: interval, now: time.Now, sleep: time.Sleep}
}

// Wait blocks until at least the configured interval has elapsed since the
// previous call, then stamps the current call.
func (p *pacer) Wait() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.last.IsZero() {
		if d := p.interval - p.now().Sub(p.last); d > 0 {
			p.sleep(d)
		}
	}
	p.last = p.now()
}
