// Package breaker implements an in-memory circuit breaker keyed by
// provider/model pair. State does not survive a process restart: there is
// no persistent store behind it, by design, since this engine keeps no
// durable queues or databases.
package breaker

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/doctranslate/internal/metrics"
)

type state struct {
	open     bool
	failures int
	retryAt  time.Time
	openedAt time.Time
}

// Breaker tracks open/half-open/closed state per provider:model, backing
// off exponentially from baseBackoff up to maxBackoff on each consecutive
// failure.
type Breaker struct {
	mu          sync.Mutex
	entries     map[string]*state
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

func New(baseBackoff, maxBackoff time.Duration) *Breaker {
	return &Breaker{
		entries:     make(map[string]*state),
		baseBackoff: baseBackoff,
		maxBackoff:  maxBackoff,
	}
}

func key(provider, model string) string {
	return fmt.Sprintf("%s:%s", provider, model)
}

// Open records a failure for provider/model and opens the breaker,
// extending the backoff for each consecutive failure since the last
// successful Close.
func (b *Breaker) Open(provider, model string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	k := key(provider, model)
	st, ok := b.entries[k]
	if !ok {
		st = &state{}
		b.entries[k] = st
	}
	st.failures++

	backoff := b.baseBackoff
	for i := 1; i < st.failures; i++ {
		backoff *= 2
		if backoff > b.maxBackoff {
			backoff = b.maxBackoff
			break
		}
	}

	st.open = true
	st.openedAt = time.Now()
	st.retryAt = st.openedAt.Add(backoff)

	log.Warn().
		Str("provider", provider).
		Str("model", model).
		Dur("cooldown", backoff).
		Int("failures", st.failures).
		Time("retry_at", st.retryAt).
		Msg("circuit breaker opened")

	metrics.BreakerOpened(provider, model)
}

// IsOpen reports whether provider/model is currently in cooldown. Once the
// cooldown elapses the breaker moves to half-open and IsOpen returns false;
// it keeps returning false for every caller until the next Open call
// starts a new cooldown.
func (b *Breaker) IsOpen(provider, model string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	k := key(provider, model)
	st, ok := b.entries[k]
	if !ok || !st.open {
		return false
	}

	if time.Now().Before(st.retryAt) {
		return true
	}

	st.open = false
	log.Info().Str("provider", provider).Str("model", model).Msg("circuit breaker half-open")
	return false
}

// Close resets the breaker for provider/model on a successful call.
func (b *Breaker) Close(provider, model string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	k := key(provider, model)
	if _, ok := b.entries[k]; !ok {
		return
	}
	delete(b.entries, k)
	log.Info().Str("provider", provider).Str("model", model).Msg("circuit breaker closed")

	metrics.BreakerClosed(provider, model)
}
