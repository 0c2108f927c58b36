package fetch

import (
	"context"
	"sync"
	"time"
)

// DomainLimiter enforces a global minimum interval between requests to the
// same host. The per-host lock is held across the wait so concurrent fetchers
// for one host serialize; distinct hosts never block each other.
type DomainLimiter struct {
	interval time.Duration

	mu      sync.Mutex
	domains map[string]*domainState
}

type domainState struct {
	mu   sync.Mutex
	last time.Time
}

func NewDomainLimiter(interval time.Duration) *DomainLimiter {
	return &DomainLimiter{
		interval: interval,
		domains:  make(map[string]*domainState),
	}
}

func (l *DomainLimiter) state(domain string) *domainState {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.domains[domain]
	if !ok {
		st = &domainState{}
		l.domains[domain] = st
	}
	return st
}

// Wait blocks until a request to domain is allowed, then records the slot.
// The recorded instant is taken after the wait completes.
func (l *DomainLimiter) Wait(ctx context.Context, domain string) error {
	st := l.state(domain)

	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.last.IsZero() {
		if wait := l.interval - time.Since(st.last); wait > 0 {
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	st.last = time.Now()
	return nil
}
