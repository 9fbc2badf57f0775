// Package connectivity reports network reachability. The gate is polled
// synchronously before every remote attempt; the monitor additionally emits
// became-online events that trigger push sweeps.
package connectivity

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Gate answers the single question remote operations ask before touching the
// network.
type Gate interface {
	Online() bool
}

// Monitor is a Gate that also notifies subscribers on offline-to-online
// transitions.
type Monitor interface {
	Gate

	// Subscribe returns a channel receiving one value per became-online
	// transition. The channel is buffered; a slow consumer misses
	// intermediate transitions but always observes the latest.
	Subscribe() <-chan struct{}
}

// Static is a manually-driven Monitor. The CLI uses it (one-shot commands
// assume the operator knows whether they are online) and tests drive it
// directly.
type Static struct {
	mu     sync.Mutex
	online bool
	subs   []chan struct{}
}

// NewStatic creates a Static gate in the given state.
func NewStatic(online bool) *Static {
	return &Static{online: online}
}

// Online implements Gate.
func (s *Static) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// SetOnline flips the state. A false-to-true transition notifies every
// subscriber.
func (s *Static) SetOnline(online bool) {
	s.mu.Lock()
	becameOnline := online && !s.online
	s.online = online
	subs := s.subs
	s.mu.Unlock()

	if becameOnline {
		for _, ch := range subs {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}
}

// Subscribe implements Monitor.
func (s *Static) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

// Probe is a Monitor that derives reachability from periodic HTTP HEAD
// requests against a probe URL. It embeds a Static gate and drives it from a
// background goroutine.
type Probe struct {
	Static

	url      string
	interval time.Duration
	client   *http.Client
}

// NewProbe creates a probe against url checking every interval. The probe
// starts offline until the first successful check; call Run to start probing.
func NewProbe(url string, interval time.Duration) *Probe {
	return &Probe{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// Run probes until ctx is cancelled. It performs one check immediately so
// callers get an answer without waiting a full interval.
func (p *Probe) Run(ctx context.Context) {
	p.SetOnline(p.check(ctx))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.SetOnline(p.check(ctx))
		}
	}
}

func (p *Probe) check(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}
