package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kjannette/vitanova-gold/internal/models"
)

// QuoteFetcher fetches and records one quote.
type QuoteFetcher interface {
	FetchCurrent(ctx context.Context) (*models.Quote, error)
}

type PollerConfig struct {
	Interval         time.Duration
	Timeout          time.Duration // per fetch
	FailureThreshold int           // consecutive failures before OnFailing fires
	OnFailing        func(consecutive int, err error)
}

// PricePoller records a quote on a fixed interval so the daily log keeps
// filling even when no client is calling /price.
type PricePoller struct {
	fetcher QuoteFetcher
	cfg     PollerConfig

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	done     chan struct{}
	failures int
	lastOK   time.Time
}

func NewPricePoller(fetcher QuoteFetcher, cfg PollerConfig) *PricePoller {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	return &PricePoller{fetcher: fetcher, cfg: cfg}
}

func (p *PricePoller) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		fmt.Println("[POLLER] Already running")
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.done = make(chan struct{})
	stopCh, done := p.stopCh, p.done
	p.mu.Unlock()

	go func() {
		defer close(done)
		p.poll()

		ticker := time.NewTicker(p.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				p.poll()
			}
		}
	}()

	fmt.Printf("[POLLER] Started (every %s)\n", p.cfg.Interval)
}

// Stop waits for an in-flight fetch to finish.
func (p *PricePoller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	close(p.stopCh)
	p.running = false
	done := p.done
	p.mu.Unlock()

	<-done
	fmt.Println("[POLLER] Stopped")
}

func (p *PricePoller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// LastSuccess is the zero time until a fetch has succeeded.
func (p *PricePoller) LastSuccess() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastOK
}

func (p *PricePoller) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.Timeout)
	defer cancel()
	if _, err := p.fetch(ctx); err != nil {
		fmt.Printf("[POLLER] Fetch failed: %v\n", err)
	}
}

func (p *PricePoller) fetch(ctx context.Context) (*models.Quote, error) {
	q, err := p.fetcher.FetchCurrent(ctx)

	p.mu.Lock()
	if err != nil {
		p.failures++
		n := p.failures
		p.mu.Unlock()
		if n == p.cfg.FailureThreshold && p.cfg.OnFailing != nil {
			p.cfg.OnFailing(n, err)
		}
		return nil, err
	}
	p.failures = 0
	p.lastOK = time.Now()
	p.mu.Unlock()

	fmt.Printf("[POLLER] Recorded %.2f %s/%s\n", q.Price, q.Currency, q.Unit)
	return q, nil
}
