package scan

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/jmylchreest/vetprice/pkg/fetcher"
)

// RandomPacer waits a uniformly random duration in [Min, Max].
type RandomPacer struct {
	Min time.Duration
	Max time.Duration

	// Sleep defaults to fetcher.Sleep.
	Sleep fetcher.SleepFunc
}

// Delay returns the next wait duration.
func (p RandomPacer) Delay() time.Duration {
	if p.Max <= p.Min {
		return max(p.Min, 0)
	}
	return p.Min + rand.N(p.Max-p.Min+1)
}

// Wait blocks for Delay or until ctx is done, in which case it returns
// ctx.Err().
func (p RandomPacer) Wait(ctx context.Context) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = fetcher.Sleep
	}
	return sleep(ctx, p.Delay())
}
