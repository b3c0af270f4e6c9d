package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MaxConcurrentBuilds is the maximum number of cache builds running at once.
	// If 0, defaults to 1.
	MaxConcurrentBuilds int64

	// BuildsPerSecond limits how fast new builds may start.
	// If 0, unlimited.
	BuildsPerSecond float64

	// BuildBurst is the number of builds that may start back to back.
	// If 0, defaults to 1.
	BuildBurst int

	// TransferBytesPerSec is the maximum throughput of mirror transfers.
	// If 0, unlimited.
	TransferBytesPerSec int64
}

// Controller manages build concurrency and transfer bandwidth.
type Controller struct {
	cfg Config

	// Concurrency
	buildSem    *semaphore.Weighted
	activeBuild atomic.Int64

	// Rates
	buildLimiter *rate.Limiter // nil if unlimited
	ioLimiter    *rate.Limiter // nil if unlimited
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxConcurrentBuilds <= 0 {
		cfg.MaxConcurrentBuilds = 1
	}
	if cfg.BuildBurst <= 0 {
		cfg.BuildBurst = 1
	}

	c := &Controller{
		cfg:      cfg,
		buildSem: semaphore.NewWeighted(cfg.MaxConcurrentBuilds),
	}

	if cfg.BuildsPerSecond > 0 {
		c.buildLimiter = rate.NewLimiter(rate.Limit(cfg.BuildsPerSecond), cfg.BuildBurst)
	}

	if cfg.TransferBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.TransferBytesPerSec), int(cfg.TransferBytesPerSec))
	}

	return c
}

// Config returns the effective configuration.
func (c *Controller) Config() Config {
	if c == nil {
		return Config{}
	}
	return c.cfg
}

// AcquireBuild reserves a build slot.
// Blocks if all slots are busy.
func (c *Controller) AcquireBuild(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if err := c.buildSem.Acquire(ctx, 1); err != nil {
		return err
	}
	c.activeBuild.Add(1)
	return nil
}

// TryAcquireBuild attempts to reserve a build slot without blocking.
func (c *Controller) TryAcquireBuild() bool {
	if c == nil {
		return true
	}
	if !c.buildSem.TryAcquire(1) {
		return false
	}
	c.activeBuild.Add(1)
	return true
}

// ReleaseBuild releases a build slot.
func (c *Controller) ReleaseBuild() {
	if c == nil {
		return
	}
	c.activeBuild.Add(-1)
	c.buildSem.Release(1)
}

// ActiveBuilds returns the number of reserved build slots.
func (c *Controller) ActiveBuilds() int64 {
	if c == nil {
		return 0
	}
	return c.activeBuild.Load()
}

// WaitBuildStart waits until the build rate allows another build to start.
func (c *Controller) WaitBuildStart(ctx context.Context) error {
	if c == nil || c.buildLimiter == nil {
		return nil
	}
	return c.buildLimiter.Wait(ctx)
}

// AcquireTransfer waits until the transfer limit allows n more bytes.
// Requests larger than one second of bandwidth are split.
func (c *Controller) AcquireTransfer(ctx context.Context, n int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	burst := c.ioLimiter.Burst()
	for n > 0 {
		chunk := min(n, burst)
		if err := c.ioLimiter.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}
