package warm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/framecache"
	"github.com/hupe1980/framecache/blobstore"
	"github.com/hupe1980/framecache/cachedir"
	"github.com/hupe1980/framecache/compress"
	"github.com/hupe1980/framecache/render"
	"github.com/hupe1980/framecache/resource"
)

// ErrNoDir is returned by New when Config.Dir is nil.
var ErrNoDir = errors.New("warm: cache directory required")

// Config configures a Warmer.
type Config struct {
	// Dir holds the cache files. Required.
	Dir *cachedir.Dir
	// Controller bounds concurrent builds and their start rate. Nil means
	// unbounded.
	Controller *resource.Controller
	// Mirror, when set, is asked for missing files before building and
	// receives every freshly built file.
	Mirror *blobstore.Mirror
	// Compressor defaults to compress.Default.
	Compressor compress.Compressor
	// Logger defaults to a logger that discards everything.
	Logger *slog.Logger
	// SessionOptions are passed to every framecache.NewSession call.
	SessionOptions []framecache.Option
	// Concurrency bounds jobs in flight, including verification and
	// transfers. Defaults to 4.
	Concurrency int
}

// Job describes one animation to warm.
type Job struct {
	// Key names the cache file inside the directory.
	Key       string
	Animation render.Animation
	Width     int
	Height    int
	// LimitFPS halves 60 fps animations; see render.ReducedRate.
	LimitFPS bool
}

// Result reports what happened to one Job.
type Result struct {
	Key     string
	Outcome framecache.Outcome
	// Fetched is set when the file came from the mirror.
	Fetched bool
	// Built is set when the file was rendered and written locally.
	Built bool
	// Published is set when a built file was uploaded to the mirror.
	Published bool
	// Shared is set when the job joined another in-flight job for the same key.
	Shared bool
	Err    error
}

// Warmer builds cache files for batches of jobs.
type Warmer struct {
	cfg    Config
	logger *slog.Logger
	group  singleflight.Group
}

// New creates a Warmer.
func New(cfg Config) (*Warmer, error) {
	if cfg.Dir == nil {
		return nil, ErrNoDir
	}
	if cfg.Compressor == nil {
		cfg.Compressor = compress.Default
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Warmer{cfg: cfg, logger: logger}, nil
}

// Warm processes jobs and returns one Result per job, in order. Job failures
// are reported in Result.Err; the returned error is only set when ctx ends
// before all jobs finished.
func (w *Warmer) Warm(ctx context.Context, jobs []Job) ([]Result, error) {
	results := make([]Result, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			results[i] = w.warmShared(gctx, job)
			return nil
		})
	}
	_ = g.Wait()

	return results, ctx.Err()
}

func (w *Warmer) warmShared(ctx context.Context, job Job) Result {
	v, _, shared := w.group.Do(job.Key, func() (any, error) {
		return w.warmOne(ctx, job), nil
	})
	res := v.(Result)
	res.Shared = shared
	return res
}

func (w *Warmer) warmOne(ctx context.Context, job Job) (res Result) {
	res = Result{Key: job.Key, Outcome: framecache.OutcomeFailed}

	if job.Animation == nil {
		res.Err = errors.New("warm: nil animation")
		return res
	}
	surface := render.NewSurface(job.Width, job.Height)
	if err := surface.Validate(); err != nil {
		res.Err = err
		return res
	}

	path, err := w.cfg.Dir.Acquire(job.Key)
	if err != nil {
		res.Err = err
		return res
	}
	logger := w.logger.With("key", job.Key)

	discard := false
	defer func() {
		if err := w.cfg.Dir.Release(job.Key, discard); err != nil {
			logger.Warn("releasing cache file", "error", err)
		}
	}()

	if w.cfg.Mirror != nil {
		res.Fetched = w.fetch(ctx, logger, path)
	}

	sess, err := framecache.NewSession(path, job.Animation, w.cfg.Compressor, w.cfg.SessionOptions...)
	if err != nil {
		res.Err = err
		return res
	}
	defer func() {
		discard = sess.Dispose()
	}()

	stop := context.AfterFunc(ctx, sess.Cancel)
	defer stop()

	req := framecache.CacheRequest{
		Surface:     surface,
		ReducedRate: render.ReducedRate(job.Animation, job.LimitFPS),
	}

	outcome, err := sess.EnsureCache(req)
	if outcome == framecache.OutcomeNotReady {
		outcome, err = w.build(ctx, sess, req)
	}
	res.Outcome = outcome
	res.Built = sess.Stats().Built

	switch outcome {
	case framecache.OutcomeReady:
		if err := w.cfg.Dir.Commit(job.Key); err != nil {
			logger.Warn("committing cache file", "error", err)
		}
		if res.Built && w.cfg.Mirror != nil {
			if err := w.cfg.Mirror.Publish(ctx, filepath.Base(path), path); err != nil {
				logger.Warn("publishing cache file", "error", err)
				res.Err = err
			} else {
				res.Published = true
			}
		}
	case framecache.OutcomeCanceled:
		res.Err = context.Cause(ctx)
		if res.Err == nil {
			res.Err = errors.New("warm: session canceled")
		}
	default:
		res.Err = err
	}

	logger.Debug("warmed", "outcome", outcome, "fetched", res.Fetched, "built", res.Built)
	return res
}

// build takes a build slot and rate token, then lets the session create the file.
func (w *Warmer) build(ctx context.Context, sess *framecache.Session, req framecache.CacheRequest) (framecache.Outcome, error) {
	rc := w.cfg.Controller
	if err := rc.AcquireBuild(ctx); err != nil {
		return framecache.OutcomeCanceled, err
	}
	defer rc.ReleaseBuild()

	if err := rc.WaitBuildStart(ctx); err != nil {
		return framecache.OutcomeCanceled, err
	}

	req.AllowCreate = true
	return sess.EnsureCache(req)
}

// fetch downloads path from the mirror when it is missing locally.
func (w *Warmer) fetch(ctx context.Context, logger *slog.Logger, path string) bool {
	if _, err := os.Stat(path); err == nil {
		return false
	}

	err := w.cfg.Mirror.Fetch(ctx, filepath.Base(path), path)
	switch {
	case err == nil:
		return true
	case errors.Is(err, blobstore.ErrNotFound):
		return false
	default:
		logger.Warn("fetching cache file", "error", fmt.Errorf("warm: %w", err))
		return false
	}
}
