package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/hupe1980/framecache"
	"github.com/hupe1980/framecache/blobstore"
	"github.com/hupe1980/framecache/cachedir"
	"github.com/hupe1980/framecache/compress"
	"github.com/hupe1980/framecache/persistence"
	"github.com/hupe1980/framecache/render"
	"github.com/hupe1980/framecache/resource"
	"github.com/hupe1980/framecache/warm"
)

// commonFlags are accepted by every subcommand.
type commonFlags struct {
	config   string
	logLevel string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.config, "config", "", "YAML file with defaults")
	fs.StringVar(&c.logLevel, "log-level", "", "debug, info, warn or error")
}

// setup loads the config file and applies the log level flag.
func (c *commonFlags) setup(stderr io.Writer) (Config, *slog.Logger, error) {
	cfg, err := loadConfig(c.config)
	if err != nil {
		return cfg, nil, err
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return cfg, nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	return cfg, logger, nil
}

// parseArgs parses fs and returns the single positional argument, which may
// appear before or after the flags.
func parseArgs(fs *flag.FlagSet, args []string, what string) (string, error) {
	var pos string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		pos, args = args[0], args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if pos == "" && fs.NArg() > 0 {
		pos = fs.Arg(0)
		if fs.NArg() > 1 {
			return "", fmt.Errorf("%w: unexpected arguments %v", errUsage, fs.Args()[1:])
		}
	} else if fs.NArg() > 0 {
		return "", fmt.Errorf("%w: unexpected arguments %v", errUsage, fs.Args())
	}
	if pos == "" {
		return "", fmt.Errorf("%w: missing %s", errUsage, what)
	}
	return pos, nil
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func isSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func runInspect(_ context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("inspect", stderr)
	var common commonFlags
	common.register(fs)
	records := fs.Bool("records", true, "print one line per record")

	path, err := parseArgs(fs, args, "cache file")
	if err != nil {
		return err
	}
	if _, _, err := common.setup(stderr); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	h, err := persistence.ReadHeader(f)
	if err != nil {
		return err
	}

	mode := "unknown"
	switch h.Magic {
	case persistence.MagicNormal:
		mode = "normal"
	case persistence.MagicReduced:
		mode = "reduced"
	}
	fmt.Fprintf(stdout, "magic:          %#x (%s)\n", h.Magic, mode)
	fmt.Fprintf(stdout, "frames:         %d\n", h.FrameCount)
	fmt.Fprintf(stdout, "max frame size: %d\n", h.MaxCompressedFrameSize)
	if mode == "unknown" {
		return fmt.Errorf("%s: %w", path, persistence.ErrInvalidMagic)
	}

	tw := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', tabwriter.AlignRight)
	if *records {
		fmt.Fprintln(tw, "FRAME\tOFFSET\tSIZE\t")
	}

	var stored, skipped, payload int64
	var largest uint32
	end := int64(persistence.HeaderSize)
	walkErr := persistence.Walk(f, h, func(r persistence.Record) error {
		if r.Size == 0 {
			skipped++
		} else {
			stored++
		}
		payload += int64(r.Size)
		largest = max(largest, r.Size)
		end = r.Offset + persistence.RecordHeaderSize + int64(r.Size)
		if *records {
			fmt.Fprintf(tw, "%d\t%d\t%d\t\n", r.Index, r.Offset, r.Size)
		}
		return nil
	})
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "stored: %d skipped: %d payload bytes: %d largest: %d\n", stored, skipped, payload, largest)
	if walkErr != nil {
		return walkErr
	}
	info, err := f.Stat()
	if err != nil {
		return err
	}
	switch {
	case end > info.Size():
		return fmt.Errorf("%s: %w: records end at %d, file has %d bytes", path, persistence.ErrTruncated, end, info.Size())
	case end < info.Size():
		return fmt.Errorf("%s: %d trailing bytes after the last record", path, info.Size()-end)
	}
	if largest > h.MaxCompressedFrameSize {
		return fmt.Errorf("%s: %w: record of %d bytes, header says %d", path, persistence.ErrFrameTooLarge, largest, h.MaxCompressedFrameSize)
	}
	return nil
}

func runVerify(_ context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("verify", stderr)
	var common commonFlags
	common.register(fs)
	frames := fs.Int("frames", 0, "frame count of the animation")
	reduced := fs.Bool("reduced", false, "expect a reduced-rate file")

	path, err := parseArgs(fs, args, "cache file")
	if err != nil {
		return err
	}
	cfg, logger, err := common.setup(stderr)
	if err != nil {
		return err
	}
	if *frames <= 0 {
		return fmt.Errorf("%w: -frames must be positive", errUsage)
	}
	if !isSet(fs, "reduced") {
		*reduced = cfg.Reduced
	}

	// Verification never renders, so any animation of the right length works.
	anim := render.Procedural{Frames: *frames, Rate: cfg.FPS}
	sess, err := framecache.NewSession(path, anim, nil, framecache.WithLogger(framecache.NewLogger(logger.Handler())))
	if err != nil {
		return err
	}
	defer sess.Dispose()

	outcome, err := sess.EnsureCache(framecache.CacheRequest{
		Surface:     render.NewSurface(1, 1),
		ReducedRate: *reduced,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s: %s\n", path, outcome)
	if outcome != framecache.OutcomeReady {
		return fmt.Errorf("%s: cache file %s", path, outcome)
	}
	return nil
}

func runBuild(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("build", stderr)
	var common commonFlags
	common.register(fs)
	key := fs.String("key", "", "cache key (file name without extension)")
	frames := fs.Int("frames", 0, "frame count")
	width := fs.Int("width", 0, "frame width in pixels")
	height := fs.Int("height", 0, "frame height in pixels")
	fps := fs.Float64("fps", 0, "frame rate (default from config, 30)")
	seed := fs.Int64("seed", 0, "procedural animation seed")
	compressor := fs.String("compressor", "", "lz4, zstd or s2 (default from config, lz4)")
	reduced := fs.Bool("reduced", false, "store even frames only for 60 fps animations")
	remote := fs.String("remote", "", "mirror URI: s3://bucket/prefix, minio://host/bucket/prefix or file:///dir")

	root, err := parseArgs(fs, args, "cache directory")
	if err != nil {
		return err
	}
	cfg, logger, err := common.setup(stderr)
	if err != nil {
		return err
	}
	if *key == "" || *frames <= 0 {
		return fmt.Errorf("%w: -key and a positive -frames are required", errUsage)
	}
	if *fps > 0 {
		cfg.FPS = *fps
	}
	if *compressor != "" {
		cfg.Compressor = *compressor
	}
	if isSet(fs, "reduced") {
		cfg.Reduced = *reduced
	}
	if *remote != "" {
		cfg.Remote = *remote
	}

	comp, err := compress.ByName(cfg.Compressor)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	dir, err := cachedir.Open(cachedir.Config{
		Root:         root,
		MaxSizeBytes: cfg.Dir.MaxSizeBytes,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	rc := resource.NewController(resource.Config{
		MaxConcurrentBuilds: cfg.Builds.Concurrency,
		BuildsPerSecond:     cfg.Builds.PerSecond,
		TransferBytesPerSec: cfg.Transfer.BytesPerSecond,
	})

	var mirror *blobstore.Mirror
	if cfg.Remote != "" {
		store, err := openRemote(ctx, cfg.Remote)
		if err != nil {
			return err
		}
		mirror = blobstore.NewMirror(store, rc, blobstore.WithMirrorLogger(logger))
	}

	metrics := &framecache.BasicMetricsCollector{}
	w, err := warm.New(warm.Config{
		Dir:        dir,
		Controller: rc,
		Mirror:     mirror,
		Compressor: comp,
		Logger:     logger,
		SessionOptions: []framecache.Option{
			framecache.WithLogger(framecache.NewLogger(logger.Handler())),
			framecache.WithMetricsCollector(metrics),
			framecache.WithSync(true),
		},
	})
	if err != nil {
		return err
	}

	results, err := w.Warm(ctx, []warm.Job{{
		Key:       *key,
		Animation: render.Procedural{Frames: *frames, Rate: cfg.FPS, Seed: uint32(*seed)},
		Width:     *width,
		Height:    *height,
		LimitFPS:  cfg.Reduced,
	}})
	if err != nil {
		return err
	}

	res := results[0]
	path, _ := dir.Path(res.Key)
	fmt.Fprintf(stdout, "%s: %s (built=%t fetched=%t published=%t)\n", path, res.Outcome, res.Built, res.Fetched, res.Published)
	if res.Built {
		st := metrics.GetStats()
		fmt.Fprintf(stdout, "records: %d bytes: %d compressor: %s\n", st.BuildFrames, st.BuildBytes, comp.Name())
	}
	if res.Err != nil {
		return res.Err
	}
	if res.Outcome != framecache.OutcomeReady {
		return errors.New(res.Outcome.String())
	}
	return nil
}

func runPrune(_ context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("prune", stderr)
	var common commonFlags
	common.register(fs)
	maxSize := fs.Int64("max-size", -1, "size budget in bytes (default from config)")

	root, err := parseArgs(fs, args, "cache directory")
	if err != nil {
		return err
	}
	cfg, logger, err := common.setup(stderr)
	if err != nil {
		return err
	}
	if *maxSize >= 0 {
		cfg.Dir.MaxSizeBytes = *maxSize
	}
	if cfg.Dir.MaxSizeBytes <= 0 {
		return fmt.Errorf("%w: a positive -max-size is required", errUsage)
	}

	if _, err := os.Stat(root); err != nil {
		return err
	}
	dir, err := cachedir.Open(cachedir.Config{Root: root, Logger: logger})
	if err != nil {
		return err
	}
	dir.SetMaxSize(cfg.Dir.MaxSizeBytes)

	removed := dir.Prune()
	st := dir.Stats()
	fmt.Fprintf(stdout, "removed: %d remaining: %d files, %d bytes\n", removed, st.Entries, st.SizeBytes)
	return nil
}
