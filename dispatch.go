package ktx2

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ResolveOptions configures Resolve. Nil uses defaults.
type ResolveOptions struct {
	// Codecs supplies the decompressor and transcoder. Nil uses DefaultCodecService().
	Codecs *CodecService
	// Capabilities, when set, picks the transcode target with ChooseTranscodeTarget.
	Capabilities CapabilityQuery
	// Target is the transcode target used when Capabilities is nil.
	Target TranscodeTarget
	// Workers bounds concurrent Zstd decompression. Values below 2 resolve sequentially.
	Workers int
	// Cache, together with a non-empty CacheKey, stores decoded and transcoded levels.
	Cache    *LevelCache
	CacheKey string
	// Logger overrides the package logger for this call.
	Logger *slog.Logger
}

// ResolvedLevel is one level payload ready for upload planning.
type ResolvedLevel struct {
	Level  int
	Width  int
	Height int
	Depth  int
	Images int // layers x faces x depth
	Format FormatDescriptor
	// Data aliases the container for SchemeNone, otherwise it is owned by the caller.
	Data       []byte
	Transcoded bool
}

// Result holds resolved levels in level order plus non-fatal warnings.
type Result struct {
	Levels   []ResolvedLevel
	Warnings []error
}

// Resolve turns every level of c into an uploadable payload.
// See ResolveDetailed for warnings.
func Resolve(ctx context.Context, c *Container, opts *ResolveOptions) ([]ResolvedLevel, error) {
	res, err := ResolveDetailed(ctx, c, opts)
	return res.Levels, err
}

// ResolveDetailed resolves levels and reports non-fatal conditions.
//
// SchemeNone levels alias the container bytes. SchemeZstd levels go through the
// codec service decompressor; a length differing from the declared uncompressed
// length is a warning wrapping ErrDecompressedSizeMismatch. Undefined-format and
// BasisLZ containers go through a transcoder session; when the transcoder reports
// fewer levels than declared, the rest are dropped with a warning wrapping
// ErrLevelCountMismatch.
//
// On a per-level failure or cancellation the levels resolved before it are
// returned together with the error.
func ResolveDetailed(ctx context.Context, c *Container, opts *ResolveOptions) (Result, error) {
	var o ResolveOptions
	if opts != nil {
		o = *opts
	}
	if o.Codecs == nil {
		o.Codecs = DefaultCodecService()
	}
	r := &resolver{
		ctx:      ctx,
		c:        c,
		opts:     o,
		log:      pickLogger(o.Logger),
		useCache: o.Cache != nil && o.CacheKey != "",
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := checkScheme(c.Header.Scheme); err != nil {
		return Result{}, err
	}

	var err error
	switch {
	case c.NeedsTranscode():
		err = r.transcode()
	case c.Header.Scheme == SchemeZstd:
		err = r.decompress()
	default:
		err = r.passthrough()
	}

	return Result{Levels: r.levels, Warnings: r.warnings}, err
}

type resolver struct {
	ctx      context.Context
	c        *Container
	opts     ResolveOptions
	log      *slog.Logger
	useCache bool

	levels   []ResolvedLevel
	warnings []error
}

func (r *resolver) warn(err error, attrs ...any) {
	r.warnings = append(r.warnings, err)
	r.log.Warn("ktx2: "+err.Error(), attrs...)
}

func (r *resolver) base(i int, format FormatDescriptor) ResolvedLevel {
	l := r.c.Levels[i]
	return ResolvedLevel{
		Level:  i,
		Width:  l.Width,
		Height: l.Height,
		Depth:  l.Depth,
		Images: r.c.Images(i),
		Format: format,
	}
}

func (r *resolver) passthrough() error {
	for i := range r.c.Levels {
		if err := r.ctx.Err(); err != nil {
			return err
		}
		data, err := r.c.LevelData(i)
		if err != nil {
			return err
		}
		lvl := r.base(i, r.c.Format)
		lvl.Data = data
		r.levels = append(r.levels, lvl)
	}

	return nil
}

func (r *resolver) decompress() error {
	dec, err := r.opts.Codecs.Decompressor(r.ctx)
	if err != nil {
		return err
	}

	n := len(r.c.Levels)
	out := make([]ResolvedLevel, n)
	errs := make([]error, n)
	warns := make([]error, n)

	run := func(i int) {
		if err := r.ctx.Err(); err != nil {
			errs[i] = err
			return
		}
		out[i], warns[i], errs[i] = r.decompressLevel(dec, i)
	}

	if r.opts.Workers < 2 || n < 2 {
		for i := range n {
			run(i)
			if errs[i] != nil {
				break
			}
		}
	} else {
		// Lowest failed level; nothing above it is started.
		var failed atomic.Int64
		failed.Store(int64(n))

		var wg sync.WaitGroup
		sem := make(chan struct{}, r.opts.Workers)
		for i := range n {
			sem <- struct{}{}
			if int64(i) > failed.Load() {
				<-sem
				break
			}
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				defer func() { <-sem }()
				if int64(idx) > failed.Load() {
					return
				}
				run(idx)
				if errs[idx] == nil {
					return
				}
				for {
					cur := failed.Load()
					if int64(idx) >= cur || failed.CompareAndSwap(cur, int64(idx)) {
						return
					}
				}
			}(i)
		}
		wg.Wait()
	}

	for i := range n {
		if errs[i] != nil {
			return errs[i]
		}
		if warns[i] != nil {
			r.warn(warns[i], slog.Int("level", i))
		}
		r.levels = append(r.levels, out[i])
	}

	return nil
}

func (r *resolver) decompressLevel(dec Decompressor, i int) (lvl ResolvedLevel, warning, err error) {
	lvl = r.base(i, r.c.Format)
	key := CacheKey{Source: r.opts.CacheKey, Level: i, Format: r.c.Format.VkFormat}
	if data, ok := r.cached(key); ok {
		lvl.Data = data
		return lvl, nil, nil
	}

	src, err := r.c.LevelData(i)
	if err != nil {
		return lvl, nil, err
	}
	data, err := dec.Decompress(src)
	if err != nil {
		return lvl, nil, fmt.Errorf("%w: zstd level %d (byteLength=%d): %w", ErrDecodeFailure, i, len(src), err)
	}
	lvl.Data = data
	r.log.Debug("ktx2: level decompressed", slog.Int("level", i), slog.Int("in", len(src)), slog.Int("out", len(data)))

	if want := r.c.Levels[i].UncompressedByteLength; want != 0 && uint64(len(data)) != want {
		warning = fmt.Errorf("%w: level %d uncompressedByteLength=%d, decompressed %d", ErrDecompressedSizeMismatch, i, want, len(data))
	}
	r.store(key, data)

	return lvl, warning, nil
}

func (r *resolver) transcode() error {
	target := r.opts.Target
	if r.opts.Capabilities != nil {
		target = ChooseTranscodeTarget(r.opts.Capabilities)
	}
	format, err := target.Format(r.c.SRGB())
	if err != nil {
		return err
	}

	tr, err := r.opts.Codecs.Transcoder(r.ctx)
	if err != nil {
		return err
	}
	s, err := openSession(tr, r.c.Bytes())
	if err != nil {
		return err
	}
	defer func() {
		if err := s.close(); err != nil {
			r.log.Debug("ktx2: closing transcoder session", slog.Any("error", err))
		}
	}()

	declared := len(r.c.Levels)
	reported := s.levelCount()
	count := min(declared, max(reported, 0))
	if count < declared {
		r.warn(fmt.Errorf("%w: levelCount=%d, transcoder reports %d", ErrLevelCountMismatch, declared, reported),
			slog.String("encoding", r.c.BasisEncoding().String()))
	}
	r.log.Debug("ktx2: transcoding",
		slog.String("encoding", r.c.BasisEncoding().String()),
		slog.String("target", target.String()),
		slog.Int("levels", count))

	for i := range count {
		if err := r.ctx.Err(); err != nil {
			return err
		}
		lvl := r.base(i, format)
		lvl.Transcoded = true

		key := CacheKey{Source: r.opts.CacheKey, Level: i, Format: format.VkFormat}
		if data, ok := r.cached(key); ok {
			lvl.Data = data
			r.levels = append(r.levels, lvl)
			continue
		}

		data, err := s.transcodeLevel(i, target)
		if err != nil {
			return fmt.Errorf("%w: transcode level %d to %s: %w", ErrDecodeFailure, i, target, err)
		}
		lvl.Data = data
		r.store(key, data)
		r.levels = append(r.levels, lvl)
	}

	return nil
}

func (r *resolver) cached(key CacheKey) ([]byte, bool) {
	if !r.useCache {
		return nil, false
	}
	data, ok, err := r.opts.Cache.Get(key)
	if err != nil {
		r.log.Debug("ktx2: dropping cache entry", slog.Any("error", err))
		return nil, false
	}
	if ok {
		r.log.Debug("ktx2: cache hit", slog.Int("level", key.Level), slog.String("format", key.Format.String()))
	}

	return data, ok
}

func (r *resolver) store(key CacheKey, data []byte) {
	if !r.useCache {
		return
	}
	if err := r.opts.Cache.Put(key, data); err != nil {
		r.log.Debug("ktx2: cache store failed", slog.Int("level", key.Level), slog.Any("error", err))
	}
}

// IsWarning reports whether err is one of the non-fatal resolve conditions.
func IsWarning(err error) bool {
	return errors.Is(err, ErrDecompressedSizeMismatch) || errors.Is(err, ErrLevelCountMismatch)
}
