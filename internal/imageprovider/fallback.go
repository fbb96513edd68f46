package imageprovider

import (
	"context"
	"fmt"
	"time"

	"github.com/wallrot/wallrot/internal/catalog"
	"github.com/wallrot/wallrot/internal/errors"
	"github.com/wallrot/wallrot/internal/logger"
	"github.com/wallrot/wallrot/internal/observability/metrics"
)

// Orchestrator resolves a record to an image by trying its candidates in
// order. It holds no per-image state and never loads two candidates at once.
type Orchestrator struct {
	loader  Loader
	cfg     ResolverConfig
	timeout time.Duration
	metrics *metrics.ImageProviderMetrics
	log     logger.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTimeout sets the per-candidate load timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithMetrics enables attempt and resolution metrics.
func WithMetrics(m *metrics.ImageProviderMetrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// NewOrchestrator creates an orchestrator around loader.
func NewOrchestrator(loader Loader, cfg ResolverConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		loader:  loader,
		cfg:     cfg,
		timeout: DefaultLoadTimeout,
		log:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Candidates lists the candidates ResolveImage would try for rec.
func (o *Orchestrator) Candidates(rec catalog.ImageRecord) []Candidate {
	return ResolveCandidates(rec, o.cfg)
}

// ResolveImage loads the first candidate of rec that succeeds. Candidate
// failures are logged and skipped; when all fail the error wraps
// ErrAllSourcesFailed together with every candidate's error.
func (o *Orchestrator) ResolveImage(ctx context.Context, rec catalog.ImageRecord) (Image, error) {
	start := time.Now()
	log := o.log.With(logger.String("image_id", rec.ID))

	if o.cfg.RemoteEnabled && rec.HasRemote() {
		if _, err := ValidateRemoteRef(rec.RemoteRef); err != nil {
			log.Warn("skipping remote sources", logger.Error(err))
		}
	}

	candidates := ResolveCandidates(rec, o.cfg)
	attemptErrs := make([]error, 0, len(candidates))
	remoteTried := false

	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			return Image{}, o.interrupted(rec, err)
		}

		attemptStart := time.Now()
		img, err := LoadWithTimeout(ctx, o.loader, c.URL, o.timeout)
		elapsed := time.Since(attemptStart)

		if err == nil {
			img.ID = rec.ID
			img.URL = c.URL
			img.Strategy = c.Strategy
			img.SourceKind = sourceKindFor(c.Strategy, remoteTried)

			o.metrics.RecordAttempt(string(c.Strategy), metrics.OutcomeSuccess, elapsed.Seconds())
			o.metrics.ObserveResolve(time.Since(start).Seconds())
			if i > 0 {
				o.metrics.IncrementFallbacks(string(img.SourceKind))
			}

			log.Debug("image resolved",
				logger.String("strategy", string(c.Strategy)),
				logger.String("source_kind", string(img.SourceKind)),
				logger.Int("attempt", i+1),
				logger.Duration("duration", time.Since(start)))
			return img, nil
		}

		outcome := metrics.OutcomeError
		if errors.Is(err, ErrTimeout) {
			outcome = metrics.OutcomeTimeout
		}
		o.metrics.RecordAttempt(string(c.Strategy), outcome, elapsed.Seconds())

		log.Debug("candidate failed",
			logger.String("strategy", string(c.Strategy)),
			logger.String("outcome", outcome),
			logger.Error(err))

		attemptErrs = append(attemptErrs, fmt.Errorf("%s: %w", c.Strategy, err))
		if c.Strategy != StrategyLocal {
			remoteTried = true
		}
	}

	if err := ctx.Err(); err != nil {
		return Image{}, o.interrupted(rec, err)
	}

	o.metrics.IncrementAllFailed()
	o.metrics.ObserveResolve(time.Since(start).Seconds())
	log.Warn("all image sources failed", logger.Int("candidates", len(candidates)))

	return Image{}, errors.New(fmt.Errorf("%w for %s: %w", ErrAllSourcesFailed, rec.ID, errors.Join(attemptErrs...))).
		Component("imageprovider").
		Category(errors.CategoryImageResolve).
		Context("operation", "resolve_image").
		Context("image_id", rec.ID).
		Context("candidates", len(candidates)).
		Timing("resolve_image", time.Since(start)).
		Build()
}

func (o *Orchestrator) interrupted(rec catalog.ImageRecord, cause error) error {
	category := errors.CategoryCancellation
	if errors.Is(cause, context.DeadlineExceeded) {
		cause = fmt.Errorf("%w: %w", ErrTimeout, cause)
		category = errors.CategoryTimeout
	}
	return errors.New(cause).
		Component("imageprovider").
		Category(category).
		Context("operation", "resolve_image").
		Context("image_id", rec.ID).
		Build()
}

func sourceKindFor(s Strategy, remoteTried bool) SourceKind {
	switch s {
	case StrategyRemoteThumbnail:
		return SourceRemoteThumbnail
	case StrategyRemoteDirect:
		return SourceRemoteDirect
	default:
		if remoteTried {
			return SourceLocalFallback
		}
		return SourceLocal
	}
}
