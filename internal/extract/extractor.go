// Package extract orchestrates the extraction pipeline: entity graph →
// reference resolution → surface classification → contour synthesis, with
// the exact section path preferred whenever a kernel-loaded solid is
// available.
package extract

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kg46sp8kps-web/gestima-sub000/internal/config"
	"github.com/kg46sp8kps-web/gestima-sub000/internal/profile"
	"github.com/kg46sp8kps-web/gestima-sub000/internal/section"
	"github.com/kg46sp8kps-web/gestima-sub000/internal/step"
)

// Stats reports per-run observability counters alongside a successful
// result. The extraction ID is telemetry only and never enters the profile.
type Stats struct {
	ExtractionID    string
	Method          string
	SchemaID        string
	SurfaceCount    int
	SkippedSurfaces int
	OffAxisHoles    int
	Duration        time.Duration
}

// Result bundles the profile with its extraction stats.
type Result struct {
	Profile *profile.Profile
	Stats   Stats
}

// Extractor runs extractions. It holds no per-file state: every call
// constructs its own entity graph and resolver, so files can be processed
// concurrently with zero coordination.
type Extractor struct {
	cfg    *config.Config
	logger *zap.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger injects a logger for skip counts and method selection. The
// default is a nop logger: the geometry core itself stays silent.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// New creates an extractor with the given configuration.
func New(cfg *config.Config, opts ...Option) *Extractor {
	e := &Extractor{cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractFile runs the heuristic pipeline on raw exchange-file bytes.
func (e *Extractor) ExtractFile(data []byte) (*Result, error) {
	return e.extract(data, nil)
}

// ExtractWithSolid runs extraction with a kernel-loaded solid available.
// The exact section path is tried first and supersedes the heuristic
// output; on a graceful no-result the heuristic pipeline takes over. A
// clean cut also rescues files whose classification fails, since the cut
// needs no per-face orientation data; the classification error surfaces
// only when the section path has nothing to offer either.
func (e *Extractor) ExtractWithSolid(data []byte, solid section.Solid) (*Result, error) {
	return e.extract(data, solid)
}

func (e *Extractor) extract(data []byte, solid section.Solid) (*Result, error) {
	start := time.Now()
	stats := Stats{ExtractionID: uuid.NewString()}

	g, err := step.Parse(data)
	if err != nil {
		return nil, err
	}
	stats.SchemaID = g.Header.SchemaID

	r := step.NewResolver(g)
	cls, clsErr := profile.Classify(g, r, e.cfg.Tolerances)
	if clsErr != nil && solid == nil {
		return nil, clsErr
	}
	if cls != nil {
		stats.SurfaceCount = len(cls.Surfaces)
		stats.SkippedSurfaces = cls.Stats.Skipped
		stats.OffAxisHoles = cls.Stats.OffAxis
	}

	if solid != nil {
		// The rotation axis comes from the cylinder records alone, so the
		// cut works even when a face failed classification.
		axis := profile.RotationAxis(g, r)
		if cls != nil {
			axis = cls.Axis
		}
		prof, serr := section.NewExtractor(e.cfg.Tolerances).Extract(solid, axis)
		if serr == nil {
			prof.Provenance.SchemaID = g.Header.SchemaID
			if cls != nil {
				prof.Holes = append([]profile.Hole(nil), cls.Holes...)
				prof.SkippedSurfaces = cls.Stats.Skipped
			}
			stats.Method = prof.Provenance.Method
			stats.Duration = time.Since(start)
			e.logDone(stats)
			return &Result{Profile: prof, Stats: stats}, nil
		}
		if clsErr != nil {
			// Neither path produced a profile; the classification error
			// names the offending geometry.
			return nil, clsErr
		}
		if !errors.Is(serr, section.ErrNoSection) {
			return nil, serr
		}
		e.logger.Debug("section path unavailable, falling back to heuristics",
			zap.String("extraction_id", stats.ExtractionID))
	}

	prof, err := profile.Synthesize(cls, e.cfg.Tolerances)
	if err != nil {
		return nil, err
	}
	prof.Provenance.Method = "heuristic"
	prof.Provenance.SchemaID = g.Header.SchemaID

	stats.Method = prof.Provenance.Method
	stats.Duration = time.Since(start)
	e.logDone(stats)
	return &Result{Profile: prof, Stats: stats}, nil
}

func (e *Extractor) logDone(s Stats) {
	e.logger.Info("extraction complete",
		zap.String("extraction_id", s.ExtractionID),
		zap.String("method", s.Method),
		zap.String("schema", s.SchemaID),
		zap.Int("surfaces", s.SurfaceCount),
		zap.Int("skipped_surfaces", s.SkippedSurfaces),
		zap.Int("off_axis_holes", s.OffAxisHoles),
		zap.Duration("duration", s.Duration),
	)
}
