// Package section derives a rotational profile by cutting a loaded solid
// with a plane through the rotation axis. Unlike the heuristic path it has
// no orientation-flag ambiguity, so when a modeling kernel is available its
// output supersedes the heuristic extraction for the same file.
package section

import (
	"errors"
	"math"
	"sort"

	"github.com/kg46sp8kps-web/gestima-sub000/internal/config"
	"github.com/kg46sp8kps-web/gestima-sub000/internal/geom"
	"github.com/kg46sp8kps-web/gestima-sub000/internal/profile"
)

// ErrNoSection is the graceful "no result" of the exact path: a null or
// degenerate solid, a failed cut, or too few intersection points. Never
// fatal; callers fall back to the heuristic extraction.
var ErrNoSection = errors.New("section produced no usable intersection")

// Solid is a loaded B-rep body backed by a solid-modeling kernel. The
// extractor accepts the interface so kernels stay out of this module.
type Solid interface {
	// IsNull reports whether the underlying shape is empty or invalid.
	IsNull() bool

	// Section intersects the solid with the plane through origin having the
	// given unit normal and returns the intersection-curve edges.
	Section(origin, normal geom.Vec3) ([]geom.Segment, error)
}

// Extractor cuts solids into rotational profiles.
type Extractor struct {
	tol config.Tolerances
}

// NewExtractor creates a section extractor with the given tolerances.
func NewExtractor(tol config.Tolerances) *Extractor {
	return &Extractor{tol: tol}
}

// Extract sections the solid with a plane through the rotation axis and
// converts the intersection vertices into a profile. The outer/inner split
// uses the single largest gap among the sorted distinct radii, not sense
// flags.
func (e *Extractor) Extract(solid Solid, axis profile.Axis) (*profile.Profile, error) {
	if solid == nil || solid.IsNull() {
		return nil, ErrNoSection
	}

	segments, err := solid.Section(axis.Origin, planeNormal(axis.Dir))
	if err != nil || len(segments) == 0 {
		return nil, ErrNoSection
	}

	points := make([]profile.Point, 0, 2*len(segments))
	for _, seg := range segments {
		points = append(points, toProfilePoint(seg.A, axis), toProfilePoint(seg.B, axis))
	}
	points = dedupePoints(points, e.tol.DedupeMM)
	if len(points) < 3 {
		return nil, ErrNoSection
	}

	threshold, split := splitRadius(points, e.tol.BoreRatio)

	// Points on the axis itself come from solid end faces, not the bore
	// wall, so they always belong to the outer contour.
	var outerPts, innerPts []profile.Point
	for _, p := range points {
		if !split || p.Radius == 0 || p.Radius > threshold {
			outerPts = append(outerPts, p)
		} else {
			innerPts = append(innerPts, p)
		}
	}

	prof := &profile.Profile{
		Kind:       "rotational",
		Outer:      profile.CloseOnAxis(contourFrom(outerPts, e.tol.DedupeMM)),
		Inner:      contourFrom(innerPts, e.tol.DedupeMM),
		Provenance: profile.Provenance{Method: "section"},
		Confidence: 0.98,
	}
	if len(prof.Outer) == 0 {
		return nil, ErrNoSection
	}
	prof.Finalize()
	return prof, nil
}

// splitRadius finds the outer/inner radius threshold: the midpoint of the
// single largest gap among sorted distinct radii. If the max/min distinct
// radius ratio is below the bore ratio there is no bore and everything is
// outer.
func splitRadius(points []profile.Point, boreRatio float64) (threshold float64, split bool) {
	radii := make([]float64, 0, len(points))
	for _, p := range points {
		if p.Radius > 0 {
			radii = append(radii, p.Radius)
		}
	}
	sort.Float64s(radii)
	distinct := radii[:0]
	for _, r := range radii {
		if len(distinct) == 0 || r-distinct[len(distinct)-1] > 1e-9 {
			distinct = append(distinct, r)
		}
	}
	if len(distinct) < 2 {
		return 0, false
	}
	if distinct[len(distinct)-1]/distinct[0] < boreRatio {
		return 0, false
	}

	gapAt, gap := 0, 0.0
	for i := 0; i+1 < len(distinct); i++ {
		if d := distinct[i+1] - distinct[i]; d > gap {
			gap = d
			gapAt = i
		}
	}
	return (distinct[gapAt] + distinct[gapAt+1]) / 2, true
}

func toProfilePoint(v geom.Vec3, axis profile.Axis) profile.Point {
	return profile.Point{
		Radius: geom.DistanceToLine(v, axis.Origin, axis.Dir),
		Z:      v.Sub(axis.Origin).Dot(axis.Dir),
	}
}

// planeNormal returns a unit vector perpendicular to the axis direction, so
// the section plane contains the axis.
func planeNormal(dir geom.Vec3) geom.Vec3 {
	ref := geom.Vec3{X: 1}
	if math.Abs(dir.X) > 0.9 {
		ref = geom.Vec3{Y: 1}
	}
	return dir.Cross(ref).Unit()
}

// contourFrom orders points by axial position and deduplicates them.
func contourFrom(points []profile.Point, eps float64) profile.Contour {
	sort.Slice(points, func(i, j int) bool {
		if points[i].Z != points[j].Z {
			return points[i].Z < points[j].Z
		}
		return points[i].Radius < points[j].Radius
	})
	return profile.Dedupe(profile.Contour(points), eps)
}

// dedupePoints removes near-coincident (radius, z) pairs regardless of
// order, keeping the first occurrence.
func dedupePoints(points []profile.Point, eps float64) []profile.Point {
	var out []profile.Point
	for _, p := range points {
		dup := false
		for _, q := range out {
			if math.Abs(p.Radius-q.Radius) < eps && math.Abs(p.Z-q.Z) < eps {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, p)
		}
	}
	return out
}
