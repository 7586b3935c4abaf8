package profile

import (
	"math"
	"sort"

	"github.com/kg46sp8kps-web/gestima-sub000/internal/config"
)

// Synthesize partitions the classified surfaces into outer and inner sets,
// applies the sense-flag correction heuristics, and stitches the ordered
// point sequences into the final profile.
//
// The corrections encode observed exporter quirks, not physical law. In
// particular the largest-radius rule assumes no re-entrant geometry hides
// the true body radius; no counter-example exists in the available corpus,
// but the assumption is a heuristic and is kept explicit here.
func Synthesize(c *Classification, tol config.Tolerances) (*Profile, error) {
	outer, inner, tori := partition(c.Surfaces)

	outer, inner = correctNested(outer, inner, tol.NestedRadiusRatio)
	outer, inner = correctLargestRadius(outer, inner)
	outer, inner = placeFillets(outer, inner, tori, tol.FilletTouchMM)

	if len(outer) == 0 {
		return nil, ErrInsufficientGeometry
	}

	outerContour := traceOuter(outer)
	innerContour := traceInnerEnvelope(inner)

	outerContour = Dedupe(outerContour, tol.DedupeMM)
	innerContour = Dedupe(innerContour, tol.DedupeMM)
	outerContour = CloseOnAxis(outerContour)

	p := &Profile{
		Kind:  "rotational",
		Outer: outerContour,
		Inner: innerContour,
		Holes: append([]Hole(nil), c.Holes...),
	}
	p.Finalize()
	p.Confidence = meanConfidence(outer, inner)
	p.SkippedSurfaces = c.Stats.Skipped
	return p, nil
}

// partition applies hint priority: a trusted label-derived hint, then the
// raw sense flag, then default-to-outer. Tori are held back; fillet
// placement never trusts sense flags (step 4).
func partition(surfaces []CandidateSurface) (outer, inner, tori []CandidateSurface) {
	for _, s := range surfaces {
		if s.Kind == KindTorus {
			tori = append(tori, s)
			continue
		}
		if s.Hint == HintInner {
			inner = append(inner, s)
			continue
		}
		outer = append(outer, s)
	}
	return outer, inner, tori
}

// correctNested reclassifies an outer-flagged surface as inner when its
// axial span is fully contained in another outer surface's span and its
// radius is smaller by more than the configured ratio. A groove bottom or
// bore wall inside the body cannot be outer, whatever the exporter says.
func correctNested(outer, inner []CandidateSurface, ratio float64) ([]CandidateSurface, []CandidateSurface) {
	demoted := make([]bool, len(outer))
	for i, s := range outer {
		for j, t := range outer {
			if i == j || demoted[j] {
				continue
			}
			if s.ZMin >= t.ZMin && s.ZMax <= t.ZMax && t.Radius > s.Radius*ratio {
				demoted[i] = true
				break
			}
		}
	}
	var keep []CandidateSurface
	for i, s := range outer {
		if demoted[i] {
			s.Hint = HintInner
			inner = append(inner, s)
			continue
		}
		keep = append(keep, s)
	}
	return keep, inner
}

// correctLargestRadius forces the on-axis cylinders holding the single
// largest radius into the outer set: a main shaft body cannot be an inner
// bore.
func correctLargestRadius(outer, inner []CandidateSurface) ([]CandidateSurface, []CandidateSurface) {
	const eps = 1e-6
	largest := 0.0
	for _, s := range outer {
		if s.Kind == KindCylinder && s.Radius > largest {
			largest = s.Radius
		}
	}
	for _, s := range inner {
		if s.Kind == KindCylinder && s.Radius > largest {
			largest = s.Radius
		}
	}
	if largest == 0 {
		return outer, inner
	}

	var keep []CandidateSurface
	for _, s := range inner {
		if s.Kind == KindCylinder && math.Abs(s.Radius-largest) < eps {
			s.Hint = HintOuter
			outer = append(outer, s)
			continue
		}
		keep = append(keep, s)
	}
	return outer, keep
}

// placeFillets assigns toroidal surfaces by adjacency: a fillet is outer if
// its axial span touches the union of outer spans, grown incrementally so a
// later fillet can chain off an earlier one. Sense flags play no part here.
func placeFillets(outer, inner, tori []CandidateSurface, touch float64) ([]CandidateSurface, []CandidateSurface) {
	type interval struct{ lo, hi float64 }
	var outerSpans []interval
	for _, s := range outer {
		outerSpans = append(outerSpans, interval{s.ZMin, s.ZMax})
	}

	// A fillet touches an outer span when the spans abut: a shoulder fillet
	// starts where the adjacent body surface ends. Overlap is deliberately
	// not enough; a groove fillet sits inside the body span without
	// abutting it.
	touches := func(lo, hi float64) bool {
		for _, iv := range outerSpans {
			if math.Abs(lo-iv.hi) <= touch || math.Abs(hi-iv.lo) <= touch {
				return true
			}
		}
		return false
	}

	sort.SliceStable(tori, func(i, j int) bool { return tori[i].ZMin < tori[j].ZMin })
	for _, t := range tori {
		if touches(t.ZMin, t.ZMax) {
			// Convex fillet: the material reaches major+minor, matching the
			// adjacent body radius.
			r := t.Radius + t.MinorRadius
			t.RStart, t.REnd = r, r
			t.Hint = HintOuter
			outer = append(outer, t)
			outerSpans = append(outerSpans, interval{t.ZMin, t.ZMax})
			continue
		}
		r := clampRadius(t.Radius - t.MinorRadius)
		t.RStart, t.REnd = r, r
		t.Hint = HintInner
		inner = append(inner, t)
	}
	return outer, inner
}

// traceOuter walks the outer set sorted by span start and appends each
// segment's explicit start and end points. A radius discontinuity at a
// shoulder therefore becomes a vertical step; interpolating across it would
// wrongly bevel sharp shoulders.
func traceOuter(set []CandidateSurface) Contour {
	sort.SliceStable(set, func(i, j int) bool {
		if set[i].ZMin != set[j].ZMin {
			return set[i].ZMin < set[j].ZMin
		}
		return set[i].ZMax < set[j].ZMax
	})

	var out Contour
	for _, s := range set {
		out = appendMonotonic(out, Point{Radius: s.RStart, Z: s.ZMin})
		out = appendMonotonic(out, Point{Radius: s.REnd, Z: s.ZMax})
	}
	return out
}

// appendMonotonic keeps the contour non-decreasing in Z. Overlapping spans
// from noisy exports are clamped to the current front rather than walking
// the trace backwards.
func appendMonotonic(c Contour, p Point) Contour {
	if n := len(c); n > 0 && p.Z < c[n-1].Z {
		p.Z = c[n-1].Z
	}
	return append(c, p)
}

// traceInnerEnvelope builds the bore wall: where inner surfaces overlap
// axially (concentric or overlapping bores), each axial sub-interval takes
// the maximum radius among the surfaces active there.
func traceInnerEnvelope(set []CandidateSurface) Contour {
	if len(set) == 0 {
		return nil
	}

	cuts := make([]float64, 0, 2*len(set))
	for _, s := range set {
		cuts = append(cuts, s.ZMin, s.ZMax)
	}
	sort.Float64s(cuts)
	cuts = dedupeFloats(cuts, 1e-9)

	var out Contour
	for i := 0; i+1 < len(cuts); i++ {
		lo, hi := cuts[i], cuts[i+1]
		mid := (lo + hi) / 2

		rLo, rHi, active := 0.0, 0.0, false
		for _, s := range set {
			if s.ZMin <= mid && mid <= s.ZMax {
				active = true
				if r := s.RadiusAt(lo); r > rLo {
					rLo = r
				}
				if r := s.RadiusAt(hi); r > rHi {
					rHi = r
				}
			}
		}
		if !active {
			continue
		}
		out = appendMonotonic(out, Point{Radius: rLo, Z: lo})
		out = appendMonotonic(out, Point{Radius: rHi, Z: hi})
	}
	return out
}

// Dedupe drops points within eps of the previous point in both radius and
// axial position.
func Dedupe(c Contour, eps float64) Contour {
	if len(c) == 0 {
		return c
	}
	out := Contour{c[0]}
	for _, p := range c[1:] {
		prev := out[len(out)-1]
		if math.Abs(p.Radius-prev.Radius) < eps && math.Abs(p.Z-prev.Z) < eps {
			continue
		}
		out = append(out, p)
	}
	return out
}

func dedupeFloats(v []float64, eps float64) []float64 {
	out := v[:0]
	for _, x := range v {
		if len(out) == 0 || x-out[len(out)-1] > eps {
			out = append(out, x)
		}
	}
	return out
}

// CloseOnAxis clamps the outer contour to radius 0 at both extremities so
// every profile starts and ends on the rotation axis.
func CloseOnAxis(c Contour) Contour {
	if len(c) == 0 {
		return c
	}
	if c[0].Radius != 0 {
		c = append(Contour{{Radius: 0, Z: c[0].Z}}, c...)
	}
	if last := c[len(c)-1]; last.Radius != 0 {
		c = append(c, Point{Radius: 0, Z: last.Z})
	}
	return c
}

// Finalize shifts all axial positions so the outer contour starts at 0 and
// derives the total length and maximum diameter from the final contour.
func (p *Profile) Finalize() {
	if len(p.Outer) == 0 {
		return
	}
	if z0 := p.Outer[0].Z; z0 != 0 {
		for i := range p.Outer {
			p.Outer[i].Z -= z0
		}
		for i := range p.Inner {
			p.Inner[i].Z -= z0
		}
		for i := range p.Holes {
			p.Holes[i].ZMin -= z0
			p.Holes[i].ZMax -= z0
		}
	}
	p.Length = p.Outer[len(p.Outer)-1].Z - p.Outer[0].Z
	p.MaxDiameter = 0
	for _, pt := range p.Outer {
		if d := 2 * pt.Radius; d > p.MaxDiameter {
			p.MaxDiameter = d
		}
	}
}

func meanConfidence(outer, inner []CandidateSurface) float64 {
	n := len(outer) + len(inner)
	if n == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range outer {
		sum += s.Confidence
	}
	for _, s := range inner {
		sum += s.Confidence
	}
	return sum / float64(n)
}
