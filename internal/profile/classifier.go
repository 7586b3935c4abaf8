package profile

import (
	"math"
	"sort"
	"strings"

	"github.com/kg46sp8kps-web/gestima-sub000/internal/config"
	"github.com/kg46sp8kps-web/gestima-sub000/internal/geom"
	"github.com/kg46sp8kps-web/gestima-sub000/internal/step"
)

// Surface type tags by how the classifier treats them. Planar faces are the
// shoulders and end faces of a turned part; their geometry is implied by the
// adjacent swept surfaces, so they contribute nothing to the contour.
var (
	supportedSurfaces = map[string]SurfaceKind{
		"CYLINDRICAL_SURFACE": KindCylinder,
		"CONICAL_SURFACE":     KindCone,
		"TOROIDAL_SURFACE":    KindTorus,
	}
	ignoredSurfaces = map[string]bool{
		"PLANE": true,
	}
	// Swept or curved types the contour tracer cannot represent. Hitting
	// one fails the file instead of approximating.
	unsupportedSurfaces = map[string]bool{
		"SPHERICAL_SURFACE":           true,
		"SURFACE_OF_REVOLUTION":       true,
		"SURFACE_OF_LINEAR_EXTRUSION": true,
		"SWEPT_SURFACE":               true,
		"B_SPLINE_SURFACE":            true,
		"B_SPLINE_SURFACE_WITH_KNOTS": true,
		"RATIONAL_B_SPLINE_SURFACE":   true,
		"DEGENERATE_TOROIDAL_SURFACE": true,
	}

	faceTags = []string{"ADVANCED_FACE", "FACE_SURFACE"}

	// Entity types walked when deriving a face's axial span from its
	// boundary curves.
	boundaryWalk = map[string]bool{
		"FACE_OUTER_BOUND": true,
		"FACE_BOUND":       true,
		"EDGE_LOOP":        true,
		"ORIENTED_EDGE":    true,
		"EDGE_CURVE":       true,
		"VERTEX_POINT":     true,
	}
)

// Stats reports classification observability counters alongside a
// successful result.
type Stats struct {
	Faces   int // faces on supported surfaces that were considered
	Skipped int // surfaces dropped for unresolvable placement or span
	OffAxis int // surfaces diverted into the hole list
}

// Classification is the classifier's output: typed surface candidates on
// the rotation axis, off-axis holes, the chosen axis, and skip counters.
type Classification struct {
	Surfaces []CandidateSurface
	Holes    []Hole
	Axis     Axis
	Stats    Stats
}

// Classify converts the resolved entity graph into candidate surfaces.
//
// Per-surface resolution failures (dangling or cyclic references, missing
// spans) are swallowed and counted: manufacturing export data is noisy and
// best-effort extraction is the design intent. Only an unsupported swept
// surface type fails the whole file.
func Classify(g *step.Graph, r *step.Resolver, tol config.Tolerances) (*Classification, error) {
	axis := RotationAxis(g, r)
	out := &Classification{Axis: axis}

	type merged struct {
		cs    CandidateSurface
		valid bool
	}
	bySurface := make(map[int]*merged)
	var order []int

	var faces []*step.Entity
	for _, tag := range faceTags {
		faces = append(faces, g.OfType(tag)...)
	}

	for _, face := range faces {
		surf, err := faceGeometry(face, r)
		if err != nil || surf == nil {
			out.Stats.Skipped++
			continue
		}
		if ignoredSurfaces[surf.Type] {
			continue
		}
		if unsupportedSurfaces[surf.Type] {
			return nil, &UnsupportedGeometryError{EntityID: surf.ID, TypeTag: surf.Type}
		}
		kind, ok := supportedSurfaces[surf.Type]
		if !ok {
			// Unknown tags (shells, curves reached via odd exports) are
			// skipped, not fatal: only recognized swept types fail the file.
			out.Stats.Skipped++
			continue
		}
		out.Stats.Faces++

		pl, err := r.Placement(surf.ID)
		if err != nil {
			out.Stats.Skipped++
			continue
		}

		zMin, zMax, ok := boundarySpan(face, r, axis)
		if !ok {
			out.Stats.Skipped++
			continue
		}

		cs, ok := buildCandidate(kind, surf, pl, face, axis, zMin, zMax)
		if !ok {
			out.Stats.Skipped++
			continue
		}

		if cs.AxisDev > tol.AxisDeviationRad || cs.Offset > tol.LateralOffsetMM {
			if kind == KindCylinder || kind == KindCone {
				out.Stats.OffAxis++
				out.Holes = append(out.Holes, Hole{
					Diameter: 2 * cs.Radius,
					Depth:    cs.Span(),
					Offset:   cs.Offset,
					ZMin:     cs.ZMin,
					ZMax:     cs.ZMax,
					EntityID: surf.ID,
				})
			} else {
				// An off-axis fillet belongs to an off-axis feature; it has
				// no place in the rotational contour.
				out.Stats.Skipped++
			}
			continue
		}

		// Faces split by the exporter can share one surface; merge spans so
		// each resolved surface yields exactly one candidate.
		if m, seen := bySurface[surf.ID]; seen {
			mergeSpan(&m.cs, cs)
			continue
		}
		bySurface[surf.ID] = &merged{cs: cs, valid: true}
		order = append(order, surf.ID)
	}

	sort.Ints(order)
	for _, id := range order {
		m := bySurface[id]
		if m.cs.ZMax <= m.cs.ZMin {
			out.Stats.Skipped++
			continue
		}
		out.Surfaces = append(out.Surfaces, m.cs)
	}
	return out, nil
}

// buildCandidate derives the typed candidate for one face/surface pair.
func buildCandidate(kind SurfaceKind, surf *step.Entity, pl *step.Placement, face *step.Entity, axis Axis, zMin, zMax float64) (CandidateSurface, bool) {
	cs := CandidateSurface{
		Kind:     kind,
		EntityID: surf.ID,
		ZMin:     zMin,
		ZMax:     zMax,
	}

	radius, ok := surf.NumAt(2)
	if !ok || radius < 0 || math.IsNaN(radius) || math.IsInf(radius, 0) {
		return cs, false
	}
	cs.Radius = radius

	dev := pl.Axis.AngleTo(axis.Dir)
	if dev > math.Pi/2 {
		dev = math.Pi - dev
	}
	cs.AxisDev = dev
	cs.Offset = geom.DistanceToLine(pl.Origin, axis.Origin, axis.Dir)

	switch kind {
	case KindCylinder:
		cs.RStart, cs.REnd = radius, radius

	case KindCone:
		halfAngle, ok := surf.NumAt(3)
		if !ok {
			return cs, false
		}
		cs.HalfAngle = halfAngle
		// The cone's base radius is defined at its placement origin; the
		// slope sign follows the cone axis direction along the part axis.
		z0 := pl.Origin.Sub(axis.Origin).Dot(axis.Dir)
		slope := math.Tan(halfAngle)
		if pl.Axis.Dot(axis.Dir) < 0 {
			slope = -slope
		}
		cs.RStart = clampRadius(radius + (zMin-z0)*slope)
		cs.REnd = clampRadius(radius + (zMax-z0)*slope)

	case KindTorus:
		minor, ok := surf.NumAt(3)
		if !ok {
			return cs, false
		}
		cs.MinorRadius = minor
		// Trace radii are decided with the fillet's outer/inner placement
		// during synthesis.
		cs.RStart, cs.REnd = radius, radius
	}

	cs.Hint, cs.HintSource, cs.Confidence = orientationHint(face, surf)
	return cs, true
}

func clampRadius(r float64) float64 {
	if r < 0 {
		return 0
	}
	return r
}

// orientationHint reads the owning face's sense flag and any label-derived
// markers. Labels outrank sense flags: exporters invert the flag often
// enough that it is never trusted unconditionally.
func orientationHint(face, surf *step.Entity) (Hint, HintSource, float64) {
	if h, ok := labelHint(face, surf); ok {
		return h, SourceLabel, 0.9
	}
	for i := len(face.Params) - 1; i >= 0; i-- {
		if val, ok := face.Params[i].Bool(); ok {
			if val {
				return HintOuter, SourceSenseFlag, 0.7
			}
			return HintInner, SourceSenseFlag, 0.7
		}
	}
	return HintUnknown, SourceDefault, 0.5
}

func labelHint(face, surf *step.Entity) (Hint, bool) {
	label := ""
	if len(face.Params) > 0 && face.Params[0].Kind == step.ParamString {
		label = face.Params[0].Str
	}
	if len(surf.Params) > 0 && surf.Params[0].Kind == step.ParamString {
		label += " " + surf.Params[0].Str
	}
	label = strings.ToLower(label)
	switch {
	case label == "" || label == " ":
		return HintUnknown, false
	case strings.Contains(label, "bore") || strings.Contains(label, "inner"):
		return HintInner, true
	case strings.Contains(label, "outer") || strings.Contains(label, "shaft"):
		return HintOuter, true
	}
	return HintUnknown, false
}

// faceGeometry returns the surface entity a face is built on: the first
// referenced entity whose type is a known surface tag.
func faceGeometry(face *step.Entity, r *step.Resolver) (*step.Entity, error) {
	for _, ref := range face.Refs() {
		target, err := r.Follow(face.ID, ref)
		if err != nil {
			return nil, err
		}
		t := target.Type
		if _, ok := supportedSurfaces[t]; ok || ignoredSurfaces[t] || unsupportedSurfaces[t] {
			return target, nil
		}
	}
	return nil, nil
}

// boundarySpan projects the face's boundary-curve vertices onto the
// rotation axis. The span comes from the face bounds, never from the
// surface definition alone: an infinite cylinder record says nothing about
// where the material starts and stops.
func boundarySpan(face *step.Entity, r *step.Resolver, axis Axis) (zMin, zMax float64, ok bool) {
	zMin, zMax = math.Inf(1), math.Inf(-1)
	found := false

	var walk func(from int, refs []int, depth int)
	walk = func(from int, refs []int, depth int) {
		if depth > 8 {
			return
		}
		for _, ref := range refs {
			target, err := r.Follow(from, ref)
			if err != nil {
				continue // skip the unresolvable branch, not the face
			}
			switch {
			case target.Type == "CARTESIAN_POINT":
				pt, err := step.Coordinates(target)
				if err != nil {
					continue
				}
				z := pt.Sub(axis.Origin).Dot(axis.Dir)
				if z < zMin {
					zMin = z
				}
				if z > zMax {
					zMax = z
				}
				found = true
			case boundaryWalk[target.Type]:
				walk(target.ID, target.Refs(), depth+1)
			}
		}
	}
	walk(face.ID, face.Refs(), 0)

	if !found || zMax <= zMin {
		return 0, 0, false
	}
	return zMin, zMax, true
}

// RotationAxis picks the part's rotation axis by majority vote over the
// cylindrical surface axes, weighted by radius squared so the main body
// dominates bolt holes. The axis point is the same weighted centroid of the
// aligned cylinders' origins.
//
// Exported separately from Classify: the axis needs only the cylinder
// records, so the exact section path can still cut a part whose face walk
// fails classification.
func RotationAxis(g *step.Graph, r *step.Resolver) Axis {
	type vote struct {
		dir    geom.Vec3
		weight float64
	}
	var clusters []vote

	type member struct {
		origin geom.Vec3
		dir    geom.Vec3
		weight float64
	}
	var members []member

	for _, e := range g.OfType("CYLINDRICAL_SURFACE") {
		pl, err := r.Placement(e.ID)
		if err != nil {
			continue
		}
		radius, ok := e.NumAt(2)
		if !ok || radius <= 0 {
			continue
		}
		dir := pl.Axis
		// Sign-normalize so parallel and antiparallel axes vote together.
		if dir.Z < 0 || (dir.Z == 0 && (dir.Y < 0 || (dir.Y == 0 && dir.X < 0))) {
			dir = dir.Scale(-1)
		}
		w := radius * radius
		members = append(members, member{origin: pl.Origin, dir: dir, weight: w})

		matched := false
		for i := range clusters {
			if clusters[i].dir.AngleTo(dir) < 0.05 {
				clusters[i].weight += w
				matched = true
				break
			}
		}
		if !matched {
			clusters = append(clusters, vote{dir: dir, weight: w})
		}
	}

	axis := Axis{Dir: geom.Vec3{Z: 1}}
	if len(clusters) == 0 {
		return axis
	}
	best := clusters[0]
	for _, c := range clusters[1:] {
		if c.weight > best.weight {
			best = c
		}
	}
	axis.Dir = best.dir

	var total float64
	var centroid geom.Vec3
	for _, m := range members {
		if m.dir.AngleTo(axis.Dir) >= 0.05 {
			continue
		}
		centroid = centroid.Add(m.origin.Scale(m.weight))
		total += m.weight
	}
	if total > 0 {
		centroid = centroid.Scale(1 / total)
		// Keep only the lateral component so the axis point sits on the
		// rotation axis itself.
		axial := centroid.Sub(axis.Origin).Dot(axis.Dir)
		axis.Origin = centroid.Sub(axis.Dir.Scale(axial))
	}
	return axis
}

func mergeSpan(dst *CandidateSurface, src CandidateSurface) {
	if src.ZMin < dst.ZMin {
		dst.ZMin = src.ZMin
		dst.RStart = src.RStart
	}
	if src.ZMax > dst.ZMax {
		dst.ZMax = src.ZMax
		dst.REnd = src.REnd
	}
	// Conflicting hints downgrade to the weaker source.
	if src.Hint != dst.Hint && dst.HintSource == src.HintSource {
		dst.Hint = HintUnknown
		dst.HintSource = SourceDefault
		dst.Confidence = 0.5
	}
}
