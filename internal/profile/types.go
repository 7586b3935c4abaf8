package profile

import "github.com/kg46sp8kps-web/gestima-sub000/internal/geom"

// SurfaceKind discriminates the swept surface types the extractor supports.
// Anything else a face requires is an UnsupportedGeometryError, never a
// silent approximation.
type SurfaceKind int

const (
	KindCylinder SurfaceKind = iota
	KindCone
	KindTorus
)

func (k SurfaceKind) String() string {
	switch k {
	case KindCylinder:
		return "cylinder"
	case KindCone:
		return "cone"
	case KindTorus:
		return "torus"
	}
	return "unknown"
}

// Hint is the orientation suggestion attached to a candidate surface before
// the synthesizer's correction passes run.
type Hint int

const (
	HintUnknown Hint = iota
	HintOuter
	HintInner
)

// HintSource records where a hint came from, in increasing order of trust.
type HintSource int

const (
	SourceDefault HintSource = iota
	SourceSenseFlag
	SourceLabel
)

// CandidateSurface is one resolved, typed surface candidate. Created once
// per resolved surface and read-only thereafter.
type CandidateSurface struct {
	Kind     SurfaceKind
	EntityID int

	Radius      float64 // cylinder radius, cone base radius, torus major radius
	HalfAngle   float64 // cone only, radians
	MinorRadius float64 // torus only

	ZMin, ZMax   float64 // axial span from face boundary vertices
	RStart, REnd float64 // trace radii at ZMin and ZMax

	Offset  float64 // lateral distance between surface axis and rotation axis
	AxisDev float64 // angle between surface axis and rotation axis, radians

	Hint       Hint
	HintSource HintSource
	Confidence float64
}

// Span returns the axial extent of the surface.
func (s CandidateSurface) Span() float64 {
	return s.ZMax - s.ZMin
}

// RadiusAt returns the trace radius at axial position z, interpolating
// linearly between the span endpoints.
func (s CandidateSurface) RadiusAt(z float64) float64 {
	if s.ZMax == s.ZMin {
		return s.RStart
	}
	t := (z - s.ZMin) / (s.ZMax - s.ZMin)
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return s.RStart + t*(s.REnd-s.RStart)
}

// Point is one contour vertex: radius from the rotation axis and signed
// axial position.
type Point struct {
	Radius float64 `json:"r"`
	Z      float64 `json:"z"`
}

// Contour is an ordered, deduplicated point sequence, non-decreasing in Z.
type Contour []Point

// Hole is an off-axis cylindrical or conical feature, kept apart from the
// rotational contour.
type Hole struct {
	Diameter float64 `json:"diameter"`
	Depth    float64 `json:"depth"`
	Offset   float64 `json:"offset"` // lateral distance from the rotation axis
	ZMin     float64 `json:"z_min"`
	ZMax     float64 `json:"z_max"`
	EntityID int     `json:"entity_id"`
}

// Provenance tags a profile with how and from what it was produced. It
// carries no per-run identifiers: re-extraction of the same input must yield
// a byte-identical profile.
type Provenance struct {
	Method   string `json:"method"` // "heuristic" or "section"
	SchemaID string `json:"schema_id,omitempty"`
}

// Profile is the synthesized 2-D rotational cross-section. Downstream
// consumers (rendering, zone mapping, cost estimation) treat it as ground
// truth.
type Profile struct {
	Kind            string     `json:"kind"` // always "rotational"
	Outer           Contour    `json:"outer"`
	Inner           Contour    `json:"inner,omitempty"`
	Holes           []Hole     `json:"holes,omitempty"`
	Length          float64    `json:"length"`
	MaxDiameter     float64    `json:"max_diameter"`
	Provenance      Provenance `json:"provenance"`
	Confidence      float64    `json:"confidence"`
	SkippedSurfaces int        `json:"skipped_surfaces"`
}

// Axis is the part's rotation axis in model space.
type Axis struct {
	Origin geom.Vec3
	Dir    geom.Vec3 // unit length
}
