package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kg46sp8kps-web/gestima-sub000/internal/config"
)

// Test Plan for Synthesize:
// - Hint priority: label > sense flag > default-to-outer
// - Nested-surface correction demotes a small outer-flagged surface fully
//   contained in a larger outer span
// - Largest-radius correction forces the biggest on-axis cylinder outer
// - Fillet placement by span adjacency, chaining off earlier fillets
// - Shoulders become vertical steps, never bevels
// - Overlapping bores collapse to their outer envelope
// - Axis closure and monotonic ordering hold on every output
// - No outer surfaces -> ErrInsufficientGeometry

func tolerances() config.Tolerances {
	return config.Default().Tolerances
}

func cyl(r, zMin, zMax float64, hint Hint, src HintSource) CandidateSurface {
	return CandidateSurface{
		Kind:       KindCylinder,
		Radius:     r,
		ZMin:       zMin,
		ZMax:       zMax,
		RStart:     r,
		REnd:       r,
		Hint:       hint,
		HintSource: src,
		Confidence: 0.7,
	}
}

func synth(t *testing.T, surfaces ...CandidateSurface) *Profile {
	t.Helper()
	p, err := Synthesize(&Classification{Surfaces: surfaces}, tolerances())
	require.NoError(t, err)
	assertContourInvariants(t, p)
	return p
}

// assertContourInvariants checks axis closure and monotonic ordering, which
// must hold for every successfully synthesized profile.
func assertContourInvariants(t *testing.T, p *Profile) {
	t.Helper()
	require.NotEmpty(t, p.Outer)
	assert.Equal(t, 0.0, p.Outer[0].Radius, "outer contour must start on the axis")
	assert.Equal(t, 0.0, p.Outer[len(p.Outer)-1].Radius, "outer contour must end on the axis")
	for i := 1; i < len(p.Outer); i++ {
		assert.GreaterOrEqual(t, p.Outer[i].Z, p.Outer[i-1].Z, "outer contour Z must be non-decreasing")
	}
	for i := 1; i < len(p.Inner); i++ {
		assert.GreaterOrEqual(t, p.Inner[i].Z, p.Inner[i-1].Z, "inner contour Z must be non-decreasing")
	}
}

func TestSynthesize_NestedSurfaceCorrection(t *testing.T) {
	t.Parallel()

	// A small outer-flagged cylinder fully inside a much larger outer span
	// is a groove or bore wall, not part of the outer envelope.
	p := synth(t,
		cyl(20, 0, 85, HintOuter, SourceSenseFlag),
		cyl(8, 51, 53, HintOuter, SourceSenseFlag),
	)

	assert.Equal(t, 40.0, p.MaxDiameter)
	require.NotEmpty(t, p.Inner)
	assert.Equal(t, 8.0, p.Inner[0].Radius)
	for _, pt := range p.Outer {
		assert.NotEqual(t, 8.0, pt.Radius, "the nested cylinder must not appear on the outer contour")
	}
}

func TestSynthesize_NestedCorrectionRespectsRatio(t *testing.T) {
	t.Parallel()

	// Contained but only slightly smaller: a legitimate stepped shaft, not
	// a misflagged bore.
	p := synth(t,
		cyl(20, 0, 85, HintOuter, SourceSenseFlag),
		cyl(15, 20, 60, HintOuter, SourceSenseFlag),
	)
	assert.Empty(t, p.Inner)
}

func TestSynthesize_LargestRadiusForcedOuter(t *testing.T) {
	t.Parallel()

	// The exporter flagged the main body inner; a shaft body cannot be a
	// bore.
	p := synth(t,
		cyl(27.5, 0, 89, HintInner, SourceSenseFlag),
		cyl(9.5, 0, 89, HintInner, SourceSenseFlag),
	)

	assert.Equal(t, 55.0, p.MaxDiameter)
	require.NotEmpty(t, p.Inner)
	assert.Equal(t, 9.5, p.Inner[0].Radius)
}

func TestSynthesize_DefaultToOuter(t *testing.T) {
	t.Parallel()

	p := synth(t, cyl(10, 0, 40, HintUnknown, SourceDefault))
	assert.Equal(t, 20.0, p.MaxDiameter)
	assert.Equal(t, 40.0, p.Length)
}

func TestSynthesize_ShoulderIsVerticalStep(t *testing.T) {
	t.Parallel()

	p := synth(t,
		cyl(27.5, 0, 50, HintOuter, SourceSenseFlag),
		cyl(15, 50, 89, HintOuter, SourceSenseFlag),
	)

	// The diameter change at z=50 must be a vertical step: both radii
	// present at the same axial position, no intermediate point.
	assert.Equal(t, Contour{
		{Radius: 0, Z: 0},
		{Radius: 27.5, Z: 0},
		{Radius: 27.5, Z: 50},
		{Radius: 15, Z: 50},
		{Radius: 15, Z: 89},
		{Radius: 0, Z: 89},
	}, p.Outer)
}

func TestSynthesize_FilletPlacementByAdjacency(t *testing.T) {
	t.Parallel()

	torus := func(major, minor, zMin, zMax float64) CandidateSurface {
		return CandidateSurface{
			Kind:        KindTorus,
			Radius:      major,
			MinorRadius: minor,
			ZMin:        zMin,
			ZMax:        zMax,
			RStart:      major,
			REnd:        major,
			// A deliberately wrong sense-flag hint: fillet placement must
			// ignore it.
			Hint:       HintInner,
			HintSource: SourceSenseFlag,
			Confidence: 0.7,
		}
	}

	p := synth(t,
		cyl(26, 0, 50, HintOuter, SourceSenseFlag),
		// Touches the body span end; outer despite the inner hint. A second
		// fillet chains off the first one's span.
		torus(24, 2, 50, 52),
		torus(22, 2, 52, 54),
		// Far from any outer span: an internal groove fillet.
		torus(11.5, 2, 20, 22),
	)

	outerRadii := map[float64]bool{}
	for _, pt := range p.Outer {
		outerRadii[pt.Radius] = true
	}
	assert.True(t, outerRadii[26.0], "convex fillet (24+2) must trace at the body radius")
	assert.True(t, outerRadii[24.0], "chained fillet (22+2) must trace outer")

	require.NotEmpty(t, p.Inner)
	assert.Equal(t, 9.5, p.Inner[0].Radius, "detached fillet must trace inner at major-minor")
}

func TestSynthesize_InnerEnvelope(t *testing.T) {
	t.Parallel()

	// Two overlapping bores: the wall is the maximum active radius per
	// axial sub-interval, not both surfaces.
	p := synth(t,
		cyl(30, 0, 100, HintOuter, SourceSenseFlag),
		cyl(5, 0, 60, HintInner, SourceSenseFlag),
		cyl(9.5, 40, 100, HintInner, SourceSenseFlag),
	)

	assert.Equal(t, Contour{
		{Radius: 5, Z: 0},
		{Radius: 5, Z: 40},
		{Radius: 9.5, Z: 40},
		{Radius: 9.5, Z: 60},
		{Radius: 9.5, Z: 100},
	}, p.Inner)
}

func TestSynthesize_ConeTracing(t *testing.T) {
	t.Parallel()

	cone := CandidateSurface{
		Kind:       KindCone,
		Radius:     27.5,
		ZMin:       76.5,
		ZMax:       89,
		RStart:     27.5,
		REnd:       15,
		Hint:       HintOuter,
		HintSource: SourceSenseFlag,
		Confidence: 0.7,
	}
	p := synth(t, cyl(27.5, 0, 76.5, HintOuter, SourceSenseFlag), cone)

	assert.Equal(t, 89.0, p.Length)
	assert.Equal(t, 55.0, p.MaxDiameter)
	// The chamfer must end exactly at (15, 89) before axis closure.
	assert.Equal(t, Point{Radius: 15, Z: 89}, p.Outer[len(p.Outer)-2])
}

func TestSynthesize_DeduplicatesCoincidentPoints(t *testing.T) {
	t.Parallel()

	// Adjacent segments share the joint point; it must appear once.
	p := synth(t,
		cyl(10, 0, 30, HintOuter, SourceSenseFlag),
		cyl(10, 30, 60, HintOuter, SourceSenseFlag),
	)
	assert.Equal(t, Contour{
		{Radius: 0, Z: 0},
		{Radius: 10, Z: 0},
		{Radius: 10, Z: 30},
		{Radius: 10, Z: 60},
		{Radius: 0, Z: 60},
	}, p.Outer)
}

func TestSynthesize_NormalizesAxialOrigin(t *testing.T) {
	t.Parallel()

	p := synth(t, cyl(10, -35, 54, HintOuter, SourceSenseFlag))
	assert.Equal(t, 0.0, p.Outer[0].Z)
	assert.Equal(t, 89.0, p.Length)
}

func TestSynthesize_InsufficientGeometry(t *testing.T) {
	t.Parallel()

	_, err := Synthesize(&Classification{}, tolerances())
	require.ErrorIs(t, err, ErrInsufficientGeometry)

	// Inner-only surfaces are equally insufficient, except that the
	// largest-radius correction can rescue an on-axis cylinder. Use a cone
	// so nothing is rescued.
	_, err = Synthesize(&Classification{Surfaces: []CandidateSurface{{
		Kind:   KindCone,
		Radius: 5,
		ZMin:   0,
		ZMax:   10,
		RStart: 5,
		REnd:   8,
		Hint:   HintInner,
	}}}, tolerances())
	require.ErrorIs(t, err, ErrInsufficientGeometry)
}
