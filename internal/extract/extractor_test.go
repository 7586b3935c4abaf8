package extract

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kg46sp8kps-web/gestima-sub000/internal/config"
	"github.com/kg46sp8kps-web/gestima-sub000/internal/geom"
	"github.com/kg46sp8kps-web/gestima-sub000/internal/profile"
)

// Test Plan for the extraction pipeline:
// - The shaft fixture (d55 body, 45 degree chamfer, d19 through bore)
//   produces the known contour, length and max diameter
// - Re-extracting the same bytes yields a byte-identical profile even
//   though each run gets a fresh extraction ID
// - A kernel solid supersedes the heuristic path; empty cuts and kernel
//   failures fall back to the heuristic pipeline
// - A clean cut rescues files whose face classification fails; the
//   classification error surfaces only when the cut fails too
// - Stats carry schema, counters and the chosen method

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func loadShaft(t *testing.T) []byte {
	t.Helper()
	return loadFixture(t, "shaft.step")
}

func TestExtractFile_Shaft(t *testing.T) {
	t.Parallel()

	res, err := New(config.Default()).ExtractFile(loadShaft(t))
	require.NoError(t, err)
	p := res.Profile

	assert.Equal(t, "rotational", p.Kind)
	assert.Equal(t, "heuristic", p.Provenance.Method)
	assert.Equal(t, "AUTOMOTIVE_DESIGN { 1 0 10303 214 1 1 1 1 }", p.Provenance.SchemaID)
	assert.InDelta(t, 89.0, p.Length, 1e-9)
	assert.InDelta(t, 55.0, p.MaxDiameter, 1e-9)
	assert.Empty(t, p.Holes)

	require.Len(t, p.Outer, 5)
	assert.Equal(t, profile.Point{Radius: 0, Z: 0}, p.Outer[0])
	assert.Equal(t, profile.Point{Radius: 27.5, Z: 0}, p.Outer[1])
	assert.Equal(t, profile.Point{Radius: 27.5, Z: 76.5}, p.Outer[2])
	assert.InDelta(t, 15.0, p.Outer[3].Radius, 1e-9)
	assert.InDelta(t, 89.0, p.Outer[3].Z, 1e-9)
	assert.Equal(t, profile.Point{Radius: 0, Z: 89}, p.Outer[4])

	require.Len(t, p.Inner, 2)
	assert.Equal(t, profile.Point{Radius: 9.5, Z: 0}, p.Inner[0])
	assert.Equal(t, profile.Point{Radius: 9.5, Z: 89}, p.Inner[1])

	assert.Equal(t, "heuristic", res.Stats.Method)
	assert.Equal(t, 3, res.Stats.SurfaceCount)
	assert.NotEmpty(t, res.Stats.ExtractionID)
}

func TestExtractFile_Idempotent(t *testing.T) {
	t.Parallel()

	data := loadShaft(t)
	ex := New(config.Default())

	first, err := ex.ExtractFile(data)
	require.NoError(t, err)
	second, err := ex.ExtractFile(data)
	require.NoError(t, err)

	a, err := json.Marshal(first.Profile)
	require.NoError(t, err)
	b, err := json.Marshal(second.Profile)
	require.NoError(t, err)
	assert.Equal(t, a, b, "profiles must be byte-identical across runs")

	assert.NotEqual(t, first.Stats.ExtractionID, second.Stats.ExtractionID,
		"extraction IDs are per run and live outside the profile")
}

type stubSolid struct {
	segments []geom.Segment
	err      error
}

func (s *stubSolid) IsNull() bool { return false }

func (s *stubSolid) Section(_, _ geom.Vec3) ([]geom.Segment, error) {
	return s.segments, s.err
}

func TestExtractWithSolid_SectionSupersedes(t *testing.T) {
	t.Parallel()

	// The stub cut disagrees with the exchange file on purpose; the exact
	// result must win. Body d60 instead of d55, bore r10 instead of r9.5.
	solid := &stubSolid{segments: []geom.Segment{
		{A: geom.Vec3{X: 30}, B: geom.Vec3{X: 30, Z: 89}},
		{A: geom.Vec3{X: 10}, B: geom.Vec3{X: 30}},
		{A: geom.Vec3{X: 10, Z: 89}, B: geom.Vec3{X: 30, Z: 89}},
		{A: geom.Vec3{X: 10}, B: geom.Vec3{X: 10, Z: 89}},
	}}

	res, err := New(config.Default()).ExtractWithSolid(loadShaft(t), solid)
	require.NoError(t, err)

	assert.Equal(t, "section", res.Profile.Provenance.Method)
	assert.Equal(t, "section", res.Stats.Method)
	assert.Equal(t, 60.0, res.Profile.MaxDiameter)
	require.NotEmpty(t, res.Profile.Inner)
	assert.Equal(t, 10.0, res.Profile.Inner[0].Radius)
	assert.Equal(t, "AUTOMOTIVE_DESIGN { 1 0 10303 214 1 1 1 1 }", res.Profile.Provenance.SchemaID)
}

func TestExtractWithSolid_FallsBackOnNoSection(t *testing.T) {
	t.Parallel()

	// Both an empty cut and a kernel failure are graceful no-results; the
	// heuristic pipeline must take over either way.
	for _, solid := range []*stubSolid{
		{},
		{err: errors.New("boolean op failed")},
	} {
		res, err := New(config.Default()).ExtractWithSolid(loadShaft(t), solid)
		require.NoError(t, err)

		assert.Equal(t, "heuristic", res.Profile.Provenance.Method)
		assert.InDelta(t, 55.0, res.Profile.MaxDiameter, 1e-9)
	}
}

func TestExtractWithSolid_CutRescuesUnsupportedGeometry(t *testing.T) {
	t.Parallel()

	// The fixture carries one spline blend face, which the heuristic path
	// must reject outright.
	data := loadFixture(t, "shaft_spline.step")
	_, err := New(config.Default()).ExtractFile(data)
	var ugErr *profile.UnsupportedGeometryError
	require.ErrorAs(t, err, &ugErr)

	// A clean kernel cut needs no per-face orientation data, so with a
	// solid present the same file yields a section profile.
	solid := &stubSolid{segments: []geom.Segment{
		{A: geom.Vec3{X: 27.5}, B: geom.Vec3{X: 27.5, Z: 89}},
		{A: geom.Vec3{X: 9.5}, B: geom.Vec3{X: 27.5}},
		{A: geom.Vec3{X: 9.5, Z: 89}, B: geom.Vec3{X: 27.5, Z: 89}},
		{A: geom.Vec3{X: 9.5}, B: geom.Vec3{X: 9.5, Z: 89}},
	}}
	res, err := New(config.Default()).ExtractWithSolid(data, solid)
	require.NoError(t, err)

	assert.Equal(t, "section", res.Profile.Provenance.Method)
	assert.Equal(t, 55.0, res.Profile.MaxDiameter)
	assert.Equal(t, 89.0, res.Profile.Length)
	require.NotEmpty(t, res.Profile.Inner)
	assert.Equal(t, 9.5, res.Profile.Inner[0].Radius)
}

func TestExtractWithSolid_ClassificationErrorWhenCutFails(t *testing.T) {
	t.Parallel()

	// When the cut has nothing to offer either, the classification error
	// names the offending geometry.
	_, err := New(config.Default()).ExtractWithSolid(loadFixture(t, "shaft_spline.step"), &stubSolid{})
	var ugErr *profile.UnsupportedGeometryError
	require.ErrorAs(t, err, &ugErr)
	assert.Equal(t, "B_SPLINE_SURFACE_WITH_KNOTS", ugErr.TypeTag)
}

func TestExtractFile_MalformedInput(t *testing.T) {
	t.Parallel()

	_, err := New(config.Default()).ExtractFile([]byte("ISO-10303-21;\nDATA;\n#1=BROKEN(;\nENDSEC;"))
	require.Error(t, err)
}
