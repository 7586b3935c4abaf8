package profile

import (
	"fmt"
	"strings"
	"testing"

	"github.com/kg46sp8kps-web/gestima-sub000/internal/step"

	"github.com/stretchr/testify/require"
)

// stepFixture assembles synthetic exchange files for classifier tests:
// surfaces with placements plus the face/bound/edge/vertex chain the span
// derivation walks.
type stepFixture struct {
	records []string
	next    int
}

func (f *stepFixture) add(def string, args ...any) int {
	f.next++
	f.records = append(f.records, fmt.Sprintf("#%d="+def+";", append([]any{f.next}, args...)...))
	return f.next
}

func (f *stepFixture) point(x, y, z float64) int {
	return f.add("CARTESIAN_POINT('',(%g,%g,%g))", x, y, z)
}

func (f *stepFixture) direction(x, y, z float64) int {
	return f.add("DIRECTION('',(%g,%g,%g))", x, y, z)
}

func (f *stepFixture) placement(px, py, pz, dx, dy, dz float64) int {
	p := f.point(px, py, pz)
	d := f.direction(dx, dy, dz)
	return f.add("AXIS2_PLACEMENT_3D('',#%d,#%d,$)", p, d)
}

func (f *stepFixture) cylinder(pl int, r float64) int {
	return f.add("CYLINDRICAL_SURFACE('',#%d,%g)", pl, r)
}

func (f *stepFixture) cone(pl int, r, halfAngle float64) int {
	return f.add("CONICAL_SURFACE('',#%d,%g,%g)", pl, r, halfAngle)
}

func (f *stepFixture) torus(pl int, major, minor float64) int {
	return f.add("TOROIDAL_SURFACE('',#%d,%g,%g)", pl, major, minor)
}

// face builds an ADVANCED_FACE over surf with a boundary loop through the
// given vertex coordinates.
func (f *stepFixture) face(surf int, sense string, label string, verts ...[3]float64) int {
	var edges []string
	for i := range verts {
		a, b := verts[i], verts[(i+1)%len(verts)]
		va := f.add("VERTEX_POINT('',#%d)", f.point(a[0], a[1], a[2]))
		vb := f.add("VERTEX_POINT('',#%d)", f.point(b[0], b[1], b[2]))
		ec := f.add("EDGE_CURVE('',#%d,#%d,#%d,.T.)", va, vb, surf)
		oe := f.add("ORIENTED_EDGE('',*,*,#%d,.T.)", ec)
		edges = append(edges, fmt.Sprintf("#%d", oe))
	}
	loop := f.add("EDGE_LOOP('',(%s))", strings.Join(edges, ","))
	bound := f.add("FACE_OUTER_BOUND('',#%d,.T.)", loop)
	return f.add("ADVANCED_FACE('%s',(#%d),#%d,%s)", label, bound, surf, sense)
}

func (f *stepFixture) text() string {
	return "ISO-10303-21;\nHEADER;\nFILE_SCHEMA(('AP214'));\nENDSEC;\nDATA;\n" +
		strings.Join(f.records, "\n") + "\nENDSEC;\nEND-ISO-10303-21;\n"
}

func (f *stepFixture) parse(t *testing.T) (*step.Graph, *step.Resolver) {
	t.Helper()
	g, err := step.Parse([]byte(f.text()))
	require.NoError(t, err)
	return g, step.NewResolver(g)
}

// zCylinder adds an on-axis cylindrical surface plus a face spanning
// [zMin, zMax].
func (f *stepFixture) zCylinder(r, zMin, zMax float64, sense string) int {
	surf := f.cylinder(f.placement(0, 0, zMin, 0, 0, 1), r)
	f.face(surf, sense, "", [3]float64{r, 0, zMin}, [3]float64{r, 0, zMax})
	return surf
}
