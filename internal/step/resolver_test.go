package step

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Resolver:
// - Placement follows surface → placement → point/direction chains
// - Axis defaults to +Z when the placement omits it
// - Results are memoized per entity ID
// - Missing targets fail with *DanglingReferenceError
// - Reference loops fail with *CyclicReferenceError
// - Both failures are per-entity: other entities still resolve

func parseData(t *testing.T, records string) *Graph {
	t.Helper()
	g, err := Parse([]byte("DATA;\n" + records + "ENDSEC;\n"))
	require.NoError(t, err)
	return g
}

func TestResolver_Placement(t *testing.T) {
	t.Parallel()

	g := parseData(t, `#1=CARTESIAN_POINT('',(1.,2.,3.));
#2=DIRECTION('',(0.,0.,2.));
#3=AXIS2_PLACEMENT_3D('',#1,#2,$);
#4=CYLINDRICAL_SURFACE('',#3,10.);
`)
	r := NewResolver(g)

	pl, err := r.Placement(4)
	require.NoError(t, err)
	assert.Equal(t, 1.0, pl.Origin.X)
	assert.Equal(t, 2.0, pl.Origin.Y)
	assert.Equal(t, 3.0, pl.Origin.Z)
	// Direction is normalized.
	assert.InDelta(t, 1.0, pl.Axis.Z, 1e-12)
	assert.False(t, pl.HasRef)
}

func TestResolver_DefaultAxis(t *testing.T) {
	t.Parallel()

	g := parseData(t, `#1=CARTESIAN_POINT('',(0.,0.,0.));
#3=AXIS2_PLACEMENT_3D('',#1,$,$);
`)
	r := NewResolver(g)

	pl, err := r.Placement(3)
	require.NoError(t, err)
	assert.Equal(t, 1.0, pl.Axis.Z)
}

func TestResolver_Memoization(t *testing.T) {
	t.Parallel()

	g := parseData(t, `#1=CARTESIAN_POINT('',(0.,0.,0.));
#2=DIRECTION('',(0.,0.,1.));
#3=AXIS2_PLACEMENT_3D('',#1,#2,$);
#4=CYLINDRICAL_SURFACE('',#3,10.);
`)
	r := NewResolver(g)

	first, err := r.Placement(4)
	require.NoError(t, err)
	second, err := r.Placement(4)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestResolver_DanglingReference(t *testing.T) {
	t.Parallel()

	g := parseData(t, `#4=CYLINDRICAL_SURFACE('',#99,10.);
#1=CARTESIAN_POINT('',(0.,0.,0.));
#2=DIRECTION('',(0.,0.,1.));
#5=AXIS2_PLACEMENT_3D('',#1,#2,$);
#6=CYLINDRICAL_SURFACE('',#5,4.);
`)
	r := NewResolver(g)

	_, err := r.Placement(4)
	require.Error(t, err)
	var dangling *DanglingReferenceError
	require.ErrorAs(t, err, &dangling)
	assert.Equal(t, 99, dangling.ID)

	// The failure is scoped to entity #4; #6 still resolves.
	pl, err := r.Placement(6)
	require.NoError(t, err)
	assert.Equal(t, 1.0, pl.Axis.Z)
}

func TestResolver_CyclicReference(t *testing.T) {
	t.Parallel()

	// The placement's location points back at the surface that owns it.
	g := parseData(t, `#4=CYLINDRICAL_SURFACE('',#3,10.);
#3=AXIS2_PLACEMENT_3D('',#4,$,$);
`)
	r := NewResolver(g)

	_, err := r.Placement(4)
	require.Error(t, err)
	var cyclic *CyclicReferenceError
	require.ErrorAs(t, err, &cyclic)
}

func TestResolver_SelfReference(t *testing.T) {
	t.Parallel()

	g := parseData(t, "#3=AXIS2_PLACEMENT_3D('',#3,$,$);\n")
	r := NewResolver(g)

	_, err := r.Placement(3)
	require.Error(t, err)
	var cyclic *CyclicReferenceError
	require.ErrorAs(t, err, &cyclic)
}
