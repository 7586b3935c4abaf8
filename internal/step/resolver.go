package step

import (
	"errors"
	"fmt"

	"github.com/dominikbraun/graph"

	"github.com/kg46sp8kps-web/gestima-sub000/internal/geom"
)

// Placement is the absolute position and orientation of a geometric entity
// after its placement reference chain has been resolved.
type Placement struct {
	Origin geom.Vec3
	Axis   geom.Vec3 // unit length
	RefDir geom.Vec3
	HasRef bool
}

// Resolver walks surface → placement → (point, direction) reference chains
// over one entity graph. Results are memoized per entity ID, and the chain
// edges are recorded in a cycle-preventing DAG so self-referential exports
// fail per entity instead of looping.
//
// A Resolver is scoped to a single extraction call and must not be shared
// across graphs.
type Resolver struct {
	g    *Graph
	memo map[int]*Placement
	refs graph.Graph[int, int]
}

// NewResolver creates a resolver over g with an empty memo cache.
func NewResolver(g *Graph) *Resolver {
	return &Resolver{
		g:    g,
		memo: make(map[int]*Placement),
		refs: graph.New(graph.IntHash, graph.Directed(), graph.PreventCycles()),
	}
}

// Follow resolves the reference from entity `from` to entity ID `to`,
// recording the edge for cycle detection. Returns *DanglingReferenceError
// if the target is missing and *CyclicReferenceError if the edge would
// close a reference loop.
func (r *Resolver) Follow(from, to int) (*Entity, error) {
	target := r.g.Get(to)
	if target == nil {
		return nil, &DanglingReferenceError{From: from, ID: to}
	}
	_ = r.refs.AddVertex(from)
	_ = r.refs.AddVertex(to)
	if err := r.refs.AddEdge(from, to); err != nil {
		if errors.Is(err, graph.ErrEdgeCreatesCycle) {
			return nil, &CyclicReferenceError{From: from, ID: to}
		}
		// An already-recorded edge is a repeat visit, not a defect.
		if !errors.Is(err, graph.ErrEdgeAlreadyExists) {
			return nil, fmt.Errorf("recording reference #%d -> #%d: %w", from, to, err)
		}
	}
	return target, nil
}

// Placement resolves the absolute origin and unit axis of the entity with
// the given ID. The entity may be an AXIS2_PLACEMENT_3D itself or any
// surface whose parameters reference one.
func (r *Resolver) Placement(id int) (*Placement, error) {
	if p, ok := r.memo[id]; ok {
		return p, nil
	}

	e := r.g.Get(id)
	if e == nil {
		return nil, &DanglingReferenceError{From: id, ID: id}
	}

	pl := e
	if e.Type != "AXIS2_PLACEMENT_3D" {
		pl = nil
		for _, ref := range e.Refs() {
			target, err := r.Follow(id, ref)
			if err != nil {
				return nil, err
			}
			if target.Type == "AXIS2_PLACEMENT_3D" {
				pl = target
				break
			}
		}
		if pl == nil {
			return nil, fmt.Errorf("entity #%d (%s) has no placement", id, e.Type)
		}
	}

	p, err := r.resolveAxisPlacement(pl)
	if err != nil {
		return nil, err
	}
	r.memo[id] = p
	return p, nil
}

// Point resolves a CARTESIAN_POINT referenced from entity `from`.
func (r *Resolver) Point(from, id int) (geom.Vec3, error) {
	e, err := r.Follow(from, id)
	if err != nil {
		return geom.Vec3{}, err
	}
	if e.Type != "CARTESIAN_POINT" {
		return geom.Vec3{}, fmt.Errorf("entity #%d is %s, expected CARTESIAN_POINT", id, e.Type)
	}
	return Coordinates(e)
}

// Direction resolves a DIRECTION referenced from entity `from`, normalized
// to unit length.
func (r *Resolver) Direction(from, id int) (geom.Vec3, error) {
	e, err := r.Follow(from, id)
	if err != nil {
		return geom.Vec3{}, err
	}
	if e.Type != "DIRECTION" {
		return geom.Vec3{}, fmt.Errorf("entity #%d is %s, expected DIRECTION", id, e.Type)
	}
	v, err := Coordinates(e)
	if err != nil {
		return geom.Vec3{}, err
	}
	return v.Unit(), nil
}

// resolveAxisPlacement reads an AXIS2_PLACEMENT_3D:
// (label, location, axis, ref_direction), axis and ref_direction optional.
func (r *Resolver) resolveAxisPlacement(pl *Entity) (*Placement, error) {
	out := &Placement{Axis: geom.Vec3{Z: 1}}

	if ref := pl.RefAt(1); ref != 0 {
		origin, err := r.Point(pl.ID, ref)
		if err != nil {
			return nil, err
		}
		out.Origin = origin
	}
	if ref := pl.RefAt(2); ref != 0 {
		axis, err := r.Direction(pl.ID, ref)
		if err != nil {
			return nil, err
		}
		if axis.Norm() > 0 {
			out.Axis = axis
		}
	}
	if ref := pl.RefAt(3); ref != 0 {
		refDir, err := r.Direction(pl.ID, ref)
		if err != nil {
			return nil, err
		}
		out.RefDir = refDir
		out.HasRef = true
	}
	return out, nil
}

// Coordinates reads the numeric aggregate of a point or direction entity.
func Coordinates(e *Entity) (geom.Vec3, error) {
	for _, p := range e.Params {
		if p.Kind != ParamList {
			continue
		}
		var v geom.Vec3
		coords := []*float64{&v.X, &v.Y, &v.Z}
		for i, item := range p.List {
			if i >= len(coords) {
				break
			}
			if item.Kind != ParamNumber {
				return geom.Vec3{}, fmt.Errorf("entity #%d has non-numeric coordinate", e.ID)
			}
			*coords[i] = item.Num
		}
		return v, nil
	}
	return geom.Vec3{}, fmt.Errorf("entity #%d has no coordinate list", e.ID)
}
