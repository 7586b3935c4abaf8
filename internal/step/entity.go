package step

import "sort"

// ParamKind discriminates the variants a record parameter can take.
type ParamKind int

const (
	ParamNull   ParamKind = iota // "$" (unset) or "*" (derived)
	ParamNumber                  // integer or real literal
	ParamString                  // quoted text
	ParamRef                     // "#id" forward reference
	ParamEnum                    // ".T.", ".F.", ".UNSPECIFIED." and friends
	ParamList                    // parenthesized aggregate
)

// Param is one tokenized record parameter. Exactly the field selected by
// Kind is meaningful.
type Param struct {
	Kind ParamKind
	Num  float64
	Str  string
	Ref  int
	List []Param
}

// Bool interprets an enum parameter as a STEP logical. Returns ok=false for
// anything other than .T. / .F.
func (p Param) Bool() (val, ok bool) {
	if p.Kind != ParamEnum {
		return false, false
	}
	switch p.Str {
	case "T":
		return true, true
	case "F":
		return false, true
	}
	return false, false
}

// Entity is one parsed data-section record: a unique positive ID, a type
// tag, and its ordered parameter list. Immutable once parsed.
type Entity struct {
	ID     int
	Type   string
	Params []Param
}

// RefAt returns the entity ID referenced by parameter i, or 0 if the
// parameter is absent or not a reference.
func (e *Entity) RefAt(i int) int {
	if i < 0 || i >= len(e.Params) || e.Params[i].Kind != ParamRef {
		return 0
	}
	return e.Params[i].Ref
}

// NumAt returns the numeric value of parameter i, or ok=false if the
// parameter is absent or not a number.
func (e *Entity) NumAt(i int) (float64, bool) {
	if i < 0 || i >= len(e.Params) || e.Params[i].Kind != ParamNumber {
		return 0, false
	}
	return e.Params[i].Num, true
}

// Refs returns every entity ID referenced anywhere in the parameter list,
// including inside nested aggregates, in parameter order.
func (e *Entity) Refs() []int {
	var out []int
	var walk func(ps []Param)
	walk = func(ps []Param) {
		for _, p := range ps {
			switch p.Kind {
			case ParamRef:
				out = append(out, p.Ref)
			case ParamList:
				walk(p.List)
			}
		}
	}
	walk(e.Params)
	return out
}

// Header carries the exchange file's provenance metadata. The schema
// identifier is recorded for telemetry only and is never branched on.
type Header struct {
	SchemaID          string
	Name              string
	OriginatingSystem string
}

// Graph is the resolved id → entity mapping for one exchange file, plus its
// header. It is immutable after Parse and safe for concurrent reads.
type Graph struct {
	Header   Header
	Entities map[int]*Entity
}

// Get returns the entity with the given ID, or nil.
func (g *Graph) Get(id int) *Entity {
	return g.Entities[id]
}

// OfType returns all entities with the given type tag, ordered by ID so
// downstream passes are deterministic.
func (g *Graph) OfType(tag string) []*Entity {
	var out []*Entity
	for _, e := range g.Entities {
		if e.Type == tag {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
