package profile

import (
	"errors"
	"fmt"
)

// ErrInsufficientGeometry is returned when no outer surfaces survive
// classification. File-level: the caller falls back to the exact section
// path or an external method.
var ErrInsufficientGeometry = errors.New("no outer surfaces survive classification")

// UnsupportedGeometryError reports a face whose underlying swept surface is
// outside {cylinder, cone, torus}. File-level: approximating it silently
// would corrupt the machining estimate downstream.
type UnsupportedGeometryError struct {
	EntityID int
	TypeTag  string
}

func (e *UnsupportedGeometryError) Error() string {
	return fmt.Sprintf("unsupported surface type %s (entity #%d)", e.TypeTag, e.EntityID)
}
