// Package shape derives simplified collision volumes from obstacle geometry.
//
// Visual meshes and collision volumes are deliberately not identical:
// cylinders and tetrahedra are shrunk by a fixed margin so a bike grazing
// the visible surface is not killed.
package shape

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"neontrail/internal/core"
)

const (
	// CylinderMargin shrinks cylinder radii
	CylinderMargin = 0.9
	// TetrahedronMargin shrinks the tetrahedron circumradius
	TetrahedronMargin = 0.85
	// MinObstacleDistance is the base radius of the fallback sphere
	MinObstacleDistance = 8.0
)

// Primitive is the geometry an obstacle was built from. The set of
// primitives is closed to this package.
type Primitive interface {
	primitive()
}

// BoxPrimitive is a cuboid with full extents
type BoxPrimitive struct {
	Width, Height, Depth float64
}

// CylinderPrimitive is a (possibly tapered) cylinder standing on Y
type CylinderPrimitive struct {
	RadiusTop      float64
	RadiusBottom   float64
	Height         float64
	RadialSegments int
}

// TetrahedronPrimitive is a regular tetrahedron given by circumradius,
// optionally with explicit vertices relative to the obstacle position.
type TetrahedronPrimitive struct {
	Radius   float64
	Vertices []mgl64.Vec3
}

func (BoxPrimitive) primitive()         {}
func (CylinderPrimitive) primitive()    {}
func (TetrahedronPrimitive) primitive() {}

// Kind tags a collision shape
type Kind uint8

const (
	KindSphere Kind = iota
	KindBox
	KindCylinder
	KindTetrahedron
)

func (k Kind) String() string {
	switch k {
	case KindSphere:
		return "sphere"
	case KindBox:
		return "box"
	case KindCylinder:
		return "cylinder"
	case KindTetrahedron:
		return "tetrahedron"
	}
	return "unknown"
}

// MarshalText renders the kind for JSON consumers
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Shape is a cached collision volume. Only the four shapes below implement
// it, so a type switch over them is exhaustive.
type Shape interface {
	Kind() Kind
	sealed()
}

// Box is an oriented box collision shape
type Box struct {
	Size core.Size
}

// Cylinder is a capped cylinder collision shape
type Cylinder struct {
	RadiusTop    float64
	RadiusBottom float64
	Height       float64
}

// Tetrahedron is a simplified tetrahedron collision shape. Vertices, when
// exactly four are present, are offsets from the obstacle position, shrunk
// toward their centroid by TetrahedronMargin.
type Tetrahedron struct {
	Radius   float64
	Vertices []mgl64.Vec3
}

// Sphere is the bounding-sphere fallback
type Sphere struct {
	Radius float64
}

func (Box) Kind() Kind         { return KindBox }
func (Cylinder) Kind() Kind    { return KindCylinder }
func (Tetrahedron) Kind() Kind { return KindTetrahedron }
func (Sphere) Kind() Kind      { return KindSphere }

func (Box) sealed()         {}
func (Cylinder) sealed()    {}
func (Tetrahedron) sealed() {}
func (Sphere) sealed()      {}

// Classify maps a primitive to its collision shape. It is total: nil or
// malformed primitives degrade to a bounding sphere of radius
// MinObstacleDistance * sizeMultiplier. It has no hidden state, so
// repeated calls return equal shapes.
func Classify(p Primitive, sizeMultiplier float64) Shape {
	switch prim := p.(type) {
	case BoxPrimitive:
		if positive(prim.Width, prim.Height, prim.Depth) {
			return Box{Size: core.Size{Width: prim.Width, Height: prim.Height, Depth: prim.Depth}}
		}
	case *BoxPrimitive:
		if prim != nil {
			return Classify(*prim, sizeMultiplier)
		}
	case CylinderPrimitive:
		if positive(prim.Height) && nonNegative(prim.RadiusTop, prim.RadiusBottom) &&
			(prim.RadiusTop > 0 || prim.RadiusBottom > 0) {
			return Cylinder{
				RadiusTop:    prim.RadiusTop * CylinderMargin,
				RadiusBottom: prim.RadiusBottom * CylinderMargin,
				Height:       prim.Height,
			}
		}
	case *CylinderPrimitive:
		if prim != nil {
			return Classify(*prim, sizeMultiplier)
		}
	case TetrahedronPrimitive:
		if s, ok := classifyTetrahedron(prim); ok {
			return s
		}
	case *TetrahedronPrimitive:
		if prim != nil {
			return Classify(*prim, sizeMultiplier)
		}
	}
	return Fallback(sizeMultiplier)
}

// Fallback returns the bounding sphere used for unreadable geometry
func Fallback(sizeMultiplier float64) Sphere {
	if !positive(sizeMultiplier) {
		sizeMultiplier = 1
	}
	return Sphere{Radius: MinObstacleDistance * sizeMultiplier}
}

func classifyTetrahedron(prim TetrahedronPrimitive) (Shape, bool) {
	var verts []mgl64.Vec3
	if len(prim.Vertices) == 4 {
		verts = make([]mgl64.Vec3, 4)
		copy(verts, prim.Vertices)
		for _, v := range verts {
			if !core.Finite(v) {
				verts = nil
				break
			}
		}
	}

	radius := prim.Radius
	if !positive(radius) {
		// No usable radius: derive one from explicit vertices if we have them
		if verts == nil {
			return nil, false
		}
		radius = circumradius(verts)
		if !positive(radius) {
			return nil, false
		}
	}

	if verts != nil {
		shrink(verts, TetrahedronMargin)
	}
	return Tetrahedron{Radius: radius * TetrahedronMargin, Vertices: verts}, true
}

// shrink scales verts toward their centroid in place
func shrink(verts []mgl64.Vec3, factor float64) {
	c := centroid(verts)
	for i, v := range verts {
		verts[i] = c.Add(v.Sub(c).Mul(factor))
	}
}

func centroid(verts []mgl64.Vec3) mgl64.Vec3 {
	var c mgl64.Vec3
	for _, v := range verts {
		c = c.Add(v)
	}
	return c.Mul(1 / float64(len(verts)))
}

func circumradius(verts []mgl64.Vec3) float64 {
	c := centroid(verts)
	r := 0.0
	for _, v := range verts {
		r = math.Max(r, v.Sub(c).Len())
	}
	return r
}

func positive(vals ...float64) bool {
	for _, v := range vals {
		if !(v > 0) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func nonNegative(vals ...float64) bool {
	for _, v := range vals {
		if !(v >= 0) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
