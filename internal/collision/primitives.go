// Package collision answers "does this bike hit anything" for the arena.
//
// Box tests treat every box as axis-aligned. Bikes only ever travel along
// the four axis headings, so the stored yaw is kept for presentation and
// deliberately not applied here.
package collision

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"neontrail/internal/core"
	"neontrail/internal/shape"
)

// Padding is added to every half extent before a box test
const Padding = 0.1

// parallelEpsilon rejects segments running (nearly) parallel to a face
const parallelEpsilon = 1e-4

// Sphere is a world-space sphere
type Sphere struct {
	Center mgl64.Vec3
	Radius float64
}

// Cylinder is a world-space capped cylinder standing on Y, centred on
// Center
type Cylinder struct {
	Center       mgl64.Vec3
	RadiusTop    float64
	RadiusBottom float64
	Height       float64
}

// Tetrahedron is a world-space tetrahedron. When Vertices holds exactly four
// offsets they are used as-is, otherwise the solid is built from Center and
// Radius.
type Tetrahedron struct {
	Center   mgl64.Vec3
	Radius   float64
	Vertices []mgl64.Vec3
}

// Bounds returns the padded axis-aligned box of b
func Bounds(b core.Box) core.AABB3D {
	half := mgl64.Vec3{
		b.Size.Width/2 + Padding,
		b.Size.Height/2 + Padding,
		b.Size.Depth/2 + Padding,
	}
	return core.AABBFromCenter(b.Center, half)
}

// BoxVsBox reports whether two padded boxes overlap
func BoxVsBox(a, b core.Box) bool {
	return Bounds(a).Intersects(Bounds(b))
}

// BoxVsSphere clamps the sphere centre into the box and compares the
// distance to the radius
func BoxVsSphere(b core.Box, s Sphere) bool {
	closest := Bounds(b).ClampPoint(s.Center)
	return closest.Sub(s.Center).Len() < s.Radius
}

// BoxVsCylinder rejects on vertical separation first, then compares the
// horizontal distance from the box to the axis against the radius at the
// box's height
func BoxVsCylinder(b core.Box, c Cylinder) bool {
	if !(c.Height > 0) {
		return false
	}
	box := Bounds(b)
	bottom := c.Center.Y() - c.Height/2
	top := c.Center.Y() + c.Height/2
	if box.Max.Y() < bottom || box.Min.Y() > top {
		return false
	}

	closestX := mgl64.Clamp(c.Center.X(), box.Min.X(), box.Max.X())
	closestZ := mgl64.Clamp(c.Center.Z(), box.Min.Z(), box.Max.Z())
	horizontal := math.Hypot(closestX-c.Center.X(), closestZ-c.Center.Z())

	var radius float64
	switch {
	case box.Min.Y() > c.Center.Y():
		radius = c.RadiusTop
	case box.Max.Y() < c.Center.Y():
		radius = c.RadiusBottom
	default:
		t := (math.Max(box.Min.Y(), c.Center.Y()) - bottom) / c.Height
		radius = c.RadiusBottom + t*(c.RadiusTop-c.RadiusBottom)
	}
	return horizontal < radius
}

// TetrahedronVertices returns the four world-space corners of t: apex first,
// then the base triangle
func TetrahedronVertices(t Tetrahedron) [4]mgl64.Vec3 {
	if len(t.Vertices) == 4 {
		return [4]mgl64.Vec3{
			t.Center.Add(t.Vertices[0]),
			t.Center.Add(t.Vertices[1]),
			t.Center.Add(t.Vertices[2]),
			t.Center.Add(t.Vertices[3]),
		}
	}

	baseRadius := t.Radius * 0.75
	height := t.Radius * 1.5
	baseY := t.Center.Y() - height*0.3
	verts := [4]mgl64.Vec3{{t.Center.X(), t.Center.Y() + height*0.7, t.Center.Z()}}
	for i := 0; i < 3; i++ {
		angle := float64(i) * 2 * math.Pi / 3
		verts[i+1] = mgl64.Vec3{
			t.Center.X() + baseRadius*math.Cos(angle),
			baseY,
			t.Center.Z() + baseRadius*math.Sin(angle),
		}
	}
	return verts
}

// face is a triangle with its outward unit normal
type face struct {
	a, b, c mgl64.Vec3
	normal  mgl64.Vec3
}

// tetraFaces builds the four faces with normals pointing away from the
// opposite vertex, whatever the winding of the input
func tetraFaces(v [4]mgl64.Vec3) [4]face {
	idx := [4][4]int{{0, 1, 2, 3}, {0, 2, 3, 1}, {0, 3, 1, 2}, {1, 3, 2, 0}}
	var faces [4]face
	for i, f := range idx {
		a, b, c, opposite := v[f[0]], v[f[1]], v[f[2]], v[f[3]]
		n := b.Sub(a).Cross(c.Sub(a))
		if n.Dot(opposite.Sub(a)) > 0 {
			n = n.Mul(-1)
		}
		if l := n.Len(); l > 0 {
			n = n.Mul(1 / l)
		}
		faces[i] = face{a: a, b: b, c: c, normal: n}
	}
	return faces
}

// BoxVsTetrahedron runs a bounding-box reject, then tests the box corners
// for containment, then the box edges against the faces
func BoxVsTetrahedron(b core.Box, t Tetrahedron) bool {
	if len(t.Vertices) != 4 && !(t.Radius > 0) {
		return false
	}
	verts := TetrahedronVertices(t)

	box := Bounds(b)
	tetBounds := core.AABB3D{Min: verts[0], Max: verts[0]}
	for _, v := range verts[1:] {
		tetBounds.Min = mgl64.Vec3{math.Min(tetBounds.Min.X(), v.X()), math.Min(tetBounds.Min.Y(), v.Y()), math.Min(tetBounds.Min.Z(), v.Z())}
		tetBounds.Max = mgl64.Vec3{math.Max(tetBounds.Max.X(), v.X()), math.Max(tetBounds.Max.Y(), v.Y()), math.Max(tetBounds.Max.Z(), v.Z())}
	}
	if !box.Intersects(tetBounds) {
		return false
	}

	faces := tetraFaces(verts)
	corners := box.Corners()
	for _, p := range corners {
		if pointInTetrahedron(p, faces) {
			return true
		}
	}

	for _, e := range boxEdges {
		for _, f := range faces {
			if segmentHitsTriangle(corners[e[0]], corners[e[1]], f) {
				return true
			}
		}
	}
	return false
}

// boxEdges indexes the 12 edges of core.AABB3D.Corners
var boxEdges = [12][2]int{
	{0, 1}, {0, 2}, {0, 4},
	{1, 3}, {1, 5},
	{2, 3}, {2, 6},
	{3, 7},
	{4, 5}, {4, 6},
	{5, 7},
	{6, 7},
}

func pointInTetrahedron(p mgl64.Vec3, faces [4]face) bool {
	for _, f := range faces {
		if f.normal.Dot(p.Sub(f.a)) > 0 {
			return false
		}
	}
	return true
}

// segmentHitsTriangle intersects segment p→q with the plane of f, then
// checks the hit point's barycentric coordinates
func segmentHitsTriangle(p, q mgl64.Vec3, f face) bool {
	dir := q.Sub(p)
	length := dir.Len()
	if length == 0 {
		return false
	}
	dir = dir.Mul(1 / length)

	denom := f.normal.Dot(dir)
	if math.Abs(denom) < parallelEpsilon {
		return false
	}
	t := -f.normal.Dot(p.Sub(f.a)) / denom
	if t < 0 || t > length {
		return false
	}
	hit := p.Add(dir.Mul(t))

	v0 := f.b.Sub(f.a)
	v1 := f.c.Sub(f.a)
	v2 := hit.Sub(f.a)
	dot00 := v0.Dot(v0)
	dot01 := v0.Dot(v1)
	dot02 := v0.Dot(v2)
	dot11 := v1.Dot(v1)
	dot12 := v1.Dot(v2)

	det := dot00*dot11 - dot01*dot01
	if det == 0 {
		return false
	}
	inv := 1 / det
	u := (dot11*dot02 - dot01*dot12) * inv
	v := (dot00*dot12 - dot01*dot02) * inv
	return u >= 0 && v >= 0 && u+v <= 1
}

// CheckObstacleCollision dispatches on the obstacle's cached shape. A nil
// or unknown shape never collides.
func CheckObstacleCollision(entity core.Box, pos mgl64.Vec3, s shape.Shape) bool {
	switch sh := s.(type) {
	case shape.Box:
		return BoxVsBox(entity, core.Box{Center: pos, Size: sh.Size})
	case shape.Cylinder:
		return BoxVsCylinder(entity, Cylinder{
			Center:       pos,
			RadiusTop:    sh.RadiusTop,
			RadiusBottom: sh.RadiusBottom,
			Height:       sh.Height,
		})
	case shape.Tetrahedron:
		return BoxVsTetrahedron(entity, Tetrahedron{Center: pos, Radius: sh.Radius, Vertices: sh.Vertices})
	case shape.Sphere:
		return BoxVsSphere(entity, Sphere{Center: pos, Radius: sh.Radius})
	default:
		return false
	}
}
