// Package geom holds the small coordinate and intersection primitives shared
// by the chunk, octree, and clipmap packages: integer voxel coordinates,
// axis-aligned extents, spheres, and rays.
package geom

import "math"

// IVec3 is an integer 3D coordinate, used for chunk and node addressing.
type IVec3 struct {
	X, Y, Z int32
}

func NewIVec3(x, y, z int32) IVec3 { return IVec3{x, y, z} }

func (v IVec3) Add(o IVec3) IVec3 { return IVec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v IVec3) Sub(o IVec3) IVec3 { return IVec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Shl returns v with each component left-shifted by n (used to move a node
// coordinate down the tree to its lowest-level equivalent).
func (v IVec3) Shl(n uint8) IVec3 {
	return IVec3{v.X << n, v.Y << n, v.Z << n}
}

// Shr returns v with each component right-shifted by n (arithmetic).
func (v IVec3) Shr(n uint8) IVec3 {
	return IVec3{v.X >> n, v.Y >> n, v.Z >> n}
}

func (v IVec3) MaxElement() int32 {
	m := v.X
	if v.Y > m {
		m = v.Y
	}
	if v.Z > m {
		m = v.Z
	}
	return m
}

// Vec3 is a floating-point 3D vector, used for sphere centers and ray math.
type Vec3 struct {
	X, Y, Z float32
}

func (v Vec3) Add(o Vec3) Vec3    { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3    { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float32) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

func (v Vec3) Distance(o Vec3) float32 {
	d := v.Sub(o)
	return float32(math.Sqrt(float64(d.X*d.X + d.Y*d.Y + d.Z*d.Z)))
}

func (v IVec3) ToVec3() Vec3 { return Vec3{float32(v.X), float32(v.Y), float32(v.Z)} }

// Extent is an axis-aligned integer box: Min is inclusive, Shape is the
// number of units along each axis.
type Extent struct {
	Min, Shape IVec3
}

// LeastUpperBound returns the exclusive upper corner, Min+Shape.
func (e Extent) LeastUpperBound() IVec3 { return e.Min.Add(e.Shape) }

// Center returns the extent's floating-point centroid.
func (e Extent) Center() Vec3 {
	lub := e.LeastUpperBound()
	return Vec3{
		X: (float32(e.Min.X) + float32(lub.X)) / 2,
		Y: (float32(e.Min.Y) + float32(lub.Y)) / 2,
		Z: (float32(e.Min.Z) + float32(lub.Z)) / 2,
	}
}

// AABB is a floating-point axis-aligned box used for ray casting.
type AABB struct {
	Min, Max Vec3
}

func (e Extent) ToAABB() AABB {
	lub := e.LeastUpperBound()
	return AABB{Min: e.Min.ToVec3(), Max: lub.ToVec3()}
}

// Sphere is a bounding sphere used for clipmap visibility and LOD tests.
type Sphere struct {
	Center Vec3
	Radius float32
}

// Contains reports whether other lies entirely within s.
func (s Sphere) Contains(other Sphere) bool {
	return s.Center.Distance(other.Center)+other.Radius < s.Radius
}

// Intersects reports whether s and other overlap.
func (s Sphere) Intersects(other Sphere) bool {
	return s.Center.Distance(other.Center)-other.Radius < s.Radius
}

// IntersectsAABB reports whether s overlaps the axis-aligned box b.
func (s Sphere) IntersectsAABB(b AABB) bool {
	closest := Vec3{
		X: clamp(s.Center.X, b.Min.X, b.Max.X),
		Y: clamp(s.Center.Y, b.Min.Y, b.Max.Y),
		Z: clamp(s.Center.Z, b.Min.Z, b.Max.Z),
	}
	return s.Center.Distance(closest) < s.Radius
}

// ClosestPointDistance returns the distance from s.Center to the nearest point of
// b, or 0 if s.Center is inside b.
func (s Sphere) ClosestPointDistance(b AABB) float32 {
	closest := Vec3{
		X: clamp(s.Center.X, b.Min.X, b.Max.X),
		Y: clamp(s.Center.Y, b.Min.Y, b.Max.Y),
		Z: clamp(s.Center.Z, b.Min.Z, b.Max.Z),
	}
	return s.Center.Distance(closest)
}

func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Ray is a parameterized line, start + t*velocity, used for voxel raycasts.
type Ray struct {
	Start           Vec3
	Velocity        Vec3
	InverseVelocity Vec3
}

func NewRay(start, velocity Vec3) Ray {
	return Ray{
		Start:    start,
		Velocity: velocity,
		InverseVelocity: Vec3{
			X: 1.0 / velocity.X,
			Y: 1.0 / velocity.Y,
			Z: 1.0 / velocity.Z,
		},
	}
}

func (r Ray) PositionAt(t float32) Vec3 {
	return r.Start.Add(r.Velocity.Scale(t))
}

// CastAtAABB returns the entrance and exit times [tmin, tmax] where r
// crosses b, or ok=false if it misses. Branchless slab method; does not
// attempt to handle NaNs specially.
func (r Ray) CastAtAABB(b AABB) (tmin, tmax float32, ok bool) {
	t1x, t2x := (b.Min.X-r.Start.X)*r.InverseVelocity.X, (b.Max.X-r.Start.X)*r.InverseVelocity.X
	t1y, t2y := (b.Min.Y-r.Start.Y)*r.InverseVelocity.Y, (b.Max.Y-r.Start.Y)*r.InverseVelocity.Y
	t1z, t2z := (b.Min.Z-r.Start.Z)*r.InverseVelocity.Z, (b.Max.Z-r.Start.Z)*r.InverseVelocity.Z

	tmin = max3(min2(t1x, t2x), min2(t1y, t2y), min2(t1z, t2z))
	tmax = min3(max2(t1x, t2x), max2(t1y, t2y), max2(t1z, t2z))

	if tmin < 0 {
		ok = tmax >= 0
	} else {
		ok = tmax >= tmin
	}
	return tmin, tmax, ok
}

func min2(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max2(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func min3(a, b, c float32) float32 { return min2(min2(a, b), c) }
func max3(a, b, c float32) float32 { return max2(max2(a, b), c) }
