package chunk

import (
	"math"

	"github.com/feldspar/feldspar/geom"
)

// eps nudges the ray starting position past the entrance boundary so the
// first sampled voxel is inside the chunk rather than exactly on its face.
const eps = 1e-4

// VoxelHit is one step of a chunk-local ray traversal: the voxel coordinate
// and the ray parameter at which the ray entered it.
type VoxelHit struct {
	X, Y, Z int
	T       float32
}

// RayIntersections walks the voxels of c that ray crosses between tmin and
// tmax (both already clipped to the chunk's bounding box by the caller's
// slab test), in traversal order, via a 3D-DDA grid march. It invokes visit
// for every voxel entered and stops early if visit returns true.
func RayIntersections(c *Chunk, ray geom.Ray, tmin, tmax float32, visit func(VoxelHit) (stop bool)) {
	if tmax < tmin {
		return
	}
	t := tmin
	if t < 0 {
		t = 0
	}
	t += eps

	pos := ray.PositionAt(t)
	x, y, z := int(math.Floor(float64(pos.X))), int(math.Floor(float64(pos.Y))), int(math.Floor(float64(pos.Z)))

	stepX, tDeltaX, tMaxX := ddaAxis(ray.Start.X, ray.Velocity.X, x)
	stepY, tDeltaY, tMaxY := ddaAxis(ray.Start.Y, ray.Velocity.Y, y)
	stepZ, tDeltaZ, tMaxZ := ddaAxis(ray.Start.Z, ray.Velocity.Z, z)

	for t <= tmax {
		if x < 0 || x >= Edge || y < 0 || y >= Edge || z < 0 || z >= Edge {
			return
		}
		if visit(VoxelHit{X: x, Y: y, Z: z, T: t}) {
			return
		}
		switch {
		case tMaxX < tMaxY && tMaxX < tMaxZ:
			x += stepX
			t = tMaxX
			tMaxX += tDeltaX
		case tMaxY < tMaxZ:
			y += stepY
			t = tMaxY
			tMaxY += tDeltaY
		default:
			z += stepZ
			t = tMaxZ
			tMaxZ += tDeltaZ
		}
	}
}

// ddaAxis computes the DDA stepping parameters for one axis: the voxel step
// direction, the t distance to cross one full voxel, and the t distance to
// the first voxel boundary ahead of start along this axis.
func ddaAxis(start, velocity float32, voxel int) (step int, tDelta, tMax float32) {
	if velocity > 0 {
		step = 1
		tDelta = 1 / velocity
		boundary := float32(voxel + 1)
		tMax = (boundary - start) / velocity
	} else if velocity < 0 {
		step = -1
		tDelta = -1 / velocity
		boundary := float32(voxel)
		tMax = (boundary - start) / velocity
	} else {
		step = 0
		tDelta = float32(math.Inf(1))
		tMax = float32(math.Inf(1))
	}
	return step, tDelta, tMax
}
