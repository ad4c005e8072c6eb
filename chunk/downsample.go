package chunk

import "github.com/feldspar/feldspar/sd8"

// DownsampleInto writes a half-resolution copy of child into the octant of
// parent identified by octant (bit0=+X, bit1=+Y, bit2=+Z), the same
// arrangement used to address a node's 8 children. Each of the 8 output
// voxels is the rescaled mean of the 2x2x2 block of SDF values it
// summarizes (see sd8.DownsampleMean), and the most frequent palette id
// among that same block, ties broken in favor of whichever id was
// encountered first while scanning the block in (x, y, z) order.
func DownsampleInto(parent *Chunk, octant int, child *Chunk) {
	ox := (octant & 1) * (Edge / 2)
	oy := (octant >> 1 & 1) * (Edge / 2)
	oz := (octant >> 2 & 1) * (Edge / 2)

	var sdfBlock [8]sd8.Sd8
	var paletteBlock [8]PaletteID

	for pz := 0; pz < Edge/2; pz++ {
		for py := 0; py < Edge/2; py++ {
			for px := 0; px < Edge/2; px++ {
				n := 0
				for dz := 0; dz < 2; dz++ {
					for dy := 0; dy < 2; dy++ {
						for dx := 0; dx < 2; dx++ {
							v, p := child.Voxel(2*px+dx, 2*py+dy, 2*pz+dz)
							sdfBlock[n] = v
							paletteBlock[n] = p
							n++
						}
					}
				}
				meanSDF := sd8.DownsampleMean(sdfBlock)
				modePalette := modeOf(paletteBlock[:])
				parent.SetVoxel(ox+px, oy+py, oz+pz, meanSDF, modePalette)
			}
		}
	}
}

// modeOf returns the most frequent value in values, breaking ties in favor
// of whichever value was seen first.
func modeOf(values []PaletteID) PaletteID {
	order := make([]PaletteID, 0, len(values))
	counts := make(map[PaletteID]int, len(values))
	for _, v := range values {
		if _, seen := counts[v]; !seen {
			order = append(order, v)
		}
		counts[v]++
	}
	best := order[0]
	bestCount := counts[best]
	for _, v := range order[1:] {
		if counts[v] > bestCount {
			best = v
			bestCount = counts[v]
		}
	}
	return best
}
