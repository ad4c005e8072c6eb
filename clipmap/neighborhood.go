package clipmap

// Neighborhoods maps a 2x2x2 neighborhood to the neighborhoods of its
// minimum corner's children: for child octant i of that corner, member j of
// child i's neighborhood is child octant Neighborhoods[i][j] of the parent
// neighborhood member NeighborhoodsParents[i][j] (see
// constructChildNeighborhoods). These tables are exact constants, reproduced bit-for-bit from the
// original implementation; they are derived from the 8 cube corners and
// are cheaper to hardcode than to regenerate on every render search.
var Neighborhoods = [8][8]int{
	{0b000, 0b001, 0b010, 0b011, 0b100, 0b101, 0b110, 0b111},
	{0b001, 0b000, 0b011, 0b010, 0b101, 0b100, 0b111, 0b110},
	{0b010, 0b011, 0b000, 0b001, 0b110, 0b111, 0b100, 0b101},
	{0b011, 0b010, 0b001, 0b000, 0b111, 0b110, 0b101, 0b100},
	{0b100, 0b101, 0b110, 0b111, 0b000, 0b001, 0b010, 0b011},
	{0b101, 0b100, 0b111, 0b110, 0b001, 0b000, 0b011, 0b010},
	{0b110, 0b111, 0b100, 0b101, 0b010, 0b011, 0b000, 0b001},
	{0b111, 0b110, 0b101, 0b100, 0b011, 0b010, 0b001, 0b000},
}

// NeighborhoodsParents gives, for the same (child, member) indexing as
// Neighborhoods, which member of the parent neighborhood contains member j
// of child i's neighborhood. It is consulted for every member, not only
// when a node is missing.
var NeighborhoodsParents = [8][8]int{
	{0b000, 0b000, 0b000, 0b000, 0b000, 0b000, 0b000, 0b000},
	{0b000, 0b001, 0b000, 0b001, 0b000, 0b001, 0b000, 0b001},
	{0b000, 0b000, 0b010, 0b010, 0b000, 0b000, 0b010, 0b010},
	{0b000, 0b001, 0b010, 0b011, 0b000, 0b001, 0b010, 0b011},
	{0b000, 0b000, 0b000, 0b000, 0b100, 0b100, 0b100, 0b100},
	{0b000, 0b001, 0b000, 0b001, 0b100, 0b101, 0b100, 0b101},
	{0b000, 0b000, 0b010, 0b010, 0b100, 0b100, 0b110, 0b110},
	{0b000, 0b001, 0b010, 0b011, 0b100, 0b101, 0b110, 0b111},
}

// generateNeighborhoods derives the Neighborhoods/NeighborhoodsParents
// tables algebraically: stepping a child octant index one cube-diagonal in
// direction dir flips exactly the axis bits dir touches (XOR), while the
// octant of the parent's neighbor that matters is the dir-masked subset of
// the child's own bits (AND). Used only by the package test to confirm the
// hardcoded constants above are correct.
func generateNeighborhoods() (neighborhoods, parents [8][8]int) {
	for dir := 0; dir < 8; dir++ {
		for child := 0; child < 8; child++ {
			neighborhoods[dir][child] = child ^ dir
			parents[dir][child] = child & dir
		}
	}
	return neighborhoods, parents
}
