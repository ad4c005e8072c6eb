package clipmap

import "testing"

func TestNeighborhoodsMatchGeneratedTables(t *testing.T) {
	gotN, gotP := generateNeighborhoods()
	if gotN != Neighborhoods {
		t.Fatalf("Neighborhoods does not match the generated table:\ngot  %v\nwant %v", gotN, Neighborhoods)
	}
	if gotP != NeighborhoodsParents {
		t.Fatalf("NeighborhoodsParents does not match the generated table:\ngot  %v\nwant %v", gotP, NeighborhoodsParents)
	}
}

func TestNeighborhoodsDir0IsIdentity(t *testing.T) {
	for child := 0; child < 8; child++ {
		if Neighborhoods[0][child] != child {
			t.Errorf("Neighborhoods[0][%d] = %d, want %d (direction 0 is the node itself)", child, Neighborhoods[0][child], child)
		}
	}
}

func TestNeighborhoodsAreSelfInverse(t *testing.T) {
	for dir := 0; dir < 8; dir++ {
		for child := 0; child < 8; child++ {
			n := Neighborhoods[dir][child]
			if Neighborhoods[dir][n] != child {
				t.Errorf("Neighborhoods[%d] is not self-inverse at child %d", dir, child)
			}
		}
	}
}
