package sd8

import "testing"

func TestFromFloatSaturates(t *testing.T) {
	cases := []struct {
		in   float32
		want Sd8
	}{
		{0, 0},
		{1.0, Max},
		{-1.0, Min},
		{2.0, Max},
		{-2.0, Min},
	}
	for _, c := range cases {
		if got := FromFloat(c.in); got != c.want {
			t.Errorf("FromFloat(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for v := Min; v < Max; v++ {
		f := v.ToFloat()
		if got := FromFloat(f); got != v {
			t.Errorf("round trip of %v: got %v via %v", v, got, f)
		}
	}
}

func TestMeanEmptyIsAmbient(t *testing.T) {
	if got := Mean(nil); got != Ambient {
		t.Errorf("Mean(nil) = %v, want Ambient", got)
	}
}

func TestMeanRounds(t *testing.T) {
	got := Mean([]Sd8{1, 2})
	if got != 2 {
		t.Errorf("Mean([1,2]) = %v, want 2 (round half away from zero via math.Round)", got)
	}
}
