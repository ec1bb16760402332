package usecase

import "testing"

func TestConfidenceScoreBounds(t *testing.T) {
	n := NewConfidenceNormalizer(2.0)

	cases := []struct {
		name     string
		distance float64
		want     float64
	}{
		{"zero distance", 0, 1.0},
		{"max distance", 2.0, 0.0},
		{"mid distance", 1.0, 0.5},
		{"scenario distance", 0.1, 0.95},
		{"beyond max clamps", 3.5, 0.0},
		{"rounded to two decimals", 0.333, 0.83},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := tc.distance
			if got := n.Score(&d); got != tc.want {
				t.Fatalf("Score(%v) = %v, want %v", tc.distance, got, tc.want)
			}
		})
	}
}

func TestConfidenceScoreNilDistance(t *testing.T) {
	n := NewConfidenceNormalizer(0)
	if got := n.Score(nil); got != 0 {
		t.Fatalf("Score(nil) = %v, want 0", got)
	}
}

func TestConfidenceScoreMonotone(t *testing.T) {
	n := NewConfidenceNormalizer(2.0)
	prev := 1.1
	for d := 0.0; d <= 2.0; d += 0.05 {
		dist := d
		got := n.Score(&dist)
		if got > prev {
			t.Fatalf("confidence increased at d=%v: %v > %v", d, got, prev)
		}
		prev = got
	}
}

func TestConfidenceScoreIdempotent(t *testing.T) {
	n := NewConfidenceNormalizer(2.0)
	d := 0.7
	first := n.Score(&d)
	for i := 0; i < 3; i++ {
		if got := n.Score(&d); got != first {
			t.Fatalf("Score not stable: %v != %v", got, first)
		}
	}
}
