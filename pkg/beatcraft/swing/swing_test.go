package swing

import (
	"math"
	"testing"
)

func TestEstimate(t *testing.T) {
	tests := []struct {
		name  string
		beats []float64
		want  float64
	}{
		{"straight", []float64{0, 0.5, 1, 1.5, 2, 2.5}, 0.5},
		{"swung pairs", []float64{0, 0.67, 1, 1.67, 2}, 0.33 / (0.33 + 0.67)},
		{"three beats", []float64{0, 0.6, 1}, 0.5},
		{"empty", nil, 0.5},
		{"coincident beats", []float64{1, 1, 1, 1}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Estimate(tt.beats)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Expected %f, got %f", tt.want, got)
			}
		})
	}
}

func TestEstimateNearStraight(t *testing.T) {
	beats := make([]float64, 20)
	for i := range beats {
		// small deterministic jitter
		beats[i] = float64(i)*0.5 + 0.004*math.Sin(float64(i)*1.7)
	}
	if got := Estimate(beats); math.Abs(got-0.5) > 0.05 {
		t.Errorf("Expected ~0.5 for near-straight beats, got %f", got)
	}
}

func TestEstimateSwungIsNotClamped(t *testing.T) {
	// 0.67/0.33 alternation measured from the long interval first.
	got := Estimate([]float64{0, 0.67, 1, 1.67, 2})
	if got >= Straight {
		t.Errorf("Expected raw ratio below 0.5, got %f", got)
	}
	if c := Clamp(got); c != Straight {
		t.Errorf("Expected clamp to 0.5, got %f", c)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.1, 0.5},
		{0.5, 0.5},
		{0.6, 0.6},
		{0.75, 0.75},
		{0.9, 0.75},
		{math.NaN(), 0.5},
		{math.Inf(1), 0.75},
	}
	for _, tt := range tests {
		if got := Clamp(tt.in); got != tt.want {
			t.Errorf("Clamp(%f): expected %f, got %f", tt.in, tt.want, got)
		}
	}
}
