package utils

import (
	"math"
	"testing"
)

func TestRound(t *testing.T) {
	if got := Round(0.99447, 4); got != 0.9945 {
		t.Errorf("Round = %v", got)
	}
	if got := Round(-0.12344, 4); got != -0.1234 {
		t.Errorf("Round negative = %v", got)
	}
}

func TestAllFinite(t *testing.T) {
	if !AllFinite([]float64{1, -2, 0}) {
		t.Error("finite values reported as non-finite")
	}
	if AllFinite([]float64{1, math.NaN()}) {
		t.Error("NaN not detected")
	}
	if AllFinite([]float64{math.Inf(1)}) {
		t.Error("Inf not detected")
	}
}
