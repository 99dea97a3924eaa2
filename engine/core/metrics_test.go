package core

import (
	"math"
	"testing"
)

func TestMetricsRollingAverageAndFPS(t *testing.T) {
	if err := MetricsInitialize(); err != nil {
		t.Fatal(err)
	}
	// 70 frames of 10ms followed by 30 frames of 20ms.
	for i := 0; i < 70; i++ {
		MetricsUpdate(0.010)
	}
	for i := 0; i < AVG_COUNT; i++ {
		MetricsUpdate(0.020)
	}
	fps, avg := MetricsFrame()
	if math.Abs(avg-20) > 1e-9 {
		t.Errorf("average frame time = %v ms, want 20", avg)
	}
	// 1300ms of frames: the first second closes on the 16th 20ms frame.
	if fps <= 0 {
		t.Errorf("fps = %v, want > 0 after more than one second of frames", fps)
	}
}
