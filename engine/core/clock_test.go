package core

import (
	"testing"
	"time"
)

func TestClockElapsedIsMonotonic(t *testing.T) {
	base := time.Unix(1000, 0)
	current := base
	c := NewClockWithSource(func() time.Time { return current })

	c.Update()
	if c.Elapsed() != 0 {
		t.Fatalf("not started clock elapsed = %v, want 0", c.Elapsed())
	}

	c.Start()
	var last time.Duration
	for i := 1; i <= 5; i++ {
		current = base.Add(time.Duration(i) * 16 * time.Millisecond)
		c.Update()
		if c.Elapsed() <= last {
			t.Fatalf("step %d: elapsed %v did not increase past %v", i, c.Elapsed(), last)
		}
		last = c.Elapsed()
	}
	if want := 80 * time.Millisecond; last != want {
		t.Errorf("elapsed = %v, want %v", last, want)
	}

	c.Stop()
	current = current.Add(time.Second)
	c.Update()
	if c.Elapsed() != last {
		t.Errorf("stopped clock changed elapsed to %v", c.Elapsed())
	}
}
