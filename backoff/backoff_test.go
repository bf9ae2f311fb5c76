package backoff_test

import (
	"testing"
	"time"

	"github.com/xraph/throttle/backoff"
)

func TestConstant(t *testing.T) {
	c := backoff.NewConstant(250 * time.Millisecond)
	for _, attempt := range []int{1, 2, 10} {
		if got := c.Delay(attempt); got != 250*time.Millisecond {
			t.Errorf("Delay(%d) = %v, want 250ms", attempt, got)
		}
	}
}

func TestExponentialWithJitter_Bounds(t *testing.T) {
	e := backoff.NewExponentialWithJitter(100*time.Millisecond, time.Second)

	for attempt := 1; attempt <= 10; attempt++ {
		ceiling := 100 * time.Millisecond << (attempt - 1)
		if ceiling > time.Second {
			ceiling = time.Second
		}
		for range 50 {
			d := e.Delay(attempt)
			if d < 0 || d > ceiling {
				t.Fatalf("Delay(%d) = %v, want within [0, %v]", attempt, d, ceiling)
			}
		}
	}
}

func TestExponentialWithJitter_CapsAtMax(t *testing.T) {
	e := backoff.NewExponentialWithJitter(time.Second, 2*time.Second)

	// Far past the doubling horizon the ceiling is Max.
	for range 100 {
		if d := e.Delay(30); d > 2*time.Second {
			t.Fatalf("Delay(30) = %v, want <= 2s", d)
		}
	}
}

func TestDefaultStrategy(t *testing.T) {
	s := backoff.DefaultStrategy()
	if d := s.Delay(1); d < 0 || d > 100*time.Millisecond {
		t.Errorf("Delay(1) = %v, want within [0, 100ms]", d)
	}
}
