package retry

import (
	"testing"
	"time"
)

func TestBackoffDoubles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n    int
		want time.Duration
	}{
		{n: 1, want: 120 * time.Second},
		{n: 2, want: 240 * time.Second},
		{n: 3, want: 480 * time.Second},
		{n: 4, want: 960 * time.Second},
		{n: 5, want: 1920 * time.Second},
	}

	for _, tt := range tests {
		if got := Backoff(tt.n); got != tt.want {
			t.Fatalf("Backoff(%d) = %v, want %v", tt.n, got, tt.want)
		}
		// 60 * 2^n seconds, stated directly.
		if want := time.Duration(60) * time.Second << tt.n; want != tt.want {
			t.Fatalf("test table inconsistent for n=%d", tt.n)
		}
	}
}

func TestBackoffClampsBelowOne(t *testing.T) {
	t.Parallel()

	if got := Backoff(0); got != Backoff(1) {
		t.Fatalf("Backoff(0) = %v, want %v", got, Backoff(1))
	}
	if got := Backoff(-3); got != Backoff(1) {
		t.Fatalf("Backoff(-3) = %v, want %v", got, Backoff(1))
	}
}

func TestNext(t *testing.T) {
	t.Parallel()

	delay, stop := Next(1, 5)
	if stop {
		t.Fatal("Next(1, 5) should allow a retry")
	}
	if delay != Backoff(1) {
		t.Fatalf("Next(1, 5) delay = %v, want %v", delay, Backoff(1))
	}

	delay, stop = Next(4, 5)
	if stop {
		t.Fatal("Next(4, 5) should allow a retry")
	}
	if delay != Backoff(4) {
		t.Fatalf("Next(4, 5) delay = %v, want %v", delay, Backoff(4))
	}

	if _, stop = Next(5, 5); !stop {
		t.Fatal("Next(5, 5) should terminate")
	}
	if _, stop = Next(7, 5); !stop {
		t.Fatal("Next(7, 5) should terminate")
	}
}
