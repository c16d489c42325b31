package infra

import (
	"testing"
	"time"
)

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		retryCount int
		want       time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{10, 60 * time.Second},
		{100, 60 * time.Second},
		{-1, 1 * time.Second},
	}

	for _, tt := range tests {
		if got := CalculateBackoff(tt.retryCount); got != tt.want {
			t.Errorf("CalculateBackoff(%d) = %s, want %s", tt.retryCount, got, tt.want)
		}
	}
}

func TestSleep_Cancelled(t *testing.T) {
	done := make(chan struct{})
	close(done)

	start := time.Now()
	if Sleep(time.Minute, done) {
		t.Error("expected cancelled sleep to report false")
	}
	if time.Since(start) > time.Second {
		t.Error("cancelled sleep should return immediately")
	}
}

func TestSleep_Elapses(t *testing.T) {
	if !Sleep(time.Millisecond, make(chan struct{})) {
		t.Error("expected sleep to elapse")
	}
}
