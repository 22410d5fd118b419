package scheduler

import (
	"sync/atomic"
	"testing"
	"time"
)

type countingRefresher struct {
	n atomic.Int32
}

func (c *countingRefresher) Refresh() { c.n.Add(1) }

func TestDisabledSchedulerDoesNothing(t *testing.T) {
	r := &countingRefresher{}
	s := New(0, r, nil)
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop()

	time.Sleep(50 * time.Millisecond)
	if r.n.Load() != 0 {
		t.Fatalf("disabled scheduler refreshed %d times", r.n.Load())
	}
}

func TestSchedulerRefreshesPeriodically(t *testing.T) {
	r := &countingRefresher{}
	s := New(time.Second, r, nil)
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop()

	if r.n.Load() != 0 {
		t.Fatal("first refresh should wait for the interval")
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if r.n.Load() > 0 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("scheduler never refreshed")
}
