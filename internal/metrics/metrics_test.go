package metrics

import (
	"sync"
	"testing"
)

func TestCounters_Snapshot(t *testing.T) {
	c := New()

	c.ConnectionOpened()
	c.ConnectionOpened()
	c.ConnectionOpened()
	c.ConnectionClosed()
	c.Broadcast(2, 1, 0)
	c.Broadcast(1, 0, 1)
	c.TransportError()

	s := c.Snapshot()
	if s.ConnectionsOpened != 3 {
		t.Errorf("ConnectionsOpened = %d, want 3", s.ConnectionsOpened)
	}
	if s.ConnectionsActive != 2 {
		t.Errorf("ConnectionsActive = %d, want 2", s.ConnectionsActive)
	}
	if s.FramesReceived != 2 {
		t.Errorf("FramesReceived = %d, want 2", s.FramesReceived)
	}
	if s.Deliveries != 3 {
		t.Errorf("Deliveries = %d, want 3", s.Deliveries)
	}
	if s.DeliveryFailures != 1 {
		t.Errorf("DeliveryFailures = %d, want 1", s.DeliveryFailures)
	}
	if s.SkippedReceivers != 1 {
		t.Errorf("SkippedReceivers = %d, want 1", s.SkippedReceivers)
	}
	if s.TransportErrors != 1 {
		t.Errorf("TransportErrors = %d, want 1", s.TransportErrors)
	}
}

func TestCounters_NilIsNoop(t *testing.T) {
	var c *Counters
	c.ConnectionOpened()
	c.Broadcast(1, 1, 1)
	if s := c.Snapshot(); s != (Snapshot{}) {
		t.Errorf("nil Snapshot() = %+v, want zero", s)
	}
}

func TestCounters_Concurrent(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Broadcast(1, 0, 0)
			}
		}()
	}
	wg.Wait()

	if got := c.Snapshot().Deliveries; got != 1000 {
		t.Errorf("Deliveries = %d, want 1000", got)
	}
}
