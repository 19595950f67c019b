package inbound

import (
	"sync"
	"testing"
)

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue[string](4)

	for _, e := range []string{"e1", "e2", "e3"} {
		if !q.Enqueue(e) {
			t.Fatalf("Enqueue(%s) returned false", e)
		}
	}

	var got []string
	n := q.DrainAll(func(e string) {
		got = append(got, e)
	})

	if n != 3 {
		t.Errorf("DrainAll() = %d, want 3", n)
	}
	want := []string{"e1", "e2", "e3"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	// Each entry is consumed exactly once.
	if n := q.DrainAll(func(string) { t.Error("entry delivered twice") }); n != 0 {
		t.Errorf("second DrainAll() = %d, want 0", n)
	}
}

func TestQueue_DrainOne(t *testing.T) {
	q := NewQueue[int](10)

	if _, ok := q.DrainOne(); ok {
		t.Error("DrainOne on empty queue returned true")
	}

	q.Enqueue(1)
	q.Enqueue(2)

	v, ok := q.DrainOne()
	if !ok || v != 1 {
		t.Errorf("DrainOne() = %d, %v; want 1, true", v, ok)
	}
	if q.Len() != 1 {
		t.Errorf("Len() = %d, want 1", q.Len())
	}
	v, ok = q.DrainOne()
	if !ok || v != 2 {
		t.Errorf("DrainOne() = %d, %v; want 2, true", v, ok)
	}
}

func TestQueue_DrainAllDefersEntriesEnqueuedDuringDrain(t *testing.T) {
	q := NewQueue[int](10)
	q.Enqueue(1)
	q.Enqueue(2)

	var handled []int
	n := q.DrainAll(func(v int) {
		handled = append(handled, v)
		q.Enqueue(v * 10)
	})

	if n != 2 {
		t.Errorf("DrainAll() = %d, want 2", n)
	}
	if len(handled) != 2 || handled[0] != 1 || handled[1] != 2 {
		t.Errorf("handled = %v, want [1 2]", handled)
	}
	if q.Len() != 2 {
		t.Errorf("Len() = %d, want 2 deferred entries", q.Len())
	}

	var next []int
	q.DrainAll(func(v int) { next = append(next, v) })
	if len(next) != 2 || next[0] != 10 || next[1] != 20 {
		t.Errorf("next tick = %v, want [10 20]", next)
	}
}

func TestQueue_GrowPreservesOrder(t *testing.T) {
	q := NewQueue[int](4)

	// Interleave so the ring wraps before it grows.
	next := 0
	expect := 0
	for round := 0; round < 20; round++ {
		for i := 0; i < 5; i++ {
			q.Enqueue(next)
			next++
		}
		for i := 0; i < 3; i++ {
			v, ok := q.DrainOne()
			if !ok {
				t.Fatal("DrainOne returned false")
			}
			if v != expect {
				t.Fatalf("DrainOne() = %d, want %d", v, expect)
			}
			expect++
		}
	}

	for _, v := range q.DrainTo(0) {
		if v != expect {
			t.Fatalf("DrainTo value = %d, want %d", v, expect)
		}
		expect++
	}
	if expect != next {
		t.Errorf("drained %d entries, want %d", expect, next)
	}

	stats := q.Stats()
	if stats.ResizeCount < 1 {
		t.Errorf("ResizeCount = %d, expected growth", stats.ResizeCount)
	}
	if stats.TotalEnqueued != int64(next) || stats.TotalDrained != int64(next) {
		t.Errorf("stats = %+v, want %d enqueued and drained", stats, next)
	}
}

func TestQueue_DrainToLimit(t *testing.T) {
	q := NewQueue[int](10)
	for i := 0; i < 5; i++ {
		q.Enqueue(i)
	}

	got := q.DrainTo(2)
	if len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("DrainTo(2) = %v, want [0 1]", got)
	}
	if q.Len() != 3 {
		t.Errorf("Len() = %d, want 3", q.Len())
	}
}

func TestQueue_Close(t *testing.T) {
	q := NewQueue[int](10)
	q.Enqueue(1)
	q.Close()

	if q.Enqueue(2) {
		t.Error("Enqueue should return false after Close")
	}

	v, ok := q.DrainOne()
	if !ok || v != 1 {
		t.Errorf("DrainOne() after Close = %d, %v; want 1, true", v, ok)
	}
}

func TestQueue_ConcurrentProducersSingleConsumer(t *testing.T) {
	q := NewQueue[int](8)
	const producers = 4
	const perProducer = 500

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(p*perProducer + i)
			}
		}(p)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	// Per-producer order must survive.
	last := make(map[int]int)
	seen := 0
	consume := func(v int) {
		p := v / perProducer
		if prev, ok := last[p]; ok && v <= prev {
			t.Errorf("producer %d out of order: %d after %d", p, v, prev)
		}
		last[p] = v
		seen++
	}

	for {
		select {
		case <-done:
			q.DrainAll(consume)
			if seen != producers*perProducer {
				t.Errorf("consumed %d entries, want %d", seen, producers*perProducer)
			}
			return
		default:
			q.DrainAll(consume)
		}
	}
}
