package router

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestGrowableBuffer_BasicSendReceive(t *testing.T) {
	buf := NewGrowableBuffer[int](10, 0)

	for i := 0; i < 5; i++ {
		if !buf.Send(i) {
			t.Fatalf("Send(%d) returned false", i)
		}
	}

	if buf.Len() != 5 {
		t.Errorf("Len() = %d, want 5", buf.Len())
	}

	for i := 0; i < 5; i++ {
		val, ok := buf.TryReceive()
		if !ok {
			t.Fatalf("TryReceive() returned false for item %d", i)
		}
		if val != i {
			t.Errorf("received %d, want %d", val, i)
		}
	}

	if _, ok := buf.TryReceive(); ok {
		t.Error("TryReceive() on empty buffer returned true")
	}
}

func TestGrowableBuffer_GrowAt70Percent(t *testing.T) {
	buf := NewGrowableBuffer[int](10, 0)

	// 7 items = 70% of 10
	for i := 0; i < 7; i++ {
		buf.Send(i)
	}

	stats := buf.Stats()
	if stats.Capacity != 20 {
		t.Errorf("Capacity = %d, want 20", stats.Capacity)
	}
	if stats.ResizeCount != 1 {
		t.Errorf("ResizeCount = %d, want 1", stats.ResizeCount)
	}

	for i := 0; i < 7; i++ {
		if val, _ := buf.TryReceive(); val != i {
			t.Errorf("received %d, want %d", val, i)
		}
	}
}

func TestGrowableBuffer_MultipleGrows(t *testing.T) {
	buf := NewGrowableBuffer[int](4, 0)

	for i := 0; i < 100; i++ {
		if !buf.Send(i) {
			t.Fatalf("Send(%d) returned false", i)
		}
	}

	stats := buf.Stats()
	if stats.Count != 100 {
		t.Errorf("Count = %d, want 100", stats.Count)
	}
	if stats.ResizeCount < 3 {
		t.Errorf("ResizeCount = %d, expected at least 3 resizes", stats.ResizeCount)
	}

	for i := 0; i < 100; i++ {
		if val, ok := buf.TryReceive(); !ok || val != i {
			t.Fatalf("TryReceive() = %d, %v, want %d, true", val, ok, i)
		}
	}
}

func TestGrowableBuffer_BoundedDropsOldest(t *testing.T) {
	buf := NewGrowableBuffer[int](2, 4)

	for i := 0; i < 10; i++ {
		if !buf.Send(i) {
			t.Fatalf("Send(%d) returned false", i)
		}
	}

	stats := buf.Stats()
	if stats.Capacity != 4 {
		t.Errorf("Capacity = %d, want 4", stats.Capacity)
	}
	if stats.Count != 4 {
		t.Errorf("Count = %d, want 4", stats.Count)
	}
	if stats.Dropped != 6 {
		t.Errorf("Dropped = %d, want 6", stats.Dropped)
	}

	got := buf.DrainTo(0)
	want := []int{6, 7, 8, 9}
	if len(got) != len(want) {
		t.Fatalf("DrainTo = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("item %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestGrowableBuffer_BlockingReceive(t *testing.T) {
	buf := NewGrowableBuffer[int](10, 0)

	received := make(chan int, 1)
	go func() {
		if val, ok := buf.Receive(context.Background()); ok {
			received <- val
		}
	}()

	// Give receiver time to start waiting
	time.Sleep(10 * time.Millisecond)
	buf.Send(42)

	select {
	case val := <-received:
		if val != 42 {
			t.Errorf("received %d, want 42", val)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for blocked receive")
	}
}

func TestGrowableBuffer_ReceiveContextCancel(t *testing.T) {
	buf := NewGrowableBuffer[int](10, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, ok := buf.Receive(ctx); ok {
		t.Error("Receive() on empty buffer returned true")
	}
}

func TestGrowableBuffer_Close(t *testing.T) {
	buf := NewGrowableBuffer[int](10, 0)

	buf.Send(1)
	buf.Send(2)
	buf.Close()

	if buf.Send(3) {
		t.Error("Send after Close returned true")
	}

	// Remaining items are still delivered.
	for _, want := range []int{1, 2} {
		val, ok := buf.Receive(context.Background())
		if !ok || val != want {
			t.Errorf("Receive() = %d, %v, want %d, true", val, ok, want)
		}
	}

	if _, ok := buf.Receive(context.Background()); ok {
		t.Error("Receive() on closed empty buffer returned true")
	}
}

func TestGrowableBuffer_CloseUnblocksReceive(t *testing.T) {
	buf := NewGrowableBuffer[int](10, 0)

	done := make(chan bool, 1)
	go func() {
		_, ok := buf.Receive(context.Background())
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	buf.Close()

	select {
	case ok := <-done:
		if ok {
			t.Error("Receive() returned true after Close")
		}
	case <-time.After(time.Second):
		t.Fatal("Close did not unblock Receive")
	}
}

func TestGrowableBuffer_Ready(t *testing.T) {
	buf := NewGrowableBuffer[int](10, 0)

	select {
	case <-buf.Ready():
		t.Fatal("Ready() signalled on empty buffer")
	default:
	}

	buf.Send(1)
	select {
	case <-buf.Ready():
	default:
		t.Fatal("Ready() not signalled after Send")
	}

	buf.TryReceive()
	select {
	case <-buf.Ready():
		t.Fatal("Ready() signalled after buffer drained")
	default:
	}
}

func TestGrowableBuffer_DrainTo(t *testing.T) {
	buf := NewGrowableBuffer[int](10, 0)

	for i := 0; i < 8; i++ {
		buf.Send(i)
	}

	first := buf.DrainTo(5)
	if len(first) != 5 {
		t.Fatalf("len(DrainTo(5)) = %d, want 5", len(first))
	}
	for i, v := range first {
		if v != i {
			t.Errorf("first[%d] = %d, want %d", i, v, i)
		}
	}

	rest := buf.DrainTo(0)
	if len(rest) != 3 {
		t.Fatalf("len(DrainTo(0)) = %d, want 3", len(rest))
	}
	if rest[0] != 5 {
		t.Errorf("rest[0] = %d, want 5", rest[0])
	}

	if got := buf.DrainTo(0); got != nil {
		t.Errorf("DrainTo on empty buffer = %v, want nil", got)
	}
}

func TestGrowableBuffer_ConcurrentSendReceive(t *testing.T) {
	buf := NewGrowableBuffer[int](4, 0)

	const producers = 4
	const perProducer = 250

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				buf.Send(i)
			}
		}()
	}

	total := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, ok := buf.Receive(context.Background()); !ok {
				return
			}
			total++
		}
	}()

	wg.Wait()
	buf.Close()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not finish")
	}

	if total != producers*perProducer {
		t.Errorf("received %d items, want %d", total, producers*perProducer)
	}
}

func TestGrowableBuffer_WrapAround(t *testing.T) {
	buf := NewGrowableBuffer[int](10, 0)

	// Move head forward so later sends wrap.
	for i := 0; i < 5; i++ {
		buf.Send(i)
	}
	for i := 0; i < 5; i++ {
		buf.TryReceive()
	}

	for i := 0; i < 6; i++ {
		buf.Send(100 + i)
	}

	for i := 0; i < 6; i++ {
		if val, ok := buf.TryReceive(); !ok || val != 100+i {
			t.Errorf("TryReceive() = %d, %v, want %d, true", val, ok, 100+i)
		}
	}
}

func TestGrowableBuffer_Stats(t *testing.T) {
	buf := NewGrowableBuffer[int](10, 0)

	for i := 0; i < 5; i++ {
		buf.Send(i)
	}
	buf.TryReceive()
	buf.TryReceive()

	stats := buf.Stats()
	if stats.Count != 3 {
		t.Errorf("Count = %d, want 3", stats.Count)
	}
	if stats.TotalReceived != 5 {
		t.Errorf("TotalReceived = %d, want 5", stats.TotalReceived)
	}
	if stats.TotalSent != 2 {
		t.Errorf("TotalSent = %d, want 2", stats.TotalSent)
	}
}

func TestNewGrowableBuffer_MinCapacity(t *testing.T) {
	buf := NewGrowableBuffer[int](0, 0)
	if buf.Cap() != 1 {
		t.Errorf("Cap() = %d, want 1", buf.Cap())
	}
	if !buf.Send(1) {
		t.Error("Send returned false")
	}
}
