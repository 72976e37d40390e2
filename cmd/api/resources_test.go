package main

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestResources_ClosesLateAdditionsInReverseOrder(t *testing.T) {
	var order []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			order = append(order, name)
			return nil
		}
	}

	res := newResources(zerolog.Nop())
	func() {
		defer res.closeAll()
		res.add("mongodb", record("mongodb"))
		res.add("redis", record("redis"))
		// registered after the deferred close, like the kafka producer
		res.add("kafka", func(context.Context) error {
			order = append(order, "kafka")
			return errors.New("already closed")
		})
	}()

	want := []string{"kafka", "redis", "mongodb"}
	if len(order) != len(want) {
		t.Fatalf("closed %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("closed %v, want %v", order, want)
		}
	}

	res.closeAll()
	if len(order) != len(want) {
		t.Errorf("second closeAll must be a no-op, closed %v", order)
	}
}

func TestWorkers_StopWaitsForLoops(t *testing.T) {
	w := newWorkers()
	var finished atomic.Int32

	for i := 0; i < 3; i++ {
		w.run(func(ctx context.Context) {
			<-ctx.Done()
			time.Sleep(20 * time.Millisecond)
			finished.Add(1)
		})
	}

	w.stop()
	if got := finished.Load(); got != 3 {
		t.Errorf("stop returned with %d of 3 loops finished", got)
	}
}
