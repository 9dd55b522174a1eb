package eventloop_test

import (
	"context"
	"testing"
	"time"

	"github.com/kengeo/libra/eventloop"
)

type testEvent int

func TestHandler(t *testing.T) {
	el := eventloop.New(10)
	c := make(chan any)
	el.RegisterHandler(testEvent(0), func(event any) {
		c <- event
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go el.Run(ctx)

	want := testEvent(42)
	el.AddEvent(want)

	var event any
	select {
	case <-ctx.Done():
		t.Fatal("timed out")
	case event = <-c:
	}

	e, ok := event.(testEvent)
	if !ok {
		t.Fatalf("wrong type for event: got: %T, want: %T", event, want)
	}

	if e != want {
		t.Fatalf("wrong value for event: got: %v, want: %v", e, want)
	}
}

func TestPrioritize(t *testing.T) {
	type eventData struct {
		event    any
		priority bool
	}

	el := eventloop.New(10)
	c := make(chan eventData)
	el.RegisterHandler(testEvent(0), func(event any) {
		c <- eventData{event: event, priority: false}
	})
	el.RegisterHandler(testEvent(0), func(event any) {
		c <- eventData{event: event, priority: true}
	}, eventloop.Prioritize())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go el.Run(ctx)

	want := testEvent(42)
	el.AddEvent(want)

	for i := 0; i < 2; i++ {
		var data eventData
		select {
		case <-ctx.Done():
			t.Fatal("timed out")
		case data = <-c:
		}

		if i == 0 && !data.priority {
			t.Fatalf("expected prioritized handler to run first")
		}

		if i == 1 && data.priority {
			t.Fatalf("expected standard handler to run second")
		}

		e, ok := data.event.(testEvent)
		if !ok {
			t.Fatalf("wrong type for event: got: %T, want: %T", data, want)
		}

		if e != want {
			t.Fatalf("wrong value for event: got: %v, want: %v", e, want)
		}
	}
}

func TestUnregisterHandler(t *testing.T) {
	el := eventloop.New(10)
	count := 0
	id := el.RegisterHandler(testEvent(0), func(event any) {
		count++
	})

	ctx := context.Background()
	el.AddEvent(testEvent(1))
	for el.Tick(ctx) {
	}
	if count != 1 {
		t.Fatalf("handler ran %d times, expected 1", count)
	}

	el.UnregisterHandler(testEvent(0), id)
	el.AddEvent(testEvent(1))
	for el.Tick(ctx) {
	}
	if count != 1 {
		t.Fatal("handler ran after it was unregistered")
	}
}

func TestRunInAddEvent(t *testing.T) {
	el := eventloop.New(10)
	c := make(chan testEvent, 1)
	el.RegisterHandler(testEvent(0), func(event any) {
		c <- event.(testEvent)
	}, eventloop.UnsafeRunInAddEvent())

	// the handler must run during AddEvent, before any Tick
	el.AddEvent(testEvent(42))

	select {
	case event := <-c:
		if event != 42 {
			t.Fatalf("wrong value for event: got: %v, want: %v", event, 42)
		}
	default:
		t.Fatal("handler did not run in AddEvent")
	}
}

func TestTicker(t *testing.T) {
	el := eventloop.New(10)
	count := 0
	el.RegisterHandler(testEvent(0), func(event any) {
		count += int(event.(testEvent))
	})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go el.Run(ctx)

	rate := 100 * time.Millisecond
	id := el.AddTicker(rate, func(_ time.Time) (_ any) { return testEvent(1) })

	// sleep a little less than 1 second to ensure we get the expected amount of ticks
	time.Sleep(time.Second - rate/4)
	if expected := int(time.Second / rate); count != expected {
		t.Fatalf("ticker fired %d times in 1 second, expected %d", count, expected)
	}

	// check that the ticker stops correctly
	old := count
	el.RemoveTicker(id)

	// sleep another tick to ensure the ticker has stopped
	time.Sleep(rate)

	if old != count {
		t.Fatal("ticker was not stopped")
	}
}

func TestDelayedEvent(t *testing.T) {
	el := eventloop.New(10)
	c := make(chan testEvent)

	el.RegisterHandler(testEvent(0), func(event any) {
		c <- event.(testEvent)
	})

	// delay the "2" and "3" events until after the first instance of testEvent
	el.DelayUntil(testEvent(0), testEvent(2))
	el.DelayUntil(testEvent(0), testEvent(3))
	// then send the "1" event
	el.AddEvent(testEvent(1))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go el.Run(ctx)

	for i := 1; i <= 3; i++ {
		select {
		case event := <-c:
			if testEvent(i) != event {
				t.Errorf("events arrived in the wrong order: want: %d, got: %d", i, event)
			}
		case <-ctx.Done():
			t.Fatalf("timed out")
		}
	}
}
