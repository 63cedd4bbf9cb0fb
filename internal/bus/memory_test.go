package bus

import (
	"sync"
	"testing"
)

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	b := NewMemoryBus()

	var got1, got2 []byte
	if err := b.Subscribe(TopicMessage, func(data []byte) { got1 = data }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := b.Subscribe(TopicMessage, func(data []byte) { got2 = data }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := b.Publish(TopicMessage, []byte("hello")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if string(got1) != "hello" {
		t.Errorf("subscriber 1: expected %q, got %q", "hello", got1)
	}
	if string(got2) != "hello" {
		t.Errorf("subscriber 2: expected %q, got %q", "hello", got2)
	}
}

func TestSelfDelivery(t *testing.T) {
	b := NewMemoryBus()

	// The publisher's own subscription must receive the event.
	received := false
	_ = b.Subscribe(TopicRoster, func(data []byte) { received = true })

	if err := b.Publish(TopicRoster, []byte("[]")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !received {
		t.Fatal("publisher's own subscription did not receive the event")
	}
}

func TestTopicsAreIsolated(t *testing.T) {
	b := NewMemoryBus()

	var messages, systems int
	_ = b.Subscribe(TopicMessage, func(data []byte) { messages++ })
	_ = b.Subscribe(TopicSystem, func(data []byte) { systems++ })

	_ = b.Publish(TopicMessage, []byte("a"))
	_ = b.Publish(TopicMessage, []byte("b"))
	_ = b.Publish(TopicSystem, []byte("c"))

	if messages != 2 {
		t.Errorf("expected 2 message events, got %d", messages)
	}
	if systems != 1 {
		t.Errorf("expected 1 system event, got %d", systems)
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	b := NewMemoryBus()

	if err := b.Publish("nobody-listening", []byte("x")); err != nil {
		t.Fatalf("publish to empty topic: %v", err)
	}
}

func TestPerPublisherOrder(t *testing.T) {
	b := NewMemoryBus()

	var got []string
	_ = b.Subscribe(TopicMessage, func(data []byte) { got = append(got, string(data)) })

	for _, s := range []string{"1", "2", "3", "4"} {
		_ = b.Publish(TopicMessage, []byte(s))
	}

	want := []string{"1", "2", "3", "4"}
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestConcurrentPublish(t *testing.T) {
	b := NewMemoryBus()

	var mu sync.Mutex
	count := 0
	_ = b.Subscribe(TopicMessage, func(data []byte) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = b.Publish(TopicMessage, []byte("x"))
			}
		}()
	}
	wg.Wait()

	if count != 200 {
		t.Fatalf("expected 200 deliveries, got %d", count)
	}
}
