package sse

import (
	"testing"
)

func TestHub_PublishReachesClients(t *testing.T) {
	hub := NewHub(nil)
	a := &Client{ID: "a", UserID: "u1", Events: make(chan Event, 1)}
	b := &Client{ID: "b", UserID: "u2", Events: make(chan Event, 1)}
	hub.Register(a)
	hub.Register(b)

	hub.Publish(EventStockChanged, map[string]interface{}{"article_id": "art-1", "stock": 4})

	for _, c := range []*Client{a, b} {
		select {
		case ev := <-c.Events:
			if ev.EventType != EventStockChanged {
				t.Errorf("client %s: expected %s, got %s", c.ID, EventStockChanged, ev.EventType)
			}
			if ev.Data != `{"article_id":"art-1","stock":4}` {
				t.Errorf("client %s: unexpected data %s", c.ID, ev.Data)
			}
		default:
			t.Errorf("client %s received nothing", c.ID)
		}
	}
}

func TestHub_FullBufferDoesNotBlock(t *testing.T) {
	hub := NewHub(nil)
	c := &Client{ID: "slow", Events: make(chan Event, 1)}
	hub.Register(c)

	hub.Broadcast(Event{EventType: "x", Data: "1"})
	hub.Broadcast(Event{EventType: "x", Data: "2"})

	if got := (<-c.Events).Data; got != "1" {
		t.Fatalf("expected first event kept, got %s", got)
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub(nil)
	c := &Client{ID: "c", Events: make(chan Event, 1)}
	hub.Register(c)
	hub.Unregister("c")
	hub.Unregister("c")

	if hub.ClientCount() != 0 {
		t.Fatalf("expected no clients, got %d", hub.ClientCount())
	}
	if _, ok := <-c.Events; ok {
		t.Fatal("expected closed channel")
	}
}
