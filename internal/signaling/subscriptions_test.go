package signaling

import "testing"

func TestSubscribeKeepsOneHandlerPerEvent(t *testing.T) {
	channel := newFakeChannel("c")
	subs := NewSubscriptions(channel)

	var first, second int
	subs.Subscribe(EventMessageNew, func(Event) { first++ })
	subs.Subscribe(EventMessageNew, func(Event) { second++ })

	channel.emit(Event{Type: EventMessageNew, Message: &Message{}})

	if first != 0 || second != 1 {
		t.Fatalf("expected only the latest handler to fire, got first=%d second=%d", first, second)
	}
	if n := channel.handlerCount(EventMessageNew); n != 1 {
		t.Fatalf("expected 1 handler attached got %d", n)
	}
}

func TestUnsubscribeAndClear(t *testing.T) {
	channel := newFakeChannel("c")
	subs := NewSubscriptions(channel)

	subs.Subscribe(EventCallEnded, func(Event) {})
	subs.Subscribe(EventCallJoined, func(Event) {})
	subs.Unsubscribe(EventCallEnded)

	if n := channel.handlerCount(EventCallEnded); n != 0 {
		t.Fatalf("expected ended handler removed got %d", n)
	}
	if n := channel.handlerCount(EventCallJoined); n != 1 {
		t.Fatalf("expected joined handler kept got %d", n)
	}

	subs.Clear()
	if n := channel.handlerCount(EventCallJoined); n != 0 {
		t.Fatalf("expected clear to detach everything got %d", n)
	}
}
