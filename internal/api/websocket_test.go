package api

import (
	"encoding/json"
	"testing"
	"time"
)

func recvFrame(t *testing.T, ch chan []byte) ControlMessage {
	t.Helper()
	select {
	case data := <-ch:
		var msg ControlMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("failed to decode frame: %v", err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return ControlMessage{}
	}
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	a := &Client{hub: hub, send: make(chan []byte, 4)}
	b := &Client{hub: hub, send: make(chan []byte, 4)}
	hub.register <- a
	hub.register <- b

	hub.Publish(ControlMessage{Type: ControlGoto, Index: 3})

	for _, c := range []*Client{a, b} {
		msg := recvFrame(t, c.send)
		if msg.Type != ControlGoto || msg.Index != 3 {
			t.Errorf("got frame %+v, want goto index 3", msg)
		}
		if msg.Timestamp == "" {
			t.Error("expected hub to stamp a timestamp")
		}
	}
}

func TestHubCatchUpOnRegister(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	operator := &Client{hub: hub, send: make(chan []byte, 4)}
	hub.register <- operator
	hub.Publish(ControlMessage{Type: ControlDeck, DeckKind: "song", DeckID: "abc"})
	recvFrame(t, operator.send)

	// A follower that connects after the deck announcement still gets it.
	late := &Client{hub: hub, send: make(chan []byte, 4)}
	hub.register <- late

	msg := recvFrame(t, late.send)
	if msg.Type != ControlDeck || msg.DeckID != "abc" {
		t.Errorf("late joiner got %+v, want deck announcement", msg)
	}
}

func TestHubUnregister(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	c := &Client{hub: hub, send: make(chan []byte, 4)}
	hub.register <- c
	hub.unregister <- c

	// The send channel is closed on unregister.
	select {
	case _, ok := <-c.send:
		if ok {
			t.Error("expected closed send channel after unregister")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestControlMessageValidType(t *testing.T) {
	cases := []struct {
		typ  string
		want bool
	}{
		{ControlDeck, true},
		{ControlGoto, true},
		{ControlBlank, true},
		{"shutdown", false},
		{"", false},
	}
	for _, tc := range cases {
		msg := ControlMessage{Type: tc.typ}
		if got := msg.validType(); got != tc.want {
			t.Errorf("validType(%q) = %v, want %v", tc.typ, got, tc.want)
		}
	}
}
