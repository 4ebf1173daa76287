package signal

import "testing"

type receiver struct{ name string }

func TestConnectEmitOrder(t *testing.T) {
	var s Signal[int]
	a, b := &receiver{"a"}, &receiver{"b"}

	var got []string
	s.Connect(a, func(v int) { got = append(got, "a") })
	s.Connect(b, func(v int) { got = append(got, "b") })
	s.Emit(1)

	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("emit order = %v, want [a b]", got)
	}
}

func TestConnectReplaces(t *testing.T) {
	var s Signal[int]
	r := &receiver{"r"}

	calls := 0
	s.Connect(r, func(int) { calls += 10 })
	s.Connect(r, func(v int) { calls += v })
	s.Emit(1)

	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (second function only)", calls)
	}
}

func TestDisconnect(t *testing.T) {
	var s Signal[string]
	r := &receiver{"r"}

	if s.Disconnect(r) {
		t.Error("Disconnect on empty signal returned true")
	}
	s.Connect(r, func(string) { t.Error("disconnected receiver called") })
	if !s.Connected(r) {
		t.Error("Connected() = false after Connect")
	}
	if !s.Disconnect(r) {
		t.Error("Disconnect() = false, want true")
	}
	s.Emit("x")
}

func TestDisconnectDuringEmit(t *testing.T) {
	var s Signal[int]
	a, b := &receiver{"a"}, &receiver{"b"}

	bCalls := 0
	s.Connect(a, func(int) { s.Disconnect(b) })
	s.Connect(b, func(int) { bCalls++ })

	s.Emit(0)
	if bCalls != 1 {
		t.Errorf("first emit: b called %d times, want 1", bCalls)
	}
	s.Emit(0)
	if bCalls != 1 {
		t.Errorf("second emit: b called %d times, want 1", bCalls)
	}
}
