package core

import (
	"reflect"
	"testing"
)

func TestPresenceJoinLeave(t *testing.T) {
	p := NewPresence()

	alice1 := NewClient("conn-1", "alice", "Alice")
	alice2 := NewClient("conn-2", "alice", "Alice")

	p.Join("alice", alice1)
	p.Join("alice", alice2)

	if !p.IsOnline("alice") {
		t.Fatal("alice should be online")
	}
	if got := len(p.Connections("alice")); got != 2 {
		t.Fatalf("expected 2 connections, got %d", got)
	}

	userID, removed := p.Leave("conn-1")
	if !removed || userID != "alice" {
		t.Fatalf("Leave(conn-1) = %q, %v", userID, removed)
	}
	if !p.IsOnline("alice") {
		t.Fatal("alice should stay online while conn-2 remains")
	}

	if _, removed := p.Leave("conn-2"); !removed {
		t.Fatal("second leave should remove the remaining connection")
	}
	if p.IsOnline("alice") {
		t.Fatal("alice should be offline after last connection left")
	}
}

func TestPresenceJoinIdempotentPerConnection(t *testing.T) {
	p := NewPresence()
	alice := NewClient("conn-1", "alice", "Alice")

	p.Join("alice", alice)
	p.Join("alice", alice)

	if got := len(p.Connections("alice")); got != 1 {
		t.Fatalf("repeated join must not duplicate the connection, got %d", got)
	}
}

func TestPresenceLeaveUnknownConnection(t *testing.T) {
	p := NewPresence()
	if userID, removed := p.Leave("ghost"); removed || userID != "" {
		t.Fatalf("Leave(ghost) = %q, %v", userID, removed)
	}
}

func TestPresenceOnlineSorted(t *testing.T) {
	p := NewPresence()
	p.Join("charlie", NewClient("c1", "charlie", ""))
	p.Join("alice", NewClient("a1", "alice", ""))
	p.Join("bob", NewClient("b1", "bob", ""))

	want := []string{"alice", "bob", "charlie"}
	if got := p.Online(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Online() = %v, want %v", got, want)
	}
}
