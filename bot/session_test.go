package bot

import (
	"testing"
	"time"
)

func TestSessionStoreBeginGetDelete(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)

	if store.Get(1) != nil {
		t.Fatal("expected no session before Begin")
	}

	sess := store.Begin(1, StageAwaitingVenue)
	if sess.ID == "" {
		t.Error("expected each session to get an ID")
	}
	if got := store.Get(1); got != sess {
		t.Error("Get did not return the session created by Begin")
	}

	// Begin replaces any existing session outright.
	replacement := store.Begin(1, StageAwaitingName)
	if got := store.Get(1); got != replacement {
		t.Error("expected Begin to replace the previous session")
	}
	if replacement.ID == sess.ID {
		t.Error("expected the replacement session to have a fresh ID")
	}

	store.Delete(1)
	if store.Get(1) != nil {
		t.Error("expected no session after Delete")
	}
}

func TestSessionStoreExpiry(t *testing.T) {
	store := NewMemorySessionStore(20 * time.Millisecond)

	store.Begin(1, StageAwaitingVenue)
	time.Sleep(40 * time.Millisecond)

	if store.Get(1) != nil {
		t.Error("expected the idle session to have expired")
	}
}

func TestSessionStoreTouchExtends(t *testing.T) {
	store := NewMemorySessionStore(60 * time.Millisecond)

	store.Begin(1, StageAwaitingVenue)
	for i := 0; i < 3; i++ {
		time.Sleep(30 * time.Millisecond)
		store.Touch(1)
	}

	if store.Get(1) == nil {
		t.Error("expected a touched session to stay alive past the TTL")
	}
}
