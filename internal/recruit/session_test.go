package recruit

import (
	"testing"
	"time"
)

func TestSessionStoreRoundTrip(t *testing.T) {
	st := NewSessionStore(time.Minute)
	tok := st.Put(Session{ActorID: "a", State: StateCategoryPending})
	if tok == "" {
		t.Fatal("empty token")
	}

	got, ok := st.Get(tok)
	if !ok || got.ActorID != "a" || got.State != StateCategoryPending {
		t.Fatalf("got %+v ok=%v", got, ok)
	}

	got.State = StateFormPending
	if !st.Update(tok, got) {
		t.Fatal("update failed")
	}
	got, _ = st.Get(tok)
	if got.State != StateFormPending {
		t.Fatalf("state = %s after update", got.State)
	}

	st.Delete(tok)
	if _, ok := st.Get(tok); ok {
		t.Fatal("session survived delete")
	}
}

func TestSessionStoreTokensAreUnique(t *testing.T) {
	st := NewSessionStore(time.Minute)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		tok := st.Put(Session{})
		if seen[tok] {
			t.Fatalf("duplicate token %q", tok)
		}
		seen[tok] = true
	}
}

func TestSessionStoreExpiry(t *testing.T) {
	st := NewSessionStore(time.Millisecond)
	tok := st.Put(Session{ActorID: "a"})
	time.Sleep(5 * time.Millisecond)
	if _, ok := st.Get(tok); ok {
		t.Fatal("expired session still readable")
	}
}

func TestSessionStoreUnknownToken(t *testing.T) {
	st := NewSessionStore(time.Minute)
	if _, ok := st.Get("nope"); ok {
		t.Fatal("unknown token resolved")
	}
	if st.Update("nope", Session{}) {
		t.Fatal("update of unknown token succeeded")
	}
}
