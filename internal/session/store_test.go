package session

import (
	"testing"
	"time"
)

func TestStoreCreateAndGet(t *testing.T) {
	st := NewStore(5*time.Minute, time.Minute, 0)
	defer st.Stop()

	sess, err := st.Create("u1", "key1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sess.ID) < 16 {
		t.Errorf("expected session id with real entropy, got %q", sess.ID)
	}
	if st.Count() != 1 {
		t.Errorf("expected 1 session, got %d", st.Count())
	}

	got, ok := st.Get(sess.ID)
	if !ok || got != sess {
		t.Fatalf("expected to get back the same session")
	}
}

func TestStoreGetUnknown(t *testing.T) {
	st := NewStore(5*time.Minute, time.Minute, 0)
	defer st.Stop()

	if _, ok := st.Get("nope"); ok {
		t.Error("expected unknown session id to miss")
	}
}

func TestStoreDelete(t *testing.T) {
	st := NewStore(5*time.Minute, time.Minute, 0)
	defer st.Stop()

	sess, _ := st.Create("u1", "key1")
	st.Delete(sess.ID)

	if _, ok := st.Get(sess.ID); ok {
		t.Error("expected session to be gone after Delete")
	}
	if st.Count() != 0 {
		t.Errorf("expected 0 sessions, got %d", st.Count())
	}
}

func TestStoreRejectsOverLimit(t *testing.T) {
	st := NewStore(5*time.Minute, time.Minute, 1)
	defer st.Stop()

	if _, err := st.Create("u1", "key1"); err != nil {
		t.Fatalf("unexpected error on first session: %v", err)
	}
	if _, err := st.Create("u1", "key1"); err == nil {
		t.Fatal("expected second session to exceed limit")
	}
}

func TestSweepExpiresIdleSessions(t *testing.T) {
	st := NewStore(10*time.Millisecond, 5*time.Millisecond, 0)
	defer st.Stop()

	sess, _ := st.Create("u1", "key1")

	time.Sleep(50 * time.Millisecond)

	if _, ok := st.Get(sess.ID); ok {
		t.Error("expected idle session to have been swept")
	}
}

func TestSessionPushStreamReplacementClosesOld(t *testing.T) {
	sess := newSession("s1", "u1", "key1")

	first := &fakeSink{}
	sess.SetPushStream(first)
	second := &fakeSink{}
	sess.SetPushStream(second)

	if !first.closed {
		t.Error("expected replaced push stream to be closed")
	}
	if sess.PushStream() != second {
		t.Error("expected current push stream to be the latest one set")
	}
}

func TestSessionResponseStreamRegistration(t *testing.T) {
	sess := newSession("s1", "u1", "key1")
	sink := &fakeSink{}
	sess.RegisterResponseStream("req-1", sink)
	sess.UnregisterResponseStream("req-1")
	// Unregistering should not close the stream; the caller owns that.
	if sink.closed {
		t.Error("did not expect unregister to close the stream")
	}
}

type fakeSink struct {
	closed bool
	sent   [][]byte
}

func (f *fakeSink) Send(data []byte) error {
	f.sent = append(f.sent, data)
	return nil
}

func (f *fakeSink) Close() error {
	f.closed = true
	return nil
}
