package memory

import (
	"testing"

	"github.com/qrave1/InterviewRoom/internal/domain/runtime"
)

func TestConnectionRepository(t *testing.T) {
	repo := NewConnectionRepository()

	c1 := runtime.NewConn("h1", "alice", 2)
	c2 := runtime.NewConn("h2", "alice", 2)
	c3 := runtime.NewConn("h3", "bob", 2)

	repo.Add(c1)
	repo.Add(c2)
	repo.Add(c3)

	if repo.Count() != 3 {
		t.Fatalf("Count=%d, want 3", repo.Count())
	}
	if got := len(repo.ByIdentity("alice")); got != 2 {
		t.Fatalf("ByIdentity(alice)=%d conns, want 2", got)
	}

	if !repo.Send("h3", []byte("hello")) {
		t.Fatalf("Send to h3 failed")
	}
	if got := string(<-c3.Outbound()); got != "hello" {
		t.Fatalf("got=%q, want hello", got)
	}

	repo.Remove("h1")
	repo.Remove("h1")

	if _, ok := repo.Get("h1"); ok {
		t.Fatalf("h1 still present")
	}
	if repo.Send("h1", []byte("x")) {
		t.Fatalf("Send to removed handle must fail")
	}
	if got := len(repo.ByIdentity("alice")); got != 1 {
		t.Fatalf("ByIdentity(alice)=%d conns, want 1", got)
	}

	repo.Remove("h2")
	if got := len(repo.ByIdentity("alice")); got != 0 {
		t.Fatalf("ByIdentity(alice)=%d conns, want 0", got)
	}
}
