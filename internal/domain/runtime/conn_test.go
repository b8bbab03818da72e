package runtime

import (
	"sync"
	"testing"

	"github.com/qrave1/InterviewRoom/internal/domain/models"
)

func TestConn_EnqueueFIFO(t *testing.T) {
	c := NewConn("h1", "alice", 4)

	for _, f := range []string{"a", "b", "c"} {
		if !c.Enqueue([]byte(f)) {
			t.Fatalf("Enqueue(%q) failed", f)
		}
	}

	for _, want := range []string{"a", "b", "c"} {
		if got := string(<-c.Outbound()); got != want {
			t.Fatalf("got=%q, want %q", got, want)
		}
	}
}

func TestConn_OverflowClosesConnection(t *testing.T) {
	c := NewConn("h1", "alice", 1)

	if !c.Enqueue([]byte("a")) {
		t.Fatalf("first Enqueue failed")
	}
	if c.Enqueue([]byte("b")) {
		t.Fatalf("Enqueue on full queue must fail")
	}
	if !c.Closed() {
		t.Fatalf("connection must be closed after overflow")
	}

	// буфер дочитывается, затем канал закрыт
	if got := string(<-c.Outbound()); got != "a" {
		t.Fatalf("got=%q, want a", got)
	}
	if _, ok := <-c.Outbound(); ok {
		t.Fatalf("outbound must be closed")
	}
}

func TestConn_CloseIsIdempotentAndRaceFree(t *testing.T) {
	c := NewConn("h1", "alice", 16)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.Enqueue([]byte("x"))
		}()
		go func() {
			defer wg.Done()
			c.Close()
		}()
	}
	wg.Wait()

	if c.Enqueue([]byte("y")) {
		t.Fatalf("Enqueue after Close must fail")
	}
}

func TestConn_Rooms(t *testing.T) {
	c := NewConn("h1", "alice", 1)

	c.AddRoom("r2", models.RoleCandidate)
	c.AddRoom("r1", models.RoleInterviewer)

	if got := c.Rooms(); len(got) != 2 || got[0] != "r1" || got[1] != "r2" {
		t.Fatalf("Rooms=%v, want [r1 r2]", got)
	}
	if !c.RemoveRoom("r1") {
		t.Fatalf("RemoveRoom(r1)=false")
	}
	if c.RemoveRoom("r1") {
		t.Fatalf("second RemoveRoom(r1)=true")
	}
	if c.InRoom("r1") || !c.InRoom("r2") {
		t.Fatalf("InRoom mismatch: rooms=%v", c.Rooms())
	}
}
