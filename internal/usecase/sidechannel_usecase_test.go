package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/qrave1/InterviewRoom/internal/domain/events"
)

func TestSideChannel_TabSwitch(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	interviewer := f.connect("h-i", "alice")
	candidate := f.connect("h-c", "bob")
	f.join(t, interviewer, "r1", "interviewer")
	f.join(t, candidate, "r1", "candidate")
	drain(t, interviewer)
	drain(t, candidate)

	if err := f.sideChannel.Notify(ctx, candidate, "r1", events.TypeTabSwitch); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	msgs := drain(t, interviewer)
	if fmt.Sprint(types(msgs)) != "[candidate-tab-switch]" {
		t.Fatalf("interviewer got %v, want [candidate-tab-switch]", types(msgs))
	}
	if ev := mustData[events.SideChannelEvent](t, msgs[0]); ev.From != "bob" || ev.RoomID != "r1" {
		t.Fatalf("event=%+v", ev)
	}
	if len(drain(t, candidate)) != 0 {
		t.Fatalf("sender must not receive its own event")
	}
}

func TestSideChannel_Errors(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	a := f.connect("h-a", "alice")

	if err := f.sideChannel.Notify(ctx, a, "r1", events.TypeTabSwitch); !errors.Is(err, ErrNotInRoom) {
		t.Fatalf("err=%v, want ErrNotInRoom", err)
	}

	f.join(t, a, "r1", "")
	if err := f.sideChannel.Notify(ctx, a, "r1", "window-blur"); !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("err=%v, want ErrUnknownEvent", err)
	}
}
