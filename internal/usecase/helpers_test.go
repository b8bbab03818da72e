package usecase

import (
	"context"
	"testing"

	"github.com/qrave1/InterviewRoom/internal/domain/events"
	"github.com/qrave1/InterviewRoom/internal/domain/models"
	"github.com/qrave1/InterviewRoom/internal/domain/runtime"
	"github.com/qrave1/InterviewRoom/internal/infra/adapters/memory"
	"github.com/qrave1/InterviewRoom/internal/infra/adapters/postgres/repository"
)

type fakeInterviewRepo struct {
	byRoom map[string]*models.Interview
}

func (f *fakeInterviewRepo) GetByRoomID(_ context.Context, roomID string) (*models.Interview, error) {
	iv, ok := f.byRoom[roomID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return iv, nil
}

func (f *fakeInterviewRepo) ListByParticipant(_ context.Context, identity string) ([]*models.Interview, error) {
	var out []*models.Interview
	for _, iv := range f.byRoom {
		if _, ok := iv.RoleOf(identity); ok {
			out = append(out, iv)
		}
	}
	return out, nil
}

type fixture struct {
	registry memory.RoomRegistry
	conns    memory.ConnectionRepository

	presence    PresenceUsecase
	relay       RelayUsecase
	sideChannel SideChannelUsecase
	notify      NotifyUsecase
}

func newFixture(access RoomAccess) *fixture {
	if access == nil {
		access = NewOpenRoomAccess()
	}

	registry := memory.NewRoomRegistry(nil)
	conns := memory.NewConnectionRepository()

	return &fixture{
		registry:    registry,
		conns:       conns,
		presence:    NewPresenceUsecase(access, registry, conns),
		relay:       NewRelayUsecase(registry, conns),
		sideChannel: NewSideChannelUsecase(registry, conns),
		notify:      NewNotifyUsecase(conns),
	}
}

func (f *fixture) connect(handle, identity string) *runtime.Conn {
	conn := runtime.NewConn(handle, identity, 64)
	f.conns.Add(conn)
	return conn
}

func (f *fixture) disconnect(conn *runtime.Conn) {
	f.conns.Remove(conn.Handle)
	conn.Close()
	f.presence.HandleDisconnect(context.Background(), conn)
}

func (f *fixture) join(t *testing.T, conn *runtime.Conn, roomID, role string) {
	t.Helper()

	if err := f.presence.HandleJoin(context.Background(), conn, events.JoinRoomEvent{RoomID: roomID, Role: role}); err != nil {
		t.Fatalf("HandleJoin(%s, %s): %v", conn.Identity, roomID, err)
	}
}

// drain вычитывает все уже поставленные в очередь кадры
func drain(t *testing.T, conn *runtime.Conn) []events.Message {
	t.Helper()

	var msgs []events.Message
	for {
		select {
		case frame, ok := <-conn.Outbound():
			if !ok {
				return msgs
			}
			msg, err := events.Decode(frame)
			if err != nil {
				t.Fatalf("relay produced invalid frame %s: %v", frame, err)
			}
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}

func types(msgs []events.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Type)
	}
	return out
}

func mustData[T any](t *testing.T, msg events.Message) T {
	t.Helper()

	v, err := events.DecodeData[T](msg)
	if err != nil {
		t.Fatalf("DecodeData: %v", err)
	}
	return v
}
