package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pion/webrtc/v4"

	"github.com/qrave1/InterviewRoom/internal/application/config"
	"github.com/qrave1/InterviewRoom/internal/infra/ports/http/dto"
)

func TestIceHandler_TurnCredentials(t *testing.T) {
	cfg := &config.Config{
		STUNServers:   []string{"stun:stun.example.com:3478"},
		CoturnServer:  config.CoturnConfig{Host: "turn.example.com:3478", Secret: "static-secret"},
		TurnUDPServer: webrtc.ICEServer{URLs: []string{"turn:turn.example.com:3478?transport=udp"}},
		TurnTCPServer: webrtc.ICEServer{URLs: []string{"turn:turn.example.com:3478?transport=tcp"}},
	}

	h := NewIceHandler(cfg)
	h.now = func() time.Time { return time.Unix(1_700_000_000, 0) }

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/ice", nil), rec)

	if err := h.IceServers(c); err != nil {
		t.Fatalf("IceServers: %v", err)
	}

	var resp dto.IceServersResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(resp.IceServers) != 2 {
		t.Fatalf("servers=%d, want STUN and TURN", len(resp.IceServers))
	}

	turn := resp.IceServers[1]
	if turn.Username != "1700003600" {
		t.Fatalf("username=%q, want expiry unix time", turn.Username)
	}
	if turn.Credential != turnPassword("static-secret", "1700003600") {
		t.Fatalf("credential mismatch")
	}
	if len(turn.URLs) != 2 {
		t.Fatalf("turn urls=%v", turn.URLs)
	}
}
