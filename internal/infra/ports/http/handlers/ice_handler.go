package handlers

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pion/webrtc/v4"

	"github.com/qrave1/InterviewRoom/internal/application/config"
	"github.com/qrave1/InterviewRoom/internal/infra/ports/http/dto"
)

const turnCredentialTTL = time.Hour

type IceHandler struct {
	cfg *config.Config
	now func() time.Time
}

func NewIceHandler(cfg *config.Config) *IceHandler {
	return &IceHandler{cfg: cfg, now: time.Now}
}

// IceServers выдает STUN и, если настроен coturn, временные TURN креды
func (h *IceHandler) IceServers(c echo.Context) error {
	servers := []webrtc.ICEServer{{URLs: h.cfg.STUNServers}}

	if h.cfg.CoturnServer.Enabled() {
		expiration := h.now().Add(turnCredentialTTL).Unix()
		username := strconv.FormatInt(expiration, 10)

		servers = append(servers, webrtc.ICEServer{
			URLs: []string{
				h.cfg.TurnUDPServer.URLs[0],
				h.cfg.TurnTCPServer.URLs[0],
			},
			Username:   username,
			Credential: turnPassword(h.cfg.CoturnServer.Secret, username),
		})
	}

	return c.JSON(http.StatusOK, dto.IceServersResponse{IceServers: servers})
}

// turnPassword - TURN REST API: base64(HMAC-SHA1(static-auth-secret, username))
func turnPassword(secret, username string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(username))

	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
