package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/qrave1/InterviewRoom/internal/infra/ports/http/dto"
)

const (
	requestTimeout = 10 * time.Second
	headerAPIKey   = "X-Api-Key"
)

// APIBase выводит http(s) адрес API из адреса websocket эндпоинта релея.
// ws://host/api/v1/ws -> http://host/api/v1
func APIBase(wsURL string) (string, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return "", fmt.Errorf("parse relay url: %w", err)
	}

	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	default:
		return "", fmt.Errorf("relay url must use ws or wss scheme, got %q", u.Scheme)
	}

	u.Path = strings.TrimSuffix(strings.TrimSuffix(u.Path, "/"), "/ws")
	u.RawQuery = ""

	return u.String(), nil
}

// InternalBase - адрес внутренних ручек релея.
// ws://host/api/v1/ws -> http://host/api/internal
func InternalBase(wsURL string) (string, error) {
	base, err := APIBase(wsURL)
	if err != nil {
		return "", err
	}

	return strings.TrimSuffix(base, "/v1") + "/internal", nil
}

// ListRooms запрашивает снимок комнат релея по внутреннему ключу
func ListRooms(ctx context.Context, wsURL, apiKey string) (dto.RoomsResponse, error) {
	base, err := InternalBase(wsURL)
	if err != nil {
		return dto.RoomsResponse{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/rooms", nil)
	if err != nil {
		return dto.RoomsResponse{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set(headerAPIKey, apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return dto.RoomsResponse{}, fmt.Errorf("list rooms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return dto.RoomsResponse{}, fmt.Errorf("list rooms: unexpected status %s", resp.Status)
	}

	var rooms dto.RoomsResponse
	if err = json.NewDecoder(resp.Body).Decode(&rooms); err != nil {
		return dto.RoomsResponse{}, fmt.Errorf("decode rooms: %w", err)
	}

	return rooms, nil
}
