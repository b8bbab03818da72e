package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pion/webrtc/v4"
)

// ClientConfig is the configuration of the terminal client (interviewroom join).
// Values come from the environment and may be overridden by command flags.
type ClientConfig struct {
	RelayURL string `env:"RELAY_URL" envDefault:"ws://localhost:3000/api/v1/ws"`
	Token    string `env:"RELAY_TOKEN"`

	// APIKey открывает операторские ручки релея (interviewroom rooms)
	APIKey string `env:"INTERNAL_API_KEY"`

	STUNServers []string `env:"STUN_URLS" envSeparator:"," envDefault:"stun:stun.l.google.com:19302"`
	TURNServer  string   `env:"TURN_URL"`
	TURNUser    string   `env:"TURN_USERNAME"`
	TURNPass    string   `env:"TURN_PASSWORD"`

	NegotiationTimeout time.Duration `env:"NEGOTIATION_TIMEOUT" envDefault:"30s"`
	AwaitPeerTimeout   time.Duration `env:"AWAIT_PEER_TIMEOUT" envDefault:"10m"`
}

// ClientOptions carries flag overrides; empty fields keep the env value.
type ClientOptions struct {
	RelayURL string
	Token    string
	APIKey   string
	STUN     []string
}

func NewClient(opts ClientOptions) (*ClientConfig, error) {
	c, err := env.ParseAs[ClientConfig]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if opts.RelayURL != "" {
		c.RelayURL = opts.RelayURL
	}
	if opts.Token != "" {
		c.Token = opts.Token
	}
	if opts.APIKey != "" {
		c.APIKey = opts.APIKey
	}
	if len(opts.STUN) > 0 {
		c.STUNServers = opts.STUN
	}

	u, err := url.Parse(c.RelayURL)
	if err != nil {
		return nil, fmt.Errorf("parse relay url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("relay url must use ws or wss scheme, got %q", u.Scheme)
	}

	return &c, nil
}

// RequireToken - join ходит в websocket под identity токеном
func (c *ClientConfig) RequireToken() error {
	if c.Token == "" {
		return errors.New("relay token is required (RELAY_TOKEN or --token)")
	}
	return nil
}

// RequireAPIKey - снимок комнат доступен только по внутреннему ключу
func (c *ClientConfig) RequireAPIKey() error {
	if c.APIKey == "" {
		return errors.New("internal api key is required (INTERNAL_API_KEY or --api-key)")
	}
	return nil
}

// ICEServers builds the pion ICE server list.
func (c *ClientConfig) ICEServers() []webrtc.ICEServer {
	servers := []webrtc.ICEServer{{URLs: c.STUNServers}}

	if c.TURNServer != "" {
		servers = append(servers, webrtc.ICEServer{
			URLs:       []string{c.TURNServer},
			Username:   c.TURNUser,
			Credential: c.TURNPass,
		})
	}

	return servers
}
