package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pion/webrtc/v4"
)

const (
	RoomAccessInterview = "interview"
	RoomAccessOpen      = "open"
)

type Config struct {
	Debug      bool     `env:"DEBUG" envDefault:"false"`
	Port       string   `env:"PORT" envDefault:"3000"`
	MetricPort string   `env:"METRIC_PORT" envDefault:"9090"`
	Domain     string   `env:"DOMAIN" envDefault:"http://localhost:5173"`
	JWTSecret  string   `env:"JWT_SECRET,required,notEmpty"`
	StaticDir  string   `env:"STATIC_DIR" envDefault:"web"`
	CORSOrigin []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`

	// InternalAPIKey - ключ для внутренних сервисов (уведомления о новых интервью)
	InternalAPIKey string `env:"INTERNAL_API_KEY"`

	// RoomAccess - interview (проверка по таблице interviews) или open
	RoomAccess string `env:"ROOM_ACCESS" envDefault:"interview"`

	STUNServers   []string `env:"STUN_URLS" envSeparator:"," envDefault:"stun:stun.l.google.com:19302"`
	TurnUDPServer webrtc.ICEServer
	TurnTCPServer webrtc.ICEServer

	CoturnServer CoturnConfig
	Postgres     PostgresConfig
	Signaling    SignalingConfig
}

type PostgresConfig struct {
	URL string `env:"POSTGRES_URL"`

	Host     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	User     string `env:"POSTGRES_USER" envDefault:"postgres"`
	Password string `env:"POSTGRES_PASSWORD" envDefault:"postgres"`
	Name     string `env:"POSTGRES_NAME" envDefault:"interviewroom"`
	SSL      string `env:"POSTGRES_SSL" envDefault:"disable"`
}

func (p *PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}

	return fmt.Sprintf("postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		p.User,
		p.Password,
		p.Host,
		p.Port,
		p.Name,
		p.SSL,
	)
}

type CoturnConfig struct {
	Host     string `env:"COTURN_HOST"`
	Username string `env:"COTURN_USERNAME"`
	Password string `env:"COTURN_PASSWORD"`

	// Secret - нужен для генерации временных кредов для фронта
	Secret string `env:"COTURN_SECRET"`
}

func (c CoturnConfig) Enabled() bool {
	return c.Host != ""
}

// SignalingConfig - лимиты websocket соединения релея
type SignalingConfig struct {
	PingInterval      time.Duration `env:"WS_PING_INTERVAL" envDefault:"30s"`
	PongWait          time.Duration `env:"WS_PONG_WAIT" envDefault:"60s"`
	WriteWait         time.Duration `env:"WS_WRITE_WAIT" envDefault:"10s"`
	MaxMessageBytes   int64         `env:"WS_MAX_MESSAGE_BYTES" envDefault:"65536"`
	SendQueueSize     int           `env:"WS_SEND_QUEUE" envDefault:"256"`
	MessagesPerSecond float64       `env:"WS_MESSAGES_PER_SECOND" envDefault:"50"`
	MessagesBurst     int           `env:"WS_MESSAGES_BURST" envDefault:"100"`
}

func New() (*Config, error) {
	c, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err = c.validate(); err != nil {
		return nil, err
	}

	if c.CoturnServer.Enabled() {
		c.TurnUDPServer = webrtc.ICEServer{
			URLs:       []string{fmt.Sprintf("turn:%s?transport=udp", c.CoturnServer.Host)},
			Username:   c.CoturnServer.Username,
			Credential: c.CoturnServer.Password,
		}

		c.TurnTCPServer = webrtc.ICEServer{
			URLs:       []string{fmt.Sprintf("turn:%s?transport=tcp", c.CoturnServer.Host)},
			Username:   c.CoturnServer.Username,
			Credential: c.CoturnServer.Password,
		}
	}

	return &c, nil
}

func (c *Config) validate() error {
	switch c.RoomAccess {
	case RoomAccessInterview, RoomAccessOpen:
	default:
		return fmt.Errorf("invalid ROOM_ACCESS %q", c.RoomAccess)
	}

	if c.Signaling.PingInterval >= c.Signaling.PongWait {
		return errors.New("WS_PING_INTERVAL must be less than WS_PONG_WAIT")
	}

	if c.Signaling.MaxMessageBytes <= 0 {
		return errors.New("WS_MAX_MESSAGE_BYTES must be positive")
	}

	if c.Signaling.SendQueueSize <= 0 {
		return errors.New("WS_SEND_QUEUE must be positive")
	}

	return nil
}
