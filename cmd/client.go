package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/qrave1/InterviewRoom/internal/application/config"
)

// Флаги, общие для клиентских команд
var clientFlags struct {
	url     string
	token   string
	apiKey  string
	stun    []string
	logFile string
	debug   bool
}

func addClientFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&clientFlags.url, "url", "", "relay websocket url (RELAY_URL)")
}

func clientConfig() (*config.ClientConfig, error) {
	return config.NewClient(config.ClientOptions{
		RelayURL: clientFlags.url,
		Token:    clientFlags.token,
		APIKey:   clientFlags.apiKey,
		STUN:     clientFlags.stun,
	})
}

// clientLogger пишет в файл, терминал занят интерфейсом. Без файла логи отбрасываются.
func clientLogger() (*slog.Logger, func(), error) {
	if clientFlags.logFile == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}

	f, err := os.OpenFile(clientFlags.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	level := slog.LevelInfo
	if clientFlags.debug {
		level = slog.LevelDebug
	}

	log := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))

	return log, func() { _ = f.Close() }, nil
}
