package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pion/webrtc/v4"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/qrave1/InterviewRoom/internal/application/constant"
	"github.com/qrave1/InterviewRoom/internal/client/media"
	"github.com/qrave1/InterviewRoom/internal/client/session"
	"github.com/qrave1/InterviewRoom/internal/client/tui"
	"github.com/qrave1/InterviewRoom/internal/domain/models"
	"github.com/qrave1/InterviewRoom/internal/infra/adapters/relay"
)

var joinFlags struct {
	role     string
	autoCall bool
	noVideo  bool
}

var joinCmd = &cobra.Command{
	Use:   "join <room-id>",
	Short: "Join an interview room from the terminal",
	Args:  cobra.ExactArgs(1),
	RunE:  runJoin,
}

func init() {
	addClientFlags(joinCmd)
	joinCmd.Flags().StringVar(&clientFlags.token, "token", "", "identity token (RELAY_TOKEN)")
	joinCmd.Flags().StringSliceVar(&clientFlags.stun, "stun", nil, "STUN server urls (STUN_URLS)")
	joinCmd.Flags().StringVar(&clientFlags.logFile, "log-file", "", "write client logs to this file")
	joinCmd.Flags().BoolVar(&clientFlags.debug, "debug", false, "debug logging")
	joinCmd.Flags().StringVar(&joinFlags.role, "role", "candidate", "interviewer or candidate")
	joinCmd.Flags().BoolVar(&joinFlags.autoCall, "auto-call", false, "start the call as soon as the peer joins (interviewer only)")
	joinCmd.Flags().BoolVar(&joinFlags.noVideo, "no-video", false, "send audio only")

	rootCmd.AddCommand(joinCmd)
}

func runJoin(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	roomID := args[0]

	role, err := models.ParseRole(joinFlags.role)
	if err != nil {
		return err
	}

	cfg, err := clientConfig()
	if err != nil {
		return err
	}
	if err = cfg.RequireToken(); err != nil {
		return err
	}

	log, closeLog, err := clientLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	conn, err := relay.Dial(ctx, cfg.RelayURL, cfg.Token, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	var program *tea.Program

	hooks := tui.Hooks(func(msg tea.Msg) { program.Send(msg) })
	showTrack := hooks.OnRemoteTrack
	hooks.OnRemoteTrack = func(track *webrtc.TrackRemote) {
		showTrack(track)
		go func() {
			if err := media.Consume(track, nil); err != nil {
				log.Debug("remote track stopped", slog.Any(constant.Error, err))
			}
		}()
	}

	sess, err := session.New(session.Options{
		RoomID:             roomID,
		Identity:           conn.Identity(),
		Role:               role,
		AutoCall:           joinFlags.autoCall,
		ICEServers:         cfg.ICEServers(),
		NegotiationTimeout: cfg.NegotiationTimeout,
		AwaitPeerTimeout:   cfg.AwaitPeerTimeout,
		Signaler:           conn,
		Inbound:            conn.Incoming(),
		Media:              media.NewSynthetic(media.SyntheticConfig{Audio: true, Video: !joinFlags.noVideo}),
		Hooks:              hooks,
		Log:                log,
	})
	if err != nil {
		return err
	}

	model := tui.New(sess, tui.Info{RoomID: roomID, Identity: conn.Identity(), Role: role})
	program = tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer program.Quit()

		err := sess.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		defer cancel()

		if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("run ui: %w", err)
		}
		return nil
	})

	return g.Wait()
}
