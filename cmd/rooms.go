package cmd

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/qrave1/InterviewRoom/internal/infra/adapters/relay"
	"github.com/qrave1/InterviewRoom/internal/infra/ports/http/dto"
)

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List occupied rooms on the relay",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := clientConfig()
		if err != nil {
			return err
		}
		if err = cfg.RequireAPIKey(); err != nil {
			return err
		}

		rooms, err := relay.ListRooms(cmd.Context(), cfg.RelayURL, cfg.APIKey)
		if err != nil {
			return err
		}

		renderRooms(cmd, rooms)

		return nil
	},
}

func init() {
	addClientFlags(roomsCmd)
	roomsCmd.Flags().StringVar(&clientFlags.apiKey, "api-key", "", "relay internal api key (INTERNAL_API_KEY)")

	rootCmd.AddCommand(roomsCmd)
}

func renderRooms(cmd *cobra.Command, rooms dto.RoomsResponse) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Room", "Identity", "Role", "Session", "Joined"})

	for i, room := range rooms.Rooms {
		if i > 0 {
			t.AppendSeparator()
		}
		for _, o := range room.Occupants {
			t.AppendRow(table.Row{room.RoomID, o.Identity, o.Role, o.SessionHandle, o.JoinedAt.Local().Format(time.DateTime)})
		}
	}

	t.AppendFooter(table.Row{"", "", "", "rooms", len(rooms.Rooms)})
	t.Render()
}
