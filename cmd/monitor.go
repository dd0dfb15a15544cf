package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/getresyd/internal/board"
	"github.com/example/getresyd/internal/booking"
	"github.com/example/getresyd/internal/cli"
	"github.com/example/getresyd/internal/config"
)

func newMonitorCmd() *cobra.Command {
	var (
		venueURL  string
		venueID   int
		venueName string
		partySize int
		date      string
		timeStart string
		timeEnd   string
		refresh   int
		method    string
		contact   string
	)

	c := &cobra.Command{
		Use:   "monitor",
		Short: "Watch a venue and report when matching slots open",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}

			b := board.New()
			b.Subscribe(cli.NewRenderer(os.Stdout).TaskUpdated)

			orch := booking.New(newGateway(cfg), nil, b)
			rc := booking.NewRunContext()
			stopOnInterrupt(rc)

			res, err := orch.Run(cmd.Context(), rc, booking.Params{
				Mode:                booking.ModeMonitor,
				VenueURL:            venueURL,
				VenueID:             venueID,
				VenueName:           venueName,
				PartySize:           partySize,
				Date:                date,
				TimeStart:           timeStart,
				TimeEnd:             timeEnd,
				RefreshSeconds:      refresh,
				NotificationMethod:  method,
				NotificationContact: contact,
			})
			if err != nil {
				if errors.Is(err, booking.ErrStopped) {
					fmt.Fprintln(os.Stdout, "stopped")
					return nil
				}
				return err
			}

			fmt.Fprintf(os.Stdout, "slots open at %s on %s:\n", res.VenueName, date)
			for _, s := range res.Slots {
				fmt.Fprintf(os.Stdout, "  %s  %s\n", s.Start, s.Type)
			}
			fmt.Fprintf(os.Stdout, "notify %s via %s\n", contact, method)
			return nil
		},
	}

	c.Flags().StringVar(&venueURL, "url", "", "resy.com venue URL (when no --venue-id)")
	c.Flags().IntVar(&venueID, "venue-id", 0, "pre-resolved venue id (skips URL resolution)")
	c.Flags().StringVar(&venueName, "venue-name", "", "venue name to show with --venue-id")
	c.Flags().IntVar(&partySize, "party-size", 2, "party size")
	c.Flags().StringVar(&date, "date", "", "reservation date YYYY-MM-DD")
	c.Flags().StringVar(&timeStart, "time-start", "", "earliest slot time HH:MM (optional)")
	c.Flags().StringVar(&timeEnd, "time-end", "", "latest slot time HH:MM (optional)")
	c.Flags().IntVar(&refresh, "refresh", 5, "seconds between slot checks (1-60)")
	c.Flags().StringVar(&method, "notify-method", "email", "notification method (email|sms)")
	c.Flags().StringVar(&contact, "notify-contact", "", "email address or phone number to notify")

	_ = c.MarkFlagRequired("date")
	_ = c.MarkFlagRequired("notify-contact")
	return c
}
