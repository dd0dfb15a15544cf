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

func newBookCmd() *cobra.Command {
	var (
		email     string
		password  string
		venueURL  string
		venueID   int
		venueName string
		partySize int
		date      string
		timeStart string
		timeEnd   string
		refresh   int
	)

	c := &cobra.Command{
		Use:   "book",
		Short: "Book the first matching slot the moment one appears",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			cache, err := openCache(cfg)
			if err != nil {
				return err
			}
			defer cache.Close()

			b := board.New()
			b.Subscribe(cli.NewRenderer(os.Stdout).TaskUpdated)

			orch := booking.New(newGateway(cfg), cache, b)
			rc := booking.NewRunContext()
			stopOnInterrupt(rc)

			res, err := orch.Run(cmd.Context(), rc, booking.Params{
				Mode:           booking.ModeFull,
				Email:          email,
				Password:       password,
				VenueURL:       venueURL,
				VenueID:        venueID,
				VenueName:      venueName,
				PartySize:      partySize,
				Date:           date,
				TimeStart:      timeStart,
				TimeEnd:        timeEnd,
				RefreshSeconds: refresh,
			})
			if err != nil {
				if errors.Is(err, booking.ErrStopped) {
					fmt.Fprintln(os.Stdout, "stopped")
					return nil
				}
				return err
			}
			fmt.Fprintf(os.Stdout, "booked %s for %s (checked out at %s)\n",
				res.VenueName, res.ReservationTime, res.CheckoutTime)
			return nil
		},
	}

	c.Flags().StringVar(&email, "email", "", "Resy account email")
	c.Flags().StringVar(&password, "password", "", "Resy account password")
	c.Flags().StringVar(&venueURL, "url", "", "resy.com venue URL (when no --venue-id)")
	c.Flags().IntVar(&venueID, "venue-id", 0, "pre-resolved venue id (skips URL resolution)")
	c.Flags().StringVar(&venueName, "venue-name", "", "venue name to show with --venue-id")
	c.Flags().IntVar(&partySize, "party-size", 2, "party size")
	c.Flags().StringVar(&date, "date", "", "reservation date YYYY-MM-DD")
	c.Flags().StringVar(&timeStart, "time-start", "", "earliest slot time HH:MM (optional)")
	c.Flags().StringVar(&timeEnd, "time-end", "", "latest slot time HH:MM (optional)")
	c.Flags().IntVar(&refresh, "refresh", 5, "seconds between slot checks (1-60)")

	_ = c.MarkFlagRequired("email")
	_ = c.MarkFlagRequired("password")
	_ = c.MarkFlagRequired("date")
	return c
}
