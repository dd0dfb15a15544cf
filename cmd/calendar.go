package cmd

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/example/getresyd/internal/config"
)

func newCalendarCmd() *cobra.Command {
	var (
		venueID   int
		partySize int
		startDate string
		endDate   string
	)

	c := &cobra.Command{
		Use:   "calendar",
		Short: "List dates with open inventory at a venue",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			gw := newGateway(cfg)

			dates, err := gw.AvailableDates(cmd.Context(), uuid.NewString(), venueID, partySize, startDate, endDate)
			if err != nil {
				return err
			}
			if len(dates) == 0 {
				fmt.Fprintln(os.Stdout, "no availability in range")
				return nil
			}
			for _, d := range dates {
				fmt.Fprintln(os.Stdout, d)
			}
			return nil
		},
	}

	c.Flags().IntVar(&venueID, "venue-id", 0, "venue id")
	c.Flags().IntVar(&partySize, "party-size", 2, "party size")
	c.Flags().StringVar(&startDate, "start", "", "range start YYYY-MM-DD")
	c.Flags().StringVar(&endDate, "end", "", "range end YYYY-MM-DD")

	_ = c.MarkFlagRequired("venue-id")
	_ = c.MarkFlagRequired("start")
	_ = c.MarkFlagRequired("end")
	return c
}
