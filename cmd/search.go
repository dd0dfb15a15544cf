package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/example/getresyd/internal/config"
	"github.com/example/getresyd/internal/resy"
)

func newSearchCmd() *cobra.Command {
	var (
		lat       float64
		long      float64
		day       string
		partySize int
		perPage   int
	)

	c := &cobra.Command{
		Use:   "search <query>",
		Short: "Search venues by name near a coordinate",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			gw := newGateway(cfg)

			hits, err := gw.SearchVenues(cmd.Context(), uuid.NewString(), resy.SearchQuery{
				Query:     strings.Join(args, " "),
				Latitude:  lat,
				Longitude: long,
				Day:       day,
				PartySize: partySize,
				PerPage:   perPage,
			})
			if err != nil {
				return err
			}
			if len(hits) == 0 {
				fmt.Fprintln(os.Stdout, "no venues found")
				return nil
			}
			for _, h := range hits {
				line := fmt.Sprintf("id=%d  %s", h.VenueID, h.Name)
				var extras []string
				if h.Cuisine != "" {
					extras = append(extras, h.Cuisine)
				}
				if h.Neighborhood != "" {
					extras = append(extras, h.Neighborhood)
				}
				if h.Region != "" {
					extras = append(extras, h.Region)
				}
				if len(extras) > 0 {
					line += "  (" + strings.Join(extras, ", ") + ")"
				}
				fmt.Fprintln(os.Stdout, line)
			}
			return nil
		},
	}

	c.Flags().Float64Var(&lat, "lat", 40.7128, "search latitude")
	c.Flags().Float64Var(&long, "long", -74.0060, "search longitude")
	c.Flags().StringVar(&day, "day", "", "filter by availability on date YYYY-MM-DD (optional)")
	c.Flags().IntVar(&partySize, "party-size", 0, "party size for the availability filter")
	c.Flags().IntVar(&perPage, "limit", 5, "max results")
	return c
}
