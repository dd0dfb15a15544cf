package booking

import (
	"context"

	"github.com/example/getresyd/internal/resy"
)

// Gateway is the booking-platform boundary the orchestrator drives.
// *resy.Client is the production implementation; tests script their own.
type Gateway interface {
	ResolveVenue(ctx context.Context, runID, rawURL string) (resy.Venue, error)
	Authenticate(ctx context.Context, runID string, req resy.AuthRequest) (resy.AuthResult, error)
	FindSlots(ctx context.Context, runID string, q resy.SlotQuery, sessionToken string) ([]resy.Slot, error)
	PreviewReservation(ctx context.Context, runID, configToken, day string, partySize int, sessionToken string) (resy.Preview, error)
	CommitBooking(ctx context.Context, runID, bookToken string, paymentMethodID int64, sessionToken string) error
}
