// Package booking is the reservation orchestration engine: a stateful
// pipeline that resolves a venue, authenticates, finds a slot (polling
// until one opens), previews and commits the reservation.
package booking

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/getresyd/internal/board"
	"github.com/example/getresyd/internal/credcache"
	"github.com/example/getresyd/internal/resy"
)

// Orchestrator sequences one run over the fixed task list, advancing
// strictly forward. The clock and sleeper are injectable so tests drive
// the poll loop without real timers.
type Orchestrator struct {
	gw    Gateway
	cache *credcache.Cache
	board *board.Board
	log   *logrus.Entry

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

func New(gw Gateway, cache *credcache.Cache, b *board.Board) *Orchestrator {
	return &Orchestrator{
		gw:    gw,
		cache: cache,
		board: b,
		log:   logrus.WithField("component", "booking"),
		now:   time.Now,
		sleep: sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run executes one end-to-end run. Validation failures reject the run
// before any task exists; any later failure marks the active task errored
// and leaves the board intact for inspection. User cancellation surfaces
// as ErrStopped and is never marked as a task error.
func (o *Orchestrator) Run(ctx context.Context, rc *RunContext, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	o.board.Initialize(TasksFor(p.Mode))
	defer rc.Stop()

	res, err := o.run(ctx, rc, p)
	if err != nil && !errors.Is(err, ErrStopped) {
		if t, ok := o.board.Active(); ok {
			o.board.Update(t.ID, board.StatusError, board.WithError(err.Error()))
		}
	}
	return res, err
}

func (o *Orchestrator) run(ctx context.Context, rc *RunContext, p Params) (*Result, error) {
	log := o.log.WithFields(logrus.Fields{"run_id": rc.ID, "mode": string(p.Mode)})

	venue, err := o.resolveVenue(ctx, rc, p)
	if err != nil {
		return nil, err
	}
	log = log.WithField("venue_id", venue.ID)

	query := resy.SlotQuery{
		VenueID:   venue.ID,
		Day:       p.Date,
		PartySize: p.PartySize,
		TimeStart: p.TimeStart,
		TimeEnd:   p.TimeEnd,
	}

	if p.Mode == ModeMonitor {
		slots, err := o.pollUntilAvailable(ctx, rc, query, TaskMonitor, rc.SessionToken(), o.policy(p))
		if err != nil {
			return nil, err
		}
		log.WithField("slots", len(slots)).Info("monitoring complete")
		return &Result{VenueID: venue.ID, VenueName: venue.Name, Slots: slots}, nil
	}

	if err := o.login(ctx, rc, p, log); err != nil {
		return nil, err
	}

	o.board.Update(TaskSlots, board.StatusInProgress)
	slots, err := o.gw.FindSlots(ctx, rc.ID, query, rc.SessionToken())
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		// nothing open yet: fall back to polling at the configured interval
		slots, err = o.pollUntilAvailable(ctx, rc, query, TaskSlots, rc.SessionToken(), o.policy(p))
		if err != nil {
			return nil, err
		}
	} else {
		o.board.Update(TaskSlots, board.StatusCompleted)
	}
	first := slots[0]

	o.board.Update(TaskPreview, board.StatusInProgress)
	preview, err := o.gw.PreviewReservation(ctx, rc.ID, first.Token, p.Date, p.PartySize, rc.SessionToken())
	if err != nil {
		return nil, err
	}
	o.board.Update(TaskPreview, board.StatusCompleted)

	o.board.Update(TaskBook, board.StatusInProgress)
	var paymentID int64
	if len(preview.PaymentMethods) > 0 {
		paymentID = preview.PaymentMethods[0].ID
	}
	if err := o.gw.CommitBooking(ctx, rc.ID, preview.BookToken, paymentID, rc.SessionToken()); err != nil {
		return nil, err
	}

	checkout := formatClock(o.now())
	reservation := formatReservationTime(first.Start)
	o.board.Update(TaskBook, board.StatusCompleted,
		board.WithBookingDetails(venue.Name, checkout, reservation))
	log.WithFields(logrus.Fields{
		"reservation_time": reservation,
	}).Info("reservation booked")

	return &Result{
		VenueID:         venue.ID,
		VenueName:       venue.Name,
		Slots:           slots,
		Booked:          true,
		ReservationTime: reservation,
		CheckoutTime:    checkout,
	}, nil
}

// resolveVenue short-circuits when the search flow already supplied the
// venue identity; otherwise it resolves the URL and captures any session
// token the gateway returned.
func (o *Orchestrator) resolveVenue(ctx context.Context, rc *RunContext, p Params) (resy.Venue, error) {
	if p.VenueID != 0 {
		o.board.Update(TaskVenue, board.StatusCompleted)
		return resy.Venue{ID: p.VenueID, Name: p.VenueName}, nil
	}
	o.board.Update(TaskVenue, board.StatusInProgress)
	venue, err := o.gw.ResolveVenue(ctx, rc.ID, p.VenueURL)
	if err != nil {
		return resy.Venue{}, err
	}
	if venue.SessionToken != "" {
		rc.session.Set(venue.SessionToken)
	}
	o.board.Update(TaskVenue, board.StatusCompleted)
	return venue, nil
}

// login authenticates the run. A valid cached credential is tried first;
// if that attempt fails for any reason the credential is evicted and
// primary credentials are tried exactly once. A fresh long-lived token is
// cached only when it came from the primary-credential path.
func (o *Orchestrator) login(ctx context.Context, rc *RunContext, p Params, log *logrus.Entry) error {
	o.board.Update(TaskLogin, board.StatusInProgress)

	if cached, ok := o.cacheRead(); ok {
		auth, err := o.gw.Authenticate(ctx, rc.ID, resy.AuthRequest{CachedToken: cached})
		if err == nil {
			if auth.SessionToken != "" {
				rc.session.Set(auth.SessionToken)
			}
			o.board.Update(TaskLogin, board.StatusCompleted)
			return nil
		}
		log.WithError(err).Warn("cached credential rejected, retrying with password")
		if everr := o.cache.Evict(); everr != nil {
			log.WithError(everr).Warn("credential evict failed")
		}
	}

	auth, err := o.gw.Authenticate(ctx, rc.ID, resy.AuthRequest{Email: p.Email, Password: p.Password})
	if err != nil {
		return err
	}
	if auth.SessionToken != "" {
		rc.session.Set(auth.SessionToken)
	}
	if auth.LongLivedToken != "" && o.cache != nil {
		if serr := o.cache.Store(auth.LongLivedToken, credcache.DefaultTTL); serr != nil {
			log.WithError(serr).Warn("credential cache store failed")
		}
	}
	o.board.Update(TaskLogin, board.StatusCompleted)
	return nil
}

func (o *Orchestrator) cacheRead() (string, bool) {
	if o.cache == nil {
		return "", false
	}
	return o.cache.Read()
}

func (o *Orchestrator) policy(p Params) RetryPolicy {
	return RetryPolicy{
		Interval:    time.Duration(p.RefreshSeconds) * time.Second,
		MaxAttempts: maxPollAttempts,
		IsTransient: resy.Retryable,
	}
}
