package booking

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/getresyd/internal/board"
	"github.com/example/getresyd/internal/resy"
)

// Distinct terminal conditions of the poll loop. Neither marks the task
// as errored: the caller asked to stop, or the safety valve tripped.
var (
	ErrStopped   = errors.New("monitoring stopped by user")
	ErrExhausted = errors.New("max polling attempts reached")
)

// maxPollAttempts is a runaway-loop safety valve, not a business limit.
const maxPollAttempts = 10000

// RetryPolicy makes the poller's retry behavior first-class: how long to
// wait between attempts, how many attempts before giving up, and which
// failures count as transient.
type RetryPolicy struct {
	Interval    time.Duration
	MaxAttempts int
	IsTransient func(error) bool
}

// pollUntilAvailable queries for slots at a fixed interval until a
// non-empty result comes back, the run is cancelled, or the attempt
// ceiling is reached. Every iteration stamps the task as monitoring with
// the check time; transient faults wait one interval and retry silently;
// anything else marks the task errored and propagates. Exactly one poll
// loop may be active per run.
func (o *Orchestrator) pollUntilAvailable(ctx context.Context, rc *RunContext, q resy.SlotQuery, taskID, token string, policy RetryPolicy) ([]resy.Slot, error) {
	log := o.log.WithFields(logrus.Fields{
		"run_id":   rc.ID,
		"task":     taskID,
		"venue_id": q.VenueID,
	})

	attempts := 0
	for attempts < policy.MaxAttempts && rc.Running() {
		o.board.Update(taskID, board.StatusMonitoring, board.WithLastCheck(formatClock(o.now())))

		slots, err := o.gw.FindSlots(ctx, rc.ID, q, token)
		if err != nil {
			if policy.IsTransient != nil && policy.IsTransient(err) {
				log.WithError(err).Warn("slot check failed, retrying")
				if serr := o.sleep(ctx, policy.Interval); serr != nil {
					return nil, serr
				}
				attempts++
				continue
			}
			o.board.Update(taskID, board.StatusError, board.WithError(err.Error()))
			return nil, err
		}
		if len(slots) > 0 {
			log.WithField("slots", len(slots)).Info("slots available")
			o.board.Update(taskID, board.StatusCompleted)
			return slots, nil
		}

		if serr := o.sleep(ctx, policy.Interval); serr != nil {
			return nil, serr
		}
		attempts++
	}

	if !rc.Running() {
		log.Info("polling stopped by user")
		return nil, ErrStopped
	}
	return nil, ErrExhausted
}
