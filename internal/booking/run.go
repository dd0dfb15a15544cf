package booking

import (
	"errors"
	"fmt"
	"sync/atomic"

	z "github.com/Oudwins/zog"
	"github.com/google/uuid"

	"github.com/example/getresyd/internal/board"
	"github.com/example/getresyd/internal/resy"
)

// Mode selects which pipeline a run executes.
type Mode string

const (
	// ModeMonitor stops at slot detection.
	ModeMonitor Mode = "monitor"
	// ModeFull books the first matching slot the moment one appears.
	ModeFull Mode = "full"
)

// Task identifiers, in pipeline order.
const (
	TaskVenue   = "venue"
	TaskLogin   = "login"
	TaskSlots   = "slots"
	TaskPreview = "preview"
	TaskBook    = "book"
	TaskMonitor = "monitor"
)

// TasksFor returns the fixed ordered task set for a mode: 2 steps for
// monitor, 5 for full. The set never changes mid-run.
func TasksFor(mode Mode) []board.Task {
	if mode == ModeMonitor {
		return []board.Task{
			{ID: TaskVenue, Name: "Getting venue information", Status: board.StatusPending},
			{ID: TaskMonitor, Name: "Monitoring for available slots", Status: board.StatusPending},
		}
	}
	return []board.Task{
		{ID: TaskVenue, Name: "Getting venue information", Status: board.StatusPending},
		{ID: TaskLogin, Name: "Logging into Resy", Status: board.StatusPending},
		{ID: TaskSlots, Name: "Finding available slots", Status: board.StatusPending},
		{ID: TaskPreview, Name: "Previewing reservation", Status: board.StatusPending},
		{ID: TaskBook, Name: "Booking reservation", Status: board.StatusPending},
	}
}

// Params describes one run. Either VenueID+VenueName (search flow) or
// VenueURL must be supplied.
type Params struct {
	Mode Mode

	Email    string
	Password string

	VenueID   int
	VenueName string
	VenueURL  string

	PartySize int
	Date      string // YYYY-MM-DD
	TimeStart string // optional HH:MM
	TimeEnd   string // optional HH:MM

	RefreshSeconds int

	// monitor mode: where the external notification channel reaches the
	// user once slots are detected
	NotificationMethod  string
	NotificationContact string
}

var paramsSchema = z.Struct(z.Shape{
	"Date": z.String().Required(z.Message("date is required")),
	"PartySize": z.Int().
		GTE(1, z.Message("party size must be at least 1")).
		LTE(20, z.Message("party size must be at most 20")),
	"RefreshSeconds": z.Int().
		GTE(1, z.Message("refresh interval must be between 1 and 60 seconds")).
		LTE(60, z.Message("refresh interval must be between 1 and 60 seconds")),
})

// Validate rejects a run before any task is created.
func (p Params) Validate() error {
	if issues := paramsSchema.Validate(&p); len(issues) > 0 {
		return issueErr(issues)
	}
	if p.VenueID == 0 && p.VenueURL == "" {
		return errors.New("venue url or venue id is required")
	}
	switch p.Mode {
	case ModeFull:
		if p.Email == "" || p.Password == "" {
			return errors.New("email and password are required")
		}
	case ModeMonitor:
		if p.NotificationContact == "" {
			return errors.New("notification contact is required")
		}
	default:
		return fmt.Errorf("unknown mode %q", p.Mode)
	}
	return nil
}

func issueErr(issues z.ZogIssueMap) error {
	// stable field order so the reported message is deterministic
	for _, field := range []string{"Date", "PartySize", "RefreshSeconds"} {
		if list := issues[field]; len(list) > 0 {
			return errors.New(list[0].Message)
		}
	}
	for _, list := range issues {
		if len(list) > 0 {
			return errors.New(list[0].Message)
		}
	}
	return errors.New("invalid run parameters")
}

// RunContext is the mutable state of one run: its correlation id, the
// cancellation flag, and the session token tracker. One per run, owned by
// the orchestrator; never shared across runs.
type RunContext struct {
	ID      string
	running atomic.Bool
	session sessionTracker
}

func NewRunContext() *RunContext {
	rc := &RunContext{ID: uuid.NewString()}
	rc.running.Store(true)
	return rc
}

// Stop requests cooperative cancellation. The poller observes it between
// iterations; single-shot calls run to completion.
func (rc *RunContext) Stop() {
	rc.running.Store(false)
}

func (rc *RunContext) Running() bool {
	return rc.running.Load()
}

// SessionToken returns the best session credential captured so far.
func (rc *RunContext) SessionToken() string {
	return rc.session.Current()
}

// Result is what a finished run produced.
type Result struct {
	VenueID   int
	VenueName string
	Slots     []resy.Slot

	Booked          bool
	ReservationTime string
	CheckoutTime    string
}
