// Package board holds the ordered task list a run mutates as it
// progresses. It is the only state the presentation layer observes.
package board

import "sync"

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
	// StatusMonitoring is the sustained sub-state of in-progress used
	// only by the polling step.
	StatusMonitoring Status = "monitoring"
)

// Active reports whether a task in this status is the run's current step.
func (s Status) Active() bool {
	return s == StatusInProgress || s == StatusMonitoring
}

// Terminal reports whether the task is done, one way or the other.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Task is one pipeline step.
type Task struct {
	ID     string
	Name   string
	Status Status

	Err       string
	LastCheck string

	// booking result annotations
	VenueName       string
	CheckoutTime    string
	ReservationTime string
}

// Option mutates a task's optional fields during an update.
type Option func(*Task)

func WithError(msg string) Option {
	return func(t *Task) { t.Err = msg }
}

func WithLastCheck(ts string) Option {
	return func(t *Task) { t.LastCheck = ts }
}

func WithBookingDetails(venueName, checkoutTime, reservationTime string) Option {
	return func(t *Task) {
		t.VenueName = venueName
		t.CheckoutTime = checkoutTime
		t.ReservationTime = reservationTime
	}
}

// Board is an ordered, observable task list. The task set is fixed at
// Initialize time; updates mutate exactly one task in place and emit one
// event per mutation, in order.
type Board struct {
	mu        sync.Mutex
	tasks     []Task
	observers []func(Task)
}

func New() *Board {
	return &Board{}
}

// Subscribe registers an observer called once per task mutation,
// including the initial pending set.
func (b *Board) Subscribe(fn func(Task)) {
	b.mu.Lock()
	b.observers = append(b.observers, fn)
	b.mu.Unlock()
}

// Initialize replaces the full ordered task set, wiping any prior run.
func (b *Board) Initialize(tasks []Task) {
	b.mu.Lock()
	b.tasks = make([]Task, len(tasks))
	copy(b.tasks, tasks)
	obs := append([]func(Task){}, b.observers...)
	snapshot := append([]Task{}, b.tasks...)
	b.mu.Unlock()

	for _, t := range snapshot {
		for _, fn := range obs {
			fn(t)
		}
	}
}

// Update mutates one task's status and optional fields, leaving every
// other task untouched. It reports whether the id was found.
func (b *Board) Update(id string, status Status, opts ...Option) bool {
	b.mu.Lock()
	for i := range b.tasks {
		if b.tasks[i].ID != id {
			continue
		}
		t := &b.tasks[i]
		t.Status = status
		for _, opt := range opts {
			opt(t)
		}
		updated := *t
		obs := append([]func(Task){}, b.observers...)
		b.mu.Unlock()

		for _, fn := range obs {
			fn(updated)
		}
		return true
	}
	b.mu.Unlock()
	return false
}

// Reset clears the board for a fresh run.
func (b *Board) Reset() {
	b.mu.Lock()
	b.tasks = nil
	b.mu.Unlock()
}

// Tasks returns a snapshot of the current task set in pipeline order.
func (b *Board) Tasks() []Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Task, len(b.tasks))
	copy(out, b.tasks)
	return out
}

// Get returns one task by id.
func (b *Board) Get(id string) (Task, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range b.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// Active returns the task currently in progress or monitoring. At most
// one task is active at a time.
func (b *Board) Active() (Task, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range b.tasks {
		if t.Status.Active() {
			return t, true
		}
	}
	return Task{}, false
}
