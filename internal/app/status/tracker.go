package status

import (
	"sync"
	"time"

	"github.com/ghalamif/SensorLog/internal/domain"
)

// Unknown is reported as machine_status before any action has been applied.
const Unknown = "UNKNOWN"

const (
	KeyMachineStatus = "machine_status"
	KeyUptime        = "uptime"
	KeyDowntime      = "downtime"
)

// Change describes a transition observed by Update.
type Change struct {
	From    domain.Action // zero when the tracker was unset
	To      domain.Action
	At      time.Time
	Elapsed float64 // seconds spent in From
}

// FromString renders From, or Unknown when unset.
func (c Change) FromString() string {
	if c.From == 0 {
		return Unknown
	}
	return c.From.String()
}

// Listener is notified after every real transition, outside the tracker lock.
type Listener func(Change)

// Tracker holds the current machine action and when it last changed.
type Tracker struct {
	mu         sync.Mutex
	clock      func() time.Time
	current    domain.Action
	lastChange time.Time
	set        bool
	listeners  []Listener
}

func NewTracker(clock func() time.Time) *Tracker {
	if clock == nil {
		clock = time.Now
	}
	return &Tracker{clock: clock}
}

// OnChange registers l for future transitions.
func (t *Tracker) OnChange(l Listener) {
	if l == nil {
		return
	}
	t.mu.Lock()
	t.listeners = append(t.listeners, l)
	t.mu.Unlock()
}

// Update moves the tracker to action. Re-applying the current action is a
// no-op: the clock is not reset and no listener fires.
func (t *Tracker) Update(action domain.Action) (Change, bool) {
	change, changed, _ := t.Apply(action)
	return change, changed
}

// Apply is Update that also returns the status metadata as it stood right
// after action was applied, read under the same lock as the transition.
// Listeners run after the lock is released and cannot affect the snapshot.
func (t *Tracker) Apply(action domain.Action) (Change, bool, domain.Metadata) {
	t.mu.Lock()
	now := t.clock()
	if t.set && t.current == action {
		md := t.metadataLocked(now)
		t.mu.Unlock()
		return Change{To: action, At: now}, false, md
	}

	change := Change{From: t.current, To: action, At: now}
	if t.set {
		change.Elapsed = elapsed(t.lastChange, now)
	}
	t.current = action
	t.lastChange = now
	t.set = true
	md := t.metadataLocked(now)
	listeners := append([]Listener(nil), t.listeners...)
	t.mu.Unlock()

	for _, l := range listeners {
		l(change)
	}
	return change, true, md
}

// Snapshot returns the current action, its start instant and whether any
// action has been applied, read atomically.
func (t *Tracker) Snapshot() (domain.Action, time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current, t.lastChange, t.set
}

// ElapsedSeconds is the time since the last change, 0 when unset. Clock skew
// never produces a negative value.
func (t *Tracker) ElapsedSeconds() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.set {
		return 0
	}
	return elapsed(t.lastChange, t.clock())
}

// StatusMetadata returns machine_status plus uptime or downtime depending on
// the current action. Actions that are neither running nor halted carry
// machine_status only.
func (t *Tracker) StatusMetadata() domain.Metadata {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.metadataLocked(t.clock())
}

func (t *Tracker) metadataLocked(now time.Time) domain.Metadata {
	if !t.set {
		return domain.Metadata{KeyMachineStatus: Unknown}
	}
	md := domain.Metadata{KeyMachineStatus: t.current.String()}
	since := elapsed(t.lastChange, now)
	switch {
	case t.current.Running():
		md[KeyUptime] = since
	case t.current.Halted():
		md[KeyDowntime] = since
	}
	return md
}

func elapsed(from, now time.Time) float64 {
	d := now.Sub(from).Seconds()
	if d < 0 {
		return 0
	}
	return d
}
