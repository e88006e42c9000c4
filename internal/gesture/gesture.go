// Package gesture turns a horizontal drag on an item row into a
// delete-or-cancel decision.
//
// Only leftward travel moves the row. The visible offset is clamped to
// MaxTravel, and ending the drag past CommitThreshold commits the delete.
// Anything shorter springs back to zero. A touch that barely moves is a tap.
package gesture

import (
	"math"
	"time"
)

const (
	// MaxTravel is the largest leftward offset a row can show.
	MaxTravel = 150.0
	// CommitThreshold is the leftward travel that must be exceeded to delete.
	CommitThreshold = 100.0
	// TapSlop is the pointer travel still treated as a tap.
	TapSlop = 10.0
	// SettleDelay separates the commit decision from the actual delete,
	// leaving time for the fade-out.
	SettleDelay = 200 * time.Millisecond
)

type State int

const (
	Idle State = iota
	Dragging
	Committing
	Settled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Committing:
		return "committing"
	case Settled:
		return "settled"
	default:
		return "unknown"
	}
}

// Outcome is what End decided.
type Outcome int

const (
	// OutcomeNone means End arrived without a drag in progress.
	OutcomeNone Outcome = iota
	// OutcomeTap selects the item.
	OutcomeTap
	// OutcomeSpringBack snaps the row back to zero.
	OutcomeSpringBack
	// OutcomeCommit deletes the item after SettleDelay.
	OutcomeCommit
)

func (o Outcome) String() string {
	switch o {
	case OutcomeTap:
		return "tap"
	case OutcomeSpringBack:
		return "spring_back"
	case OutcomeCommit:
		return "commit"
	default:
		return "none"
	}
}

// Machine tracks one row. It is not safe for concurrent use; the owner
// serializes input events.
type Machine struct {
	state   State
	startX  float64
	offset  float64
	maxMove float64
}

// New returns a machine in Idle.
func New() *Machine {
	return &Machine{}
}

func (m *Machine) State() State { return m.state }

// Offset is the current visual translation, always in [-MaxTravel, 0].
func (m *Machine) Offset() float64 { return m.offset }

// Removed reports whether the row should render as gone (transparent,
// slightly scaled down).
func (m *Machine) Removed() bool { return m.state == Committing }

// Start begins a drag at pointer position x. It is ignored once the row
// is committing.
func (m *Machine) Start(x float64) {
	switch m.state {
	case Idle, Settled:
		m.state = Dragging
		m.startX = x
		m.offset = 0
		m.maxMove = 0
	case Dragging:
		// A second pointer-down without an end restarts the drag from here.
		m.startX = x
		m.maxMove = 0
	}
}

// Move updates the drag with the current pointer position.
func (m *Machine) Move(x float64) {
	if m.state != Dragging {
		return
	}
	delta := x - m.startX
	if d := math.Abs(delta); d > m.maxMove {
		m.maxMove = d
	}
	if delta < 0 {
		m.offset = math.Max(delta, -MaxTravel)
	}
}

// End finishes the drag and reports the decision.
func (m *Machine) End() Outcome {
	if m.state != Dragging {
		return OutcomeNone
	}
	if m.offset < -CommitThreshold {
		m.state = Committing
		return OutcomeCommit
	}
	wasTap := m.offset == 0 && m.maxMove <= TapSlop
	m.offset = 0
	m.state = Settled
	if wasTap {
		return OutcomeTap
	}
	return OutcomeSpringBack
}

// Cancel aborts a drag in progress, e.g. on pointercancel.
func (m *Machine) Cancel() {
	if m.state == Dragging {
		m.offset = 0
		m.state = Settled
	}
}
