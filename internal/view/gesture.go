package view

import (
	"context"

	"lori/internal/gesture"
	"lori/internal/log"
)

// Phase is a pointer event forwarded from a dashboard row.
type Phase string

const (
	PhaseStart  Phase = "start"
	PhaseMove   Phase = "move"
	PhaseEnd    Phase = "end"
	PhaseCancel Phase = "cancel"
)

// ParsePhase validates a phase name from a request path.
func ParsePhase(s string) (Phase, error) {
	switch p := Phase(s); p {
	case PhaseStart, PhaseMove, PhaseEnd, PhaseCancel:
		return p, nil
	default:
		return "", ErrUnknownPhase
	}
}

// RowState is what the row needs to redraw itself after a pointer event.
type RowState struct {
	ID      string  `json:"id"`
	State   string  `json:"state"`
	Outcome string  `json:"outcome"`
	Offset  float64 `json:"offset"`
	Removed bool    `json:"removed"`
	Open    bool    `json:"open"`
}

// Gesture feeds one pointer event to the row's machine. A commit hides the
// row at once and deletes the item after gesture.SettleDelay; a tap opens
// the counter.
func (c *Controller) Gesture(ctx context.Context, id string, phase Phase, x float64) (RowState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.screen != Dashboard {
		return RowState{}, ErrInvalidTransition
	}
	if _, ok := c.store.Get(id); !ok {
		c.rows.Delete(id)
		return RowState{}, ErrItemNotFound
	}

	m, ok := c.rows.Get(id)
	if !ok {
		m = gesture.New()
	}

	outcome := gesture.OutcomeNone
	switch phase {
	case PhaseStart:
		m.Start(x)
	case PhaseMove:
		m.Move(x)
	case PhaseEnd:
		outcome = m.End()
	case PhaseCancel:
		m.Cancel()
	default:
		return RowState{}, ErrUnknownPhase
	}
	c.rows.Set(id, m)

	row := RowState{
		ID:      id,
		State:   m.State().String(),
		Outcome: outcome.String(),
		Offset:  m.Offset(),
		Removed: m.Removed(),
	}

	switch outcome {
	case gesture.OutcomeCommit:
		c.scheduleRemovalLocked(ctx, id)
		c.logger.InfoContext(ctx, "Row swiped away",
			log.FieldItemID, id, log.FieldOutcome, outcome.String())
	case gesture.OutcomeTap:
		if err := c.openLocked(ctx, id); err == nil {
			row.Open = true
		}
	}
	return row, nil
}

func (c *Controller) scheduleRemovalLocked(ctx context.Context, id string) {
	if _, pending := c.removing[id]; pending {
		return
	}
	bg := context.WithoutCancel(ctx)
	c.removing[id] = c.schedule(gesture.SettleDelay, func() {
		c.finishRemoval(bg, id)
	})
}

func (c *Controller) finishRemoval(ctx context.Context, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, pending := c.removing[id]; !pending {
		return
	}
	c.removeLocked(ctx, id)
	c.reconcileLocked()
}

func (c *Controller) removeLocked(ctx context.Context, id string) {
	delete(c.removing, id)
	c.rows.Delete(id)
	if c.store.Remove(ctx, id) {
		c.logger.InfoContext(ctx, "Item removed", log.FieldItemID, id, log.FieldOperation, log.OpRemove)
	}
}
