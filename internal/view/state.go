package view

import "lori/internal/core"

// Row is a dashboard line with its swipe position.
type Row struct {
	core.Item
	Offset   float64
	Removing bool
}

// State is an immutable copy of everything a screen renders.
type State struct {
	Screen Screen
	Rows   []Row
	Total  float64

	// Counter
	Selected     core.Item
	HasSelected  bool
	PriceEditing bool
	PriceDraft   string

	// Add item
	Form    Form
	Palette []core.Style

	// Dashboard
	ConfirmingReset bool

	// Recap
	RecapItems   []core.Item
	RecapLoading bool
	RecapText    string
	Generation   uint64
}

// Empty reports whether the dashboard has no rows to show.
func (s State) Empty() bool { return len(s.Rows) == 0 }

func (c *Controller) snapshotLocked() State {
	items := c.store.Items()
	st := State{
		Screen:          c.screen,
		Total:           core.TotalBill(items),
		PriceEditing:    c.priceEditing,
		PriceDraft:      c.priceDraft,
		Form:            c.form,
		Palette:         core.Palette(),
		ConfirmingReset: c.confirmReset,
		RecapItems:      core.Active(items),
		RecapLoading:    c.recapLoading,
		RecapText:       c.recapText,
		Generation:      c.generation,
	}
	st.Rows = make([]Row, 0, len(items))
	for _, it := range items {
		row := Row{Item: it}
		if _, pending := c.removing[it.ID]; pending {
			row.Removing = true
		} else if m, ok := c.rows.Get(it.ID); ok {
			row.Offset = m.Offset()
		}
		st.Rows = append(st.Rows, row)
		if c.screen == Counter && it.ID == c.selectedID {
			st.Selected = it
			st.HasSelected = true
		}
	}
	return st
}
