package amqp

import (
	"encoding/json"
	"time"

	"lori/internal/core"
)

// TabEvent carries the full tab after a mutation. Sequence increases per
// publisher so consumers can spot gaps and reordering.
type TabEvent struct {
	Sequence  uint64      `json:"sequence"`
	Items     []core.Item `json:"items"`
	Total     float64     `json:"total"`
	Active    int         `json:"active"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewTabEvent summarizes items into an event stamped now.
func NewTabEvent(seq uint64, items []core.Item) *TabEvent {
	if items == nil {
		items = []core.Item{}
	}
	return &TabEvent{
		Sequence:  seq,
		Items:     items,
		Total:     core.TotalBill(items),
		Active:    len(core.Active(items)),
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TabEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TabEventFromJSON decodes a message body.
func TabEventFromJSON(data []byte) (*TabEvent, error) {
	var msg TabEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
