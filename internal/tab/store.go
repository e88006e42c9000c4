// Package tab holds the ordered collection of consumption items and the
// operations that mutate it.
package tab

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"lori/internal/core"
)

var ErrResetNotConfirmed = errors.New("reset not confirmed")

// Observer is notified with the new snapshot after every effective mutation.
type Observer interface {
	Snapshot(ctx context.Context, items []core.Item)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, items []core.Item)

func (f ObserverFunc) Snapshot(ctx context.Context, items []core.Item) { f(ctx, items) }

// Option configures a Store.
type Option func(*Store)

// WithObserver registers an observer; observers run in registration order.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// WithIDGenerator replaces the id source for created items.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// Store keeps the tab. Every mutation builds a fresh slice and swaps it in,
// so readers only ever see whole snapshots.
type Store struct {
	mu        sync.RWMutex
	notifyMu  sync.Mutex
	items     []core.Item
	observers []Observer
	newID     func() string
}

func NewStore(items []core.Item, opts ...Option) *Store {
	s := &Store{
		items: append([]core.Item(nil), items...),
		newID: func() string { return "item-" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Items returns a copy of the current collection in display order.
func (s *Store) Items() []core.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Item(nil), s.items...)
}

// ActiveItems returns the items with a positive count.
func (s *Store) ActiveItems() []core.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.Active(s.items)
}

// Get returns the item with the given id.
func (s *Store) Get(id string) (core.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if it.ID == id {
			return it, true
		}
	}
	return core.Item{}, false
}

// Len returns the number of items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// TotalBill is recomputed on every call.
func (s *Store) TotalBill() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.TotalBill(s.items)
}

// Add appends a new item built from raw form input. Nothing changes when
// the name is blank, the price does not parse or the icon index is out of
// the palette.
func (s *Store) Add(ctx context.Context, name, price string, iconIndex int) (core.Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Item{}, core.ErrEmptyName
	}
	p, err := core.ParsePrice(price)
	if err != nil {
		return core.Item{}, err
	}
	style, err := core.StyleAt(iconIndex)
	if err != nil {
		return core.Item{}, err
	}

	s.mu.Lock()
	item := core.Item{
		ID:       s.uniqueIDLocked(),
		Name:     name,
		Price:    p,
		Icon:     style.Icon,
		Color:    style.Color,
		Category: core.Other,
	}
	next := make([]core.Item, len(s.items), len(s.items)+1)
	copy(next, s.items)
	s.items = append(next, item)
	s.publishLocked(ctx)
	return item, nil
}

// Increment adds one to the item's count.
func (s *Store) Increment(ctx context.Context, id string) bool {
	return s.update(ctx, id, func(it *core.Item) { it.Count++ })
}

// Decrement removes one from the item's count, never going below zero.
func (s *Store) Decrement(ctx context.Context, id string) bool {
	return s.update(ctx, id, func(it *core.Item) {
		if it.Count > 0 {
			it.Count--
		}
	})
}

// SetPrice re-prices an item. Input that ParsePrice rejects is stored as 0.
func (s *Store) SetPrice(ctx context.Context, id, price string) bool {
	p := core.ParsePriceOrZero(price)
	return s.update(ctx, id, func(it *core.Item) { it.Price = p })
}

// Remove deletes the item with the given id, leaving the others in order.
func (s *Store) Remove(ctx context.Context, id string) bool {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	next := make([]core.Item, 0, len(s.items)-1)
	next = append(next, s.items[:idx]...)
	next = append(next, s.items[idx+1:]...)
	s.items = next
	s.publishLocked(ctx)
	return true
}

// ResetAllCounts zeroes every count. The caller must pass the user's
// answer to the confirmation prompt.
func (s *Store) ResetAllCounts(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return ErrResetNotConfirmed
	}
	s.mu.Lock()
	next := make([]core.Item, len(s.items))
	for i, it := range s.items {
		it.Count = 0
		next[i] = it
	}
	s.items = next
	s.publishLocked(ctx)
	return nil
}

func (s *Store) update(ctx context.Context, id string, fn func(*core.Item)) bool {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	next := make([]core.Item, len(s.items))
	copy(next, s.items)
	fn(&next[idx])
	s.items = next
	s.publishLocked(ctx)
	return true
}

func (s *Store) indexLocked(id string) int {
	for i, it := range s.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) uniqueIDLocked() string {
	for {
		id := s.newID()
		if id != "" && s.indexLocked(id) < 0 {
			return id
		}
	}
}

// publishLocked releases mu and hands the new snapshot to the observers.
// notifyMu is taken before mu is released so observers see snapshots in
// mutation order.
func (s *Store) publishLocked(ctx context.Context) {
	snap := append([]core.Item(nil), s.items...)
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()
	for _, o := range s.observers {
		o.Snapshot(ctx, snap)
	}
}
