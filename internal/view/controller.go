// Package view owns the navigation state of the single-user UI: the
// active screen, the counter selection, the add-item form, the reset gate,
// the recap summary and one gesture machine per swiped row.
package view

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"lori/internal/cache"
	"lori/internal/core"
	"lori/internal/gesture"
	"lori/internal/log"
	"lori/internal/summary"
	"lori/internal/tab"
)

type Screen string

const (
	Dashboard Screen = "dashboard"
	Counter   Screen = "counter"
	AddItem   Screen = "add-item"
	Recap     Screen = "recap"
)

var (
	ErrNothingToSummarize = errors.New("nothing to summarize")
	ErrInvalidTransition  = errors.New("action not available on this screen")
	ErrItemNotFound       = errors.New("item not found")
	ErrUnknownPhase       = errors.New("unknown gesture phase")
)

// Scheduler runs fn once after d. It returns a function that cancels the
// pending call.
type Scheduler func(d time.Duration, fn func()) (cancel func())

// AfterFunc is the production Scheduler.
func AfterFunc(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// Form is the add-item draft.
type Form struct {
	Name      string
	Price     string
	IconIndex int
}

// Controller serializes every UI event behind one mutex.
type Controller struct {
	mu         sync.Mutex
	store      *tab.Store
	summarizer summary.Summarizer
	rows       *cache.LRUCache[*gesture.Machine]
	schedule   Scheduler
	logger     *log.Logger

	screen       Screen
	selectedID   string
	priceEditing bool
	priceDraft   string
	form         Form
	confirmReset bool

	generation   uint64
	recapLoading bool
	recapText    string

	removing map[string]func()
	wg       sync.WaitGroup

	done context.Context
	stop context.CancelFunc
}

// Option configures a Controller.
type Option func(*Controller)

// WithScheduler replaces time.AfterFunc for delayed row removal.
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) {
		if s != nil {
			c.schedule = s
		}
	}
}

// WithRowCache supplies the registry of per-row gesture machines.
func WithRowCache(rows *cache.LRUCache[*gesture.Machine]) Option {
	return func(c *Controller) {
		if rows != nil {
			c.rows = rows
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewController(store *tab.Store, summarizer summary.Summarizer, opts ...Option) *Controller {
	if summarizer == nil {
		summarizer = summary.Static{}
	}
	c := &Controller{
		store:      store,
		summarizer: summarizer,
		rows:       cache.NewLRUCache[*gesture.Machine](256, 2*time.Minute),
		schedule:   AfterFunc,
		logger:     log.Nop(),
		screen:     Dashboard,
		removing:   make(map[string]func()),
	}
	c.done, c.stop = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store exposes the underlying item store.
func (c *Controller) Store() *tab.Store { return c.store }

// TrackedRows is the number of rows with a live gesture machine.
func (c *Controller) TrackedRows() int { return c.rows.Size() }

// Snapshot returns the current view. A Counter whose item disappeared
// falls back to the Dashboard before the snapshot is taken.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconcileLocked()
	return c.snapshotLocked()
}

// OpenItem selects an item and shows its counter.
func (c *Controller) OpenItem(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.openLocked(ctx, id)
}

func (c *Controller) openLocked(ctx context.Context, id string) error {
	if c.screen != Dashboard {
		return ErrInvalidTransition
	}
	if _, ok := c.store.Get(id); !ok {
		return ErrItemNotFound
	}
	if _, pending := c.removing[id]; pending {
		return ErrItemNotFound
	}
	c.screen = Counter
	c.selectedID = id
	c.logger.DebugContext(ctx, "Counter opened", log.FieldItemID, id)
	return nil
}

// Back leaves the counter.
func (c *Controller) Back(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.screen != Counter {
		return ErrInvalidTransition
	}
	c.toDashboardLocked()
	return nil
}

func (c *Controller) Increment(ctx context.Context, id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ok := c.store.Increment(ctx, id)
	c.reconcileLocked()
	return ok
}

func (c *Controller) Decrement(ctx context.Context, id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ok := c.store.Decrement(ctx, id)
	c.reconcileLocked()
	return ok
}

// BeginPriceEdit opens the price dialog prefilled with the current price.
func (c *Controller) BeginPriceEdit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconcileLocked()
	if c.screen != Counter {
		return ErrInvalidTransition
	}
	it, _ := c.store.Get(c.selectedID)
	c.priceEditing = true
	c.priceDraft = strconv.FormatFloat(it.Price, 'f', -1, 64)
	return nil
}

func (c *Controller) CancelPriceEdit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.screen != Counter || !c.priceEditing {
		return ErrInvalidTransition
	}
	c.priceEditing = false
	c.priceDraft = ""
	return nil
}

// SavePrice stores the new price of the selected item. Unparsable input
// becomes 0.
func (c *Controller) SavePrice(ctx context.Context, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconcileLocked()
	if c.screen != Counter || !c.priceEditing {
		return ErrInvalidTransition
	}
	c.store.SetPrice(ctx, c.selectedID, value)
	c.priceEditing = false
	c.priceDraft = ""
	c.reconcileLocked()
	return nil
}

func (c *Controller) OpenAddItem(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.screen != Dashboard {
		return ErrInvalidTransition
	}
	c.screen = AddItem
	return nil
}

// CancelAddItem returns to the dashboard keeping the draft.
func (c *Controller) CancelAddItem(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.screen != AddItem {
		return ErrInvalidTransition
	}
	c.screen = Dashboard
	return nil
}

// UpdateForm replaces the draft. The icon index must be inside the palette.
func (c *Controller) UpdateForm(ctx context.Context, f Form) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.screen != AddItem {
		return ErrInvalidTransition
	}
	if _, err := core.StyleAt(f.IconIndex); err != nil {
		return err
	}
	c.form = f
	return nil
}

// SubmitAdd creates an item from f. On success the name and price are
// cleared, the icon choice is kept and the dashboard is shown. A rejected
// submission leaves both the store and the draft untouched.
func (c *Controller) SubmitAdd(ctx context.Context, f Form) (core.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.screen != AddItem {
		return core.Item{}, ErrInvalidTransition
	}
	it, err := c.store.Add(ctx, f.Name, f.Price, f.IconIndex)
	if err != nil {
		return core.Item{}, err
	}
	c.form = Form{IconIndex: f.IconIndex}
	c.screen = Dashboard
	c.logger.InfoContext(ctx, "Item added", log.NewFields().
		WithItem(it.ID, it.Name, it.Count, it.Price).
		WithOperation(log.OpAdd).ToSlice()...)
	return it, nil
}

// RequestReset opens the confirmation gate.
func (c *Controller) RequestReset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.screen != Dashboard {
		return ErrInvalidTransition
	}
	c.confirmReset = true
	return nil
}

// ConfirmReset closes the gate; counts are zeroed only when yes is true.
// The screen does not change.
func (c *Controller) ConfirmReset(ctx context.Context, yes bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.confirmReset {
		return ErrInvalidTransition
	}
	c.confirmReset = false
	if err := c.store.ResetAllCounts(ctx, yes); err != nil {
		if errors.Is(err, tab.ErrResetNotConfirmed) {
			return nil
		}
		return err
	}
	c.logger.InfoContext(ctx, "Counts reset", log.FieldOperation, log.OpReset)
	return nil
}

// EnterRecap shows the recap and asks the summarizer in the background.
// Only the result of the latest entry is applied.
func (c *Controller) EnterRecap(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.screen != Dashboard {
		return ErrInvalidTransition
	}
	if c.store.TotalBill() == 0 {
		return ErrNothingToSummarize
	}
	c.screen = Recap
	c.generation++
	c.recapLoading = true
	c.recapText = ""

	gen := c.generation
	req := summary.FromItems(c.store.Items())
	bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
	unlink := context.AfterFunc(c.done, cancel)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer unlink()
		defer cancel()
		text := c.summarizer.Summarize(bg, req)
		c.applySummary(bg, gen, text)
	}()
	return nil
}

func (c *Controller) applySummary(ctx context.Context, gen uint64, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		c.logger.DebugContext(ctx, "Stale summary dropped",
			log.FieldGeneration, gen, "current", c.generation)
		return
	}
	c.recapLoading = false
	c.recapText = text
}

// ContinueFromRecap returns to the dashboard.
func (c *Controller) ContinueFromRecap(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.screen != Recap {
		return ErrInvalidTransition
	}
	c.screen = Dashboard
	return nil
}

// Wait blocks until background work started so far has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close deletes rows whose swipe already committed without waiting for the
// settle delay, then cancels summaries still in flight so Wait returns.
func (c *Controller) Close(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ctx = context.WithoutCancel(ctx)
	for id, cancel := range c.removing {
		cancel()
		c.removeLocked(ctx, id)
	}
	c.reconcileLocked()
	c.stop()
}

func (c *Controller) toDashboardLocked() {
	c.screen = Dashboard
	c.selectedID = ""
	c.priceEditing = false
	c.priceDraft = ""
}

func (c *Controller) reconcileLocked() {
	if c.screen != Counter {
		return
	}
	if _, ok := c.store.Get(c.selectedID); !ok {
		c.logger.Debug("Selected item gone, back to dashboard", log.FieldItemID, c.selectedID)
		c.toDashboardLocked()
	}
}
