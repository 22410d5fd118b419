package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/weatherornot/internal/weather"
)

// ErrClosed is returned by Close when the controller is already closed.
var ErrClosed = errors.New("session controller closed")

// fallbackFetchError is shown when a failed fetch carries no reason.
const fallbackFetchError = "Failed to fetch weather"

// Options tunes collaborator timeouts. Zero values use the defaults.
type Options struct {
	FetchTimeout   time.Duration
	PersistTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 15 * time.Second
	}
	if o.PersistTimeout <= 0 {
		o.PersistTimeout = 5 * time.Second
	}
	return o
}

// Controller owns the saved-location list and the current selection, mirrors
// list changes to a Persistence best-effort, and keeps the weather snapshot in
// step with the selection.
//
// All mutations are applied locally first and never rolled back. Weather
// results are tagged with a generation number; a result whose generation is
// no longer current is dropped, so the last Select/Remove/Clear always decides
// what is shown.
type Controller struct {
	persist Persistence
	weather Weather
	logger  *zap.Logger
	opts    Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	closed    bool
	saved     []string
	selection string
	snapshot  *weather.Snapshot
	status    Status
	errMsg    string
	warning   string

	gen         uint64
	cancelFetch context.CancelFunc

	subs    map[int]chan State
	nextSub int
}

// New creates a controller and hydrates the saved list from persist before
// returning. A hydrate failure leaves the list empty and is only logged.
func New(ctx context.Context, persist Persistence, w Weather, logger *zap.Logger, opts Options) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	base, cancel := context.WithCancel(context.Background())
	c := &Controller{
		persist: persist,
		weather: w,
		logger:  logger.Named("session"),
		opts:    opts.withDefaults(),
		ctx:     base,
		cancel:  cancel,
		subs:    make(map[int]chan State),
	}
	c.hydrate(ctx)
	return c
}

func (c *Controller) hydrate(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.PersistTimeout)
	defer cancel()

	names, err := c.persist.List(ctx)
	if err != nil {
		c.logger.Warn("could not load saved locations", zap.Error(err))
		c.mu.Lock()
		c.warning = fmt.Sprintf("load saved locations: %v", err)
		c.mu.Unlock()
		return
	}

	// Keep the returned order, dropping blanks and repeats.
	saved := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || slices.Contains(saved, n) {
			continue
		}
		saved = append(saved, n)
	}

	c.mu.Lock()
	c.saved = saved
	c.mu.Unlock()
	c.logger.Debug("hydrated saved locations", zap.Int("count", len(saved)))
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Select makes name the current selection, saves it if new and starts a
// weather fetch. Names that are blank after trimming are ignored.
func (c *Controller) Select(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	// The snapshot belongs to the selection; a re-select of the same name
	// keeps showing it while the refresh loads.
	if name != c.selection {
		c.snapshot = nil
	}
	c.selection = name
	if !slices.Contains(c.saved, name) {
		c.saved = append([]string{name}, c.saved...)
		c.mirrorLocked("add", []string{name}, c.persist.Add)
	}
	c.fetchLocked(name)
	c.notifyLocked()
}

// Remove drops name from the saved list. When name is the selection, the
// first remaining saved entry (or nothing) becomes the selection and the
// snapshot is cleared right away.
func (c *Controller) Remove(name string) {
	name = strings.TrimSpace(name)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	idx := slices.Index(c.saved, name)
	if idx >= 0 {
		c.saved = slices.Delete(slices.Clone(c.saved), idx, idx+1)
		c.mirrorLocked("remove", []string{name}, c.persist.Remove)
	}

	if name != "" && name == c.selection {
		c.reselectLocked()
	} else if idx < 0 {
		return
	}
	c.notifyLocked()
}

// Clear empties the saved list and deletes every entry remotely, one after
// another. A selection that was saved is treated as removed.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	old := c.saved
	c.saved = nil
	if len(old) > 0 {
		c.mirrorLocked("remove", old, c.persist.Remove)
	}

	if c.selection != "" && slices.Contains(old, c.selection) {
		c.reselectLocked()
	}
	c.notifyLocked()
}

// Refresh fetches the weather for the current selection again.
func (c *Controller) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.selection == "" {
		return
	}

	c.fetchLocked(c.selection)
	c.notifyLocked()
}

// Subscribe returns a channel receiving the state after every change. Only
// the latest state is buffered; a slow reader skips intermediate states. The
// channel is closed by the returned cancel func or by Close.
func (c *Controller) Subscribe() (<-chan State, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan State, 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.stateLocked()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				close(sub)
				delete(c.subs, id)
			}
		})
	}
}

// Wait blocks until all in-flight fetches and persistence calls finish.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close stops accepting changes, abandons the pending fetch, waits for
// outstanding persistence calls and closes all subscriptions.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.closed = true
	c.gen++
	if c.cancelFetch != nil {
		c.cancelFetch()
		c.cancelFetch = nil
	}
	c.mu.Unlock()

	c.wg.Wait()
	c.cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	return nil
}

// reselectLocked falls back to the first saved entry after the selection
// went away. The old snapshot is cleared without waiting for a new fetch.
func (c *Controller) reselectLocked() {
	c.invalidateFetchLocked()
	c.snapshot = nil
	c.status = StatusIdle
	c.errMsg = ""

	c.selection = ""
	if len(c.saved) > 0 {
		c.selection = c.saved[0]
		c.fetchLocked(c.selection)
	}
}

func (c *Controller) invalidateFetchLocked() {
	c.gen++
	if c.cancelFetch != nil {
		c.cancelFetch()
		c.cancelFetch = nil
	}
}

// fetchLocked starts a fetch for name, superseding any fetch in flight.
func (c *Controller) fetchLocked(name string) {
	c.invalidateFetchLocked()
	gen := c.gen

	ctx, cancel := context.WithTimeout(c.ctx, c.opts.FetchTimeout)
	c.cancelFetch = cancel
	c.status = StatusLoading
	c.errMsg = ""

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()

		snap, err := c.weather.Current(ctx, name)

		c.mu.Lock()
		defer c.mu.Unlock()

		if gen != c.gen || name != c.selection {
			c.logger.Debug("discarding stale weather result", zap.String("location", name))
			return
		}
		c.cancelFetch = nil

		if err != nil {
			msg := weather.Reason(err)
			if msg == "" {
				msg = fallbackFetchError
			}
			c.logger.Info("weather fetch failed", zap.String("location", name), zap.Error(err))
			c.snapshot = nil
			c.status = StatusError
			c.errMsg = msg
		} else {
			c.snapshot = &snap
			c.status = StatusSuccess
		}
		c.notifyLocked()
	}()
}

// mirrorLocked sends names to the persistence collaborator in the
// background, in order. Failures are logged and surfaced as a warning only.
func (c *Controller) mirrorLocked(op string, names []string, call func(context.Context, string) error) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		for _, name := range names {
			ctx, cancel := context.WithTimeout(c.ctx, c.opts.PersistTimeout)
			err := call(ctx, name)
			cancel()
			if err == nil {
				continue
			}

			c.logger.Warn("saved location sync failed",
				zap.String("op", op),
				zap.String("location", name),
				zap.Error(err))

			c.mu.Lock()
			c.warning = fmt.Sprintf("%s %q: %v", op, name, err)
			if !c.closed {
				c.notifyLocked()
			}
			c.mu.Unlock()
		}
	}()
}

func (c *Controller) stateLocked() State {
	st := State{
		Saved:       slices.Clone(c.saved),
		Selection:   c.selection,
		Status:      c.status,
		Error:       c.errMsg,
		SyncWarning: c.warning,
	}
	if st.Saved == nil {
		st.Saved = []string{}
	}
	if c.snapshot != nil {
		snap := *c.snapshot
		st.Weather = &snap
	}
	return st
}

// notifyLocked publishes the state to every subscriber, replacing any state
// the subscriber has not read yet.
func (c *Controller) notifyLocked() {
	if len(c.subs) == 0 {
		return
	}
	st := c.stateLocked()
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- st:
		default:
		}
	}
}
