package selection

import (
	"context"
	"fmt"
	"sync"

	"github.com/eleven-am/transkit/internal/domain"
	"github.com/rs/zerolog"
)

// Loader fetches and parses one source. It never fails: fetch and parse
// problems come back as an invalid or empty transcript. Loaders run on a
// background goroutine; results re-enter the machine through apply, where
// the request token decides whether they are still relevant.
type Loader func(ctx context.Context, src domain.Source) domain.Transcript

// Machine owns the selection state for one player embed: the active unit,
// the active source, and the active transcript line. All mutations go
// through its transition methods; adapters only ever see snapshots.
type Machine struct {
	playback domain.Playback
	loader   Loader
	logger   zerolog.Logger

	mu       sync.Mutex
	units    [][]domain.Source
	sel      domain.Selection
	active   domain.Transcript
	loading  bool
	token    uint64
	cache    map[string]domain.Transcript
	watchers []chan domain.Selection
}

func NewMachine(playback domain.Playback, loader Loader, logger zerolog.Logger) *Machine {
	return &Machine{
		playback: playback,
		loader:   loader,
		logger:   logger,
		sel:      domain.Selection{UnitIndex: -1, SourceIndex: -1, ItemIndex: -1, AutoScroll: true},
		cache:    make(map[string]domain.Transcript),
	}
}

// SetUnits installs the resolved source lists and selects the first unit.
// Previous selection state, in-flight loads, and the parse cache are
// discarded; source lists are rebuilt wholesale on manifest reload.
func (m *Machine) SetUnits(ctx context.Context, units [][]domain.Source) {
	m.mu.Lock()
	m.units = units
	m.token++ // invalidate any in-flight load
	m.cache = make(map[string]domain.Transcript)
	m.sel = domain.Selection{UnitIndex: -1, SourceIndex: -1, ItemIndex: -1, AutoScroll: m.sel.AutoScroll}
	m.active = domain.Transcript{}
	m.loading = false

	if len(units) > 0 {
		m.selectUnitLocked(ctx, 0)
	}
	m.notifyLocked()
	m.mu.Unlock()
}

// SelectUnit switches the active unit, picks its first source that is not
// already known invalid, clears the active item, and triggers a load of the
// newly active source.
func (m *Machine) SelectUnit(ctx context.Context, unitIndex int) error {
	m.mu.Lock()
	if unitIndex < 0 || unitIndex >= len(m.units) {
		m.mu.Unlock()
		return fmt.Errorf("unit %d out of range", unitIndex)
	}
	m.selectUnitLocked(ctx, unitIndex)
	m.notifyLocked()
	m.mu.Unlock()
	return nil
}

func (m *Machine) selectUnitLocked(ctx context.Context, unitIndex int) {
	m.sel.UnitIndex = unitIndex
	m.sel.ItemIndex = -1

	sources := m.units[unitIndex]
	if len(sources) == 0 {
		m.sel.SourceIndex = -1
		m.active = domain.Transcript{Format: domain.FormatNone}
		m.loading = false
		m.token++
		return
	}

	m.sel.SourceIndex = 0
	for i, src := range sources {
		if src.Format != domain.FormatInvalid && src.Format != domain.FormatNone {
			m.sel.SourceIndex = i
			break
		}
	}
	m.loadLocked(ctx)
}

// SelectSource switches to another source of the active unit, clearing the
// active item. A source already parsed since the last unit rebuild is served
// from cache; invalid sources are never refetched here, re-selection after a
// rebuild re-triggers acquisition.
func (m *Machine) SelectSource(ctx context.Context, sourceIndex int) error {
	m.mu.Lock()
	if m.sel.UnitIndex < 0 {
		m.mu.Unlock()
		return fmt.Errorf("no unit selected")
	}
	if len(m.units[m.sel.UnitIndex]) == 0 {
		m.mu.Unlock()
		return fmt.Errorf("unit %d: %w", m.sel.UnitIndex, domain.ErrNoQualifyingSource)
	}
	if sourceIndex < 0 || sourceIndex >= len(m.units[m.sel.UnitIndex]) {
		m.mu.Unlock()
		return fmt.Errorf("source %d out of range", sourceIndex)
	}
	m.sel.SourceIndex = sourceIndex
	m.sel.ItemIndex = -1
	m.loadLocked(ctx)
	m.notifyLocked()
	m.mu.Unlock()
	return nil
}

func (m *Machine) loadLocked(ctx context.Context) {
	src := m.units[m.sel.UnitIndex][m.sel.SourceIndex]
	m.token++
	token := m.token

	if src.Format == domain.FormatInvalid {
		m.active = domain.Transcript{Format: domain.FormatInvalid, SourceURL: src.URL}
		m.loading = false
		return
	}

	key := src.ID + "|" + src.URL
	if cached, ok := m.cache[key]; ok {
		m.active = cached
		m.loading = false
		return
	}

	m.active = domain.Transcript{SourceURL: src.URL}
	m.loading = true

	// Loads outlive the caller's context: an HTTP dispatch returns before
	// the fetch finishes. Superseded loads are discarded by token, never by
	// aborting the transport.
	loadCtx := context.WithoutCancel(ctx)
	go func() {
		t := m.loader(loadCtx, src)
		m.apply(token, key, t)
	}()
}

// apply installs a load result unless the selection has moved on since the
// load started. Stale results are discarded without touching the current
// transcript.
func (m *Machine) apply(token uint64, cacheKey string, t domain.Transcript) {
	m.mu.Lock()
	if token != m.token {
		m.mu.Unlock()
		m.logger.Debug().Str("url", t.SourceURL).Msg("discarding superseded transcript load")
		return
	}

	m.active = t
	m.loading = false
	if t.Format != domain.FormatInvalid {
		// Invalid results may be transient fetch failures; keep them out of
		// the cache so re-selection re-triggers acquisition.
		m.cache[cacheKey] = t
	}
	m.notifyLocked()
	m.mu.Unlock()

	m.logger.Debug().Str("url", t.SourceURL).Str("format", string(t.Format)).
		Int("items", len(t.Items)).Msg("transcript loaded")
}

// Tick reacts to a playback-position update. Ticks for another unit are
// ignored so coexisting players cannot leak highlights into each other.
// Between cues the previous item stays active; the index only moves when a
// cue interval actually contains the position. Returns whether the active
// item changed.
func (m *Machine) Tick(seconds float64, unitIndex int) bool {
	m.mu.Lock()
	if unitIndex != m.sel.UnitIndex {
		m.mu.Unlock()
		return false
	}

	next := -1
	for _, item := range m.active.Items {
		if item.Contains(seconds) {
			next = item.Index
			break
		}
	}
	if next == -1 || next == m.sel.ItemIndex {
		m.mu.Unlock()
		return false
	}

	m.sel.ItemIndex = next
	m.notifyLocked()
	m.mu.Unlock()
	return true
}

// ClickItem highlights the clicked item immediately and, for timed items,
// asks the playback collaborator for exactly one seek to the cue start.
// Untimed items only move the highlight.
func (m *Machine) ClickItem(itemIndex int) error {
	m.mu.Lock()
	if itemIndex < 0 || itemIndex >= len(m.active.Items) {
		m.mu.Unlock()
		return fmt.Errorf("item %d out of range", itemIndex)
	}
	m.sel.ItemIndex = itemIndex
	item := m.active.Items[itemIndex]
	m.notifyLocked()
	m.mu.Unlock()

	if item.Begin != nil {
		m.playback.RequestSeek(*item.Begin)
	}
	return nil
}

// ToggleAutoScroll flips whether adapters should bring the active item into
// view on change. Highlighting is unaffected. Returns the new value.
func (m *Machine) ToggleAutoScroll() bool {
	m.mu.Lock()
	m.sel.AutoScroll = !m.sel.AutoScroll
	enabled := m.sel.AutoScroll
	m.notifyLocked()
	m.mu.Unlock()
	return enabled
}

// Snapshot returns the current selection state.
func (m *Machine) Snapshot() domain.Selection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sel
}

// VisibleItems returns a copy of the active transcript's items.
func (m *Machine) VisibleItems() []domain.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]domain.Item, len(m.active.Items))
	copy(items, m.active.Items)
	return items
}

// ActiveTranscript returns the parse result for the active source.
func (m *Machine) ActiveTranscript() domain.Transcript {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// ActiveSource returns the active source descriptor, if any.
func (m *Machine) ActiveSource() (domain.Source, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sel.UnitIndex < 0 || m.sel.SourceIndex < 0 {
		return domain.Source{}, false
	}
	return m.units[m.sel.UnitIndex][m.sel.SourceIndex], true
}

// Loading reports whether a source load is still in flight. The
// no-transcript state is only meaningful once loading is done.
func (m *Machine) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// NoTranscript reports whether the active unit has no usable transcript:
// an empty source list, or an active source that resolved to nothing.
// This is a first-class user-visible state, distinct from a load still in
// flight.
func (m *Machine) NoTranscript() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sel.UnitIndex < 0 || m.loading {
		return false
	}
	if len(m.units[m.sel.UnitIndex]) == 0 {
		return true
	}
	return m.active.Format == domain.FormatNone || m.active.Format == domain.FormatInvalid
}

// UnitCount returns the number of playable units.
func (m *Machine) UnitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.units)
}

// Sources returns a copy of one unit's source list.
func (m *Machine) Sources(unitIndex int) []domain.Source {
	m.mu.Lock()
	defer m.mu.Unlock()
	if unitIndex < 0 || unitIndex >= len(m.units) {
		return nil
	}
	sources := make([]domain.Source, len(m.units[unitIndex]))
	copy(sources, m.units[unitIndex])
	return sources
}

// Subscribe returns a channel receiving a selection snapshot after every
// state change. Slow receivers miss intermediate snapshots instead of
// blocking transitions.
func (m *Machine) Subscribe() <-chan domain.Selection {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan domain.Selection, 8)
	m.watchers = append(m.watchers, ch)
	return ch
}

// notifyLocked delivers the current selection to subscribers. The caller
// holds mu, so delivery order matches transition order; slow receivers miss
// snapshots instead of blocking transitions.
func (m *Machine) notifyLocked() {
	for _, ch := range m.watchers {
		select {
		case ch <- m.sel:
		default:
		}
	}
}
