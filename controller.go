// Package transkit keeps a scrollable, clickable transcript view in sync
// with audio/video playback for IIIF-style media works.
//
// transkit discovers transcript sources per playable unit (explicit lists or
// manifest-attached supplementing annotations), normalizes heterogeneous
// transcript formats (WebVTT, SRT, JSON cue lists and annotation pages,
// plain text, external documents) into time-coded items, and runs the
// selection state machine that drives highlighting, auto-scroll, and
// seek-on-click.
//
// # Architecture
//
// The library is built around three collaborator interfaces:
//
//   - ManifestReader: enumerates playable units and their supplementing
//     annotations (a default IIIF Presentation 3 implementation ships in
//     internal/manifest and is reachable through ParseManifest)
//   - Playback: receives seek requests and identifies the active unit
//   - Fetcher: retrieves raw transcript content (an HTTP implementation is
//     the default)
//
// # Basic Usage
//
//	controller := transkit.NewController(transkit.Options{
//	    Manifest: reader,
//	    Playback: player,
//	})
//
//	if err := controller.LoadUnits(ctx, nil); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Feed playback position ticks and user clicks:
//	controller.Tick(currentSeconds, unitIndex)
//	controller.ClickItem(itemIndex)
//
//	// Presentation adapters read snapshots:
//	items := controller.VisibleItems()
//	state := controller.Selection()
//
// # Failure semantics
//
// Nothing in this package is fatal to the host player. Unreachable or
// undecodable sources degrade to an invalid source with zero navigable
// items; malformed individual cues are dropped with a logged warning while
// the rest of the source still parses.
package transkit

import (
	"context"
	"fmt"
	"time"

	"github.com/eleven-am/transkit/internal/domain"
	"github.com/eleven-am/transkit/internal/fetch"
	"github.com/eleven-am/transkit/internal/manifest"
	"github.com/eleven-am/transkit/internal/parser"
	"github.com/eleven-am/transkit/internal/resolver"
	"github.com/eleven-am/transkit/internal/selection"

	"github.com/rs/zerolog"
)

type (
	// ManifestReader enumerates playable units and surfaces the
	// supplementing annotations attached to each unit's canvas.
	ManifestReader = domain.ManifestReader

	// Playback is the playback collaborator: transkit requests seeks
	// through it and filters position ticks by its active unit.
	Playback = domain.Playback

	// Fetcher retrieves raw transcript content.
	Fetcher = domain.Fetcher

	// Source is one selectable transcript choice for one playable unit.
	Source = domain.Source

	// Item is one normalized transcript line or cue.
	Item = domain.Item

	// Transcript is the parse result for one source.
	Transcript = domain.Transcript

	// Format classifies a transcript source.
	Format = domain.Format

	// Selection is the read-only state snapshot for presentation adapters.
	Selection = domain.Selection

	// ExplicitSource is a caller-supplied transcript entry, used when the
	// host application already knows its transcript URLs.
	ExplicitSource = resolver.ExplicitSource
)

const (
	FormatTimedText   = domain.FormatTimedText
	FormatPlainText   = domain.FormatPlainText
	FormatExternalDoc = domain.FormatExternalDoc
	FormatNone        = domain.FormatNone
	FormatInvalid     = domain.FormatInvalid
)

// ParseManifest builds a ManifestReader from raw IIIF Presentation 3
// manifest JSON.
func ParseManifest(data []byte) (ManifestReader, error) {
	return manifest.Parse(data)
}

// ViewerURL returns the external-viewer URL used to render
// document-format transcript sources.
func ViewerURL(sourceURL string) string {
	return parser.ViewerURL(sourceURL)
}

// Options configures the Controller behavior and dependencies.
type Options struct {
	// Playback is required. Receives seek requests on item clicks.
	Playback Playback

	// Manifest enables discovery mode. Optional when every unit is covered
	// by explicit sources passed to LoadUnits.
	Manifest ManifestReader

	// Fetcher retrieves transcript content. Defaults to an HTTP fetcher
	// with FetchTimeout.
	Fetcher Fetcher

	// FetchTimeout bounds a single transcript fetch. Default: 15 seconds.
	FetchTimeout time.Duration

	// Logger receives parse warnings and load events. Default: no-op.
	Logger zerolog.Logger
}

func (o *Options) validate() {
	if o.Playback == nil {
		panic("transkit: Playback is required")
	}
}

func (o *Options) setDefaults() {
	if o.FetchTimeout == 0 {
		o.FetchTimeout = 15 * time.Second
	}
	if o.Fetcher == nil {
		o.Fetcher = fetch.NewHTTPFetcher(o.FetchTimeout, o.Logger)
	}
}

// Controller is the entry point for transcript operations: it resolves
// sources, runs the acquisition pipeline, and owns the selection state
// machine.
type Controller struct {
	opts     Options
	parser   *parser.Parser
	resolver *resolver.Resolver
	machine  *selection.Machine
}

// NewController creates a Controller with the given options. It panics if
// Playback is nil. No units are selectable until LoadUnits runs.
func NewController(opts Options) *Controller {
	opts.validate()
	opts.setDefaults()

	p := parser.New(opts.Logger)
	c := &Controller{
		opts:     opts,
		parser:   p,
		resolver: resolver.New(opts.Manifest, opts.Logger),
	}
	c.machine = selection.NewMachine(opts.Playback, c.loadSource, opts.Logger)
	return c
}

// LoadUnits resolves the transcript source list for every playable unit and
// selects the first unit. Explicit entries take precedence per unit;
// discovery through the manifest collaborator covers the rest. Passing nil
// uses discovery only.
//
// Call it again to rebuild the source lists after a manifest reload;
// selection state and the parse cache reset.
func (c *Controller) LoadUnits(ctx context.Context, explicit [][]ExplicitSource) error {
	count := len(explicit)
	if c.opts.Manifest != nil {
		n, err := c.opts.Manifest.UnitCount(ctx)
		if err != nil {
			return fmt.Errorf("unit count: %w", err)
		}
		if n > count {
			count = n
		}
	}
	if count == 0 && c.opts.Manifest == nil {
		return fmt.Errorf("no manifest and no explicit sources")
	}

	units := make([][]domain.Source, count)
	for i := 0; i < count; i++ {
		var entries []ExplicitSource
		if i < len(explicit) {
			entries = explicit[i]
		}
		sources, err := c.resolver.Resolve(ctx, i, entries)
		if err != nil {
			return fmt.Errorf("resolve unit %d: %w", i, err)
		}
		units[i] = sources
	}

	c.machine.SetUnits(ctx, units)
	return nil
}

// loadSource is the acquisition pipeline for one source: fetch, then parse.
// It never fails; fetch errors downgrade the source to FormatInvalid.
func (c *Controller) loadSource(ctx context.Context, src domain.Source) domain.Transcript {
	content, err := c.opts.Fetcher.Fetch(ctx, src.URL)
	if err != nil {
		c.opts.Logger.Warn().Str("id", src.ID).Str("url", src.URL).Err(err).
			Msg("transcript source unreachable")
		return domain.Transcript{Format: domain.FormatInvalid, SourceURL: src.URL}
	}
	return c.parser.Parse(content, src.URL)
}

// SelectUnit switches the active playable unit.
func (c *Controller) SelectUnit(ctx context.Context, unitIndex int) error {
	return c.machine.SelectUnit(ctx, unitIndex)
}

// SelectSource switches the active transcript source of the current unit.
func (c *Controller) SelectSource(ctx context.Context, sourceIndex int) error {
	return c.machine.SelectSource(ctx, sourceIndex)
}

// Tick reports a playback position for a unit and returns whether the
// active transcript item changed. Ticks for units other than the active one
// are ignored.
func (c *Controller) Tick(seconds float64, unitIndex int) bool {
	return c.machine.Tick(seconds, unitIndex)
}

// Sync polls the playback collaborator once and applies its position as a
// tick. Use it when the player exposes a position getter instead of pushing
// ticks.
func (c *Controller) Sync() bool {
	return c.machine.Tick(c.opts.Playback.Position(), c.opts.Playback.ActiveUnit())
}

// ClickItem highlights an item and requests a seek to its start time when
// it has one.
func (c *Controller) ClickItem(itemIndex int) error {
	return c.machine.ClickItem(itemIndex)
}

// ToggleAutoScroll flips the auto-scroll flag and returns the new value.
func (c *Controller) ToggleAutoScroll() bool {
	return c.machine.ToggleAutoScroll()
}

// Selection returns the current selection state snapshot.
func (c *Controller) Selection() Selection {
	return c.machine.Snapshot()
}

// VisibleItems returns the items of the active source.
func (c *Controller) VisibleItems() []Item {
	return c.machine.VisibleItems()
}

// ActiveTranscript returns the full parse result for the active source.
func (c *Controller) ActiveTranscript() Transcript {
	return c.machine.ActiveTranscript()
}

// ActiveSource returns the descriptor of the active source, if any.
func (c *Controller) ActiveSource() (Source, bool) {
	return c.machine.ActiveSource()
}

// Loading reports whether a source load is still in flight.
func (c *Controller) Loading() bool {
	return c.machine.Loading()
}

// NoTranscript reports whether the active unit has no usable transcript, a
// first-class user-visible state distinct from a load in flight.
func (c *Controller) NoTranscript() bool {
	return c.machine.NoTranscript()
}

// UnitCount returns the number of playable units.
func (c *Controller) UnitCount() int {
	return c.machine.UnitCount()
}

// Sources returns the transcript choices for one unit.
func (c *Controller) Sources(unitIndex int) []Source {
	return c.machine.Sources(unitIndex)
}

// UnitLabel returns the display label of a unit, empty without a manifest.
func (c *Controller) UnitLabel(ctx context.Context, unitIndex int) string {
	if c.opts.Manifest == nil {
		return ""
	}
	label, err := c.opts.Manifest.UnitLabel(ctx, unitIndex)
	if err != nil {
		return ""
	}
	return label
}

// Subscribe returns a channel receiving a selection snapshot after every
// state change.
func (c *Controller) Subscribe() <-chan Selection {
	return c.machine.Subscribe()
}
