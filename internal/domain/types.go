package domain

// Format classifies one transcript source. It is determined once per source,
// from the source URL extension and the shape of the fetched content, and
// drives the rendering strategy.
type Format string

const (
	FormatUnknown     Format = ""
	FormatTimedText   Format = "timed-text"
	FormatPlainText   Format = "plain-text"
	FormatExternalDoc Format = "external-document"
	FormatNone        Format = "no-transcript"
	FormatInvalid     Format = "invalid"
)

// Navigable reports whether sources of this format yield items the sync
// machine can highlight and seek through.
func (f Format) Navigable() bool {
	return f == FormatTimedText || f == FormatPlainText
}

// Source is one selectable transcript choice for one playable unit.
// Sources are created by the resolver and immutable afterwards; a unit's
// source list is rebuilt wholesale on manifest reload.
type Source struct {
	ID               string
	Title            string
	URL              string
	MachineGenerated bool
	UnitIndex        int

	// Format is FormatInvalid when the URL is missing or not an absolute
	// URL, and FormatUnknown until the content has been fetched otherwise.
	Format Format
}

// Item is one normalized transcript line or cue. Text is carried
// byte-for-byte as it appeared in the cue body; inline markup is neither
// stripped nor interpreted here.
type Item struct {
	Text  string
	Begin *float64
	End   *float64
	Index int
}

// Timed reports whether the item carries a cue interval.
func (i Item) Timed() bool {
	return i.Begin != nil && i.End != nil
}

// Contains reports whether seconds falls inside the [Begin, End) interval.
// Untimed items contain nothing.
func (i Item) Contains(seconds float64) bool {
	return i.Timed() && *i.Begin <= seconds && seconds < *i.End
}

// Transcript is the parse result for one source.
type Transcript struct {
	Items     []Item
	Format    Format
	SourceURL string

	// EmbeddedCues marks timed cues that were recovered from inside a
	// plain-text container rather than a timed-text file.
	EmbeddedCues bool
}

// Selection is the read-only snapshot handed to presentation adapters.
// ItemIndex is -1 while no transcript line is active.
type Selection struct {
	UnitIndex   int  `json:"unitIndex"`
	SourceIndex int  `json:"sourceIndex"`
	ItemIndex   int  `json:"itemIndex"`
	AutoScroll  bool `json:"autoScroll"`
}
