package domain

import "errors"

var (
	// ErrMalformedTimecode marks one cue whose timing line could not be
	// parsed. The cue is dropped; the rest of the source still parses.
	ErrMalformedTimecode = errors.New("malformed timecode")

	// ErrUnparsableSource marks a source whose entire content failed to
	// decode. Content was present but unusable.
	ErrUnparsableSource = errors.New("unparsable transcript source")

	// ErrUnreachableSource marks a fetch failure (network error or non-2xx
	// response).
	ErrUnreachableSource = errors.New("unreachable transcript source")

	// ErrNoQualifyingSource marks a unit with zero candidate sources.
	ErrNoQualifyingSource = errors.New("no qualifying transcript source")

	// ErrInvalidSourceURL marks a source listed with a missing or
	// syntactically invalid URL.
	ErrInvalidSourceURL = errors.New("invalid transcript source url")
)
