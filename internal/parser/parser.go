package parser

import (
	"bytes"
	"net/url"
	"path"
	"strings"

	"github.com/eleven-am/transkit/internal/domain"
	"github.com/rs/zerolog"
)

// Parser turns raw transcript content into a normalized Transcript. It never
// fails the whole pipeline: undecodable content degrades to FormatInvalid and
// individual malformed cues are dropped with a logged warning.
type Parser struct {
	logger zerolog.Logger
}

func New(logger zerolog.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse detects the format of content using the source URL extension as the
// hint and dispatches to the matching decoder. Detection order follows the
// rendering strategy: empty content, timed-text containers, external
// documents, plain text, then invalid.
func (p *Parser) Parse(content []byte, sourceURL string) domain.Transcript {
	if len(bytes.TrimSpace(content)) == 0 {
		return domain.Transcript{Format: domain.FormatNone, SourceURL: sourceURL}
	}

	switch Extension(sourceURL) {
	case ".vtt":
		return p.parseWebVTT(content, sourceURL)
	case ".srt":
		return p.parseSRT(content, sourceURL)
	case ".json":
		return p.parseJSON(content, sourceURL)
	case ".doc", ".docx", ".pdf":
		return externalDocument(sourceURL)
	case ".txt", ".text":
		return p.parsePlain(content, sourceURL)
	default:
		p.logger.Warn().Str("url", sourceURL).Msg("unrecognized transcript extension")
		return domain.Transcript{Format: domain.FormatInvalid, SourceURL: sourceURL}
	}
}

// Extension returns the lower-cased file extension of the source URL path,
// ignoring query and fragment.
func Extension(sourceURL string) string {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return strings.ToLower(path.Ext(sourceURL))
	}
	return strings.ToLower(path.Ext(u.Path))
}

// ViewerURL returns the embedded external-viewer URL for document-format
// sources. The source URL passes through unchanged; rendering is delegated
// entirely to the viewer.
func ViewerURL(sourceURL string) string {
	return "https://docs.google.com/gview?url=" + sourceURL + "&embedded=true"
}

// externalDocument defers rendering to the external viewer. The single
// placeholder item keeps the item-list contract uniform for adapters.
func externalDocument(sourceURL string) domain.Transcript {
	return domain.Transcript{
		Items:     []domain.Item{{Text: sourceURL, Index: 0}},
		Format:    domain.FormatExternalDoc,
		SourceURL: sourceURL,
	}
}

// parsePlain sniffs plain text for embedded subtitle-style cue blocks. When
// at least one well-formed cue is found the content is treated with
// timed-text semantics, flagged as coming from a plain-text container.
// Otherwise the entire content becomes a single untimed item.
func (p *Parser) parsePlain(content []byte, sourceURL string) domain.Transcript {
	cues, attempted := p.scanCueBlocks(string(content), sourceURL)
	if len(cues) > 0 {
		return domain.Transcript{
			Items:        cues,
			Format:       domain.FormatTimedText,
			SourceURL:    sourceURL,
			EmbeddedCues: true,
		}
	}
	if attempted > 0 {
		// Every embedded cue block was malformed; fall back to untimed text
		// rather than discarding the content.
		p.logger.Warn().Str("url", sourceURL).Int("blocks", attempted).
			Msg("embedded cue blocks unusable, rendering as plain text")
	}

	text := strings.TrimRight(string(content), "\r\n")
	return domain.Transcript{
		Items:     []domain.Item{{Text: text, Index: 0}},
		Format:    domain.FormatPlainText,
		SourceURL: sourceURL,
	}
}
