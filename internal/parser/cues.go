package parser

import (
	"strings"

	"github.com/eleven-am/transkit/internal/domain"
	"github.com/eleven-am/transkit/internal/timecode"
)

// parseWebVTT decodes a WebVTT file. The WEBVTT header is mandatory; NOTE,
// STYLE and REGION blocks are skipped. A file with a valid header and zero
// decodable cues out of at least one attempted cue block is invalid.
func (p *Parser) parseWebVTT(content []byte, sourceURL string) domain.Transcript {
	text := normalizeNewlines(string(content))
	head, body, _ := strings.Cut(text, "\n")
	head = strings.TrimPrefix(head, "\ufeff")
	if !strings.HasPrefix(strings.TrimSpace(head), "WEBVTT") {
		p.logger.Warn().Str("url", sourceURL).Msg("missing WEBVTT header")
		return domain.Transcript{Format: domain.FormatInvalid, SourceURL: sourceURL}
	}

	cues, attempted := p.scanCueBlocks(body, sourceURL)
	if attempted > 0 && len(cues) == 0 {
		p.logger.Warn().Str("url", sourceURL).Err(domain.ErrUnparsableSource).
			Msg("every cue block malformed")
		return domain.Transcript{Format: domain.FormatInvalid, SourceURL: sourceURL}
	}
	return domain.Transcript{Items: cues, Format: domain.FormatTimedText, SourceURL: sourceURL}
}

// parseSRT decodes a SubRip file: numeric index line, timing line, text
// lines, blank separator. A file in which no cue block decodes is invalid.
func (p *Parser) parseSRT(content []byte, sourceURL string) domain.Transcript {
	cues, _ := p.scanCueBlocks(string(content), sourceURL)
	if len(cues) == 0 {
		p.logger.Warn().Str("url", sourceURL).Err(domain.ErrUnparsableSource).
			Msg("no decodable cues in subtitle file")
		return domain.Transcript{Format: domain.FormatInvalid, SourceURL: sourceURL}
	}
	return domain.Transcript{Items: cues, Format: domain.FormatTimedText, SourceURL: sourceURL}
}

// scanCueBlocks walks blank-line-separated blocks and decodes every block
// containing a "-->" timing line. It returns the decoded items plus the
// number of blocks that looked like cues, so callers can tell an empty file
// apart from one whose every cue was malformed. Cue text is carried through
// byte-for-byte, inline markup included.
func (p *Parser) scanCueBlocks(content, sourceURL string) ([]domain.Item, int) {
	var items []domain.Item
	attempted := 0

	for _, block := range splitBlocks(content) {
		lines := block
		if isCommentBlock(lines[0]) {
			continue
		}

		timing := -1
		for i, line := range lines {
			if strings.Contains(line, "-->") {
				timing = i
				break
			}
		}
		if timing < 0 || timing > 1 {
			// Not a cue: no timing line, or garbage before it.
			continue
		}
		attempted++

		begin, end, err := parseTimingLine(lines[timing])
		if err != nil {
			p.logger.Warn().Str("url", sourceURL).Str("line", lines[timing]).Err(err).
				Msg("dropping cue with malformed timing")
			continue
		}

		items = append(items, domain.Item{
			Text:  strings.Join(lines[timing+1:], "\n"),
			Begin: &begin,
			End:   &end,
			Index: len(items),
		})
	}

	return items, attempted
}

// parseTimingLine decodes "<begin> --> <end>[ cue settings]". Cue settings
// after the end timecode are tolerated and ignored.
func parseTimingLine(line string) (begin, end float64, err error) {
	left, right, ok := strings.Cut(line, "-->")
	if !ok {
		return 0, 0, domain.ErrMalformedTimecode
	}

	begin, err = timecode.Parse(left)
	if err != nil {
		return 0, 0, err
	}

	endFields := strings.Fields(right)
	if len(endFields) == 0 {
		return 0, 0, domain.ErrMalformedTimecode
	}
	end, err = timecode.Parse(endFields[0])
	if err != nil {
		return 0, 0, err
	}

	if end < begin {
		return 0, 0, domain.ErrMalformedTimecode
	}
	return begin, end, nil
}

func splitBlocks(content string) [][]string {
	var blocks [][]string
	var current []string

	for _, line := range strings.Split(normalizeNewlines(content), "\n") {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				blocks = append(blocks, current)
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}
	return blocks
}

func isCommentBlock(first string) bool {
	head := strings.TrimSpace(first)
	return strings.HasPrefix(head, "NOTE") ||
		strings.HasPrefix(head, "STYLE") ||
		strings.HasPrefix(head, "REGION")
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
