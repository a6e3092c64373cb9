package parser

import (
	"encoding/json"
	"strings"

	"github.com/eleven-am/transkit/internal/domain"
	"github.com/eleven-am/transkit/internal/timecode"
)

// Two JSON shapes are accepted: a W3C-style annotation page whose items
// carry text in body.value and times in a media-fragment target
// ("...#t=1.2,21"), and a flat cue array ({"text"/"value", "begin", "end"}).
// Anything else is invalid.

type annotationPage struct {
	Items []annotationItem `json:"items"`
}

type annotationItem struct {
	Body   json.RawMessage `json:"body"`
	Target json.RawMessage `json:"target"`
}

type annotationBody struct {
	Value string `json:"value"`
}

type annotationTarget struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	Selector struct {
		Value string `json:"value"`
	} `json:"selector"`
}

type flatCue struct {
	Text  string   `json:"text"`
	Value string   `json:"value"`
	Begin *float64 `json:"begin"`
	End   *float64 `json:"end"`
}

func (p *Parser) parseJSON(content []byte, sourceURL string) domain.Transcript {
	var page annotationPage
	if err := json.Unmarshal(content, &page); err == nil && len(page.Items) > 0 {
		return p.fromAnnotations(page.Items, sourceURL)
	}

	var cues []flatCue
	if err := json.Unmarshal(content, &cues); err == nil && len(cues) > 0 {
		return p.fromFlatCues(cues, sourceURL)
	}

	p.logger.Warn().Str("url", sourceURL).Err(domain.ErrUnparsableSource).
		Msg("unrecognized transcript JSON shape")
	return domain.Transcript{Format: domain.FormatInvalid, SourceURL: sourceURL}
}

func (p *Parser) fromAnnotations(annotations []annotationItem, sourceURL string) domain.Transcript {
	var items []domain.Item

	for _, a := range annotations {
		text, ok := bodyValue(a.Body)
		if !ok {
			p.logger.Warn().Str("url", sourceURL).Msg("dropping annotation without text body")
			continue
		}

		fragment := targetFragment(a.Target)
		if fragment == "" {
			// Untimed annotation: listed, highlightable, never seekable.
			items = append(items, domain.Item{Text: text, Index: len(items)})
			continue
		}

		begin, end, err := parseFragmentTimes(fragment)
		if err != nil {
			p.logger.Warn().Str("url", sourceURL).Str("fragment", fragment).Err(err).
				Msg("dropping annotation with malformed media fragment")
			continue
		}
		items = append(items, domain.Item{Text: text, Begin: &begin, End: &end, Index: len(items)})
	}

	if len(items) == 0 {
		return domain.Transcript{Format: domain.FormatInvalid, SourceURL: sourceURL}
	}
	return domain.Transcript{Items: items, Format: domain.FormatTimedText, SourceURL: sourceURL}
}

func (p *Parser) fromFlatCues(cues []flatCue, sourceURL string) domain.Transcript {
	var items []domain.Item

	for _, c := range cues {
		text := c.Text
		if text == "" {
			text = c.Value
		}
		if text == "" {
			p.logger.Warn().Str("url", sourceURL).Msg("dropping cue without text")
			continue
		}

		item := domain.Item{Text: text, Index: len(items)}
		if c.Begin != nil {
			begin := *c.Begin
			end := begin
			if c.End != nil {
				end = *c.End
			}
			if end < begin || begin < 0 {
				p.logger.Warn().Str("url", sourceURL).Float64("begin", begin).Float64("end", end).
					Msg("dropping cue with inverted interval")
				continue
			}
			item.Begin = &begin
			item.End = &end
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return domain.Transcript{Format: domain.FormatInvalid, SourceURL: sourceURL}
	}
	return domain.Transcript{Items: items, Format: domain.FormatTimedText, SourceURL: sourceURL}
}

// bodyValue extracts annotation text from a body that is either a single
// object or an array of objects.
func bodyValue(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}

	var body annotationBody
	if err := json.Unmarshal(raw, &body); err == nil && body.Value != "" {
		return body.Value, true
	}

	var bodies []annotationBody
	if err := json.Unmarshal(raw, &bodies); err == nil {
		for _, b := range bodies {
			if b.Value != "" {
				return b.Value, true
			}
		}
	}
	return "", false
}

// targetFragment pulls the temporal media fragment ("t=1.2,21") out of a
// target expressed as a plain URL string, an object id, or a fragment
// selector.
func targetFragment(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return fragmentOf(s)
	}

	var t annotationTarget
	if err := json.Unmarshal(raw, &t); err == nil {
		if v := strings.TrimSpace(t.Selector.Value); v != "" {
			return v
		}
		if f := fragmentOf(t.ID); f != "" {
			return f
		}
		return fragmentOf(t.Source)
	}
	return ""
}

func fragmentOf(target string) string {
	_, fragment, ok := strings.Cut(target, "#")
	if !ok {
		return ""
	}
	return fragment
}

// parseFragmentTimes decodes "t=begin[,end]". A fragment with only a start
// offset yields a zero-length interval at that offset.
func parseFragmentTimes(fragment string) (begin, end float64, err error) {
	spec, ok := strings.CutPrefix(fragment, "t=")
	if !ok {
		return 0, 0, domain.ErrMalformedTimecode
	}

	rawBegin, rawEnd, hasEnd := strings.Cut(spec, ",")
	begin, err = timecode.Parse(rawBegin)
	if err != nil {
		return 0, 0, err
	}

	end = begin
	if hasEnd {
		end, err = timecode.Parse(rawEnd)
		if err != nil {
			return 0, 0, err
		}
	}
	if end < begin {
		return 0, 0, domain.ErrMalformedTimecode
	}
	return begin, end, nil
}
