package parser

import (
	"testing"

	"github.com/eleven-am/transkit/internal/domain"
	"github.com/rs/zerolog"
)

func newTestParser() *Parser {
	return New(zerolog.Nop())
}

const sampleVTT = `WEBVTT

NOTE machine generated

1
00:00:01.200 --> 00:00:21.000
[music]

2
00:00:22.200 --> 00:00:26.600
transcript <em>text</em> 1
`

func TestParseWebVTT(t *testing.T) {
	tr := newTestParser().Parse([]byte(sampleVTT), "http://example.com/transcript.vtt")

	if tr.Format != domain.FormatTimedText {
		t.Fatalf("format = %s, want timed-text", tr.Format)
	}
	if len(tr.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(tr.Items))
	}
	if tr.Items[0].Text != "[music]" || *tr.Items[0].Begin != 1.2 || *tr.Items[0].End != 21 {
		t.Fatalf("unexpected first cue: %+v", tr.Items[0])
	}
	if tr.Items[1].Text != "transcript <em>text</em> 1" {
		t.Fatalf("inline markup must pass through untouched, got %q", tr.Items[1].Text)
	}
	if tr.Items[0].Index != 0 || tr.Items[1].Index != 1 {
		t.Fatalf("sequence indexes must be stable ordinals")
	}
}

func TestParseWebVTTDropsMalformedCueOnly(t *testing.T) {
	content := "WEBVTT\n\n00:00:01.200 --> 00:00:21.000\nfirst\n\nbogus --> 00:00:30.000\nbroken\n\n00:00:22.200 --> 00:00:26.600\nlast\n"

	tr := newTestParser().Parse([]byte(content), "http://example.com/t.vtt")

	if tr.Format != domain.FormatTimedText {
		t.Fatalf("partial transcript must stay timed-text, got %s", tr.Format)
	}
	if len(tr.Items) != 2 {
		t.Fatalf("malformed cue should be dropped, got %d items", len(tr.Items))
	}
	if tr.Items[1].Text != "last" || tr.Items[1].Index != 1 {
		t.Fatalf("surviving cues must reindex contiguously: %+v", tr.Items[1])
	}
}

func TestParseWebVTTWhollyUndecodable(t *testing.T) {
	p := newTestParser()

	if tr := p.Parse([]byte("just some prose\nwith lines\n"), "http://example.com/t.vtt"); tr.Format != domain.FormatInvalid {
		t.Fatalf("missing header should be invalid, got %s", tr.Format)
	}

	allBad := "WEBVTT\n\nxx --> yy\none\n\nzz --> ww\ntwo\n"
	if tr := p.Parse([]byte(allBad), "http://example.com/t.vtt"); tr.Format != domain.FormatInvalid {
		t.Fatalf("all-malformed cues should be invalid, not empty timed-text, got %s", tr.Format)
	}
}

func TestParseSRT(t *testing.T) {
	content := "1\n00:00:01,200 --> 00:00:21,000\n[music]\n\n2\n00:00:22,200 --> 00:00:26,600\nsecond line\n"

	tr := newTestParser().Parse([]byte(content), "http://example.com/t.srt")

	if tr.Format != domain.FormatTimedText || len(tr.Items) != 2 {
		t.Fatalf("unexpected result: format=%s items=%d", tr.Format, len(tr.Items))
	}
	if *tr.Items[0].Begin != 1.2 {
		t.Fatalf("comma decimals must parse, got begin=%v", *tr.Items[0].Begin)
	}
}

func TestParsePlainTextWithEmbeddedCues(t *testing.T) {
	content := "1\n00:00:01.200 --> 00:00:21.000\nembedded cue\n\nplain trailing prose without timing\n"

	tr := newTestParser().Parse([]byte(content), "http://example.com/t.txt")

	if tr.Format != domain.FormatTimedText {
		t.Fatalf("embedded cues should yield timed-text semantics, got %s", tr.Format)
	}
	if !tr.EmbeddedCues {
		t.Fatalf("transcript must be flagged as coming from a plain-text container")
	}
	if len(tr.Items) != 1 || tr.Items[0].Text != "embedded cue" {
		t.Fatalf("unexpected items: %+v", tr.Items)
	}
}

func TestParsePlainTextWithoutCues(t *testing.T) {
	content := "Speaker one: hello.\nSpeaker two: hi there.\n"

	tr := newTestParser().Parse([]byte(content), "http://example.com/t.txt")

	if tr.Format != domain.FormatPlainText {
		t.Fatalf("format = %s, want plain-text", tr.Format)
	}
	if len(tr.Items) != 1 {
		t.Fatalf("plain text is a single untimed item, got %d", len(tr.Items))
	}
	if tr.Items[0].Timed() {
		t.Fatalf("plain text item must be untimed")
	}
	if tr.Items[0].Text != "Speaker one: hello.\nSpeaker two: hi there." {
		t.Fatalf("text content altered: %q", tr.Items[0].Text)
	}
}

func TestParseAnnotationList(t *testing.T) {
	content := `{
	  "id": "http://example.com/transcript.json",
	  "type": "AnnotationPage",
	  "items": [
	    {
	      "body": {"type": "TextualBody", "value": "[music]"},
	      "target": "http://example.com/canvas/1#t=1.2,21"
	    },
	    {
	      "body": [{"type": "TextualBody", "value": "second"}],
	      "target": {"source": "http://example.com/canvas/1", "selector": {"type": "FragmentSelector", "value": "t=22.2,26.6"}}
	    },
	    {
	      "body": {"value": "untimed note"},
	      "target": "http://example.com/canvas/1"
	    }
	  ]
	}`

	tr := newTestParser().Parse([]byte(content), "http://example.com/transcript.json")

	if tr.Format != domain.FormatTimedText || len(tr.Items) != 3 {
		t.Fatalf("unexpected result: format=%s items=%d", tr.Format, len(tr.Items))
	}
	if *tr.Items[0].Begin != 1.2 || *tr.Items[0].End != 21 {
		t.Fatalf("fragment times not decoded: %+v", tr.Items[0])
	}
	if *tr.Items[1].Begin != 22.2 || *tr.Items[1].End != 26.6 {
		t.Fatalf("selector fragment not decoded: %+v", tr.Items[1])
	}
	if tr.Items[2].Timed() {
		t.Fatalf("annotation without fragment must be untimed")
	}
}

func TestParseFlatCueArray(t *testing.T) {
	content := `[
	  {"text": "one", "begin": 1.2, "end": 21},
	  {"value": "two", "begin": 22.2, "end": 26.6},
	  {"text": "inverted", "begin": 30, "end": 29},
	  {"text": "start only", "begin": 40}
	]`

	tr := newTestParser().Parse([]byte(content), "http://example.com/t.json")

	if tr.Format != domain.FormatTimedText {
		t.Fatalf("format = %s", tr.Format)
	}
	if len(tr.Items) != 3 {
		t.Fatalf("inverted cue should be dropped, got %d items", len(tr.Items))
	}
	if *tr.Items[2].Begin != 40 || *tr.Items[2].End != 40 {
		t.Fatalf("start-only cue should collapse to zero-length interval: %+v", tr.Items[2])
	}
}

func TestParseInvalidJSON(t *testing.T) {
	p := newTestParser()

	for _, content := range []string{"not json at all", `{"items": []}`, `[1, 2, 3]`} {
		if tr := p.Parse([]byte(content), "http://example.com/t.json"); tr.Format != domain.FormatInvalid {
			t.Fatalf("content %q should be invalid, got %s", content, tr.Format)
		}
	}
}

func TestParseExternalDocument(t *testing.T) {
	for _, url := range []string{
		"http://example.com/transcript.doc",
		"http://example.com/transcript.docx",
		"http://example.com/transcript.pdf",
	} {
		tr := newTestParser().Parse([]byte("%PDF-1.4 binary-ish payload"), url)
		if tr.Format != domain.FormatExternalDoc {
			t.Fatalf("%s: format = %s, want external-document", url, tr.Format)
		}
		if len(tr.Items) != 1 {
			t.Fatalf("%s: external docs carry a single placeholder item", url)
		}
	}
}

func TestParseEmptyContent(t *testing.T) {
	tr := newTestParser().Parse([]byte("  \n\t"), "http://example.com/t.vtt")
	if tr.Format != domain.FormatNone {
		t.Fatalf("empty content means no transcript, got %s", tr.Format)
	}
}

func TestParseUnknownExtension(t *testing.T) {
	tr := newTestParser().Parse([]byte("payload"), "http://example.com/t.xyz")
	if tr.Format != domain.FormatInvalid {
		t.Fatalf("unknown extension should be invalid, got %s", tr.Format)
	}
}

func TestTimedItemsNonDecreasingOrder(t *testing.T) {
	tr := newTestParser().Parse([]byte(sampleVTT), "http://example.com/t.vtt")

	var prev float64 = -1
	for _, item := range tr.Items {
		if !item.Timed() {
			t.Fatalf("well-formed timed text must yield timed items")
		}
		if *item.Begin < prev {
			t.Fatalf("items out of order at index %d", item.Index)
		}
		if *item.End < *item.Begin {
			t.Fatalf("end before begin at index %d", item.Index)
		}
		prev = *item.Begin
	}
}

func TestExtensionIgnoresQueryAndFragment(t *testing.T) {
	if got := Extension("http://example.com/a/b/transcript.vtt?dl=1#frag"); got != ".vtt" {
		t.Fatalf("Extension = %q", got)
	}
	if got := Extension("http://example.com/plain"); got != "" {
		t.Fatalf("Extension = %q", got)
	}
}

func TestViewerURL(t *testing.T) {
	want := "https://docs.google.com/gview?url=http://example.com/transcript.doc&embedded=true"
	if got := ViewerURL("http://example.com/transcript.doc"); got != want {
		t.Fatalf("ViewerURL = %q, want %q", got, want)
	}
}
