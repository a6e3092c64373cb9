package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/eleven-am/transkit/internal/domain"
	"github.com/rs/zerolog"
)

type stubManifest struct {
	sources map[int][]domain.Source
	err     error
	calls   int
}

func (m *stubManifest) UnitCount(ctx context.Context) (int, error) {
	return len(m.sources), nil
}

func (m *stubManifest) UnitLabel(ctx context.Context, unitIndex int) (string, error) {
	return "unit", nil
}

func (m *stubManifest) SupplementingSources(ctx context.Context, unitIndex int) ([]domain.Source, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.sources[unitIndex], nil
}

func TestExplicitAssignsStableIDs(t *testing.T) {
	r := New(nil, zerolog.Nop())

	sources := r.Explicit(2, []ExplicitSource{
		{Title: "Transcript 1", URL: "http://example.com/t1.vtt"},
		{Title: "Transcript 2", URL: "http://example.com/t2.vtt"},
	})

	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	if sources[0].ID != "Transcript 1-2-0" || sources[1].ID != "Transcript 2-2-1" {
		t.Fatalf("unexpected ids: %q, %q", sources[0].ID, sources[1].ID)
	}
	if sources[0].UnitIndex != 2 {
		t.Fatalf("unit back-reference missing")
	}
	if sources[0].Format != domain.FormatUnknown {
		t.Fatalf("valid source should stay undetermined, got %s", sources[0].Format)
	}
}

func TestExplicitListsInvalidURLsInsteadOfDroppingThem(t *testing.T) {
	r := New(nil, zerolog.Nop())

	sources := r.Explicit(0, []ExplicitSource{
		{Title: "Missing", URL: ""},
		{Title: "Relative", URL: "/transcripts/t.vtt"},
		{Title: "Good", URL: "http://example.com/t.vtt"},
	})

	if len(sources) != 3 {
		t.Fatalf("invalid entries must still be listed, got %d", len(sources))
	}
	if sources[0].Format != domain.FormatInvalid || sources[1].Format != domain.FormatInvalid {
		t.Fatalf("missing/relative URLs should be typed invalid: %s, %s", sources[0].Format, sources[1].Format)
	}
	if sources[2].Format == domain.FormatInvalid {
		t.Fatalf("absolute URL wrongly flagged")
	}
}

func TestExplicitDetectsMachineGeneratedTitle(t *testing.T) {
	r := New(nil, zerolog.Nop())

	sources := r.Explicit(0, []ExplicitSource{
		{Title: "Captions (machine generated)", URL: "http://example.com/t.vtt"},
		{Title: "Human transcript", URL: "http://example.com/h.vtt"},
	})

	if !sources[0].MachineGenerated || sources[1].MachineGenerated {
		t.Fatalf("machine-generated flags wrong: %v, %v", sources[0].MachineGenerated, sources[1].MachineGenerated)
	}
}

func TestDiscoverFillsIDsAndValidatesURLs(t *testing.T) {
	manifest := &stubManifest{sources: map[int][]domain.Source{
		1: {
			{Title: "From annotation", URL: "http://example.com/a.json"},
			{Title: "Broken", URL: "not a url"},
		},
	}}
	r := New(manifest, zerolog.Nop())

	sources, err := r.Discover(context.Background(), 1)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	if sources[0].ID != "From annotation-1-0" {
		t.Fatalf("id not assigned: %q", sources[0].ID)
	}
	if sources[1].Format != domain.FormatInvalid {
		t.Fatalf("malformed discovered URL should be typed invalid")
	}
}

func TestDiscoverEmptyResultIsValid(t *testing.T) {
	manifest := &stubManifest{sources: map[int][]domain.Source{}}
	r := New(manifest, zerolog.Nop())

	sources, err := r.Discover(context.Background(), 0)
	if err != nil {
		t.Fatalf("empty discovery must not error: %v", err)
	}
	if len(sources) != 0 {
		t.Fatalf("expected no sources, got %d", len(sources))
	}
}

func TestResolveExplicitPrecedenceSkipsDiscovery(t *testing.T) {
	manifest := &stubManifest{sources: map[int][]domain.Source{
		0: {{Title: "Discovered", URL: "http://example.com/d.vtt"}},
	}}
	r := New(manifest, zerolog.Nop())

	sources, err := r.Resolve(context.Background(), 0, []ExplicitSource{
		{Title: "Explicit", URL: "http://example.com/e.vtt"},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(sources) != 1 || sources[0].Title != "Explicit" {
		t.Fatalf("explicit sources must win: %+v", sources)
	}
	if manifest.calls != 0 {
		t.Fatalf("discovery must not be invoked when explicit entries exist")
	}
}

func TestResolveFallsBackToDiscovery(t *testing.T) {
	manifest := &stubManifest{sources: map[int][]domain.Source{
		0: {{Title: "Discovered", URL: "http://example.com/d.vtt"}},
	}}
	r := New(manifest, zerolog.Nop())

	sources, err := r.Resolve(context.Background(), 0, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(sources) != 1 || sources[0].Title != "Discovered" {
		t.Fatalf("expected discovered source, got %+v", sources)
	}
}

func TestResolveDiscoveryErrorPropagates(t *testing.T) {
	wantErr := errors.New("manifest gone")
	r := New(&stubManifest{err: wantErr}, zerolog.Nop())

	if _, err := r.Resolve(context.Background(), 0, nil); !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped manifest error, got %v", err)
	}
}

func TestHasQualifying(t *testing.T) {
	if HasQualifying(nil) {
		t.Fatalf("empty list has nothing qualifying")
	}
	if HasQualifying([]domain.Source{{Format: domain.FormatInvalid}, {Format: domain.FormatNone}}) {
		t.Fatalf("all invalid/none should not qualify")
	}
	if !HasQualifying([]domain.Source{{Format: domain.FormatInvalid}, {Format: domain.FormatUnknown}}) {
		t.Fatalf("undetermined source still qualifies")
	}
}
