// Package manifest is a minimal IIIF Presentation 3 reader, covering just
// what transcript discovery needs: canvas enumeration, canvas labels, and
// supplementing annotations pointing at external transcript resources.
package manifest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/eleven-am/transkit/internal/domain"
)

type label map[string][]string

// first returns a display string from a IIIF language map, preferring "en",
// then "none", then any language.
func (l label) first() string {
	for _, lang := range []string{"en", "none"} {
		if vs, ok := l[lang]; ok && len(vs) > 0 {
			return vs[0]
		}
	}
	for _, vs := range l {
		if len(vs) > 0 {
			return vs[0]
		}
	}
	return ""
}

type document struct {
	ID    string   `json:"id"`
	Label label    `json:"label"`
	Items []canvas `json:"items"`
}

type canvas struct {
	ID          string           `json:"id"`
	Label       label            `json:"label"`
	Annotations []annotationPage `json:"annotations"`
}

type annotationPage struct {
	Items []annotation `json:"items"`
}

type annotation struct {
	Motivation string `json:"motivation"`
	Body       body   `json:"body"`
}

type body struct {
	ID     string `json:"id"`
	Label  label  `json:"label"`
	Format string `json:"format"`
}

type unit struct {
	id      string
	label   string
	sources []domain.Source
}

// Reader implements domain.ManifestReader over a parsed IIIF manifest.
type Reader struct {
	title string
	units []unit
}

// Parse decodes a IIIF Presentation 3 manifest. Canvases without
// supplementing annotations are kept; they are units with an empty source
// list, which is a valid no-transcript outcome, not an error.
func Parse(data []byte) (*Reader, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	r := &Reader{title: doc.Label.first()}
	for i, c := range doc.Items {
		u := unit{id: c.ID, label: c.Label.first()}
		for _, page := range c.Annotations {
			for _, a := range page.Items {
				if a.Motivation != "supplementing" || a.Body.ID == "" {
					continue
				}
				u.sources = append(u.sources, domain.Source{
					Title:     a.Body.Label.first(),
					URL:       a.Body.ID,
					UnitIndex: i,
				})
			}
		}
		r.units = append(r.units, u)
	}
	return r, nil
}

// Title returns the manifest-level label.
func (r *Reader) Title() string { return r.title }

func (r *Reader) UnitCount(ctx context.Context) (int, error) {
	return len(r.units), nil
}

func (r *Reader) UnitLabel(ctx context.Context, unitIndex int) (string, error) {
	if unitIndex < 0 || unitIndex >= len(r.units) {
		return "", fmt.Errorf("unit %d out of range", unitIndex)
	}
	return r.units[unitIndex].label, nil
}

func (r *Reader) SupplementingSources(ctx context.Context, unitIndex int) ([]domain.Source, error) {
	if unitIndex < 0 || unitIndex >= len(r.units) {
		return nil, fmt.Errorf("unit %d out of range", unitIndex)
	}
	sources := make([]domain.Source, len(r.units[unitIndex].sources))
	copy(sources, r.units[unitIndex].sources)
	return sources, nil
}
