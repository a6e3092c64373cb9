package resolver

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/eleven-am/transkit/internal/domain"
	"github.com/rs/zerolog"
)

// ExplicitSource is one caller-supplied transcript entry for a unit.
type ExplicitSource struct {
	Title            string
	URL              string
	MachineGenerated bool
}

// Resolver produces the ordered list of transcript sources for each playable
// unit. Explicit entries take precedence per unit; discovery through the
// manifest collaborator is only consulted for units without explicit entries.
type Resolver struct {
	manifest domain.ManifestReader
	logger   zerolog.Logger
}

func New(manifest domain.ManifestReader, logger zerolog.Logger) *Resolver {
	return &Resolver{manifest: manifest, logger: logger}
}

// Resolve returns the source list for one unit. An empty result is a valid
// outcome, surfaced to the user as the no-transcript state rather than an
// error.
func (r *Resolver) Resolve(ctx context.Context, unitIndex int, explicit []ExplicitSource) ([]domain.Source, error) {
	if len(explicit) > 0 {
		return r.Explicit(unitIndex, explicit), nil
	}
	if r.manifest == nil {
		return nil, nil
	}
	return r.Discover(ctx, unitIndex)
}

// Explicit converts caller-supplied entries into sources with stable ids.
// Entries with a missing or malformed URL are still listed, typed invalid,
// so adapters can explain the failure instead of silently omitting them.
func (r *Resolver) Explicit(unitIndex int, entries []ExplicitSource) []domain.Source {
	sources := make([]domain.Source, 0, len(entries))
	for i, e := range entries {
		src := domain.Source{
			ID:               fmt.Sprintf("%s-%d-%d", e.Title, unitIndex, i),
			Title:            e.Title,
			URL:              e.URL,
			MachineGenerated: e.MachineGenerated || titledMachineGenerated(e.Title),
			UnitIndex:        unitIndex,
		}
		if err := validateURL(e.URL); err != nil {
			r.logger.Warn().Str("title", e.Title).Str("url", e.URL).Err(err).
				Msg("listing transcript source as invalid")
			src.Format = domain.FormatInvalid
		}
		sources = append(sources, src)
	}
	return sources
}

// Discover asks the manifest collaborator for supplementing annotations on
// the unit's canvas. Zero qualifying annotations is a valid empty result.
func (r *Resolver) Discover(ctx context.Context, unitIndex int) ([]domain.Source, error) {
	found, err := r.manifest.SupplementingSources(ctx, unitIndex)
	if err != nil {
		return nil, fmt.Errorf("supplementing sources for unit %d: %w", unitIndex, err)
	}

	sources := make([]domain.Source, 0, len(found))
	for i, src := range found {
		src.UnitIndex = unitIndex
		if src.ID == "" {
			src.ID = fmt.Sprintf("%s-%d-%d", src.Title, unitIndex, i)
		}
		if !src.MachineGenerated {
			src.MachineGenerated = titledMachineGenerated(src.Title)
		}
		if src.Format != domain.FormatInvalid {
			if err := validateURL(src.URL); err != nil {
				r.logger.Warn().Str("id", src.ID).Str("url", src.URL).Err(err).
					Msg("listing discovered source as invalid")
				src.Format = domain.FormatInvalid
			}
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// HasQualifying reports whether any source in the list could still yield a
// transcript. All-invalid or empty lists put the unit in the no-transcript
// state.
func HasQualifying(sources []domain.Source) bool {
	for _, src := range sources {
		if src.Format != domain.FormatInvalid && src.Format != domain.FormatNone {
			return true
		}
	}
	return false
}

func validateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: missing url", domain.ErrInvalidSourceURL)
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: %q", domain.ErrInvalidSourceURL, raw)
	}
	return nil
}

func titledMachineGenerated(title string) bool {
	return strings.Contains(strings.ToLower(title), "(machine generated)")
}
