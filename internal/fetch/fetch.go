package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/eleven-am/transkit/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxBody caps transcript downloads; transcripts beyond this are not
// something the viewer can usefully render anyway.
const maxBody = 16 << 20

// HTTPFetcher retrieves transcript content over HTTP(S). All failures are
// reported wrapping domain.ErrUnreachableSource so the pipeline can
// downgrade the source instead of propagating a fault.
type HTTPFetcher struct {
	client *http.Client
	logger zerolog.Logger
}

func NewHTTPFetcher(timeout time.Duration, logger zerolog.Logger) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPFetcher{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	requestID := uuid.New().String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnreachableSource, err)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Warn().Str("request_id", requestID).Str("url", url).Err(err).
			Msg("transcript fetch failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrUnreachableSource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.logger.Warn().Str("request_id", requestID).Str("url", url).
			Int("status", resp.StatusCode).Msg("transcript fetch rejected")
		return nil, fmt.Errorf("%w: status %d", domain.ErrUnreachableSource, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrUnreachableSource, err)
	}

	f.logger.Debug().Str("request_id", requestID).Str("url", url).
		Int("bytes", len(data)).Dur("elapsed", time.Since(start)).Msg("transcript fetched")
	return data, nil
}
