package timecode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/eleven-am/transkit/internal/domain"
)

// Parse converts a clock-style timestamp into seconds. Accepted shapes are
// "HH:MM:SS.mmm", "MM:SS.mmm", "MM:SS" and bare seconds ("90", "1.2").
// SRT-style comma decimals ("00:00:01,200") are normalized before parsing.
//
// When an hour field is present, minutes and seconds must be below 60.
// When a minute field is present, seconds must be below 60.
func Parse(input string) (float64, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, fmt.Errorf("%w: empty input", domain.ErrMalformedTimecode)
	}
	s = strings.ReplaceAll(s, ",", ".")

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", domain.ErrMalformedTimecode, input)
	}

	// All fields but the last are whole, non-negative integers.
	fields := make([]float64, len(parts))
	for i, p := range parts {
		if i < len(parts)-1 {
			n, err := strconv.Atoi(p)
			if err != nil || n < 0 {
				return 0, fmt.Errorf("%w: %q", domain.ErrMalformedTimecode, input)
			}
			fields[i] = float64(n)
			continue
		}
		f, err := strconv.ParseFloat(p, 64)
		if err != nil || f < 0 {
			return 0, fmt.Errorf("%w: %q", domain.ErrMalformedTimecode, input)
		}
		fields[i] = f
	}

	switch len(fields) {
	case 1:
		return fields[0], nil
	case 2:
		if fields[1] >= 60 {
			return 0, fmt.Errorf("%w: seconds out of range in %q", domain.ErrMalformedTimecode, input)
		}
		return fields[0]*60 + fields[1], nil
	default:
		if fields[1] >= 60 {
			return 0, fmt.Errorf("%w: minutes out of range in %q", domain.ErrMalformedTimecode, input)
		}
		if fields[2] >= 60 {
			return 0, fmt.Errorf("%w: seconds out of range in %q", domain.ErrMalformedTimecode, input)
		}
		return fields[0]*3600 + fields[1]*60 + fields[2], nil
	}
}

// Format renders seconds for display, truncating (not rounding) to whole
// seconds. Output is "HH:MM:SS" when the total reaches an hour or withHours
// is set, "MM:SS" otherwise. Negative input renders as zero.
func Format(seconds float64, withHours bool) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60

	if h > 0 || withHours {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
