package recognize

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoReading is returned when no plausible meter value can be mined from
// the recognition text.
var ErrNoReading = errors.New("no valid meter reading found")

// Residential meters top out at five integer digits; anything at or beyond
// this is recognition noise.
const maxPlausibleReading = 100000

var readingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{1,6}[.,]\d{1,3}`),
	regexp.MustCompile(`\d{1,6}`),
}

// ExtractReading mines a meter value out of free-form recognition output and
// normalizes it to exactly three fractional digits. Decimal-and-fraction
// candidates are preferred over bare integers; among the candidates of the
// winning pattern the MAXIMUM is taken, since recognition more often drops
// digits than invents large spurious ones. Values outside (0, 100000) are
// rejected.
func ExtractReading(text string) (string, error) {
	for _, pattern := range readingPatterns {
		matches := pattern.FindAllString(text, -1)
		if len(matches) == 0 {
			continue
		}

		max := 0.0
		found := false
		for _, m := range matches {
			v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", "."), 64)
			if err != nil {
				continue
			}
			if !found || v > max {
				max = v
				found = true
			}
		}
		if !found {
			return "", ErrNoReading
		}

		if max <= 0 || max >= maxPlausibleReading {
			return "", ErrNoReading
		}
		return fmt.Sprintf("%.3f", max), nil
	}

	return "", ErrNoReading
}
