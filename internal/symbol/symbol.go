// Package symbol handles ticker normalization and validation. Accounts key
// their position maps by the normalized form, so every ticker entering the
// engine passes through here first.
package symbol

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// tickerRegex matches normalized exchange symbols: a leading letter followed
// by up to 11 letters, digits, dots, or hyphens (covers class shares like
// BRK.B and symbols like BF-B).
var tickerRegex = regexp.MustCompile(`^[A-Z][A-Z0-9.\-]{0,11}$`)

// ErrInvalidTicker is returned for tickers that do not normalize.
var ErrInvalidTicker = errors.New("symbol: invalid ticker")

// Normalize trims and upper-cases a raw ticker and validates its shape.
func Normalize(raw string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(raw))
	if !tickerRegex.MatchString(t) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTicker, raw)
	}
	return t, nil
}
