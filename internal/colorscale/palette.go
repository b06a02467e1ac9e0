// Package colorscale maps home-zipcode percentages onto a five-step
// sequential palette using equal-count quantile buckets.
package colorscale

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Palette is the light-to-dark sequential scale, one color per bucket.
var Palette = [5]string{"#E3F2FD", "#90CAF9", "#42A5F5", "#1E88E5", "#0D47A1"}

// Breakpoints are the percentile edges between buckets.
var Breakpoints = [6]int{0, 20, 40, 60, 80, 100}

// RGBA is a color with 8-bit channels, serialized as [r, g, b, a].
type RGBA [4]uint8

// ParseHex parses "#RRGGBB" (leading '#' optional) into an RGBA with the
// given alpha.
func ParseHex(s string, alpha uint8) (RGBA, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(raw) != 6 {
		return RGBA{}, eris.Errorf("colorscale: invalid hex color %q", s)
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return RGBA{}, eris.Wrapf(err, "colorscale: invalid hex color %q", s)
	}
	return RGBA{b[0], b[1], b[2], alpha}, nil
}

// MustParseHex is ParseHex for package-level constants.
func MustParseHex(s string, alpha uint8) RGBA {
	c, err := ParseHex(s, alpha)
	if err != nil {
		panic(err)
	}
	return c
}

// WithAlpha returns c with its alpha channel replaced.
func (c RGBA) WithAlpha(alpha uint8) RGBA {
	c[3] = alpha
	return c
}

// Hex formats the color channels as "#RRGGBB", dropping alpha.
func (c RGBA) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c[0], c[1], c[2])
}
