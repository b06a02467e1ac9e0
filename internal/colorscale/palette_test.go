package colorscale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHex(t *testing.T) {
	t.Parallel()

	c, err := ParseHex("#0D47A1", 180)
	require.NoError(t, err)
	assert.Equal(t, RGBA{0x0D, 0x47, 0xA1, 180}, c)

	c, err = ParseHex("ffd700", 255)
	require.NoError(t, err)
	assert.Equal(t, RGBA{255, 215, 0, 255}, c)
}

func TestParseHex_Invalid(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"", "#FFF", "#GG0000", "#1234567"} {
		_, err := ParseHex(s, 255)
		assert.Error(t, err, s)
	}
}

func TestMustParseHex_Panics(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { MustParseHex("nope", 0) })
}

func TestWithAlpha(t *testing.T) {
	t.Parallel()

	c := MustParseHex("#4CAF50", 255).WithAlpha(77)
	assert.Equal(t, RGBA{0x4C, 0xAF, 0x50, 77}, c)
}

func TestHex(t *testing.T) {
	assert.Equal(t, "#FFC107", RGBA{255, 193, 7, 76}.Hex())
	assert.Equal(t, "#0D47A1", MustParseHex("#0d47a1", 255).Hex())
}
