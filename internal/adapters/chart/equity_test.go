package chart

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pnlEngine/internal/pnl/analytics"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestWriteEquityPNG(t *testing.T) {
	points := []analytics.EquityPoint{
		{Date: "2024-01-02", Equity: 100},
		{Date: "2024-01-03", Equity: 150},
		{Date: "2024-01-05", Equity: 90},
		{Date: "2024-01-08", Equity: 200},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteEquityPNG(&buf, points, "Equity", "USD"))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestSaveEquityPNG_SinglePoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "equity.png")
	require.NoError(t, SaveEquityPNG([]analytics.EquityPoint{{Date: "2024-01-02", Equity: -5}}, "Equity", "USD", path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic))
}

func TestEquityCurveErrors(t *testing.T) {
	_, err := EquityCurve(nil, "Equity", "USD")
	assert.ErrorIs(t, err, ErrNoData)

	_, err = EquityCurve([]analytics.EquityPoint{{Date: "02/01/2024", Equity: 1}}, "Equity", "USD")
	assert.Error(t, err)
}
