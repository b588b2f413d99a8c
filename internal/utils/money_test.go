package utils

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "$1,234.57", FormatMoney(decimal.RequireFromString("1234.567"), "USD"))
	assert.Equal(t, "$0.00", FormatMoney(decimal.Zero, "USD"))

	neg := FormatMoney(decimal.RequireFromString("-80"), "USD")
	assert.True(t, strings.HasPrefix(neg, "-"), neg)
	assert.Contains(t, neg, "80.00")

	assert.Equal(t, "—", FormatOptionalMoney(nil, "USD"))
	v := 200.0
	assert.Equal(t, "$200.00", FormatOptionalMoney(&v, "USD"))
}
