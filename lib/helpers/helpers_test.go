package helpers

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatPriceFixed2(t *testing.T) {
	require.Equal(t, "65,432.10", FormatPriceFixed2(65432.1))
	require.Equal(t, "0.45", FormatPriceFixed2(0.45))
	require.Equal(t, "1,000,000.00", FormatPriceFixed2(1000000))
}

func TestFormatChangePct(t *testing.T) {
	require.Equal(t, "-2.35%", FormatChangePct(-2.345))
	require.Equal(t, "+1.50%", FormatChangePct(1.5))
	require.Equal(t, "+0.00%", FormatChangePct(0))
}

func TestFormatInterval(t *testing.T) {
	require.Equal(t, "every 30 sec", FormatInterval(30))
	require.Equal(t, "every 15 min", FormatInterval(900))
	require.Equal(t, "every 1 h", FormatInterval(3600))
	require.Equal(t, "every 2 d", FormatInterval(172800))
}
