package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetricsRoundtrip(t *testing.T) {
	require.NoError(t, InitDB(filepath.Join(t.TempDir(), "bot.db")))
	defer CloseDB()

	v, err := GetMetric("broadcast_cycles")
	require.NoError(t, err)
	require.Equal(t, float64(0), v)

	require.NoError(t, SaveMetric("broadcast_cycles", 42))
	require.NoError(t, SaveMetric("broadcast_cycles", 43))

	v, err = GetMetric("broadcast_cycles")
	require.NoError(t, err)
	require.Equal(t, float64(43), v)
}

func TestLabeledMetricsRoundtrip(t *testing.T) {
	require.NoError(t, InitDB(filepath.Join(t.TempDir(), "bot.db")))
	defer CloseDB()

	require.NoError(t, SaveMetricWithLabels("commands_by_name", "command", "start", 7))
	require.NoError(t, SaveMetricWithLabels("commands_by_name", "command", "analyze", 3))
	require.NoError(t, SaveMetricWithLabels("commands_by_name", "command", "analyze", 4))
	require.NoError(t, SaveMetric("commands_by_name", 99))

	labeled, err := GetMetricsWithLabels("commands_by_name")
	require.NoError(t, err)
	require.Equal(t, map[string]map[string]float64{
		"command": {"start": 7, "analyze": 4},
	}, labeled)

	// Unlabeled samples stay out of the labeled view and vice versa.
	v, err := GetMetric("commands_by_name")
	require.NoError(t, err)
	require.Equal(t, float64(99), v)
}
