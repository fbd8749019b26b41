package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTier1CollectionID(t *testing.T) {
	cases := []struct {
		satname    string
		collection string
		want       string
	}{
		{"L5", "C01", "LANDSAT/LT05/C01/T1_TOA"},
		{"L7", "C02", "LANDSAT/LE07/C02/T1_TOA"},
		{"L8", "C02", "LANDSAT/LC08/C02/T1_TOA"},
		{"L9", "C01", "LANDSAT/LC09/C02/T1_TOA"},
		{"S2", "C02", "COPERNICUS/S2"},
	}
	for _, tc := range cases {
		got, err := Tier1CollectionID(tc.satname, tc.collection)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	_, err := Tier1CollectionID("L6", "C02")
	var cfgErr ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestTier2CollectionID(t *testing.T) {
	got, ok := Tier2CollectionID("L5", "C01")
	require.True(t, ok)
	assert.Equal(t, "LANDSAT/LT05/C01/T2_TOA", got)

	_, ok = Tier2CollectionID("L9", "C02")
	assert.False(t, ok)
	_, ok = Tier2CollectionID("S2", "C02")
	assert.False(t, ok)
}

func TestQABand(t *testing.T) {
	band, err := QABand("C01")
	require.NoError(t, err)
	assert.Equal(t, "BQA", band)

	band, err = QABand("C02")
	require.NoError(t, err)
	assert.Equal(t, "QA_PIXEL", band)

	_, err = QABand("C03")
	var cfgErr ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}
