package properties

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ROOT_PATH", "/srv/shore")

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/srv/shore", s.RootPath)
	assert.Equal(t, "https://catalog.shore-guardian.io", s.CatalogBaseURL)
	assert.Equal(t, float64(95), s.CloudThreshold)
	assert.Equal(t, "/srv/shore/data", s.DataPath())
}

func TestLoadRejectsBadThreshold(t *testing.T) {
	t.Setenv("ROOT_PATH", "/srv/shore")
	t.Setenv("CLOUD_THRESHOLD", "180")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ROOT_PATH", "/srv/shore")
	t.Setenv("CATALOG_BASE_URL", "https://catalog.internal")
	t.Setenv("CLOUD_THRESHOLD", "60")

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://catalog.internal", s.CatalogBaseURL)
	assert.Equal(t, float64(60), s.CloudThreshold)
}
