package catalog

import (
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://catalog.test"

func newTestClient() *Client {
	httpc := &http.Client{}
	httpmock.ActivateNonDefault(httpc)
	c := NewClientWithHTTP(testBaseURL, httpc, 95)
	c.RetryWait = 10 * time.Millisecond
	return c
}

func testPolygon() orb.Polygon {
	return orb.Polygon{orb.Ring{
		{151.30, -33.70}, {151.31, -33.70}, {151.31, -33.74}, {151.30, -33.74}, {151.30, -33.70},
	}}
}

func searchFixture() map[string]interface{} {
	mk := func(id string, cloud float64) map[string]interface{} {
		return map[string]interface{}{
			"id": id,
			"bands": []map[string]interface{}{
				{"id": "B1", "crs": "EPSG:32656", "crs_transform": []float64{30, 0, 300000, 0, -30, 6300000}, "gsd": 30},
			},
			"properties": map[string]interface{}{
				"time_start":  1.5e12,
				"CLOUD_COVER": cloud,
			},
		}
	}
	return map[string]interface{}{
		"features": []interface{}{mk("clear", 10), mk("cloudy", 99)},
	}
}

func TestSearchFiltersCloudyImages(t *testing.T) {
	c := newTestClient()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/v1/search",
		func(req *http.Request) (*http.Response, error) {
			return httpmock.NewJsonResponse(http.StatusOK, searchFixture())
		})

	records, err := c.Search("LANDSAT/LC08/C02/T1_TOA", "L8", testPolygon(),
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC), "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "clear", records[0].ID)
}

func TestSearchRetriesTransientErrors(t *testing.T) {
	c := newTestClient()
	defer httpmock.DeactivateAndReset()

	calls := 0
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/v1/search",
		func(req *http.Request) (*http.Response, error) {
			calls++
			if calls < 3 {
				return httpmock.NewStringResponse(http.StatusInternalServerError, "catalog down"), nil
			}
			return httpmock.NewJsonResponse(http.StatusOK, searchFixture())
		})

	records, err := c.Search("COPERNICUS/S2", "S2", testPolygon(),
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC), "")
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.NotEmpty(t, records)
}

func TestSearchClientErrorIsFatal(t *testing.T) {
	c := newTestClient()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/v1/search",
		httpmock.NewStringResponder(http.StatusBadRequest, "bad collection"))

	_, err := c.Search("NOPE", "L8", testPolygon(),
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestRequestExportAndDownload(t *testing.T) {
	c := newTestClient()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/v1/export",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]string{
			"download_url": testBaseURL + "/bundles/abc.zip",
		}))
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/bundles/abc.zip",
		httpmock.NewBytesResponder(http.StatusOK, []byte("zipdata")))

	url, err := c.RequestExport("img1", testPolygon(), []string{"B2", "B3"})
	require.NoError(t, err)
	assert.Equal(t, testBaseURL+"/bundles/abc.zip", url)

	data, err := c.DownloadBundle(url)
	require.NoError(t, err)
	assert.Equal(t, []byte("zipdata"), data)
}

func TestQueryValidate(t *testing.T) {
	q := Query{
		Polygon:           testPolygon(),
		StartDate:         time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC),
		EndDate:           time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Satellites:        []string{"L8"},
		LandsatCollection: "C02",
	}
	var cfgErr ConfigurationError
	require.ErrorAs(t, q.Validate(), &cfgErr)

	q.StartDate, q.EndDate = q.EndDate, q.StartDate
	require.NoError(t, q.Validate())

	q.Satellites = []string{"L8", "L6"}
	require.ErrorAs(t, q.Validate(), &cfgErr)

	q.Satellites = []string{"L8"}
	q.LandsatCollection = "C03"
	require.ErrorAs(t, q.Validate(), &cfgErr)
}
