package merge

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/airbusgeo/godal"
	"github.com/shore-guardian/shore-guardian-ingest-poc/internal/meta"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	godal.RegisterAll()
	os.Exit(m.Run())
}

func makeTestRaster(t *testing.T, path string, nbands, w, h int, gt [6]float64) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))

	sr, err := godal.NewSpatialRefFromEPSG(32656)
	require.NoError(t, err)
	defer sr.Close()

	ds, err := godal.Create(godal.GTiff, path, nbands, godal.Byte, w, h)
	require.NoError(t, err)
	require.NoError(t, ds.SetSpatialRef(sr))
	require.NoError(t, ds.SetGeoTransform(gt))
	for _, band := range ds.Bands() {
		data := make([]byte, w*h)
		for i := range data {
			data[i] = byte((i*7)%250) + 1
		}
		require.NoError(t, band.Write(0, 0, data, w, h))
	}
	require.NoError(t, ds.Close())
}

// makeS2Image lays down the four files of one Sentinel-2 capture: ms, swir
// and mask rasters on a shared 10m grid plus the metadata sidecar.
func makeS2Image(t *testing.T, sitePath, msName string, originX float64, w int, acc float64, epsg int) {
	t.Helper()
	gt := [6]float64{originX, 10, 0, 6300000, 0, -10}
	f := filesFor(sitePath, msName)
	makeTestRaster(t, f.MS, 4, w, w, gt)
	makeTestRaster(t, f.SWIR, 1, w, w, gt)
	makeTestRaster(t, f.Mask, 1, w, w, gt)

	require.NoError(t, os.MkdirAll(filepath.Dir(f.Meta), 0755))
	require.NoError(t, meta.WriteEntry(f.Meta, meta.Entry{
		Filename:     msName,
		AccGeoref:    acc,
		EPSG:         epsg,
		ImageQuality: "PASSED",
	}))
}

func TestMergeExactDuplicatesContainment(t *testing.T) {
	sitePath := t.TempDir()

	// same timestamp, the first footprint contains the second
	makeS2Image(t, sitePath, "2020-06-15-10-30-00_S2_NARRA_ms.tif", 300000, 12, 1, 32656)
	makeS2Image(t, sitePath, "2020-06-15-10-30-00_S2_NARRA_ms_dup1.tif", 300020, 4, 1, 32656)

	index, err := MergeOverlappingImages(sitePath, "NARRA")
	require.NoError(t, err)

	si := index["S2"]
	require.NotNil(t, si)
	require.Len(t, si.Filenames, 1)
	assert.Equal(t, "2020-06-15-10-30-00_S2_NARRA_ms.tif", si.Filenames[0])

	deleted := filesFor(sitePath, "2020-06-15-10-30-00_S2_NARRA_ms_dup1.tif")
	for _, p := range []string{deleted.MS, deleted.SWIR, deleted.Mask, deleted.Meta} {
		_, err := os.Stat(p)
		assert.True(t, os.IsNotExist(err), "%s should have been deleted", p)
	}
}

func TestMergeExactDuplicatesEPSGMismatchLeavesGroup(t *testing.T) {
	sitePath := t.TempDir()

	makeS2Image(t, sitePath, "2020-06-15-10-30-00_S2_NARRA_ms.tif", 300000, 12, 1, 32656)
	makeS2Image(t, sitePath, "2020-06-15-10-30-00_S2_NARRA_ms_dup1.tif", 300020, 4, 1, 32657)

	index, err := MergeOverlappingImages(sitePath, "NARRA")
	require.NoError(t, err)

	si := index["S2"]
	require.NotNil(t, si)
	assert.Len(t, si.Filenames, 2)
}

func TestMergeNearDuplicatesContainedImageDeleted(t *testing.T) {
	sitePath := t.TempDir()

	// three minutes apart, the second footprint sits inside the first
	makeS2Image(t, sitePath, "2020-06-15-10-30-00_S2_NARRA_ms.tif", 300000, 12, 1, 32656)
	makeS2Image(t, sitePath, "2020-06-15-10-33-00_S2_NARRA_ms.tif", 300020, 4, 1, 32656)

	index, err := MergeOverlappingImages(sitePath, "NARRA")
	require.NoError(t, err)

	si := index["S2"]
	require.NotNil(t, si)
	require.Len(t, si.Filenames, 1)
	assert.Equal(t, "2020-06-15-10-30-00_S2_NARRA_ms.tif", si.Filenames[0])
}

func TestMergeNearDuplicatesPixelMerge(t *testing.T) {
	sitePath := t.TempDir()

	// adjacent non-overlapping slices of the same pass, one with a failed
	// geometric check
	makeS2Image(t, sitePath, "2020-06-15-10-30-00_S2_NARRA_ms.tif", 300000, 8, -1, 32656)
	makeS2Image(t, sitePath, "2020-06-15-10-33-00_S2_NARRA_ms.tif", 300080, 8, 1, 32656)

	index, err := MergeOverlappingImages(sitePath, "NARRA")
	require.NoError(t, err)

	si := index["S2"]
	require.NotNil(t, si)
	require.Len(t, si.Filenames, 1)
	merged := si.Filenames[0]
	assert.True(t, strings.HasSuffix(merged, "_ms_merged.tif"), "got %s", merged)

	// accuracy -1 is inherited by the merged image
	assert.Equal(t, []float64{-1}, si.AccGeoref)

	f := filesFor(sitePath, merged)
	assert.FileExists(t, f.MS)
	assert.FileExists(t, f.SWIR)
	assert.FileExists(t, f.Mask)
	assert.FileExists(t, f.Meta)

	// the merged raster spans both inputs
	b, err := ImageBounds(f.MS)
	require.NoError(t, err)
	assert.Equal(t, 300000.0, b.Min.X())
	assert.Equal(t, 300160.0, b.Max.X())

	// originals are gone, no scratch mosaic left behind
	for _, name := range []string{"2020-06-15-10-30-00_S2_NARRA_ms.tif", "2020-06-15-10-33-00_S2_NARRA_ms.tif"} {
		old := filesFor(sitePath, name)
		_, err := os.Stat(old.MS)
		assert.True(t, os.IsNotExist(err))
	}
	_, err = os.Stat(filepath.Join(sitePath, "merged.tif"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(sitePath, "merged.vrt"))
	assert.True(t, os.IsNotExist(err))
}

func TestMergeIdempotent(t *testing.T) {
	sitePath := t.TempDir()

	makeS2Image(t, sitePath, "2020-06-15-10-30-00_S2_NARRA_ms.tif", 300000, 8, 1, 32656)
	makeS2Image(t, sitePath, "2020-06-15-10-33-00_S2_NARRA_ms.tif", 300080, 8, 1, 32656)
	makeS2Image(t, sitePath, "2020-07-01-10-30-00_S2_NARRA_ms.tif", 300000, 8, 1, 32656)

	first, err := MergeOverlappingImages(sitePath, "NARRA")
	require.NoError(t, err)
	second, err := MergeOverlappingImages(sitePath, "NARRA")
	require.NoError(t, err)

	require.NotNil(t, first["S2"])
	require.NotNil(t, second["S2"])
	assert.Equal(t, first["S2"].Filenames, second["S2"].Filenames)
	assert.Equal(t, first["S2"].AccGeoref, second["S2"].AccGeoref)
}

func TestMergeNothingToDo(t *testing.T) {
	sitePath := t.TempDir()
	makeS2Image(t, sitePath, "2020-06-15-10-30-00_S2_NARRA_ms.tif", 300000, 8, 1, 32656)

	index, err := MergeOverlappingImages(sitePath, "NARRA")
	require.NoError(t, err)
	require.NotNil(t, index["S2"])
	assert.Len(t, index["S2"].Filenames, 1)
}
