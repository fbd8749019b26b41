package geometry

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/airbusgeo/godal"
	"github.com/paulmach/orb"
	"github.com/shore-guardian/shore-guardian-ingest-poc/internal/catalog"
)

// AdjustToGrid reprojects the region-of-interest polygon into a band's pixel
// grid, snaps its bounding box outward to whole pixels and returns the
// resulting rectangle as a lon/lat polygon. Requesting exports with such a
// region means the catalog crops on native pixel boundaries and no resampling
// happens server-side.
//
// The returned rectangle always fully contains the input polygon.
func AdjustToGrid(polygon orb.Polygon, band catalog.BandDescriptor) (orb.Polygon, error) {
	if len(polygon) == 0 || len(polygon[0]) == 0 {
		return nil, fmt.Errorf("empty polygon")
	}
	if len(band.CRSTransform) != 6 {
		return nil, fmt.Errorf("band %s has no usable crs_transform", band.ID)
	}
	epsg, err := strconv.Atoi(strings.TrimPrefix(band.CRS, "EPSG:"))
	if err != nil {
		return nil, fmt.Errorf("band %s has an unparsable crs %q", band.ID, band.CRS)
	}

	srcSR, err := godal.NewSpatialRefFromEPSG(4326)
	if err != nil {
		return nil, fmt.Errorf("failed to create WGS84 spatial ref: %v", err)
	}
	defer srcSR.Close()
	dstSR, err := godal.NewSpatialRefFromEPSG(epsg)
	if err != nil {
		return nil, fmt.Errorf("failed to create spatial ref for EPSG:%d: %v", epsg, err)
	}
	defer dstSR.Close()

	forward, err := godal.NewTransform(srcSR, dstSR)
	if err != nil {
		return nil, fmt.Errorf("failed to create transform to EPSG:%d: %v", epsg, err)
	}
	defer forward.Close()

	ring := polygon[0]
	xs := make([]float64, len(ring))
	ys := make([]float64, len(ring))
	for i, pt := range ring {
		xs[i] = pt.X()
		ys[i] = pt.Y()
	}
	if err := forward.TransformEx(xs, ys, nil, nil); err != nil {
		return nil, fmt.Errorf("transform error: %v", err)
	}

	// pixel-grid coordinates of the polygon: x = a*col + c, y = e*row + f
	a, c := band.CRSTransform[0], band.CRSTransform[2]
	e, f := band.CRSTransform[4], band.CRSTransform[5]
	if a == 0 || e == 0 {
		return nil, fmt.Errorf("band %s has a degenerate crs_transform", band.ID)
	}
	colMin, colMax := math.Inf(1), math.Inf(-1)
	rowMin, rowMax := math.Inf(1), math.Inf(-1)
	for i := range xs {
		col := (xs[i] - c) / a
		row := (ys[i] - f) / e
		colMin = math.Min(colMin, col)
		colMax = math.Max(colMax, col)
		rowMin = math.Min(rowMin, row)
		rowMax = math.Max(rowMax, row)
	}
	colMin, rowMin = math.Floor(colMin), math.Floor(rowMin)
	colMax, rowMax = math.Ceil(colMax), math.Ceil(rowMax)

	// rectangle corners back in projected coordinates
	x0, x1 := a*colMin+c, a*colMax+c
	y0, y1 := e*rowMin+f, e*rowMax+f

	inverse, err := godal.NewTransform(dstSR, srcSR)
	if err != nil {
		return nil, fmt.Errorf("failed to create inverse transform: %v", err)
	}
	defer inverse.Close()

	rx := []float64{x0, x1, x1, x0, x0}
	ry := []float64{y0, y0, y1, y1, y0}
	if err := inverse.TransformEx(rx, ry, nil, nil); err != nil {
		return nil, fmt.Errorf("inverse transform error: %v", err)
	}

	rect := make(orb.Ring, len(rx))
	for i := range rx {
		rect[i] = orb.Point{rx[i], ry[i]}
	}
	return orb.Polygon{rect}, nil
}
