package merge

import (
	"errors"
	"fmt"

	"github.com/airbusgeo/godal"
	"github.com/paulmach/orb"
)

// ImageBounds returns the ground footprint of a raster in its projected
// coordinate system.
func ImageBounds(path string) (orb.Bound, error) {
	ds, err := openRaster(path)
	if err != nil {
		return orb.Bound{}, fmt.Errorf("failed to open %s: %v", path, err)
	}
	defer ds.Close()

	b, err := ds.Bounds()
	if err != nil {
		return orb.Bound{}, fmt.Errorf("failed to read bounds of %s: %v", path, err)
	}
	return orb.Bound{
		Min: orb.Point{b[0], b[1]},
		Max: orb.Point{b[2], b[3]},
	}, nil
}

// boundContains reports whether a fully contains b, boundaries included.
func boundContains(a, b orb.Bound) bool {
	return a.Min.X() <= b.Min.X() && a.Min.Y() <= b.Min.Y() &&
		a.Max.X() >= b.Max.X() && a.Max.Y() >= b.Max.Y()
}

func openRaster(path string) (*godal.Dataset, error) {
	return godal.Open(path, godal.ErrLogger(func(ec godal.ErrorCategory, code int, msg string) error {
		if ec == godal.CE_Warning {
			return nil
		}
		return errors.New(msg)
	}))
}

func openRasterUpdate(path string) (*godal.Dataset, error) {
	return godal.Open(path, godal.Update(), godal.ErrLogger(func(ec godal.ErrorCategory, code int, msg string) error {
		if ec == godal.CE_Warning {
			return nil
		}
		return errors.New(msg)
	}))
}
