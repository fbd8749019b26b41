package align

import (
	"errors"
	"fmt"
	"math"

	"github.com/airbusgeo/godal"
)

// Resampling kinds. Smooth is for continuous reflectance bands; Nearest is
// for categorical quality-assurance bands, which must not end up with
// interpolated class codes.
const (
	Smooth  = "bilinear"
	Nearest = "near"
)

// GeometryMismatchError means a resampled raster did not land exactly on the
// target grid. Composites built from such a pair would not be
// pixel-registered, so the image is abandoned.
type GeometryMismatchError struct {
	File   string
	Reason string
}

func (e *GeometryMismatchError) Error() string {
	return fmt.Sprintf("geometry mismatch for %s: %s", e.File, e.Reason)
}

// WarpToTarget resamples inPath onto the pixel grid of targetPath and writes
// the result to outPath. With doubleRes the pixel size is halved, which
// covers both pan/ms co-registration (target at half the input's resolution)
// and pure downsampling (target == input). After warping the output grid is
// verified against the target: origin and scaled size must match exactly.
func WarpToTarget(inPath, outPath, targetPath string, doubleRes bool, resampling string) error {
	target, err := openQuiet(targetPath)
	if err != nil {
		return fmt.Errorf("failed to open target %s: %v", targetPath, err)
	}
	defer target.Close()

	gt, err := target.GeoTransform()
	if err != nil {
		return fmt.Errorf("failed to read target geotransform: %v", err)
	}
	xres, yres := gt[1], gt[5]
	if doubleRes {
		xres /= 2
		yres /= 2
	}
	bounds, err := target.Bounds()
	if err != nil {
		return fmt.Errorf("failed to read target bounds: %v", err)
	}

	in, err := openQuiet(inPath)
	if err != nil {
		return fmt.Errorf("failed to open input %s: %v", inPath, err)
	}
	defer in.Close()

	switches := []string{
		"-of", "GTiff",
		"-tr", formatFloat(xres), formatFloat(math.Abs(yres)),
		"-te", formatFloat(bounds[0]), formatFloat(bounds[1]), formatFloat(bounds[2]), formatFloat(bounds[3]),
		"-r", resampling,
	}
	out, err := in.Warp(outPath, switches)
	if err != nil {
		return fmt.Errorf("failed to warp %s: %v", inPath, err)
	}
	out.Close()

	return verifyGrid(outPath, target, gt, doubleRes)
}

// verifyGrid is the pipeline's core correctness check: the warped raster must
// share the target's origin, and its dimensions must equal the target's
// (doubled when the resolution was halved).
func verifyGrid(outPath string, target *godal.Dataset, targetGT [6]float64, doubleRes bool) error {
	out, err := openQuiet(outPath)
	if err != nil {
		return fmt.Errorf("failed to reopen %s: %v", outPath, err)
	}
	defer out.Close()

	outGT, err := out.GeoTransform()
	if err != nil {
		return fmt.Errorf("failed to read geotransform of %s: %v", outPath, err)
	}
	if outGT[0] != targetGT[0] || outGT[3] != targetGT[3] {
		return &GeometryMismatchError{
			File: outPath,
			Reason: fmt.Sprintf("origin (%v, %v) does not match target origin (%v, %v)",
				outGT[0], outGT[3], targetGT[0], targetGT[3]),
		}
	}

	wantX := target.Structure().SizeX
	wantY := target.Structure().SizeY
	if doubleRes {
		wantX *= 2
		wantY *= 2
	}
	gotX := out.Structure().SizeX
	gotY := out.Structure().SizeY
	if gotX != wantX || gotY != wantY {
		return &GeometryMismatchError{
			File:   outPath,
			Reason: fmt.Sprintf("size %dx%d does not match target size %dx%d", gotX, gotY, wantX, wantY),
		}
	}
	return nil
}

func openQuiet(path string) (*godal.Dataset, error) {
	return godal.Open(path, godal.ErrLogger(func(ec godal.ErrorCategory, code int, msg string) error {
		if ec == godal.CE_Warning {
			return nil
		}
		return errors.New(msg)
	}))
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}
