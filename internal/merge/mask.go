package merge

import (
	"fmt"
	"math"
)

// stdThreshold flags the constant-intensity squares that appear near
// Sentinel-2 scene edges: their local standard deviation is essentially zero.
const stdThreshold = 1e-6

// edgeMask computes the edge-artifact mask of one band: true where the 3x3
// moving standard deviation is below the threshold or undefined, dilated by
// one pixel to cover the artifact borders (which themselves have high std).
func edgeMask(data []float64, w, h int) []bool {
	mask := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum, sumSq float64
			var n int
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					yy, xx := y+dy, x+dx
					if yy < 0 || yy >= h || xx < 0 || xx >= w {
						continue
					}
					v := data[yy*w+xx]
					sum += v
					sumSq += v * v
					n++
				}
			}
			mean := sum / float64(n)
			variance := sumSq/float64(n) - mean*mean
			if variance < 0 {
				variance = 0
			}
			std := math.Sqrt(variance)
			mask[y*w+x] = std < stdThreshold || math.IsNaN(std)
		}
	}
	return dilate3x3(mask, w, h)
}

func dilate3x3(mask []bool, w, h int) []bool {
	out := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for dy := -1; dy <= 1 && !out[y*w+x]; dy++ {
				for dx := -1; dx <= 1; dx++ {
					yy, xx := y+dy, x+dx
					if yy < 0 || yy >= h || xx < 0 || xx >= w {
						continue
					}
					if mask[yy*w+xx] {
						out[y*w+x] = true
						break
					}
				}
			}
		}
	}
	return out
}

// resizeNearest propagates a mask onto another raster's dimensions by
// nearest-neighbour sampling, so coarser bands inherit the fine band's mask.
func resizeNearest(mask []bool, w, h, nw, nh int) []bool {
	if nw == w && nh == h {
		out := make([]bool, len(mask))
		copy(out, mask)
		return out
	}
	out := make([]bool, nw*nh)
	for y := 0; y < nh; y++ {
		sy := y * h / nh
		for x := 0; x < nw; x++ {
			sx := x * w / nw
			out[y*nw+x] = mask[sy*w+sx]
		}
	}
	return out
}

// readFirstBand loads band 1 of a raster as float64 pixels.
func readFirstBand(path string) ([]float64, int, int, error) {
	ds, err := openRaster(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to open %s: %v", path, err)
	}
	defer ds.Close()

	st := ds.Structure()
	bands := ds.Bands()
	if len(bands) == 0 {
		return nil, 0, 0, fmt.Errorf("%s has no bands", path)
	}
	data := make([]float64, st.SizeX*st.SizeY)
	if err := bands[0].Read(0, 0, data, st.SizeX, st.SizeY); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to read %s: %v", path, err)
	}
	return data, st.SizeX, st.SizeY, nil
}

// rasterSize returns the pixel dimensions of a raster.
func rasterSize(path string) (int, int, error) {
	ds, err := openRaster(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open %s: %v", path, err)
	}
	defer ds.Close()
	st := ds.Structure()
	return st.SizeX, st.SizeY, nil
}

// applyMask writes the no-data value into every band of a raster where the
// mask is set and registers 0 as the band no-data value, so the masked
// pixels lose the mosaic priority contest.
func applyMask(path string, mask []bool) error {
	ds, err := openRasterUpdate(path)
	if err != nil {
		return fmt.Errorf("failed to open %s for update: %v", path, err)
	}
	defer ds.Close()

	st := ds.Structure()
	if len(mask) != st.SizeX*st.SizeY {
		return fmt.Errorf("mask size does not match raster %s", path)
	}
	for _, band := range ds.Bands() {
		data := make([]float64, st.SizeX*st.SizeY)
		if err := band.Read(0, 0, data, st.SizeX, st.SizeY); err != nil {
			return fmt.Errorf("failed to read %s: %v", path, err)
		}
		for i, m := range mask {
			if m {
				data[i] = 0
			}
		}
		if err := band.Write(0, 0, data, st.SizeX, st.SizeY); err != nil {
			return fmt.Errorf("failed to write %s: %v", path, err)
		}
		if err := band.SetNoData(0); err != nil {
			return fmt.Errorf("failed to set nodata on %s: %v", path, err)
		}
	}
	return nil
}
