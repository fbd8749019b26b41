package merge

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEdgeMaskFlagsConstantRegions(t *testing.T) {
	const w, h = 12, 12
	data := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < 5 {
				// constant edge artifact
				data[y*w+x] = 800
			} else {
				data[y*w+x] = float64((y*w+x)*7%251) + 1
			}
		}
	}

	mask := edgeMask(data, w, h)

	// interior of the constant block is masked
	assert.True(t, mask[6*w+2])
	// varying region away from the block stays unmasked
	assert.False(t, mask[6*w+10])
}

func TestEdgeMaskNaN(t *testing.T) {
	const w, h = 6, 6
	data := make([]float64, w*h)
	for i := range data {
		data[i] = float64(i * 3)
	}
	data[2*w+2] = math.NaN()

	mask := edgeMask(data, w, h)
	assert.True(t, mask[2*w+2])
}

func TestDilate3x3(t *testing.T) {
	const w, h = 5, 5
	mask := make([]bool, w*h)
	mask[2*w+2] = true

	out := dilate3x3(mask, w, h)
	for y := 1; y <= 3; y++ {
		for x := 1; x <= 3; x++ {
			assert.True(t, out[y*w+x], "pixel (%d,%d) should be dilated", x, y)
		}
	}
	assert.False(t, out[0])
	assert.False(t, out[4*w+4])
}

func TestResizeNearest(t *testing.T) {
	mask := []bool{
		true, true, false, false,
		true, true, false, false,
		false, false, false, false,
		false, false, false, false,
	}

	// identity
	same := resizeNearest(mask, 4, 4, 4, 4)
	assert.Equal(t, mask, same)

	// downscale by two keeps the quadrant structure
	small := resizeNearest(mask, 4, 4, 2, 2)
	assert.Equal(t, []bool{true, false, false, false}, small)

	// upscale propagates each pixel
	big := resizeNearest(small, 2, 2, 4, 4)
	assert.True(t, big[0])
	assert.True(t, big[1*4+1])
	assert.False(t, big[3*4+3])
}
