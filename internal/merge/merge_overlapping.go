package merge

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/airbusgeo/godal"
	"github.com/fatih/color"
	"github.com/paulmach/orb"
	"github.com/shore-guardian/shore-guardian-ingest-poc/internal/meta"
)

// nearDuplicateWindow pairs captures that overlap the site from consecutive
// orbital slices of the same pass.
const nearDuplicateWindow = 5 * time.Minute

// imageFiles are the four on-disk files of one Sentinel-2 capture.
type imageFiles struct {
	MS   string
	SWIR string
	Mask string
	Meta string
}

func filesFor(sitePath, msName string) imageFiles {
	satPath := filepath.Join(sitePath, "S2")
	return imageFiles{
		MS:   filepath.Join(satPath, "ms", msName),
		SWIR: filepath.Join(satPath, "swir", strings.Replace(msName, "_ms", "_swir", 1)),
		Mask: filepath.Join(satPath, "mask", strings.Replace(msName, "_ms", "_mask", 1)),
		Meta: filepath.Join(satPath, "meta", strings.TrimSuffix(strings.Replace(msName, "_ms", "", 1), ".tif")+".txt"),
	}
}

func deleteImage(f imageFiles) {
	for _, p := range []string{f.MS, f.SWIR, f.Mask, f.Meta} {
		os.Remove(p)
	}
}

// MergeOverlappingImages reconciles the Sentinel-2 archive of a site down to
// one authoritative image per acquisition event: exact-timestamp duplicates
// are resolved by footprint containment, near-duplicates within five minutes
// are either deleted (contained) or pixel-merged. The pass is idempotent, a
// second run over a reconciled archive changes nothing. The metadata index is
// rebuilt from disk after each phase so it always reflects the surviving
// files.
func MergeOverlappingImages(sitePath, sitename string) (meta.Index, error) {
	index, err := meta.GetMetadata(sitePath, sitename)
	if err != nil {
		return nil, err
	}
	si := index["S2"]
	if si == nil || len(si.Filenames) < 2 {
		return index, nil
	}
	total := len(si.Filenames)

	removed, err := mergeExactDuplicates(sitePath, si)
	if err != nil {
		return nil, err
	}
	if removed > 0 {
		index, err = meta.GetMetadata(sitePath, sitename)
		if err != nil {
			return nil, err
		}
		if si = index["S2"]; si == nil {
			return index, nil
		}
	}

	merged, err := mergeNearDuplicates(sitePath, si)
	if err != nil {
		return nil, err
	}

	fmt.Printf("%d out of %d Sentinel-2 images were merged (overlapping or duplicate)\n",
		removed+merged, total)
	return meta.GetMetadata(sitePath, sitename)
}

// mergeExactDuplicates groups images by filename timestamp and, when one
// footprint contains every other in the group, keeps only that image.
func mergeExactDuplicates(sitePath string, si *meta.SatelliteIndex) (int, error) {
	groups := make(map[string][]int)
	for i, fn := range si.Filenames {
		if len(fn) < len("2006-01-02-15-04-05") {
			continue
		}
		key := fn[:19]
		groups[key] = append(groups[key], i)
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	removed := 0
	for _, key := range keys {
		idx := groups[key]
		if len(idx) < 2 {
			continue
		}

		var members []int
		var bounds []orb.Bound
		epsgs := make(map[int]bool)
		for _, j := range idx {
			files := filesFor(sitePath, si.Filenames[j])
			b, err := ImageBounds(files.MS)
			if err != nil {
				color.Yellow("skipping %s: %v", si.Filenames[j], err)
				continue
			}
			members = append(members, j)
			bounds = append(bounds, b)
			epsgs[si.EPSG[j]] = true
		}
		if len(members) < 2 {
			continue
		}
		if len(epsgs) > 1 {
			color.Yellow("WARNING: Sentinel-2 images with timestamp %s disagree on epsg, leaving the group untouched", key)
			continue
		}

		keeper := -1
		for i := range bounds {
			all := true
			for k := range bounds {
				if !boundContains(bounds[i], bounds[k]) {
					all = false
					break
				}
			}
			if all {
				keeper = i
				break
			}
		}
		if keeper < 0 {
			continue
		}
		for i, j := range members {
			if i == keeper {
				continue
			}
			deleteImage(filesFor(sitePath, si.Filenames[j]))
			removed++
		}
	}
	return removed, nil
}

// mergeNearDuplicates pairs each image with the next one inside the window,
// flattens transitive chains, prunes beyond-triplicate excess and resolves
// every surviving pair by containment or pixel merge.
func mergeNearDuplicates(sitePath string, si *meta.SatelliteIndex) (int, error) {
	filenames := append([]string(nil), si.Filenames...)

	// pair each image with the first later image within the window; earlier
	// entries are blanked with dummy dates so they cannot match twice
	dates := append([]time.Time(nil), si.Dates...)
	var pairs [][2]int
	for i, date := range si.Dates {
		dates[i] = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i+1)
		for j := range dates {
			d := date.Sub(dates[j])
			if d < 0 {
				d = -d
			}
			if d <= nearDuplicateWindow {
				pairs = append(pairs, [2]int{i, j})
				break
			}
		}
	}
	merged := len(pairs)

	// flatten triplicate chains into consecutive merges onto the first image
	for i := 1; i < len(pairs); i++ {
		if pairs[i-1][1] == pairs[i][0] {
			pairs[i][0] = pairs[i-1][0]
		}
	}

	// beyond triplicates, delete the excess images outright
	byFirst := make(map[int][]int)
	for pos, p := range pairs {
		byFirst[p[0]] = append(byFirst[p[0]], pos)
	}
	firsts := make([]int, 0, len(byFirst))
	for f := range byFirst {
		firsts = append(firsts, f)
	}
	sort.Ints(firsts)
	drop := make(map[int]bool)
	for _, f := range firsts {
		positions := byFirst[f]
		if len(positions) <= 2 {
			continue
		}
		for _, pos := range positions[2:] {
			deleteImage(filesFor(sitePath, filenames[pairs[pos][1]]))
			drop[pos] = true
		}
	}
	if len(drop) > 0 {
		kept := pairs[:0]
		for pos, p := range pairs {
			if !drop[pos] {
				kept = append(kept, p)
			}
		}
		pairs = kept
	}

	for i := 0; i < len(pairs); i++ {
		pair := pairs[i]
		f0 := filesFor(sitePath, filenames[pair[0]])
		f1 := filesFor(sitePath, filenames[pair[1]])

		b0, err := ImageBounds(f0.MS)
		if err != nil {
			color.Yellow("skipping pair: %v", err)
			continue
		}
		b1, err := ImageBounds(f1.MS)
		if err != nil {
			color.Yellow("skipping pair: %v", err)
			continue
		}
		if si.EPSG[pair[0]] != si.EPSG[pair[1]] {
			color.Yellow("WARNING: Sentinel-2 images %s and %s do not share an epsg, leaving the pair untouched",
				filenames[pair[0]], filenames[pair[1]])
			continue
		}

		if boundContains(b0, b1) {
			deleteImage(f1)
			continue
		}
		if boundContains(b1, b0) {
			deleteImage(f0)
			// re-route a following merge of the same chain onto the survivor
			if i+1 < len(pairs) && pairs[i+1][0] == pair[0] {
				pairs[i+1][0] = pair[1]
			}
			continue
		}

		if err := mergePair(sitePath, f0, f1, filenames, pair[0]); err != nil {
			color.Yellow("failed to merge %s with %s: %v", filenames[pair[0]], filenames[pair[1]], err)
		}
	}
	return merged, nil
}

// mergePair masks the edge artifacts of both captures, mosaics each band role
// with first-valid-pixel-wins semantics and rewrites the metadata under the
// _merged name. The surviving slot in filenames is updated in place so later
// chain merges see the new name.
func mergePair(sitePath string, f0, f1 imageFiles, filenames []string, slot int) error {
	if err := maskEdges(f0); err != nil {
		return err
	}
	if err := maskEdges(f1); err != nil {
		return err
	}

	mergedMS := ""
	for _, role := range [][2]string{{f0.MS, f1.MS}, {f0.SWIR, f1.SWIR}, {f0.Mask, f1.Mask}} {
		out, err := mosaicRole(sitePath, role[0], role[1])
		if err != nil {
			return err
		}
		if role[0] == f0.MS {
			mergedMS = out
		}
	}

	e0, err := meta.ReadEntry(f0.Meta)
	if err != nil {
		return err
	}
	e1, err := meta.ReadEntry(f1.Meta)
	if err != nil {
		return err
	}
	if e0.AccGeoref == -1 || e1.AccGeoref == -1 {
		e0.AccGeoref = -1
	}
	e0.Filename = filepath.Base(mergedMS)

	os.Remove(f0.Meta)
	os.Remove(f1.Meta)
	newMeta := strings.TrimSuffix(f0.Meta, ".txt") + "_merged.txt"
	if err := meta.WriteEntry(newMeta, e0); err != nil {
		return err
	}
	filenames[slot] = e0.Filename
	return nil
}

// maskEdges computes the edge-artifact mask on the 10m multispectral raster
// and propagates it to the SWIR and QA rasters by nearest-neighbour
// resampling before applying it to all three.
func maskEdges(f imageFiles) error {
	data, w, h, err := readFirstBand(f.MS)
	if err != nil {
		return err
	}
	mask := edgeMask(data, w, h)
	if err := applyMask(f.MS, mask); err != nil {
		return err
	}

	sw, sh, err := rasterSize(f.SWIR)
	if err != nil {
		return err
	}
	swirMask := resizeNearest(mask, w, h, sw, sh)
	if err := applyMask(f.SWIR, swirMask); err != nil {
		return err
	}

	mw, mh, err := rasterSize(f.Mask)
	if err != nil {
		return err
	}
	qaMask := resizeNearest(swirMask, sw, sh, mw, mh)
	return applyMask(f.Mask, qaMask)
}

// mosaicRole merges two rasters of the same band role. In the virtual mosaic
// later sources paint over earlier ones, so the first image goes last and its
// valid pixels win; its no-data pixels fall through to the second image.
func mosaicRole(sitePath, path0, path1 string) (string, error) {
	vrtPath := filepath.Join(sitePath, "merged.vrt")
	vrtDS, err := godal.BuildVRT(vrtPath, []string{path1, path0}, []string{"-srcnodata", "0", "-vrtnodata", "0"})
	if err != nil {
		return "", fmt.Errorf("failed to build merge vrt: %v", err)
	}

	mergedPath := filepath.Join(sitePath, "merged.tif")
	outDS, err := vrtDS.Translate(mergedPath, []string{"-of", "GTiff"})
	vrtDS.Close()
	if err != nil {
		os.Remove(vrtPath)
		return "", fmt.Errorf("failed to write merged raster: %v", err)
	}
	outDS.Close()
	os.Remove(vrtPath)

	os.Remove(path0)
	os.Remove(path1)

	newPath := strings.TrimSuffix(path0, ".tif") + "_merged.tif"
	if err := os.Rename(mergedPath, newPath); err != nil {
		return "", fmt.Errorf("failed to rename merged raster: %v", err)
	}
	return newPath, nil
}
