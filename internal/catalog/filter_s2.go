package catalog

import (
	"time"
)

// s2DuplicateWindow groups captures that are reprojections of the same
// acquisition event: the catalog re-offers them under neighbouring UTM zones
// with timestamps well under a day apart.
const s2DuplicateWindow = 24 * time.Hour

// FilterS2Collection removes UTM-zone duplicates from a Sentinel-2 record
// list. The zone with the numerically largest EPSG code is preferred; inside
// each time cluster the records already in that zone are kept and the
// reprojections are dropped. A cluster never drops below two kept records
// (or its own size, if smaller): when the preferred zone is underrepresented,
// off-zone records are retained to make up the floor. At most two records
// survive per cluster. The pass is global over the whole Tier-1 result set.
func FilterS2Collection(records []ImageRecord) ([]ImageRecord, error) {
	if len(records) < 2 {
		return records, nil
	}

	times := make([]time.Time, len(records))
	zones := make([]int, len(records))
	for i, r := range records {
		t, err := r.AcquisitionTime()
		if err != nil {
			return nil, err
		}
		z, err := r.EPSG()
		if err != nil {
			return nil, err
		}
		times[i] = t
		zones[i] = z
	}

	selected := zones[0]
	uniform := true
	for _, z := range zones[1:] {
		if z != zones[0] {
			uniform = false
		}
		if z > selected {
			selected = z
		}
	}
	if uniform {
		return records, nil
	}

	covered := make([]bool, len(records))
	deleted := make([]bool, len(records))
	for {
		i := -1
		for j := range covered {
			if !covered[j] {
				i = j
				break
			}
		}
		if i < 0 {
			break
		}

		var cluster []int
		for j := range records {
			d := times[j].Sub(times[i])
			if d < 0 {
				d = -d
			}
			if d < s2DuplicateWindow {
				cluster = append(cluster, j)
			}
		}

		var keep, extras []int
		for _, j := range cluster {
			if zones[j] == selected {
				keep = append(keep, j)
			} else {
				extras = append(extras, j)
			}
		}
		floor := 2
		if len(cluster) < floor {
			floor = len(cluster)
		}
		for _, j := range extras {
			if len(keep) >= floor {
				break
			}
			keep = append(keep, j)
		}
		if len(keep) > 2 {
			keep = keep[:2]
		}

		kept := make(map[int]bool, len(keep))
		for _, j := range keep {
			kept[j] = true
		}
		for _, j := range cluster {
			if !kept[j] {
				deleted[j] = true
			}
			covered[j] = true
		}
	}

	filtered := make([]ImageRecord, 0, len(records))
	for i, r := range records {
		if !deleted[i] {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}
