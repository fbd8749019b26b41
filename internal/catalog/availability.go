package catalog

import (
	"fmt"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/gammazero/workerpool"
	"github.com/paulmach/orb"
	"github.com/shore-guardian/shore-guardian-ingest-poc/internal/cache"
)

// Query describes what a session wants from the catalog.
type Query struct {
	Polygon           orb.Polygon
	StartDate         time.Time
	EndDate           time.Time
	Satellites        []string
	LandsatCollection string
	IncludeT2         bool
	S2Tile            string
}

func (q Query) Validate() error {
	if !q.EndDate.After(q.StartDate) {
		return ConfigurationError{Reason: "dates must be in chronological order"}
	}
	if _, err := QABand(q.LandsatCollection); err != nil {
		return err
	}
	if len(q.Satellites) == 0 {
		return ConfigurationError{Reason: "no satellites requested"}
	}
	for _, satname := range q.Satellites {
		if _, err := Tier1CollectionID(satname, q.LandsatCollection); err != nil {
			return err
		}
	}
	return nil
}

// Availability holds the per-satellite record lists found in each tier.
type Availability struct {
	Tier1 map[string][]ImageRecord
	Tier2 map[string][]ImageRecord
}

// RecordCache keeps availability results around within a session.
type RecordCache = cache.FileCache[[]ImageRecord]

// CheckImagesAvailable scans the catalog collections and reports how many
// images are available per satellite and tier. Tier-2 collections are always
// reported for Landsat (they exist only there), unless the session is
// Sentinel-2 only. The cache is optional.
func CheckImagesAvailable(c *Client, q Query, rc *RecordCache) (*Availability, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	avail := &Availability{
		Tier1: make(map[string][]ImageRecord),
		Tier2: make(map[string][]ImageRecord),
	}

	color.Blue("Number of images available between %s and %s:",
		q.StartDate.Format("2006-01-02"), q.EndDate.Format("2006-01-02"))

	fmt.Println("- In Landsat Tier 1 & Sentinel-2 Level-1C:")
	var mu sync.Mutex
	var firstErr error
	wp := workerpool.New(4)
	for _, satname := range q.Satellites {
		sat := satname
		wp.Submit(func() {
			records, err := searchTier1(c, q, sat, rc)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			avail.Tier1[sat] = records
		})
	}
	wp.StopWait()
	if firstErr != nil {
		return nil, firstErr
	}
	total := 0
	for _, satname := range q.Satellites {
		fmt.Printf("     %s: %d images\n", satname, len(avail.Tier1[satname]))
		total += len(avail.Tier1[satname])
	}
	fmt.Printf("  Total to download: %d images\n", total)

	// no Tier 2 for Sentinel, stop here if that is all that was asked for
	if len(q.Satellites) == 1 && q.Satellites[0] == "S2" {
		return avail, nil
	}

	fmt.Println("- In Landsat Tier 2 (not suitable for time-series analysis):")
	wp = workerpool.New(4)
	for _, satname := range q.Satellites {
		sat := satname
		if _, ok := Tier2CollectionID(sat, q.LandsatCollection); !ok {
			continue
		}
		wp.Submit(func() {
			records, err := searchTier2(c, q, sat, rc)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			avail.Tier2[sat] = records
		})
	}
	wp.StopWait()
	if firstErr != nil {
		return nil, firstErr
	}
	total = 0
	for _, satname := range q.Satellites {
		if _, ok := Tier2CollectionID(satname, q.LandsatCollection); !ok {
			continue
		}
		fmt.Printf("     %s: %d images\n", satname, len(avail.Tier2[satname]))
		total += len(avail.Tier2[satname])
	}
	fmt.Printf("  Total Tier 2: %d images\n", total)

	return avail, nil
}

func searchTier1(c *Client, q Query, satname string, rc *RecordCache) ([]ImageRecord, error) {
	collection, err := Tier1CollectionID(satname, q.LandsatCollection)
	if err != nil {
		return nil, err
	}
	tile := ""
	if satname == "S2" {
		tile = q.S2Tile
	}
	records, err := cachedSearch(c, rc, collection, satname, q.Polygon, q.StartDate, q.EndDate, tile)
	if err != nil {
		return nil, err
	}
	extra, err := completionC02(c, q, satname, "T1", rc)
	if err != nil {
		return nil, err
	}
	return append(records, extra...), nil
}

func searchTier2(c *Client, q Query, satname string, rc *RecordCache) ([]ImageRecord, error) {
	collection, ok := Tier2CollectionID(satname, q.LandsatCollection)
	if !ok {
		return nil, nil
	}
	records, err := cachedSearch(c, rc, collection, satname, q.Polygon, q.StartDate, q.EndDate, "")
	if err != nil {
		return nil, err
	}
	extra, err := completionC02(c, q, satname, "T2", rc)
	if err != nil {
		return nil, err
	}
	return append(records, extra...), nil
}

// completionC02 fills the post-2021 gap of C01 sessions with the C02
// collections. Only L7 and L8 have both a C01 and a C02 archive.
func completionC02(c *Client, q Query, satname, tier string, rc *RecordCache) ([]ImageRecord, error) {
	if q.LandsatCollection != CollectionC01 || !q.EndDate.After(landsatTransition) {
		return nil, nil
	}
	if satname != "L7" && satname != "L8" {
		return nil, nil
	}
	collection := fmt.Sprintf("LANDSAT/%s/C02/%s_TOA", landsatCode(satname), tier)
	return cachedSearch(c, rc, collection, satname, q.Polygon, landsatTransition, q.EndDate, "")
}

func landsatCode(satname string) string {
	switch satname {
	case "L5":
		return "LT05"
	case "L7":
		return "LE07"
	case "L8":
		return "LC08"
	case "L9":
		return "LC09"
	}
	return satname
}

func cachedSearch(c *Client, rc *RecordCache, collection, satname string, polygon orb.Polygon, start, end time.Time, tile string) ([]ImageRecord, error) {
	var key string
	if rc != nil {
		key = rc.GenerateKey(collection, start.Format("2006-01-02"), end.Format("2006-01-02"), tile, polygon)
		if records, ok := rc.Get(key); ok {
			return records, nil
		}
	}
	records, err := c.Search(collection, satname, polygon, start, end, tile)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		_ = rc.Set(key, records)
	}
	return records, nil
}
