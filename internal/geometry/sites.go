package geometry

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// LoadSitePolygon reads the area-of-interest polygon of a site from a GeoJSON
// file: the first polygon feature wins, a multi-polygon contributes its first
// member. The ring is closed if the file left it open.
func LoadSitePolygon(path string) (orb.Polygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read geojson file: %v", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse geojson file %s: %v", path, err)
	}

	for _, feature := range fc.Features {
		var polygon orb.Polygon
		switch geom := feature.Geometry.(type) {
		case orb.Polygon:
			polygon = geom
		case orb.MultiPolygon:
			if len(geom) > 0 {
				polygon = geom[0]
			}
		}
		if len(polygon) == 0 || len(polygon[0]) == 0 {
			continue
		}
		return closeRing(polygon), nil
	}
	return nil, fmt.Errorf("no polygon feature found in %s", path)
}

func closeRing(polygon orb.Polygon) orb.Polygon {
	ring := polygon[0]
	if ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
		polygon[0] = ring
	}
	return polygon
}
