package retrieve

import (
	"github.com/shore-guardian/shore-guardian-ingest-poc/internal/catalog"
)

// spectralBands lists the reflectance bands downloaded per satellite. The
// quality-assurance band is appended at fetch time because its name depends
// on the Landsat collection (and can differ per image near the transition).
var spectralBands = map[string][]string{
	"L5": {"B1", "B2", "B3", "B4", "B5"},
	"L7": {"B1", "B2", "B3", "B4", "B5"},
	"L8": {"B2", "B3", "B4", "B5", "B6"},
	"L9": {"B2", "B3", "B4", "B5", "B6"},
	"S2": {"B2", "B3", "B4", "B8"},
}

const (
	panBand    = "B8"
	swirBand   = "B11"
	s2MaskBand = "QA60"
)

// qaBandFor picks the quality-assurance band for one Landsat image. C01
// sessions can encounter C02 records past the archive transition, whose QA
// band carries the C02 name; the record itself is the authority.
func qaBandFor(rec catalog.ImageRecord, landsatCollection string) (string, error) {
	name, err := catalog.QABand(landsatCollection)
	if err != nil {
		return "", err
	}
	if _, ok := rec.Band(name); !ok {
		if _, ok := rec.Band("QA_PIXEL"); ok {
			return "QA_PIXEL", nil
		}
	}
	return name, nil
}

// regionBand returns the band descriptor whose projection anchors the
// download region for a band list: the first listed band present on the
// record, falling back to the record's first band.
func regionBand(rec catalog.ImageRecord, bands []string) (catalog.BandDescriptor, bool) {
	for _, id := range bands {
		if b, ok := rec.Band(id); ok {
			return b, true
		}
	}
	if len(rec.Bands) > 0 {
		return rec.Bands[0], true
	}
	return catalog.BandDescriptor{}, false
}
