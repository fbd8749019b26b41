package catalog

import (
	"fmt"
	"time"
)

// Landsat collection codes. The code selects both the collection ids queried
// and the name of the quality-assurance band shipped with each image.
const (
	CollectionC01 = "C01"
	CollectionC02 = "C02"
)

// C01 processing stopped at the end of 2021; sessions pinned to C01 whose
// window extends past this date are completed with C02 for L7 and L8.
var landsatTransition = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

func Tier1CollectionID(satname, landsatCollection string) (string, error) {
	switch satname {
	case "L5":
		return fmt.Sprintf("LANDSAT/LT05/%s/T1_TOA", landsatCollection), nil
	case "L7":
		return fmt.Sprintf("LANDSAT/LE07/%s/T1_TOA", landsatCollection), nil
	case "L8":
		return fmt.Sprintf("LANDSAT/LC08/%s/T1_TOA", landsatCollection), nil
	case "L9":
		// Landsat 9 only exists in C02
		return "LANDSAT/LC09/C02/T1_TOA", nil
	case "S2":
		return "COPERNICUS/S2", nil
	}
	return "", ConfigurationError{Reason: fmt.Sprintf("unknown satellite %q", satname)}
}

// Tier2CollectionID returns the Tier-2 collection for a satellite, or false:
// there is no Tier 2 for Sentinel-2 and Landsat 9.
func Tier2CollectionID(satname, landsatCollection string) (string, bool) {
	switch satname {
	case "L5":
		return fmt.Sprintf("LANDSAT/LT05/%s/T2_TOA", landsatCollection), true
	case "L7":
		return fmt.Sprintf("LANDSAT/LE07/%s/T2_TOA", landsatCollection), true
	case "L8":
		return fmt.Sprintf("LANDSAT/LC08/%s/T2_TOA", landsatCollection), true
	}
	return "", false
}

// QABand returns the name of the quality-assurance band for a Landsat
// collection code.
func QABand(landsatCollection string) (string, error) {
	switch landsatCollection {
	case CollectionC01:
		return "BQA", nil
	case CollectionC02:
		return "QA_PIXEL", nil
	}
	return "", ConfigurationError{Reason: fmt.Sprintf("landsat collection %q does not exist, choose C01 or C02", landsatCollection)}
}
