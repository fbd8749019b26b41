package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// BandDescriptor describes one band of a catalog image: its id, the CRS it is
// stored in, the affine transform of its pixel grid and the ground sample
// distance in meters.
type BandDescriptor struct {
	ID           string    `json:"id"`
	CRS          string    `json:"crs"`
	CRSTransform []float64 `json:"crs_transform"`
	GSD          float64   `json:"gsd"`
}

// ImageRecord is one satellite capture as returned by the catalog. Records
// are read-only once created; every derived value is computed on access.
type ImageRecord struct {
	ID         string                 `json:"id"`
	Bands      []BandDescriptor       `json:"bands"`
	Properties map[string]interface{} `json:"properties"`
}

func (r ImageRecord) AcquisitionTime() (time.Time, error) {
	v, ok := r.Properties["time_start"]
	if !ok {
		return time.Time{}, fmt.Errorf("record %s has no time_start property", r.ID)
	}
	ms, ok := v.(float64)
	if !ok {
		return time.Time{}, fmt.Errorf("record %s has a non-numeric time_start property", r.ID)
	}
	return time.UnixMilli(int64(ms)).UTC(), nil
}

// EPSG returns the EPSG code of the first band, which for UTM products also
// identifies the zone the capture is projected in.
func (r ImageRecord) EPSG() (int, error) {
	if len(r.Bands) == 0 {
		return 0, fmt.Errorf("record %s has no bands", r.ID)
	}
	crs := r.Bands[0].CRS
	code, err := strconv.Atoi(strings.TrimPrefix(crs, "EPSG:"))
	if err != nil {
		return 0, fmt.Errorf("record %s has an unparsable crs %q", r.ID, crs)
	}
	return code, nil
}

func (r ImageRecord) Band(id string) (BandDescriptor, bool) {
	for _, b := range r.Bands {
		if b.ID == id {
			return b, true
		}
	}
	return BandDescriptor{}, false
}

func cloudProperty(satname string) string {
	if satname == "S2" {
		return "CLOUDY_PIXEL_PERCENTAGE"
	}
	return "CLOUD_COVER"
}

func (r ImageRecord) CloudCover(satname string) float64 {
	v, ok := r.Properties[cloudProperty(satname)]
	if !ok {
		return 0
	}
	cc, _ := v.(float64)
	return cc
}

// GeoreferenceAccuracy returns the geometric accuracy figure for the capture.
// Landsat reports an RMSE in meters (12 when the field is absent); Sentinel-2
// only carries a pass/fail flag, mapped to 1/-1. The two scales are not
// comparable, consumers must treat the value as satellite-relative.
func (r ImageRecord) GeoreferenceAccuracy(satname string) float64 {
	if satname != "S2" {
		if v, ok := r.Properties["GEOMETRIC_RMSE_MODEL"]; ok {
			if rmse, ok := v.(float64); ok {
				return rmse
			}
		}
		return 12
	}
	// the flag moved around across the Sentinel-2 archive
	flagNames := []string{
		"GEOMETRIC_QUALITY_FLAG",
		"GEOMETRIC_QUALITY",
		"quality_check",
		"GENERAL_QUALITY_FLAG",
	}
	for _, name := range flagNames {
		if v, ok := r.Properties[name]; ok {
			if v == "PASSED" {
				return 1
			}
			return -1
		}
	}
	return -1
}

func (r ImageRecord) ImageQuality(satname string) string {
	var key string
	switch satname {
	case "L5", "L7":
		key = "IMAGE_QUALITY"
	case "L8", "L9":
		key = "IMAGE_QUALITY_OLI"
	case "S2":
		key = "RADIOMETRIC_QUALITY"
	default:
		return "NA"
	}
	if v, ok := r.Properties[key]; ok {
		return fmt.Sprintf("%v", v)
	}
	return "NA"
}
