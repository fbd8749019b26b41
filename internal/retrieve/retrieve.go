package retrieve

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/shore-guardian/shore-guardian-ingest-poc/internal/align"
	"github.com/shore-guardian/shore-guardian-ingest-poc/internal/catalog"
	"github.com/shore-guardian/shore-guardian-ingest-poc/internal/fetch"
	"github.com/shore-guardian/shore-guardian-ingest-poc/internal/geometry"
	"github.com/shore-guardian/shore-guardian-ingest-poc/internal/meta"
)

// RetrieveImages runs a full acquisition session: availability check, band
// downloads, grid alignment and metadata persistence, one satellite at a
// time. A failing image is logged and skipped, never aborting the satellite
// loop. The returned index is rebuilt from the sidecar files on disk, so an
// interrupted session can be resumed and still produce a truthful index.
func RetrieveImages(c *catalog.Client, in Inputs, rc *catalog.RecordCache) (meta.Index, error) {
	q := in.Query
	if err := q.Validate(); err != nil {
		return nil, err
	}

	avail, err := catalog.CheckImagesAvailable(c, q, rc)
	if err != nil {
		return nil, err
	}

	work := make(map[string][]catalog.ImageRecord)
	for _, sat := range q.Satellites {
		records := avail.Tier1[sat]
		if sat == "S2" {
			if records, err = catalog.FilterS2Collection(records); err != nil {
				return nil, err
			}
		} else if q.IncludeT2 {
			records = append(records, avail.Tier2[sat]...)
		}
		work[sat] = records
	}

	sitePath := in.SitePath()
	for _, sat := range q.Satellites {
		records := work[sat]
		if len(records) == 0 {
			continue
		}
		folders, err := CreateFolderStructure(sitePath, sat)
		if err != nil {
			return nil, err
		}
		acc := newNameAccumulator()
		bar := progressbar.Default(int64(len(records)), fmt.Sprintf("Downloading %s imagery", sat))
		for _, rec := range records {
			if err := processImage(c, in, sat, rec, folders, acc); err != nil {
				color.Red("image %s (%s): %v", rec.ID, sat, err)
			}
			bar.Add(1)
		}
	}

	fmt.Printf("Satellite images downloaded and saved in %s\n", sitePath)
	return meta.GetMetadata(sitePath, in.SiteName)
}

// processImage drives one capture through metadata extraction, band
// selection, fetch, alignment and naming. Whatever metadata was known is
// persisted even when a later stage failed, so the on-disk record of the
// session is complete.
func processImage(c *catalog.Client, in Inputs, satname string, rec catalog.ImageRecord, folders Folders, acc *nameAccumulator) error {
	ts, err := rec.AcquisitionTime()
	if err != nil {
		return fmt.Errorf("metadata stage: %v", err)
	}
	epsg, err := rec.EPSG()
	if err != nil {
		return fmt.Errorf("metadata stage: %v", err)
	}

	names := newImageNames(ts, satname, in.SiteName, acc)
	entry := meta.Entry{
		Filename:     names.Role("ms"),
		AccGeoref:    rec.GeoreferenceAccuracy(satname),
		EPSG:         epsg,
		ImageQuality: rec.ImageQuality(satname),
	}

	var stageErr error
	switch satname {
	case "L5":
		stageErr = processLandsat5(c, in, rec, folders, names)
	case "L7", "L8", "L9":
		stageErr = processLandsatPan(c, in, satname, rec, folders, names)
	case "S2":
		stageErr = processSentinel2(c, in, rec, folders, names)
	default:
		stageErr = catalog.ConfigurationError{Reason: fmt.Sprintf("unknown satellite %q", satname)}
	}

	// no matter what, persist the metadata that was gathered
	if err := meta.WriteEntry(filepath.Join(folders.Meta, names.Meta()), entry); err != nil {
		if stageErr != nil {
			return fmt.Errorf("%v (metadata write also failed: %v)", stageErr, err)
		}
		return err
	}
	return stageErr
}

// processLandsat5 is the two-group plan: one download with the multispectral
// and QA bands at 30m, both upsampled against themselves to 15m.
func processLandsat5(c *catalog.Client, in Inputs, rec catalog.ImageRecord, folders Folders, names imageNames) error {
	qa, err := qaBandFor(rec, in.Query.LandsatCollection)
	if err != nil {
		return err
	}
	bands := append(append([]string{}, spectralBands["L5"]...), qa)
	anchor, ok := regionBand(rec, bands)
	if !ok {
		return fmt.Errorf("band selection stage: record has no bands")
	}
	region, err := geometry.AdjustToGrid(in.Query.Polygon, anchor)
	if err != nil {
		return fmt.Errorf("geometry stage: %v", err)
	}

	res, err := fetch.Fetch(c, rec.ID, region, bands, folders.MS, fetch.DefaultPolicy)
	if err != nil {
		return err
	}
	defer removeAll(res.PrimaryPath, res.QAPath)
	if res.QAPath == "" {
		return fmt.Errorf("fetch stage: bundle is missing the %s band", qa)
	}

	msOut := filepath.Join(folders.MS, names.Role("ms"))
	if err := align.WarpToTarget(res.PrimaryPath, msOut, res.PrimaryPath, true, align.Smooth); err != nil {
		return fmt.Errorf("alignment stage: %v", err)
	}
	maskOut := filepath.Join(folders.Mask, names.Role("mask"))
	if err := align.WarpToTarget(res.QAPath, maskOut, res.QAPath, true, align.Nearest); err != nil {
		return fmt.Errorf("alignment stage: %v", err)
	}
	return nil
}

// processLandsatPan is the three-group plan of the panchromatic Landsat
// missions: the 15m pan band anchors the grid and the 30m multispectral and
// QA bands are warped onto it.
func processLandsatPan(c *catalog.Client, in Inputs, satname string, rec catalog.ImageRecord, folders Folders, names imageNames) error {
	qa, err := qaBandFor(rec, in.Query.LandsatCollection)
	if err != nil {
		return err
	}
	msBands := append(append([]string{}, spectralBands[satname]...), qa)

	panAnchor, ok := regionBand(rec, []string{panBand})
	if !ok {
		return fmt.Errorf("band selection stage: record has no %s band", panBand)
	}
	msAnchor, ok := regionBand(rec, msBands)
	if !ok {
		return fmt.Errorf("band selection stage: record has no bands")
	}
	panRegion, err := geometry.AdjustToGrid(in.Query.Polygon, panAnchor)
	if err != nil {
		return fmt.Errorf("geometry stage: %v", err)
	}
	msRegion, err := geometry.AdjustToGrid(in.Query.Polygon, msAnchor)
	if err != nil {
		return fmt.Errorf("geometry stage: %v", err)
	}

	panRes, err := fetch.Fetch(c, rec.ID, panRegion, []string{panBand}, folders.Pan, fetch.DefaultPolicy)
	if err != nil {
		return err
	}
	defer removeAll(panRes.PrimaryPath)
	msRes, err := fetch.Fetch(c, rec.ID, msRegion, msBands, folders.MS, fetch.DefaultPolicy)
	if err != nil {
		return err
	}
	defer removeAll(msRes.PrimaryPath, msRes.QAPath)
	if msRes.QAPath == "" {
		return fmt.Errorf("fetch stage: bundle is missing the %s band", qa)
	}

	msOut := filepath.Join(folders.MS, names.Role("ms"))
	if err := align.WarpToTarget(msRes.PrimaryPath, msOut, panRes.PrimaryPath, false, align.Smooth); err != nil {
		return fmt.Errorf("alignment stage: %v", err)
	}
	maskOut := filepath.Join(folders.Mask, names.Role("mask"))
	if err := align.WarpToTarget(msRes.QAPath, maskOut, panRes.PrimaryPath, false, align.Nearest); err != nil {
		return fmt.Errorf("alignment stage: %v", err)
	}

	panOut := filepath.Join(folders.Pan, names.Role("pan"))
	if err := os.Rename(panRes.PrimaryPath, panOut); err != nil {
		return fmt.Errorf("naming stage: %v", err)
	}
	return nil
}

// processSentinel2 is the Sentinel-2 plan: 10m multispectral, 20m SWIR and
// 60m QA downloaded separately, with SWIR and QA warped onto the 10m grid.
func processSentinel2(c *catalog.Client, in Inputs, rec catalog.ImageRecord, folders Folders, names imageNames) error {
	msAnchor, ok := regionBand(rec, spectralBands["S2"])
	if !ok {
		return fmt.Errorf("band selection stage: record has no bands")
	}
	swirAnchor, _ := regionBand(rec, []string{swirBand})
	maskAnchor, _ := regionBand(rec, []string{s2MaskBand})

	msRegion, err := geometry.AdjustToGrid(in.Query.Polygon, msAnchor)
	if err != nil {
		return fmt.Errorf("geometry stage: %v", err)
	}
	swirRegion, err := geometry.AdjustToGrid(in.Query.Polygon, swirAnchor)
	if err != nil {
		return fmt.Errorf("geometry stage: %v", err)
	}
	maskRegion, err := geometry.AdjustToGrid(in.Query.Polygon, maskAnchor)
	if err != nil {
		return fmt.Errorf("geometry stage: %v", err)
	}

	msRes, err := fetch.Fetch(c, rec.ID, msRegion, spectralBands["S2"], folders.MS, fetch.DefaultPolicy)
	if err != nil {
		return err
	}
	defer removeAll(msRes.PrimaryPath)
	swirRes, err := fetch.Fetch(c, rec.ID, swirRegion, []string{swirBand}, folders.SWIR, fetch.DefaultPolicy)
	if err != nil {
		return err
	}
	defer removeAll(swirRes.PrimaryPath)
	maskRes, err := fetch.Fetch(c, rec.ID, maskRegion, []string{s2MaskBand}, folders.Mask, fetch.DefaultPolicy)
	if err != nil {
		return err
	}
	defer removeAll(maskRes.PrimaryPath, maskRes.QAPath)

	maskRaw := maskRes.PrimaryPath
	if maskRaw == "" {
		maskRaw = maskRes.QAPath
	}

	swirOut := filepath.Join(folders.SWIR, names.Role("swir"))
	if err := align.WarpToTarget(swirRes.PrimaryPath, swirOut, msRes.PrimaryPath, false, align.Smooth); err != nil {
		return fmt.Errorf("alignment stage: %v", err)
	}
	maskOut := filepath.Join(folders.Mask, names.Role("mask"))
	if err := align.WarpToTarget(maskRaw, maskOut, msRes.PrimaryPath, false, align.Nearest); err != nil {
		return fmt.Errorf("alignment stage: %v", err)
	}

	msOut := filepath.Join(folders.MS, names.Role("ms"))
	if err := os.Rename(msRes.PrimaryPath, msOut); err != nil {
		return fmt.Errorf("naming stage: %v", err)
	}
	return nil
}

// removeAll deletes raw downloads; renamed files are simply gone already.
func removeAll(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			os.Remove(p)
		}
	}
}
