package meta

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shore-guardian/shore-guardian-ingest-poc/internal/utils"
)

const filenameTimeLayout = "2006-01-02-15-04-05"

// Satellites is the canonical reconciliation order of the pipeline.
var Satellites = []string{"L5", "L7", "L8", "L9", "S2"}

// Entry is the sidecar record written next to every acquired image, one
// small text file per capture so a partially interrupted session still has
// valid metadata for everything it completed.
type Entry struct {
	Filename     string
	AccGeoref    float64
	EPSG         int
	ImageQuality string
}

// WriteEntry persists the entry as tab-separated key/value lines. The file is
// written to a temp path and renamed so readers never observe a partial file.
func WriteEntry(path string, e Entry) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "filename\t%s\n", e.Filename)
	fmt.Fprintf(&sb, "acc_georef\t%v\n", e.AccGeoref)
	fmt.Fprintf(&sb, "epsg\t%d\n", e.EPSG)
	fmt.Fprintf(&sb, "image_quality\t%s\n", e.ImageQuality)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write metadata file: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize metadata file: %v", err)
	}
	return nil
}

// ReadEntry parses a sidecar file. Files written before image quality was
// recorded lack that line; they read back with ImageQuality "NA".
func ReadEntry(path string) (Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to read metadata file: %v", err)
	}

	e := Entry{ImageQuality: "NA"}
	for _, line := range strings.Split(string(data), "\n") {
		key, value, found := strings.Cut(line, "\t")
		if !found {
			continue
		}
		switch key {
		case "filename":
			e.Filename = value
		case "acc_georef":
			e.AccGeoref, err = strconv.ParseFloat(value, 64)
			if err != nil {
				return Entry{}, fmt.Errorf("invalid acc_georef in %s: %v", path, err)
			}
		case "epsg":
			e.EPSG, err = strconv.Atoi(value)
			if err != nil {
				return Entry{}, fmt.Errorf("invalid epsg in %s: %v", path, err)
			}
		case "image_quality":
			e.ImageQuality = value
		}
	}
	if e.Filename == "" {
		return Entry{}, fmt.Errorf("metadata file %s has no filename line", path)
	}
	return e, nil
}

// ParseDateFromFilename recovers the acquisition timestamp from an image
// filename, whose first nineteen characters are the UTC capture time.
func ParseDateFromFilename(filename string) (time.Time, error) {
	base := filepath.Base(filename)
	if len(base) < len(filenameTimeLayout) {
		return time.Time{}, fmt.Errorf("filename %s is too short to carry a timestamp", filename)
	}
	t, err := time.ParseInLocation(filenameTimeLayout, base[:len(filenameTimeLayout)], time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("filename %s has an unparsable timestamp: %v", filename, err)
	}
	return t, nil
}

// SatelliteIndex holds one satellite's acquisitions as parallel slices sorted
// by filename, which is chronological order because filenames start with the
// timestamp.
type SatelliteIndex struct {
	Filenames    []string    `json:"filenames"`
	AccGeoref    []float64   `json:"acc_georef"`
	EPSG         []int       `json:"epsg"`
	Dates        []time.Time `json:"dates"`
	ImageQuality []string    `json:"im_quality"`
}

// Index aggregates every satellite's acquisitions for a site.
type Index map[string]*SatelliteIndex

type indexRow struct {
	Satellite    string    `csv:"satellite"`
	Filename     string    `csv:"filename"`
	Date         time.Time `csv:"date"`
	AccGeoref    float64   `csv:"acc_georef"`
	EPSG         int       `csv:"epsg"`
	ImageQuality string    `csv:"image_quality"`
}

// GetMetadata rebuilds the consolidated site index from the sidecar files on
// disk. It is a pure function of the filesystem state, so it can run after a
// fresh session, after a resumed one and after duplicate merging, always
// converging to the same result for the same files. Alongside the JSON index
// it writes a flat CSV for spreadsheet inspection.
func GetMetadata(sitePath, sitename string) (Index, error) {
	index := Index{}
	var rows []indexRow

	for _, sat := range Satellites {
		metaDir := filepath.Join(sitePath, sat, "meta")
		entries, err := os.ReadDir(metaDir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %v", metaDir, err)
		}

		var names []string
		for _, de := range entries {
			if !de.IsDir() && strings.HasSuffix(de.Name(), ".txt") {
				names = append(names, de.Name())
			}
		}
		if len(names) == 0 {
			continue
		}
		sort.Strings(names)

		si := &SatelliteIndex{}
		for _, name := range names {
			e, err := ReadEntry(filepath.Join(metaDir, name))
			if err != nil {
				return nil, err
			}
			date, err := ParseDateFromFilename(e.Filename)
			if err != nil {
				return nil, err
			}
			si.Filenames = append(si.Filenames, e.Filename)
			si.AccGeoref = append(si.AccGeoref, e.AccGeoref)
			si.EPSG = append(si.EPSG, e.EPSG)
			si.Dates = append(si.Dates, date)
			si.ImageQuality = append(si.ImageQuality, e.ImageQuality)
		}
		sortChronologically(si)
		for i := range si.Filenames {
			rows = append(rows, indexRow{
				Satellite:    sat,
				Filename:     si.Filenames[i],
				Date:         si.Dates[i],
				AccGeoref:    si.AccGeoref[i],
				EPSG:         si.EPSG[i],
				ImageQuality: si.ImageQuality[i],
			})
		}
		index[sat] = si
	}

	if err := writeIndexJSON(filepath.Join(sitePath, sitename+"_metadata.json"), index); err != nil {
		return nil, err
	}
	if err := writeIndexCSV(filepath.Join(sitePath, sitename+"_metadata.csv"), rows); err != nil {
		return nil, err
	}
	return index, nil
}

// sortChronologically reorders the parallel slices by acquisition date. The
// filename sort already gives this order for plain names, but merged and
// duplicate suffixes must not disturb it.
func sortChronologically(si *SatelliteIndex) {
	order := utils.ArgsortDates(si.Dates)
	filenames := make([]string, len(order))
	accs := make([]float64, len(order))
	epsgs := make([]int, len(order))
	dates := make([]time.Time, len(order))
	quality := make([]string, len(order))
	for i, j := range order {
		filenames[i] = si.Filenames[j]
		accs[i] = si.AccGeoref[j]
		epsgs[i] = si.EPSG[j]
		dates[i] = si.Dates[j]
		quality[i] = si.ImageQuality[j]
	}
	si.Filenames = filenames
	si.AccGeoref = accs
	si.EPSG = epsgs
	si.Dates = dates
	si.ImageQuality = quality
}

func writeIndexJSON(path string, index Index) error {
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata index: %v", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata index: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize metadata index: %v", err)
	}
	return nil
}

func writeIndexCSV(path string, rows []indexRow) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create metadata csv: %v", err)
	}
	if err := gocsv.MarshalFile(&rows, f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write metadata csv: %v", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close metadata csv: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize metadata csv: %v", err)
	}
	return nil
}
