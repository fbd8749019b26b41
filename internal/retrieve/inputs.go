package retrieve

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shore-guardian/shore-guardian-ingest-poc/internal/catalog"
)

// Inputs describes one retrieval session: where the archive lives and what to
// ask the catalog for. Immutable once the session starts.
type Inputs struct {
	SiteName string
	Filepath string
	Query    catalog.Query
}

func (in Inputs) SitePath() string {
	return filepath.Join(in.Filepath, in.SiteName)
}

// Folders holds the per-satellite subfolder paths of a site. Pan is only set
// for the panchromatic Landsat missions, SWIR only for Sentinel-2.
type Folders struct {
	Meta string
	MS   string
	Pan  string
	SWIR string
	Mask string
}

// CreateFolderStructure builds the site/satellite directory tree, one
// subfolder per band role plus the metadata folder.
func CreateFolderStructure(sitePath, satname string) (Folders, error) {
	satPath := filepath.Join(sitePath, satname)
	f := Folders{
		Meta: filepath.Join(satPath, "meta"),
		MS:   filepath.Join(satPath, "ms"),
		Mask: filepath.Join(satPath, "mask"),
	}
	dirs := []string{f.Meta, f.MS, f.Mask}
	switch satname {
	case "L7", "L8", "L9":
		f.Pan = filepath.Join(satPath, "pan")
		dirs = append(dirs, f.Pan)
	case "S2":
		f.SWIR = filepath.Join(satPath, "swir")
		dirs = append(dirs, f.SWIR)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return Folders{}, fmt.Errorf("failed to create %s: %v", dir, err)
		}
	}
	return f, nil
}
