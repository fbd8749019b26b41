package fetch

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/airbusgeo/godal"
	"github.com/paulmach/orb"
)

// Downloader is the slice of the catalog client the fetcher needs.
type Downloader interface {
	RequestExport(imageID string, region orb.Polygon, bands []string) (string, error)
	DownloadBundle(url string) ([]byte, error)
}

// Result points at the rasters a fetch produced: the merged spectral raster
// and, when the band list included one, the separated quality-assurance band.
type Result struct {
	PrimaryPath string
	QAPath      string
}

// Fetch retrieves the requested bands of one image cropped to the region, as
// a zip bundle with one file per band. Same-resolution spectral bands are
// merged into a single multi-band raster; a QA band stays separate. Every
// intermediate file (zip, per-band rasters, VRT scratch) is deleted before
// returning, on success and on failure. The whole operation is retried
// according to the policy; on exhaustion the error names the image.
func Fetch(dl Downloader, imageID string, region orb.Polygon, bands []string, dir string, policy Policy) (Result, error) {
	var result Result
	err := policy.Run(func() error {
		r, err := fetchOnce(dl, imageID, region, bands, dir)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return Result{}, &FetchError{ImageID: imageID, Attempts: policy.MaxAttempts, Err: err}
	}
	return result, nil
}

func fetchOnce(dl Downloader, imageID string, region orb.Polygon, bands []string, dir string) (result Result, err error) {
	var created []string
	defer func() {
		if err != nil {
			for _, p := range created {
				os.Remove(p)
			}
		}
	}()

	url, err := dl.RequestExport(imageID, region, bands)
	if err != nil {
		return Result{}, err
	}
	data, err := dl.DownloadBundle(url)
	if err != nil {
		return Result{}, err
	}

	zipPath := filepath.Join(dir, "temp.zip")
	if err = os.WriteFile(zipPath, data, 0644); err != nil {
		return Result{}, fmt.Errorf("failed to write bundle: %v", err)
	}
	created = append(created, zipPath)

	extracted, err := unzipBands(zipPath, dir)
	created = append(created, extracted...)
	if err != nil {
		return Result{}, err
	}
	if err = os.Remove(zipPath); err != nil {
		return Result{}, fmt.Errorf("failed to remove bundle: %v", err)
	}

	if len(extracted) == 0 {
		err = fmt.Errorf("bundle for image %s contained no rasters", imageID)
		return Result{}, err
	}

	// a single file is a standalone band (pan, swir or mask), nothing to merge
	if len(extracted) == 1 {
		return Result{PrimaryPath: extracted[0]}, nil
	}

	var spectral, qa []string
	for _, p := range extracted {
		if strings.Contains(filepath.Base(p), "QA") {
			qa = append(qa, p)
		} else {
			spectral = append(spectral, p)
		}
	}

	vrtPath := filepath.Join(dir, "temp.vrt")
	vrtDS, err := godal.BuildVRT(vrtPath, spectral, []string{"-separate"})
	if err != nil {
		return Result{}, fmt.Errorf("failed to build band vrt: %v", err)
	}
	created = append(created, vrtPath)

	msPath := filepath.Join(dir, "ms_bands.tif")
	msDS, err := vrtDS.Translate(msPath, nil)
	vrtDS.Close()
	if err != nil {
		return Result{}, fmt.Errorf("failed to merge bands: %v", err)
	}
	msDS.Close()

	os.Remove(vrtPath)
	for _, p := range spectral {
		os.Remove(p)
	}
	if auxPath := msPath + ".aux.xml"; fileExists(auxPath) {
		os.Remove(auxPath)
	}

	result = Result{PrimaryPath: msPath}
	if len(qa) > 0 {
		result.QAPath = qa[0]
	}
	return result, nil
}

func unzipBands(zipPath, dir string) ([]string, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open bundle: %v", err)
	}
	defer zr.Close()

	var paths []string
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		dst := filepath.Join(dir, filepath.Base(f.Name))
		// register before extracting so a partial file is cleaned up too
		paths = append(paths, dst)
		if err := extractFile(f, dst); err != nil {
			return paths, err
		}
	}
	return paths, nil
}

func extractFile(f *zip.File, dst string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s in bundle: %v", f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %v", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("failed to extract %s: %v", f.Name, err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
