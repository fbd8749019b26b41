package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/shore-guardian/shore-guardian-ingest-poc/internal/properties"
	"golang.org/x/oauth2/clientcredentials"
)

// Client talks to the image catalog service. One client is created per
// session and passed to every component that needs catalog access.
type Client struct {
	baseURL        string
	httpc          *http.Client
	cloudThreshold float64

	// RetryWait is the pause between transient-failure retries of Search.
	RetryWait time.Duration
}

func NewClient(s *properties.Settings) *Client {
	httpc := &http.Client{Timeout: 5 * time.Minute}
	if s.CatalogClientID != "" && s.CatalogTokenURL != "" {
		config := &clientcredentials.Config{
			ClientID:     s.CatalogClientID,
			ClientSecret: s.CatalogClientSecret,
			TokenURL:     s.CatalogTokenURL,
		}
		httpc = config.Client(context.Background())
	}
	return &Client{
		baseURL:        s.CatalogBaseURL,
		httpc:          httpc,
		cloudThreshold: s.CloudThreshold,
		RetryWait:      time.Second,
	}
}

// NewClientWithHTTP builds a client around a caller-supplied http.Client,
// used by tests and by deployments with custom transports.
func NewClientWithHTTP(baseURL string, httpc *http.Client, cloudThreshold float64) *Client {
	return &Client{
		baseURL:        baseURL,
		httpc:          httpc,
		cloudThreshold: cloudThreshold,
		RetryWait:      time.Second,
	}
}

type searchRequest struct {
	Collection string            `json:"collection"`
	Geometry   *geojson.Geometry `json:"geometry"`
	Start      string            `json:"start"`
	End        string            `json:"end"`
	Tile       string            `json:"tile,omitempty"`
}

type searchResponse struct {
	Features []ImageRecord `json:"features"`
}

// Search queries one collection for captures intersecting the polygon within
// [start, end). Transient failures (network errors, 5xx) are retried without
// bound: the catalog is the hard dependency of a session and there is nothing
// useful to do until it answers. Records above the cloud-cover threshold are
// dropped before returning.
func (c *Client) Search(collection string, satname string, polygon orb.Polygon, start, end time.Time, tile string) ([]ImageRecord, error) {
	payload := searchRequest{
		Collection: collection,
		Geometry:   geojson.NewGeometry(polygon),
		Start:      start.Format("2006-01-02"),
		End:        end.Format("2006-01-02"),
		Tile:       tile,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %v", err)
	}

	var result searchResponse
	for attempt := 1; ; attempt++ {
		resp, err := c.httpc.Post(c.baseURL+"/v1/search", "application/json", bytes.NewReader(body))
		if err != nil {
			fmt.Printf("catalog search attempt %d failed: %v\n", attempt, err)
			time.Sleep(c.RetryWait)
			continue
		}
		if resp.StatusCode >= 500 {
			msg, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			fmt.Printf("catalog search attempt %d failed: status %d: %s\n", attempt, resp.StatusCode, msg)
			time.Sleep(c.RetryWait)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("catalog search for %s returned status %d: %s", collection, resp.StatusCode, msg)
		}
		err = json.NewDecoder(resp.Body).Decode(&result)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to decode catalog search response: %v", err)
		}
		break
	}

	return c.removeCloudyImages(result.Features, satname), nil
}

// removeCloudyImages drops records whose cloud-cover property exceeds the
// configured threshold. The property name depends on the satellite family.
func (c *Client) removeCloudyImages(records []ImageRecord, satname string) []ImageRecord {
	kept := make([]ImageRecord, 0, len(records))
	for _, r := range records {
		if r.CloudCover(satname) > c.cloudThreshold {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

type exportRequest struct {
	Image       string            `json:"image"`
	Region      *geojson.Geometry `json:"region"`
	Bands       []string          `json:"bands"`
	FilePerBand bool              `json:"file_per_band"`
}

type exportResponse struct {
	DownloadURL string `json:"download_url"`
}

// RequestExport asks the catalog to prepare a cropped per-band export of an
// image and returns the URL of the resulting zip bundle. Errors are not
// retried here; the fetch layer owns the bounded retry policy.
func (c *Client) RequestExport(imageID string, region orb.Polygon, bands []string) (string, error) {
	payload := exportRequest{
		Image:       imageID,
		Region:      geojson.NewGeometry(region),
		Bands:       bands,
		FilePerBand: true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal export request: %v", err)
	}
	resp, err := c.httpc.Post(c.baseURL+"/v1/export", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to request export of %s: %v", imageID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("export of %s returned status %d: %s", imageID, resp.StatusCode, msg)
	}
	var result exportResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode export response for %s: %v", imageID, err)
	}
	return result.DownloadURL, nil
}

// DownloadBundle retrieves a prepared export bundle.
func (c *Client) DownloadBundle(url string) ([]byte, error) {
	resp, err := c.httpc.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download bundle: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bundle download returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
