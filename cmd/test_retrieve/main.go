package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/airbusgeo/godal"
	"github.com/joho/godotenv"
	"github.com/paulmach/orb"
	"github.com/shore-guardian/shore-guardian-ingest-poc/internal/catalog"
	"github.com/shore-guardian/shore-guardian-ingest-poc/internal/merge"
	"github.com/shore-guardian/shore-guardian-ingest-poc/internal/properties"
	"github.com/shore-guardian/shore-guardian-ingest-poc/internal/retrieve"
)

func main() {
	// Hardcoded test parameters - modify these to test different scenarios
	sitename := "NARRA"
	polygon := orb.Polygon{orb.Ring{
		{151.301454, -33.700754},
		{151.311453, -33.702075},
		{151.307237, -33.739761},
		{151.294220, -33.736329},
		{151.301454, -33.700754},
	}}
	startDate := time.Date(2017, 12, 1, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)
	satellites := []string{"S2"}

	fmt.Println("=== Shore Guardian Test Retrieval ===")
	fmt.Printf("Site: %s\n", sitename)
	fmt.Printf("Window: %s to %s\n", startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	fmt.Printf("Satellites: %v\n", satellites)
	fmt.Println()

	if err := godotenv.Load("../../.env"); err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
		fmt.Println("Make sure you have set the required environment variables:")
		fmt.Println("- CATALOG_BASE_URL")
		fmt.Println("- CATALOG_TOKEN_URL")
		fmt.Println("- CATALOG_CLIENT_ID")
		fmt.Println("- CATALOG_CLIENT_SECRET")
		fmt.Println("- ROOT_PATH")
		fmt.Println()
	}

	if os.Getenv("ROOT_PATH") == "" {
		wd, _ := os.Getwd()
		os.Setenv("ROOT_PATH", wd)
		fmt.Printf("Setting ROOT_PATH to: %s\n", wd)
	}

	godal.RegisterAll()

	settings, err := properties.Load()
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}
	client := catalog.NewClient(settings)

	inputs := retrieve.Inputs{
		SiteName: sitename,
		Filepath: settings.DataPath(),
		Query: catalog.Query{
			Polygon:           polygon,
			StartDate:         startDate,
			EndDate:           endDate,
			Satellites:        satellites,
			LandsatCollection: catalog.CollectionC02,
		},
	}

	index, err := retrieve.RetrieveImages(client, inputs, nil)
	if err != nil {
		log.Fatalf("Retrieval failed: %v", err)
	}
	for sat, si := range index {
		fmt.Printf("✓ %s: %d images archived\n", sat, len(si.Filenames))
	}

	index, err = merge.MergeOverlappingImages(inputs.SitePath(), sitename)
	if err != nil {
		log.Fatalf("Reconciliation failed: %v", err)
	}
	if si := index["S2"]; si != nil {
		fmt.Printf("✓ Reconciled archive holds %d Sentinel-2 images\n", len(si.Filenames))
	}
}
