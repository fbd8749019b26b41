package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/airbusgeo/godal"
	"github.com/common-nighthawk/go-figure"
	bannercolor "github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/shore-guardian/shore-guardian-ingest-poc/internal/cache"
	"github.com/shore-guardian/shore-guardian-ingest-poc/internal/catalog"
	"github.com/shore-guardian/shore-guardian-ingest-poc/internal/geometry"
	"github.com/shore-guardian/shore-guardian-ingest-poc/internal/merge"
	"github.com/shore-guardian/shore-guardian-ingest-poc/internal/notification"
	"github.com/shore-guardian/shore-guardian-ingest-poc/internal/properties"
	"github.com/shore-guardian/shore-guardian-ingest-poc/internal/retrieve"
	"github.com/shore-guardian/shore-guardian-ingest-poc/internal/utils"
)

func printBanner() {
	figure1 := figure.NewFigure("Shore", "isometric1", true)
	figure2 := figure.NewFigure("Guardian", "isometric1", true)
	bannercolor.Cyan(figure1.String())
	bannercolor.Cyan(figure2.String())
	fmt.Println()
}

func main() {
	err := godotenv.Load(".env")
	if err != nil {
		fmt.Println("Error loading .env file")
	}
	godal.RegisterAll()
	initCLI()
}

func initCLI() {
	settings, err := properties.Load()
	if err != nil {
		fmt.Printf("\033[31mInvalid configuration: %s\033[0m\n", err.Error())
		os.Exit(1)
	}
	notifier := notification.NewNotifier(settings)

	defer func() {
		if r := recover(); r != nil {
			pc, file, line, ok := runtime.Caller(3)
			var location string
			if ok {
				fn := runtime.FuncForPC(pc)
				location = fmt.Sprintf("%s:%d in %s", file, line, fn.Name())
			} else {
				location = "Unknown location"
			}

			fmt.Printf("\n\033[31mPANIC: %v\033[0m\n", r)
			fmt.Printf("\033[31mLocation: %s\033[0m\n", location)
			fmt.Printf("\033[31mExiting...\033[0m\n")

			stack := debug.Stack()
			errMessage := fmt.Sprintf("Shore Guardian CLI panic:\n\n%v\n\nLocation: %s\n\nStack trace:\n%s", r, location, stack)
			if err := notifier.SendError(errMessage); err != nil {
				fmt.Printf("\033[31mFailed to send notification: %s\033[0m\n", err.Error())
			}
		}
	}()
	printBanner()

	client := catalog.NewClient(settings)
	recordCache := cache.NewFileCache[[]catalog.ImageRecord](settings.DataPath(), "availability", time.Hour)
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Println("\033[34m===================\033[0m")
		fmt.Println("\033[34m1. Check image availability\033[0m")
		fmt.Println("\033[34m2. Retrieve images for a site\033[0m")
		fmt.Println("\033[34m3. Merge overlapping Sentinel-2 images\033[0m")
		fmt.Println("\033[34m4. Exit\033[0m")
		fmt.Println("\033[34mEnter your choice:\033[0m")

		var choice int
		_, err := fmt.Scan(&choice)
		if err != nil {
			fmt.Printf("\n\033[31mInvalid input. Please enter a number.\033[0m\n")
			fmt.Scanln()
			continue
		}

		switch choice {
		case 1:
			inputs, err := readSessionInputs(reader, settings)
			if err != nil {
				fmt.Printf("\n\033[31m%s\033[0m\n", err.Error())
				continue
			}
			if _, err := catalog.CheckImagesAvailable(client, inputs.Query, recordCache); err != nil {
				fmt.Printf("\n\033[31mError checking availability: %s\033[0m\n", err.Error())
				continue
			}
		case 2:
			fmt.Println("\033[33m\nWarning:\033[0m")
			fmt.Println("\033[33m- A '.geojson' file with the site name should be present in the data/sites folder.\033[0m")
			fmt.Println("\033[33m- Downloaded imagery is stored under data/<site>/<satellite>.\n\033[0m")

			inputs, err := readSessionInputs(reader, settings)
			if err != nil {
				fmt.Printf("\n\033[31m%s\033[0m\n", err.Error())
				continue
			}
			index, err := retrieve.RetrieveImages(client, inputs, recordCache)
			if err != nil {
				fmt.Printf("\n\033[31mError retrieving images: %s\033[0m\n", err.Error())
				notifier.SendError(fmt.Sprintf("Shore Guardian CLI\n\nError retrieving images for %s: %s", inputs.SiteName, err.Error()))
				continue
			}
			total := 0
			for _, si := range index {
				total += len(si.Filenames)
			}
			fmt.Printf("\n\033[32mRetrieval finished: %d images archived for %s\033[0m\n", total, inputs.SiteName)
			notifier.SendSuccess(fmt.Sprintf("Shore Guardian CLI\n\nRetrieval finished: %d images archived for %s", total, inputs.SiteName))
		case 3:
			fmt.Print("\033[34mEnter the site name: \033[0m")
			sitename, _ := reader.ReadString('\n')
			sitename = strings.TrimSpace(sitename)
			if sitename == "" {
				fmt.Printf("\n\033[31mSite name cannot be empty.\033[0m\n")
				continue
			}
			sitePath := filepath.Join(settings.DataPath(), sitename)
			index, err := merge.MergeOverlappingImages(sitePath, sitename)
			if err != nil {
				fmt.Printf("\n\033[31mError merging images: %s\033[0m\n", err.Error())
				notifier.SendError(fmt.Sprintf("Shore Guardian CLI\n\nError merging images for %s: %s", sitename, err.Error()))
				continue
			}
			if si := index["S2"]; si != nil && len(si.Dates) > 0 {
				dates := utils.SortDates(append([]time.Time(nil), si.Dates...), true)
				fmt.Printf("\n\033[32mReconciliation finished: %d Sentinel-2 images remain between %s and %s\033[0m\n",
					len(si.Filenames), dates[0].Format("2006-01-02"), dates[len(dates)-1].Format("2006-01-02"))
			}
		case 4:
			fmt.Println("\033[32mExiting...\033[0m")
			return
		default:
			fmt.Printf("\n\033[31mInvalid choice. Please try again.\033[0m\n")
		}
	}
}

// readSessionInputs collects the retrieval session parameters interactively.
func readSessionInputs(reader *bufio.Reader, settings *properties.Settings) (retrieve.Inputs, error) {
	fmt.Print("\033[34mEnter the site name: \033[0m")
	sitename, _ := reader.ReadString('\n')
	sitename = strings.TrimSpace(sitename)
	if sitename == "" {
		return retrieve.Inputs{}, fmt.Errorf("site name cannot be empty")
	}

	geojsonPath := filepath.Join(settings.DataPath(), "sites", sitename+".geojson")
	polygon, err := geometry.LoadSitePolygon(geojsonPath)
	if err != nil {
		return retrieve.Inputs{}, err
	}

	fmt.Print("\033[34mEnter the start date (YYYY-MM-DD): \033[0m")
	startStr, _ := reader.ReadString('\n')
	start, err := time.Parse("2006-01-02", strings.TrimSpace(startStr))
	if err != nil {
		return retrieve.Inputs{}, fmt.Errorf("invalid start date: %v", err)
	}
	fmt.Print("\033[34mEnter the end date (YYYY-MM-DD): \033[0m")
	endStr, _ := reader.ReadString('\n')
	end, err := time.Parse("2006-01-02", strings.TrimSpace(endStr))
	if err != nil {
		return retrieve.Inputs{}, fmt.Errorf("invalid end date: %v", err)
	}

	fmt.Print("\033[34mEnter the satellites (comma separated, e.g. L8,L9,S2): \033[0m")
	satStr, _ := reader.ReadString('\n')
	var satellites []string
	for _, s := range strings.Split(strings.TrimSpace(satStr), ",") {
		if s = strings.TrimSpace(s); s != "" {
			satellites = append(satellites, s)
		}
	}

	fmt.Print("\033[34mEnter the Landsat collection (C01 or C02) [C02]: \033[0m")
	collection, _ := reader.ReadString('\n')
	collection = strings.TrimSpace(collection)
	if collection == "" {
		collection = catalog.CollectionC02
	}

	fmt.Print("\033[34mInclude Landsat Tier 2 images? (y/N): \033[0m")
	t2Str, _ := reader.ReadString('\n')
	includeT2 := strings.EqualFold(strings.TrimSpace(t2Str), "y")

	return retrieve.Inputs{
		SiteName: sitename,
		Filepath: settings.DataPath(),
		Query: catalog.Query{
			Polygon:           polygon,
			StartDate:         start,
			EndDate:           end,
			Satellites:        satellites,
			LandsatCollection: collection,
			IncludeT2:         includeT2,
		},
	}, nil
}
