package properties

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v10"
)

// Settings holds everything the session reads from the environment.
// It is constructed once in main and passed down explicitly; no package in
// this repo reads the environment on its own.
type Settings struct {
	RootPath string `env:"ROOT_PATH"`

	CatalogBaseURL      string  `env:"CATALOG_BASE_URL" envDefault:"https://catalog.shore-guardian.io"`
	CatalogTokenURL     string  `env:"CATALOG_TOKEN_URL"`
	CatalogClientID     string  `env:"CATALOG_CLIENT_ID"`
	CatalogClientSecret string  `env:"CATALOG_CLIENT_SECRET"`
	CloudThreshold      float64 `env:"CLOUD_THRESHOLD" envDefault:"95"`

	DiscordErrorNotificationURL   string `env:"DISCORD_ERROR_NOTIFICATION_URL"`
	DiscordSuccessNotificationURL string `env:"DISCORD_SUCCESS_NOTIFICATION_URL"`
}

func Load() (*Settings, error) {
	s := &Settings{}
	if err := env.Parse(s); err != nil {
		return nil, fmt.Errorf("failed to parse settings from environment: %v", err)
	}
	if s.RootPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("ROOT_PATH not set and could not determine working directory: %v", err)
		}
		s.RootPath = wd
	}
	if s.CloudThreshold <= 0 || s.CloudThreshold > 100 {
		return nil, fmt.Errorf("cloud threshold must be in (0,100], got %v", s.CloudThreshold)
	}
	return s, nil
}

func (s *Settings) DataPath() string {
	return s.RootPath + "/data"
}
