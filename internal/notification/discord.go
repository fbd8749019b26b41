package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shore-guardian/shore-guardian-ingest-poc/internal/properties"
)

type DiscordMessage struct {
	Embeds []DiscordEmbed `json:"embeds"`
}

type DiscordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

// Notifier posts session outcomes to the configured Discord webhooks. With no
// webhook configured every call is a no-op, so unattended retrieval runs work
// the same with or without notifications.
type Notifier struct {
	settings *properties.Settings
}

func NewNotifier(settings *properties.Settings) *Notifier {
	return &Notifier{settings: settings}
}

func (n *Notifier) SendError(errorMessage string) error {
	if n.settings.DiscordErrorNotificationURL == "" {
		return nil
	}
	message := DiscordMessage{
		Embeds: []DiscordEmbed{
			{
				Title:       "🚨 Retrieval Error",
				Description: fmt.Sprintf("An error occurred: %s", errorMessage),
				Color:       16711680, // Red color
			},
		},
	}
	return n.post(n.settings.DiscordErrorNotificationURL, message)
}

func (n *Notifier) SendSuccess(successMessage string) error {
	if n.settings.DiscordSuccessNotificationURL == "" {
		return nil
	}
	message := DiscordMessage{
		Embeds: []DiscordEmbed{
			{
				Title:       "✅ Retrieval Finished",
				Description: successMessage,
				Color:       65280, // Green color
			},
		},
	}
	return n.post(n.settings.DiscordSuccessNotificationURL, message)
}

func (n *Notifier) post(url string, message DiscordMessage) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}

	resp, err := http.Post(url, "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to send Discord notification, status code: %d", resp.StatusCode)
	}

	return nil
}
