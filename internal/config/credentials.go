package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/JakeFAU/favsync/internal/failure"
)

// Environment variable names for the integration credentials. The long names
// are checked first, the short ones are fallbacks.
const (
	EnvAPIKey      = "NOTION_API_KEY_My_Selenium_Notion_Integration"
	EnvPageID      = "NOTION_PAGE_ID_My_Selenium_Notion_Integration"
	EnvAPIKeyShort = "NOTION_API_KEY"
	EnvPageIDShort = "NOTION_PAGE_ID"
)

// ErrMissingCredential is returned when a required variable is unset or empty.
var ErrMissingCredential = errors.New("credential not set")

// Credentials holds the Notion integration secret and the target page.
type Credentials struct {
	APIKey string
	PageID string
}

// MaskedKey returns the API key with all but its last four characters hidden.
func (c Credentials) MaskedKey() string {
	if len(c.APIKey) <= 4 {
		return strings.Repeat("*", len(c.APIKey))
	}
	return strings.Repeat("*", len(c.APIKey)-4) + c.APIKey[len(c.APIKey)-4:]
}

// LoadCredentials reads both credentials from the environment. Values are
// returned exactly as set.
func LoadCredentials() (Credentials, error) {
	v := viper.New()
	if err := v.BindEnv("api_key", EnvAPIKey, EnvAPIKeyShort); err != nil {
		return Credentials{}, failure.New(failure.KindConfig, "bind api key", err)
	}
	if err := v.BindEnv("page_id", EnvPageID, EnvPageIDShort); err != nil {
		return Credentials{}, failure.New(failure.KindConfig, "bind page id", err)
	}

	creds := Credentials{
		APIKey: v.GetString("api_key"),
		PageID: v.GetString("page_id"),
	}

	var missing []string
	if strings.TrimSpace(creds.APIKey) == "" {
		missing = append(missing, EnvAPIKey)
	}
	if strings.TrimSpace(creds.PageID) == "" {
		missing = append(missing, EnvPageID)
	}
	if len(missing) > 0 {
		err := fmt.Errorf("%w: %s", ErrMissingCredential, strings.Join(missing, ", "))
		return Credentials{}, failure.New(failure.KindConfig, "load credentials", err)
	}
	return creds, nil
}
