// Package config loads server settings from the environment and an optional
// .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/amgst/vancegraphix.com.au-sub000/core"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	DefaultPortfolioCollection = "portfolio"
	DefaultGoogleBaseURL       = "https://maps.googleapis.com"
	DefaultDriveBaseURL        = "https://www.googleapis.com"
	DefaultRequestsPerSecond   = 5.0
)

type (
	Storage struct {
		Type             string
		LocalPath        string
		DataSourceName   string
		S3Bucket         string
		FirestoreProject string
	}

	Google struct {
		PlacesAPIKey string
		PlaceID      string
		DriveAPIKey  string
		// PlacesBaseURL and DriveBaseURL point the clients at another host, mostly for tests.
		PlacesBaseURL     string
		DriveBaseURL      string
		RequestsPerSecond float64
	}

	Auth struct {
		JWTSecret          string
		OIDCIssuerURL      string
		OIDCClientID       string
		OIDCClientSecret   string
		OIDCRedirectURL    string
		GitHubClientID     string
		GitHubClientSecret string
		GitHubRedirectURL  string
		// Admins lists the logins or emails allowed to write items. Empty locks
		// the admin API.
		Admins []string
	}

	// PrintCategory is one print portfolio category backed by a Drive folder.
	PrintCategory struct {
		Name     string
		FolderID string
		CoverURL string
	}

	Config struct {
		Storage             Storage
		Google              Google
		Auth                Auth
		AllowedOrigins      []string
		PortfolioCollection string
		PrintCategories     []PrintCategory
	}
)

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, reading configuration from the environment")
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an environment lookup function.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := &Config{
		Storage: Storage{
			Type:             get("STORAGE_TYPE", "memory"),
			LocalPath:        get("LOCAL_STORAGE_PATH", "./data"),
			DataSourceName:   get("DATA_SOURCE_NAME", "agency.db"),
			S3Bucket:         get("S3_BUCKET_NAME", ""),
			FirestoreProject: get("FIRESTORE_PROJECT_ID", ""),
		},
		Google: Google{
			PlacesAPIKey:  get("GOOGLE_PLACES_API_KEY", ""),
			PlaceID:       get("GOOGLE_PLACE_ID", ""),
			DriveAPIKey:   get("GOOGLE_DRIVE_API_KEY", ""),
			PlacesBaseURL: get("GOOGLE_API_BASE_URL", DefaultGoogleBaseURL),
			DriveBaseURL:  get("GOOGLE_DRIVE_BASE_URL", DefaultDriveBaseURL),
		},
		Auth: Auth{
			JWTSecret:          get("JWT_SECRET", ""),
			OIDCIssuerURL:      get("OIDC_ISSUER_URL", ""),
			OIDCClientID:       get("OIDC_CLIENT_ID", ""),
			OIDCClientSecret:   get("OIDC_CLIENT_SECRET", ""),
			OIDCRedirectURL:    get("OIDC_REDIRECT_URL", ""),
			GitHubClientID:     get("GITHUB_CLIENT_ID", ""),
			GitHubClientSecret: get("GITHUB_CLIENT_SECRET", ""),
			GitHubRedirectURL:  get("GITHUB_REDIRECT_URL", ""),
			Admins:             splitList(get("ADMIN_USERS", ""), ","),
		},
		AllowedOrigins:      splitList(get("ALLOWED_ORIGINS", "*"), ","),
		PortfolioCollection: get("PORTFOLIO_COLLECTION", DefaultPortfolioCollection),
	}

	rps := get("GOOGLE_REQUESTS_PER_SECOND", "")
	cfg.Google.RequestsPerSecond = DefaultRequestsPerSecond
	if rps != "" {
		v, err := strconv.ParseFloat(rps, 64)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("invalid GOOGLE_REQUESTS_PER_SECOND %q: must be a positive number", rps)
		}
		cfg.Google.RequestsPerSecond = v
	}

	categories, err := ParsePrintCategories(get("PRINT_CATEGORIES", ""))
	if err != nil {
		return nil, err
	}
	cfg.PrintCategories = categories

	return cfg, nil
}

// ParsePrintCategories parses "Name=folderId[|coverUrl];Name=folderId".
func ParsePrintCategories(raw string) ([]PrintCategory, error) {
	var categories []PrintCategory
	seen := make(map[string]bool)
	for _, entry := range splitList(raw, ";") {
		name, rest, ok := strings.Cut(entry, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid PRINT_CATEGORIES entry %q: expected Name=folderId", entry)
		}
		if strings.EqualFold(name, core.AllCategories) {
			return nil, fmt.Errorf("print category %q is reserved", name)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate print category %q", name)
		}
		seen[name] = true

		folder, cover, _ := strings.Cut(rest, "|")
		categories = append(categories, PrintCategory{
			Name:     name,
			FolderID: strings.TrimSpace(folder),
			CoverURL: strings.TrimSpace(cover),
		})
	}
	return categories, nil
}

// CategoryNames returns the print category names in configured order.
func (c *Config) CategoryNames() []string {
	names := make([]string, len(c.PrintCategories))
	for i, pc := range c.PrintCategories {
		names[i] = pc.Name
	}
	return names
}

func splitList(raw, sep string) []string {
	var out []string
	for _, part := range strings.Split(raw, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
