package config

import (
	"testing"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestFromLookup_Defaults(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(nil))
	if err != nil {
		t.Fatalf("FromLookup() failed: %v", err)
	}

	if cfg.Storage.Type != "memory" {
		t.Errorf("Storage.Type = %q, want memory", cfg.Storage.Type)
	}
	if cfg.PortfolioCollection != DefaultPortfolioCollection {
		t.Errorf("PortfolioCollection = %q", cfg.PortfolioCollection)
	}
	if cfg.Google.RequestsPerSecond != DefaultRequestsPerSecond {
		t.Errorf("RequestsPerSecond = %v", cfg.Google.RequestsPerSecond)
	}
	if cfg.Google.PlacesAPIKey != "" || cfg.Google.DriveAPIKey != "" {
		t.Error("API keys should default to empty (feature disabled)")
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if len(cfg.PrintCategories) != 0 {
		t.Errorf("PrintCategories = %v, want none", cfg.PrintCategories)
	}
}

func TestFromLookup_Values(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{
		"STORAGE_TYPE":               "sqlite",
		"DATA_SOURCE_NAME":           "/tmp/site.db",
		"GOOGLE_PLACES_API_KEY":      " key ",
		"GOOGLE_REQUESTS_PER_SECOND": "2.5",
		"ALLOWED_ORIGINS":            "https://a.example, https://b.example",
		"ADMIN_USERS":                "owner@example.com",
		"PRINT_CATEGORIES":           "Flyers=f1;Business Cards=f2|https://img/cards.jpg",
	}))
	if err != nil {
		t.Fatalf("FromLookup() failed: %v", err)
	}

	if cfg.Storage.Type != "sqlite" || cfg.Storage.DataSourceName != "/tmp/site.db" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Google.PlacesAPIKey != "key" {
		t.Errorf("PlacesAPIKey = %q, want trimmed value", cfg.Google.PlacesAPIKey)
	}
	if cfg.Google.RequestsPerSecond != 2.5 {
		t.Errorf("RequestsPerSecond = %v", cfg.Google.RequestsPerSecond)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if len(cfg.Auth.Admins) != 1 {
		t.Errorf("Admins = %v", cfg.Auth.Admins)
	}

	names := cfg.CategoryNames()
	if len(names) != 2 || names[0] != "Flyers" || names[1] != "Business Cards" {
		t.Errorf("CategoryNames() = %v", names)
	}
	if cfg.PrintCategories[1].CoverURL != "https://img/cards.jpg" {
		t.Errorf("CoverURL = %q", cfg.PrintCategories[1].CoverURL)
	}
}

func TestFromLookup_InvalidRate(t *testing.T) {
	if _, err := FromLookup(lookupFrom(map[string]string{"GOOGLE_REQUESTS_PER_SECOND": "fast"})); err == nil {
		t.Error("FromLookup() accepted a non-numeric rate")
	}
}

func TestParsePrintCategories(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{"empty", "", 0, false},
		{"single", "Flyers=abc", 1, false},
		{"trailing separator", "Flyers=abc;", 1, false},
		{"no folder", "Posters", 0, true},
		{"no name", "=abc", 0, true},
		{"duplicate", "Flyers=a;Flyers=b", 0, true},
		{"reserved all", "All=f1;Flyers=f2", 0, true},
		{"reserved all any case", "Flyers=f2;all=f1", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePrintCategories(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePrintCategories() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != tt.want {
				t.Errorf("ParsePrintCategories() = %v, want %d entries", got, tt.want)
			}
		})
	}
}
