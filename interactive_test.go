package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

// answers joins one answer per prompt. Setup asks 22 questions:
// 5 report settings, a file and key per table, 4 image settings and 3 map settings.
func answers(lines ...string) *strings.Reader {
	return strings.NewReader(strings.Join(lines, "\n") + "\n")
}

func blankAnswers(n int) []string {
	return make([]string, n)
}

func TestBuildConfig_DefaultsOnEnter(t *testing.T) {
	var out bytes.Buffer
	b := newConfigBuilder(answers(blankAnswers(22)...), &out)
	config := b.BuildConfig()

	def, err := LoadDefaultConfig()
	if err != nil {
		t.Fatal(err)
	}
	if config.Title != def.Title || config.PageTitle != def.PageTitle {
		t.Errorf("titles = %q / %q", config.Title, config.PageTitle)
	}
	for _, name := range requiredTables {
		if config.Tables[name] != def.Tables[name] {
			t.Errorf("table %s = %+v, want %+v", name, config.Tables[name], def.Tables[name])
		}
	}
	if config.Map != def.Map || config.Images != def.Images || config.Server != def.Server {
		t.Errorf("config = %+v", config)
	}
	if problems := config.Validate(); len(problems) != 0 {
		t.Errorf("built config should validate, got %v", problems)
	}
	if !strings.Contains(out.String(), "AMBIFLO DASHBOARD SETUP") {
		t.Error("setup banner missing")
	}
}

func TestBuildConfig_EndOfInputKeepsDefaults(t *testing.T) {
	b := newConfigBuilder(strings.NewReader(""), &bytes.Buffer{})
	config := b.BuildConfig()

	if config.Map.Zoom != 11 || config.Tables[TableTLUP].Key != "Name" {
		t.Errorf("config = %+v", config)
	}
}

func TestBuildConfig_Answers(t *testing.T) {
	lines := blankAnswers(22)
	lines[0] = "Harbour survey"
	lines[4] = "/srv/data"
	lines[7] = "tlup.xlsx"
	lines[8] = "Site"
	lines[17] = "numeric"
	lines[19] = "41.5"
	lines[21] = "9"

	config := newConfigBuilder(answers(lines...), &bytes.Buffer{}).BuildConfig()

	if config.Title != "Harbour survey" || config.DataDir != "/srv/data" {
		t.Errorf("report settings = %q %q", config.Title, config.DataDir)
	}
	if got := config.Tables[TableTLUP]; got.File != "tlup.xlsx" || got.Key != "Site" || got.Highlight != "Tlup" {
		t.Errorf("tlup table = %+v", got)
	}
	if config.Images.Sort != "numeric" {
		t.Errorf("sort = %q", config.Images.Sort)
	}
	if config.Map.Latitude != 41.5 || config.Map.Zoom != 9 {
		t.Errorf("map = %+v", config.Map)
	}
}

func TestBuildConfig_RepromptsInvalidAnswers(t *testing.T) {
	tests := []struct {
		name    string
		index   int
		invalid string
		valid   string
		check   func(c *Config) bool
		message string
	}{
		{"table file", 7, "tlup.json", "tlup.csv", func(c *Config) bool { return c.Tables[TableTLUP].File == "tlup.csv" }, "Unsupported file type"},
		{"pattern", 16, "*.jpg", "*_{site}_*.jpg", func(c *Config) bool { return c.Images.Pattern == "*_{site}_*.jpg" }, "Pattern must contain"},
		{"sort", 17, "random", "text", func(c *Config) bool { return c.Images.Sort == "text" }, "must be"},
		{"latitude", 19, "95", "40", func(c *Config) bool { return c.Map.Latitude == 40 }, "Latitude must be between"},
		{"zoom", 21, "abc", "5", func(c *Config) bool { return c.Map.Zoom == 5 }, "Invalid number"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lines := blankAnswers(22)
			lines[tc.index] = tc.invalid
			lines = append(lines[:tc.index+1], append([]string{tc.valid}, lines[tc.index+1:]...)...)

			var out bytes.Buffer
			config := newConfigBuilder(answers(lines...), &out).BuildConfig()
			if !tc.check(config) {
				t.Errorf("answer %q was not accepted after the retry", tc.valid)
			}
			if !strings.Contains(out.String(), tc.message) {
				t.Errorf("output should explain the rejection with %q", tc.message)
			}
		})
	}
}

func TestInteractiveConfigBuilder_SaveConfig(t *testing.T) {
	lines := blankAnswers(22)
	lines[2] = "Prepared for the harbour board"
	b := newConfigBuilder(answers(lines...), &bytes.Buffer{})
	b.BuildConfig()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := b.SaveConfig(path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Subtitle != "Prepared for the harbour board" {
		t.Errorf("subtitle = %q", loaded.Subtitle)
	}
}

// =============================================================================
// Validation
// =============================================================================

func TestValidators(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"latitude ok", validateLatitude(42), false},
		{"latitude high", validateLatitude(90.5), true},
		{"longitude ok", validateLongitude(-180), false},
		{"longitude low", validateLongitude(-180.1), true},
		{"zoom ok", validateZoom(19), false},
		{"zoom negative", validateZoom(-1), true},
		{"parquet", validateTableFile("tlup.parquet"), false},
		{"upper case sqlite", validateTableFile("SURVEY.DB"), false},
		{"json", validateTableFile("tlup.json"), true},
		{"no extension", validateTableFile("tlup"), true},
		{"pattern ok", validatePattern("*_{site}_*.jpg"), false},
		{"pattern without placeholder", validatePattern("*.jpg"), true},
		{"bad glob", validatePattern("[{site}_*.jpg"), true},
	}
	for _, tc := range tests {
		if (tc.err != nil) != tc.wantErr {
			t.Errorf("%s: err = %v, wantErr %v", tc.name, tc.err, tc.wantErr)
		}
	}
}
