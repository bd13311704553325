package main

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default-config.yaml
var defaultConfigYAML string

// Logical table names used by the views
const (
	TableLocations     = "locations"
	TableTLUP          = "tlup"
	TableATLUPSummary  = "atlup_summary"
	TableATLUPStrength = "atlup_strength"
	TableATLUPQuality  = "atlup_quality"
)

// requiredTables lists every table a view reads
var requiredTables = []string{
	TableLocations,
	TableTLUP,
	TableATLUPSummary,
	TableATLUPStrength,
	TableATLUPQuality,
}

// TableConfig describes where a logical table lives and how it is keyed
type TableConfig struct {
	File      string `yaml:"file" json:"file"`                               // File name inside data_dir (or absolute path)
	Key       string `yaml:"key" json:"key"`                                 // Column holding the site name
	Highlight string `yaml:"highlight,omitempty" json:"highlight,omitempty"` // Column rendered with a highlight
	Sheet     string `yaml:"sheet,omitempty" json:"sheet,omitempty"`         // Worksheet for .xlsx files (default: first sheet)
	Table     string `yaml:"table,omitempty" json:"table,omitempty"`         // Table for SQLite files (default: logical name)
}

// ImageConfig holds survey photograph settings
type ImageConfig struct {
	Dir     string `yaml:"dir" json:"dir"`
	Pattern string `yaml:"pattern" json:"pattern"` // Glob with a {site} placeholder
	Sort    string `yaml:"sort" json:"sort"`       // "text" or "numeric"
	Caption string `yaml:"caption" json:"caption"` // Caption under each image, {site} placeholder allowed
}

// MapConfig holds the initial view of the site location map
type MapConfig struct {
	Latitude  float64 `yaml:"latitude" json:"latitude"`
	Longitude float64 `yaml:"longitude" json:"longitude"`
	Zoom      int     `yaml:"zoom" json:"zoom"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// Config holds the complete configuration
type Config struct {
	Title     string                 `yaml:"title" json:"title"`
	PageTitle string                 `yaml:"page_title" json:"page_title"`
	Subtitle  string                 `yaml:"subtitle" json:"subtitle"`
	Logo      string                 `yaml:"logo" json:"logo"`
	DataDir   string                 `yaml:"data_dir" json:"data_dir"`
	Tables    map[string]TableConfig `yaml:"tables" json:"tables"`
	Images    ImageConfig            `yaml:"images" json:"images"`
	Map       MapConfig              `yaml:"map" json:"map"`
	Server    ServerConfig           `yaml:"server" json:"server"`
}

// LoadConfig loads configuration from a YAML file.
// Keys missing from the file keep their default values.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config, err := LoadDefaultConfig()
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	return config, nil
}

// LoadDefaultConfig loads the default configuration from embedded default-config.yaml
func LoadDefaultConfig() (*Config, error) {
	var config Config
	if err := yaml.Unmarshal([]byte(defaultConfigYAML), &config); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadConfigOrDefault loads filename, falling back to the embedded defaults
// when the file does not exist.
func LoadConfigOrDefault(filename string) (*Config, error) {
	config, err := LoadConfig(filename)
	if err == nil {
		return config, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}
	return LoadDefaultConfig()
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *Config, filename string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	header := []byte(`# Ambiflo dashboard configuration
# See default-config.yaml for all available options.

`)
	content := append(header, data...)
	return os.WriteFile(filename, content, 0644)
}

// Validate returns a list of configuration problems (empty if valid)
func (c *Config) Validate() []string {
	var problems []string

	for _, name := range requiredTables {
		tc, ok := c.Tables[name]
		if !ok {
			problems = append(problems, fmt.Sprintf("tables.%s is missing", name))
			continue
		}
		if strings.TrimSpace(tc.File) == "" {
			problems = append(problems, fmt.Sprintf("tables.%s.file is empty", name))
		}
		if strings.TrimSpace(tc.Key) == "" {
			problems = append(problems, fmt.Sprintf("tables.%s.key is empty", name))
		}
	}

	if _, err := ParseImageSortMode(c.Images.Sort); err != nil {
		problems = append(problems, err.Error())
	}
	if !strings.Contains(c.Images.Pattern, sitePlaceholder) {
		problems = append(problems, fmt.Sprintf("images.pattern %q has no %s placeholder", c.Images.Pattern, sitePlaceholder))
	}
	if c.Map.Latitude < -90 || c.Map.Latitude > 90 {
		problems = append(problems, fmt.Sprintf("map.latitude %.4f out of range", c.Map.Latitude))
	}
	if c.Map.Longitude < -180 || c.Map.Longitude > 180 {
		problems = append(problems, fmt.Sprintf("map.longitude %.4f out of range", c.Map.Longitude))
	}
	if c.Map.Zoom < 0 || c.Map.Zoom > 19 {
		problems = append(problems, fmt.Sprintf("map.zoom %d out of range (0-19)", c.Map.Zoom))
	}

	return problems
}

// TableNames returns the configured logical table names in sorted order
func (c *Config) TableNames() []string {
	names := make([]string, 0, len(c.Tables))
	for name := range c.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TablePath resolves the file of a table against data_dir
func (c *Config) TablePath(tc TableConfig) string {
	if filepath.IsAbs(tc.File) || c.DataDir == "" {
		return tc.File
	}
	return filepath.Join(c.DataDir, tc.File)
}

// KeyColumn returns the site key column of a table ("" if the table is unknown)
func (c *Config) KeyColumn(table string) string {
	return c.Tables[table].Key
}

// ImageCaption returns the caption for a site's survey images
func (c *Config) ImageCaption(site string) string {
	return strings.ReplaceAll(c.Images.Caption, sitePlaceholder, site)
}
