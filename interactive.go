package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Validation errors
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// validateLatitude checks a latitude in degrees
func validateLatitude(lat float64) error {
	if lat < -90 || lat > 90 {
		return ValidationError{Field: "map.latitude", Message: fmt.Sprintf("Latitude must be between -90 and 90 (got %.4f)", lat)}
	}
	return nil
}

// validateLongitude checks a longitude in degrees
func validateLongitude(lng float64) error {
	if lng < -180 || lng > 180 {
		return ValidationError{Field: "map.longitude", Message: fmt.Sprintf("Longitude must be between -180 and 180 (got %.4f)", lng)}
	}
	return nil
}

// validateZoom checks a web map zoom level
func validateZoom(zoom int) error {
	if zoom < 0 || zoom > 19 {
		return ValidationError{Field: "map.zoom", Message: fmt.Sprintf("Zoom must be between 0 and 19 (got %d)", zoom)}
	}
	return nil
}

// validateTableFile checks that a table file has a supported extension
func validateTableFile(file string) error {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".parquet", ".csv", ".xlsx", ".db", ".sqlite", ".sqlite3":
		return nil
	}
	return ValidationError{Field: "file", Message: fmt.Sprintf("Unsupported file type %q (use .parquet, .csv, .xlsx or .db)", filepath.Ext(file))}
}

// validatePattern checks that an image pattern carries the site placeholder
func validatePattern(pattern string) error {
	if !strings.Contains(pattern, sitePlaceholder) {
		return ValidationError{Field: "images.pattern", Message: fmt.Sprintf("Pattern must contain %s", sitePlaceholder)}
	}
	if _, err := filepath.Match(strings.ReplaceAll(pattern, sitePlaceholder, "x"), ""); err != nil {
		return ValidationError{Field: "images.pattern", Message: "Pattern is not a valid glob"}
	}
	return nil
}

// InteractiveConfigBuilder handles interactive configuration creation
type InteractiveConfigBuilder struct {
	reader        *bufio.Reader
	out           io.Writer
	config        *Config
	defaultConfig *Config
}

// NewInteractiveConfigBuilder creates a builder reading answers from stdin
func NewInteractiveConfigBuilder() *InteractiveConfigBuilder {
	return newConfigBuilder(os.Stdin, os.Stdout)
}

func newConfigBuilder(in io.Reader, out io.Writer) *InteractiveConfigBuilder {
	builder := &InteractiveConfigBuilder{
		reader: bufio.NewReader(in),
		out:    out,
		config: &Config{Tables: make(map[string]TableConfig)},
	}

	// Start every answer from the embedded defaults
	defaultConfig, err := LoadDefaultConfig()
	if err == nil {
		builder.defaultConfig = defaultConfig
	} else {
		builder.defaultConfig = &Config{Tables: make(map[string]TableConfig)}
	}

	return builder
}

// readLine returns the trimmed next answer ("" at end of input)
func (b *InteractiveConfigBuilder) readLine() string {
	input, _ := b.reader.ReadString('\n')
	return strings.TrimSpace(input)
}

// promptString asks for a string with a default value
func (b *InteractiveConfigBuilder) promptString(prompt, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(b.out, "%s [%s]: ", prompt, defaultVal)
	} else {
		fmt.Fprintf(b.out, "%s: ", prompt)
	}
	input := b.readLine()
	if input == "" {
		return defaultVal
	}
	return input
}

// promptValidated asks until check accepts the answer. End of input keeps the default.
func (b *InteractiveConfigBuilder) promptValidated(prompt, defaultVal string, check func(string) error) string {
	for {
		fmt.Fprintf(b.out, "%s [%s]: ", prompt, defaultVal)
		input, err := b.reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input == "" {
			return defaultVal
		}
		if verr := check(input); verr != nil {
			fmt.Fprintf(b.out, "  ✗ %s\n", verr.Error())
			if err != nil {
				return defaultVal
			}
			continue
		}
		return input
	}
}

// promptInt asks for an integer with validation
func (b *InteractiveConfigBuilder) promptInt(prompt string, defaultVal int, validate func(int) error) int {
	answer := b.promptValidated(prompt, strconv.Itoa(defaultVal), func(s string) error {
		v, err := strconv.Atoi(s)
		if err != nil {
			return ValidationError{Message: "Invalid number"}
		}
		return validate(v)
	})
	v, _ := strconv.Atoi(answer)
	return v
}

// promptFloat asks for a float with validation
func (b *InteractiveConfigBuilder) promptFloat(prompt string, defaultVal float64, validate func(float64) error) float64 {
	answer := b.promptValidated(prompt, strconv.FormatFloat(defaultVal, 'f', -1, 64), func(s string) error {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return ValidationError{Message: "Invalid number"}
		}
		return validate(v)
	})
	v, _ := strconv.ParseFloat(answer, 64)
	return v
}

// promptSortMode asks for the image ordering
func (b *InteractiveConfigBuilder) promptSortMode(defaultVal string) string {
	if defaultVal == "" {
		defaultVal = string(ImageSortText)
	}
	answer := b.promptValidated("  Range ordering (text/numeric)", defaultVal, func(s string) error {
		_, err := ParseImageSortMode(s)
		return err
	})
	mode, _ := ParseImageSortMode(answer)
	return string(mode)
}

// BuildConfig walks through every setting and returns the new configuration
func (b *InteractiveConfigBuilder) BuildConfig() *Config {
	def := b.defaultConfig

	fmt.Fprintln(b.out)
	fmt.Fprintln(b.out, "╔══════════════════════════════════════════════════╗")
	fmt.Fprintln(b.out, "║            AMBIFLO DASHBOARD SETUP               ║")
	fmt.Fprintln(b.out, "╚══════════════════════════════════════════════════╝")
	fmt.Fprintln(b.out, "Press Enter to keep the value in brackets.")
	fmt.Fprintln(b.out)

	fmt.Fprintln(b.out, "Report")
	b.config.Title = b.promptString("  Title", def.Title)
	b.config.PageTitle = b.promptString("  Page title", def.PageTitle)
	b.config.Subtitle = b.promptString("  Subtitle", def.Subtitle)
	b.config.Logo = b.promptString("  Logo image", def.Logo)
	fmt.Fprintln(b.out)

	fmt.Fprintln(b.out, "Tables")
	b.config.DataDir = b.promptString("  Data directory", def.DataDir)
	for _, name := range requiredTables {
		tc := def.Tables[name]
		tc.File = b.promptValidated(fmt.Sprintf("  %s file", name), tc.File, validateTableFile)
		tc.Key = b.promptString(fmt.Sprintf("  %s site column", name), tc.Key)
		b.config.Tables[name] = tc
	}
	fmt.Fprintln(b.out)

	fmt.Fprintln(b.out, "Survey images")
	b.config.Images.Dir = b.promptString("  Image directory", def.Images.Dir)
	b.config.Images.Pattern = b.promptValidated("  File pattern", def.Images.Pattern, validatePattern)
	b.config.Images.Sort = b.promptSortMode(def.Images.Sort)
	b.config.Images.Caption = b.promptString("  Caption", def.Images.Caption)
	fmt.Fprintln(b.out)

	fmt.Fprintln(b.out, "Map")
	b.config.Map.Latitude = b.promptFloat("  Centre latitude", def.Map.Latitude, validateLatitude)
	b.config.Map.Longitude = b.promptFloat("  Centre longitude", def.Map.Longitude, validateLongitude)
	b.config.Map.Zoom = b.promptInt("  Zoom", def.Map.Zoom, validateZoom)

	b.config.Server = def.Server

	return b.config
}

// SaveConfig saves the configuration to a YAML file
func (b *InteractiveConfigBuilder) SaveConfig(filename string) error {
	return SaveConfig(b.config, filename)
}
