package main

import (
	"errors"
	"fmt"
	"html/template"
	"strings"
)

// View is one of the five dashboard pages
type View string

const (
	ViewScope         View = "Scope"
	ViewTLUP          View = "TLUP"
	ViewATLUPSummary  View = "ATLUP Summary"
	ViewATLUPStrength View = "ATLUP Strength"
	ViewATLUPQuality  View = "ATLUP Quality"
)

// AllViews lists the views in sidebar order
var AllViews = []View{ViewScope, ViewTLUP, ViewATLUPSummary, ViewATLUPStrength, ViewATLUPQuality}

// ErrUnknownView is returned for a view label outside AllViews
var ErrUnknownView = errors.New("unknown view")

// ParseView parses a view label. Matching ignores case, and the
// short forms "summary", "strength" and "quality" are accepted.
func ParseView(s string) (View, error) {
	label := strings.TrimSpace(s)
	for _, v := range AllViews {
		if strings.EqualFold(label, string(v)) {
			return v, nil
		}
	}
	switch strings.ToLower(label) {
	case "summary", "atlup-summary", "atlup_summary":
		return ViewATLUPSummary, nil
	case "strength", "atlup-strength", "atlup_strength":
		return ViewATLUPStrength, nil
	case "quality", "atlup-quality", "atlup_quality":
		return ViewATLUPQuality, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownView, s)
}

// Slug returns a file-name friendly form of the view
func (v View) Slug() string {
	return strings.ToLower(strings.ReplaceAll(string(v), " ", "-"))
}

// Selection is the analyst's current choice of site and view
type Selection struct {
	Site string `json:"site"`
	View View   `json:"view"`
}

// ErrUnknownSite matches every UnknownSiteError
var ErrUnknownSite = errors.New("unknown site")

// UnknownSiteError is returned for a site that is not in the TLUP table
type UnknownSiteError struct {
	Site        string
	Suggestions []string
}

func (e *UnknownSiteError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("unknown site %q", e.Site)
	}
	return fmt.Sprintf("unknown site %q (did you mean %s?)", e.Site, strings.Join(e.Suggestions, ", "))
}

func (e *UnknownSiteError) Unwrap() error {
	return ErrUnknownSite
}

// BlockKind identifies how a page block is drawn
type BlockKind string

const (
	BlockHeading  BlockKind = "heading"
	BlockMarkdown BlockKind = "markdown"
	BlockTable    BlockKind = "table"
	BlockMap      BlockKind = "map"
	BlockImage    BlockKind = "image"
	BlockError    BlockKind = "error"
)

// Block is one element of a rendered page
type Block struct {
	Kind  BlockKind     `json:"kind"`
	Level int           `json:"level,omitempty"` // Heading level (1 = title)
	Text  string        `json:"text,omitempty"`  // Heading text, markdown source or error message
	HTML  template.HTML `json:"html,omitempty"`  // Rendered markdown
	Table *TableView    `json:"table,omitempty"`
	Map   *MapView      `json:"map,omitempty"`
	Image *ImageView    `json:"image,omitempty"`
}

// TableView is a table prepared for display
type TableView struct {
	Name            string     `json:"name"`
	Columns         []string   `json:"columns"`
	Rows            [][]string `json:"rows"`
	HighlightColumn string     `json:"highlight_column,omitempty"`
	Highlight       int        `json:"highlight"`           // Column index to highlight, -1 for none
	MaxWidth        int        `json:"max_width,omitempty"` // CSS pixel width limit, 0 for none
	Filtered        bool       `json:"filtered"`
	RowCount        string     `json:"row_count"` // Human formatted row count
}

// MapView is a marker map
type MapView struct {
	Latitude  float64     `json:"latitude"`
	Longitude float64     `json:"longitude"`
	Zoom      int         `json:"zoom"`
	Markers   []MapMarker `json:"markers"`
}

// MapMarker is one site marker
type MapMarker struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	Popup     string  `json:"popup"`
}

// ImageView is an image with its caption
type ImageView struct {
	URL     string `json:"url"`
	Path    string `json:"-"`
	Caption string `json:"caption,omitempty"`
	Width   int    `json:"width,omitempty"`
	Size    string `json:"size,omitempty"`
}

// Page is the structured output of rendering one selection
type Page struct {
	PageTitle string    `json:"page_title"`
	Selection Selection `json:"selection"`
	Sites     []string  `json:"sites"`
	Views     []View    `json:"views"`
	Blocks    []Block   `json:"blocks"`
	Error     string    `json:"error,omitempty"` // Set when a load failure interrupted the view
}

// Tables returns the table blocks of the page in order
func (p *Page) Tables() []*TableView {
	var tables []*TableView
	for _, b := range p.Blocks {
		if b.Kind == BlockTable && b.Table != nil {
			tables = append(tables, b.Table)
		}
	}
	return tables
}

// Images returns the image blocks of the page in order
func (p *Page) Images() []*ImageView {
	var images []*ImageView
	for _, b := range p.Blocks {
		if b.Kind == BlockImage && b.Image != nil {
			images = append(images, b.Image)
		}
	}
	return images
}
