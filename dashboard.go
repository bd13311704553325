package main

import (
	"bytes"
	"context"
	"html/template"
	"log"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/dustin/go-humanize"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"
)

const (
	tlupIntro = "This is the standard TLUP report. Use the other tabs for ATLUP summary and " +
		"analysis of signal strength and quality."
	tlupHelp = "Use the list control on the left side panel to select the site and the results " +
		"will be shown below. The complete table is presented at the foot of this page."

	logoWidth          = 300
	locationsTableWide = 500
	maxSiteSuggestions = 3
)

// atlupView describes one of the three ATLUP pages
type atlupView struct {
	table       string
	heading     string
	description string
	allLabel    string
}

var atlupViews = map[View]atlupView{
	ViewATLUPSummary: {
		table:    TableATLUPSummary,
		heading:  "ATLUP Summary",
		allLabel: "**All sites**",
	},
	ViewATLUPStrength: {
		table:       TableATLUPStrength,
		heading:     "Signal Strength",
		description: "Analysis of signal strength (rsrp).",
		allLabel:    "**All data**",
	},
	ViewATLUPQuality: {
		table:       TableATLUPQuality,
		heading:     "Signal Quality",
		description: "Analysis of signal quality (rsrq).",
		allLabel:    "**All data**",
	},
}

// Dashboard owns the table cache and image locator and renders pages
// for a selection. It is the composition root shared by every surface.
type Dashboard struct {
	config   *Config
	tables   *TableCache
	images   *ImageLocator
	markdown goldmark.Markdown
}

// NewDashboard creates a dashboard reading tables from the configured files
func NewDashboard(config *Config) (*Dashboard, error) {
	return NewDashboardWithSource(config, NewFileSource(config))
}

// NewDashboardWithSource creates a dashboard over an arbitrary table source
func NewDashboardWithSource(config *Config, source TableSource) (*Dashboard, error) {
	mode, err := ParseImageSortMode(config.Images.Sort)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		config: config,
		tables: NewTableCache(source, config.Tables),
		images: NewImageLocator(config.Images.Dir, config.Images.Pattern, mode),
		markdown: goldmark.New(
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
	}, nil
}

// Config returns the dashboard configuration
func (d *Dashboard) Config() *Config {
	return d.config
}

// Table returns a cached table by logical name
func (d *Dashboard) Table(ctx context.Context, name string) (*Table, error) {
	return d.tables.Get(ctx, name)
}

// Images returns the image locator
func (d *Dashboard) Images() *ImageLocator {
	return d.images
}

// Sites returns the selectable sites: distinct TLUP names in table order
func (d *Dashboard) Sites(ctx context.Context) ([]string, error) {
	tlup, err := d.tables.Get(ctx, TableTLUP)
	if err != nil {
		return nil, err
	}
	return tlup.Distinct(d.config.KeyColumn(TableTLUP))
}

// ResolveSelection turns raw site and view inputs into a Selection.
// An empty view means Scope and an empty site means the first site.
func (d *Dashboard) ResolveSelection(ctx context.Context, site, view string) (Selection, error) {
	sel := Selection{View: ViewScope}
	if strings.TrimSpace(view) != "" {
		v, err := ParseView(view)
		if err != nil {
			return Selection{}, err
		}
		sel.View = v
	}

	sites, err := d.Sites(ctx)
	if err != nil {
		return Selection{}, err
	}

	site = strings.TrimSpace(site)
	if site == "" {
		if len(sites) > 0 {
			sel.Site = sites[0]
		}
		return sel, nil
	}

	for _, s := range sites {
		if s == site {
			sel.Site = site
			return sel, nil
		}
	}
	return Selection{}, &UnknownSiteError{Site: site, Suggestions: suggestSites(site, sites)}
}

// suggestSites returns the known sites closest to an unknown name by edit distance
func suggestSites(site string, sites []string) []string {
	type candidate struct {
		name string
		dist int
	}
	limit := len(site)/3 + 2
	var candidates []candidate
	for _, s := range sites {
		dist := levenshtein.ComputeDistance(strings.ToUpper(site), strings.ToUpper(s))
		if dist <= limit {
			candidates = append(candidates, candidate{name: s, dist: dist})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].dist < candidates[j].dist
	})

	var out []string
	for i := 0; i < len(candidates) && i < maxSiteSuggestions; i++ {
		out = append(out, candidates[i].name)
	}
	return out
}

// Render renders the page for a selection. Unknown views and sites are
// returned as errors; a table that fails to load ends the page with an
// error block instead.
func (d *Dashboard) Render(ctx context.Context, sel Selection) (*Page, error) {
	resolved, err := d.ResolveSelection(ctx, sel.Site, string(sel.View))
	if err != nil {
		return nil, err
	}
	sites, err := d.Sites(ctx)
	if err != nil {
		return nil, err
	}

	b := &pageBuilder{
		d: d,
		page: &Page{
			PageTitle: d.config.PageTitle,
			Selection: resolved,
			Sites:     sites,
			Views:     AllViews,
		},
	}

	switch resolved.View {
	case ViewScope:
		d.renderScope(ctx, b)
	case ViewTLUP:
		d.renderTLUP(ctx, b, resolved.Site)
	default:
		d.renderATLUP(ctx, b, resolved.Site, atlupViews[resolved.View])
	}

	return b.page, nil
}

// renderScope draws the logo, title, site map and the locations table
func (d *Dashboard) renderScope(ctx context.Context, b *pageBuilder) {
	if d.config.Logo != "" {
		if _, err := os.Stat(d.config.Logo); err == nil {
			b.image(&ImageView{URL: "/logo", Path: d.config.Logo, Width: logoWidth})
		} else {
			log.Printf("Logo %s not available: %v", d.config.Logo, err)
		}
	}
	b.heading(1, d.config.Title)
	if d.config.Subtitle != "" {
		b.markdown(d.config.Subtitle)
	}
	b.heading(2, "Site Locations")

	locations, err := d.tables.Get(ctx, TableLocations)
	if err != nil {
		b.fail(err)
		return
	}

	sites, err := SiteLocationsFromTable(locations, d.config.KeyColumn(TableLocations))
	if err != nil {
		b.fail(err)
		return
	}
	markers := make([]MapMarker, len(sites))
	for i, s := range sites {
		markers[i] = MapMarker{Latitude: s.Latitude, Longitude: s.Longitude, Popup: s.Popup()}
	}
	b.add(Block{Kind: BlockMap, Map: &MapView{
		Latitude:  d.config.Map.Latitude,
		Longitude: d.config.Map.Longitude,
		Zoom:      d.config.Map.Zoom,
		Markers:   markers,
	}})

	b.markdown("**Locations**")
	b.table(locations, "", locationsTableWide, false)
}

// renderTLUP draws the filtered TLUP row, the site's survey images and the full table
func (d *Dashboard) renderTLUP(ctx context.Context, b *pageBuilder, site string) {
	b.heading(2, "TLUP")
	b.markdown(tlupIntro)
	b.markdown(tlupHelp)

	tlup, err := d.tables.Get(ctx, TableTLUP)
	if err != nil {
		b.fail(err)
		return
	}
	spec, _ := d.tables.Spec(TableTLUP)

	filtered, err := tlup.Filter(spec.Key, site)
	if err != nil {
		b.fail(err)
		return
	}

	b.markdown("**" + escapeMarkdown(site) + "**")
	b.table(filtered, spec.Highlight, 0, true)

	images, err := d.images.Locate(site)
	if err != nil {
		b.fail(err)
		return
	}
	caption := d.config.ImageCaption(site)
	for _, img := range images {
		b.heading(2, "Range: "+img.RangeToken+" km")
		b.image(&ImageView{
			URL:     "/images/" + url.PathEscape(img.Name),
			Path:    img.Path,
			Caption: caption,
			Size:    humanize.Bytes(uint64(img.Size)),
		})
	}

	b.heading(2, "All Sites")
	b.table(tlup, spec.Highlight, 0, false)
}

// renderATLUP draws one of the ATLUP pages: filtered rows then the whole table
func (d *Dashboard) renderATLUP(ctx context.Context, b *pageBuilder, site string, view atlupView) {
	b.heading(2, view.heading)
	if view.description != "" {
		b.markdown(view.description)
	}
	b.markdown("**" + escapeMarkdown(site) + "**")

	t, err := d.tables.Get(ctx, view.table)
	if err != nil {
		b.fail(err)
		return
	}
	spec, _ := d.tables.Spec(view.table)

	filtered, err := t.Filter(spec.Key, site)
	if err != nil {
		b.fail(err)
		return
	}
	b.table(filtered, spec.Highlight, 0, true)

	b.markdown(view.allLabel)
	b.table(t, spec.Highlight, 0, false)
}

// renderMarkdown converts a markdown fragment to HTML. Raw HTML in the
// source is omitted by goldmark's default renderer.
func (d *Dashboard) renderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := d.markdown.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

// pageBuilder appends blocks to a page
type pageBuilder struct {
	d    *Dashboard
	page *Page
}

func (b *pageBuilder) add(block Block) {
	b.page.Blocks = append(b.page.Blocks, block)
}

func (b *pageBuilder) heading(level int, text string) {
	b.add(Block{Kind: BlockHeading, Level: level, Text: text})
}

func (b *pageBuilder) markdown(src string) {
	b.add(Block{Kind: BlockMarkdown, Text: src, HTML: b.d.renderMarkdown(src)})
}

func (b *pageBuilder) image(img *ImageView) {
	b.add(Block{Kind: BlockImage, Image: img})
}

func (b *pageBuilder) table(t *Table, highlight string, maxWidth int, filtered bool) {
	b.add(Block{Kind: BlockTable, Table: NewTableView(t, highlight, maxWidth, filtered)})
}

// fail records an error that interrupts the rest of the view
func (b *pageBuilder) fail(err error) {
	log.Printf("Render %s/%s failed: %v", b.page.Selection.Site, b.page.Selection.View, err)
	b.page.Error = err.Error()
	b.add(Block{Kind: BlockError, Text: err.Error()})
}

// NewTableView prepares a table for display
func NewTableView(t *Table, highlight string, maxWidth int, filtered bool) *TableView {
	tv := &TableView{
		Name:      t.Name,
		Columns:   t.Columns,
		Rows:      t.StringRows(),
		Highlight: -1,
		MaxWidth:  maxWidth,
		Filtered:  filtered,
		RowCount:  humanize.Comma(int64(t.Len())),
	}
	if highlight != "" {
		tv.Highlight = t.ColumnIndex(highlight)
		if tv.Highlight >= 0 {
			tv.HighlightColumn = highlight
		}
	}
	return tv
}

// escapeMarkdown backslash-escapes markdown punctuation in plain text
func escapeMarkdown(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune("\\`*_{}[]()#+-.!<>|~", r) {
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
