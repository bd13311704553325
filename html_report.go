package main

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"time"
)

// navLink is a sidebar link in static reports
type navLink struct {
	Label  string
	Href   string
	Active bool
}

// exportLink is a download link in the web sidebar
type exportLink struct {
	Label string
	Href  string
}

// pageData is the template input for one dashboard page
type pageData struct {
	*Page
	Static      bool
	NavLinks    []navLink
	ExportLinks []exportLink
	Generated   string
}

var pageTemplate = template.Must(template.New("page").Funcs(template.FuncMap{
	"highlighted": func(tv *TableView, col int) bool {
		return tv.Highlight >= 0 && tv.Highlight == col
	},
	"selectedView": func(p *Page, v View) bool { return p.Selection.View == v },
	"selectedSite": func(p *Page, s string) bool { return p.Selection.Site == s },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.PageTitle}}: {{.Selection.View}}</title>
    <link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
    <script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
    <style>
        :root {
            --primary: #2563eb;
            --danger: #dc2626;
            --bg: #f8fafc;
            --card-bg: #ffffff;
            --text: #1e293b;
            --text-muted: #64748b;
            --border: #e2e8f0;
        }
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: var(--bg);
            color: var(--text);
            line-height: 1.6;
            display: flex;
            min-height: 100vh;
        }
        .sidebar {
            width: 260px;
            flex-shrink: 0;
            background: #f0f2f6;
            padding: 2rem 1rem;
            border-right: 1px solid var(--border);
        }
        .sidebar label { display: block; font-size: 0.875rem; margin: 1rem 0 0.25rem; }
        .sidebar select { width: 100%; padding: 0.4rem; border-radius: 6px; border: 1px solid var(--border); }
        .sidebar a { display: block; color: var(--primary); text-decoration: none; padding: 0.2rem 0; }
        .sidebar a.active { font-weight: 700; }
        .sidebar h3 { font-size: 0.875rem; margin-top: 1.5rem; color: var(--text-muted); }
        .main { flex: 1; padding: 2rem 3rem; min-width: 0; }
        h1 { font-size: 2rem; margin-bottom: 0.5rem; }
        h2 { font-size: 1.5rem; margin: 1.5rem 0 0.75rem; }
        p { margin-bottom: 0.75rem; }
        .table-wrap { overflow-x: auto; margin-bottom: 1rem; }
        table { border-collapse: collapse; font-size: 0.875rem; }
        th, td { padding: 0.35rem 0.6rem; border: 1px solid var(--border); text-align: right; white-space: nowrap; }
        th { background: var(--card-bg); font-weight: 600; }
        th:first-child, td:first-child { text-align: left; color: var(--text-muted); }
        .highlight { background: yellow; }
        .rows { font-size: 0.75rem; color: var(--text-muted); }
        .map { height: 450px; margin-bottom: 1rem; border-radius: 8px; }
        figure { margin-bottom: 1rem; }
        figure img { max-width: 100%; }
        figcaption { font-size: 0.875rem; color: var(--text-muted); }
        .error {
            background: #fef2f2;
            color: var(--danger);
            border: 1px solid #fecaca;
            border-radius: 8px;
            padding: 1rem;
            margin: 1rem 0;
            font-family: monospace;
        }
        .footer { color: var(--text-muted); font-size: 0.75rem; margin-top: 2rem; }
    </style>
</head>
<body>
<nav class="sidebar">
{{if .Static}}
    <h3>Site</h3>
    <p><strong>{{.Selection.Site}}</strong></p>
    <h3>Pages</h3>
    {{range .NavLinks}}<a href="{{.Href}}"{{if .Active}} class="active"{{end}}>{{.Label}}</a>
    {{end}}
{{else}}
    <form method="get" action="/">
        <label for="site">Select Site</label>
        <select id="site" name="site" onchange="this.form.submit()">
            {{range .Sites}}<option value="{{.}}"{{if selectedSite $.Page .}} selected{{end}}>{{.}}</option>
            {{end}}
        </select>
        <label for="view">Pages</label>
        <select id="view" name="view" onchange="this.form.submit()">
            {{range .Views}}<option value="{{.}}"{{if selectedView $.Page .}} selected{{end}}>{{.}}</option>
            {{end}}
        </select>
        <noscript><button type="submit">Show</button></noscript>
    </form>
    {{if .ExportLinks}}<h3>Export</h3>
    {{range .ExportLinks}}<a href="{{.Href}}">{{.Label}}</a>
    {{end}}{{end}}
{{end}}
</nav>
<main class="main">
{{range $i, $b := .Blocks}}
{{- if eq $b.Kind "heading"}}
    {{if eq $b.Level 1}}<h1>{{$b.Text}}</h1>{{else}}<h2>{{$b.Text}}</h2>{{end}}
{{- else if eq $b.Kind "markdown"}}
    {{$b.HTML}}
{{- else if eq $b.Kind "table"}}
    <div class="table-wrap"{{if $b.Table.MaxWidth}} style="max-width: {{$b.Table.MaxWidth}}px;"{{end}}>
        <table>
            <thead><tr><th></th>{{range $b.Table.Columns}}<th>{{.}}</th>{{end}}</tr></thead>
            <tbody>
            {{range $r, $row := $b.Table.Rows}}<tr><td>{{$r}}</td>{{range $c, $cell := $row}}<td{{if highlighted $b.Table $c}} class="highlight"{{end}}>{{$cell}}</td>{{end}}</tr>
            {{end}}
            </tbody>
        </table>
        <div class="rows">{{$b.Table.RowCount}} rows</div>
    </div>
{{- else if eq $b.Kind "map"}}
    <div id="map-{{$i}}" class="map"></div>
    <script>
    (function () {
        var m = {{$b.Map}};
        var map = L.map("map-{{$i}}").setView([m.latitude, m.longitude], m.zoom);
        L.tileLayer("https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png", {
            attribution: "&copy; OpenStreetMap contributors"
        }).addTo(map);
        m.markers.forEach(function (k) {
            var label = document.createElement("span");
            label.textContent = k.popup;
            L.marker([k.lat, k.lng]).bindPopup(label).addTo(map);
        });
    })();
    </script>
{{- else if eq $b.Kind "image"}}
    <figure>
        <img src="{{$b.Image.URL}}"{{if $b.Image.Width}} width="{{$b.Image.Width}}"{{end}} alt="{{$b.Image.Caption}}">
        {{if $b.Image.Caption}}<figcaption>{{$b.Image.Caption}}{{if $b.Image.Size}} ({{$b.Image.Size}}){{end}}</figcaption>{{end}}
    </figure>
{{- else if eq $b.Kind "error"}}
    <div class="error">{{$b.Text}}</div>
{{- end}}
{{end}}
{{if .Generated}}<div class="footer">Generated {{.Generated}}</div>{{end}}
</main>
</body>
</html>
`))

// WritePageHTML renders a page as a complete HTML document
func WritePageHTML(w io.Writer, data pageData) error {
	return pageTemplate.Execute(w, data)
}

// GenerateHTMLReports writes one HTML file per view for each site into
// outputDir/<timestamp>/<site>/. Images are copied next to the pages.
// Returns the directory holding the reports.
func GenerateHTMLReports(ctx context.Context, d *Dashboard, sites []string, outputDir string) (string, error) {
	timestamp := time.Now().Format("2006-01-02_1504")
	root := filepath.Join(outputDir, "ambiflo_"+timestamp)

	for _, site := range sites {
		dir := filepath.Join(root, sanitizeFilename(site))
		if err := os.MkdirAll(filepath.Join(dir, "images"), 0755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}

		for _, view := range AllViews {
			page, err := d.Render(ctx, Selection{Site: site, View: view})
			if err != nil {
				return "", fmt.Errorf("render %s/%s: %w", site, view, err)
			}
			if err := localizeImages(page, dir); err != nil {
				return "", err
			}

			links := make([]navLink, len(AllViews))
			for i, v := range AllViews {
				links[i] = navLink{Label: string(v), Href: v.Slug() + ".html", Active: v == view}
			}

			path := filepath.Join(dir, view.Slug()+".html")
			if err := writeHTMLFile(path, pageData{
				Page:      page,
				Static:    true,
				NavLinks:  links,
				Generated: time.Now().Format("2006-01-02 15:04:05"),
			}); err != nil {
				return "", fmt.Errorf("failed to write %s: %w", path, err)
			}
		}
	}

	return root, nil
}

func writeHTMLFile(path string, data pageData) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WritePageHTML(f, data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// localizeImages copies page images into dir/images and points the page at the copies
func localizeImages(page *Page, dir string) error {
	for _, img := range page.Images() {
		if img.Path == "" {
			continue
		}
		name := filepath.Base(img.Path)
		if err := copyFile(img.Path, filepath.Join(dir, "images", name)); err != nil {
			return fmt.Errorf("copy image %s: %w", img.Path, err)
		}
		img.URL = "images/" + name
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// sanitizeFilename replaces characters that are not safe in filenames
func sanitizeFilename(name string) string {
	result := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c == '/' || c == '\\' || c == ':' || c == '*' || c == '?' || c == '"' || c == '<' || c == '>' || c == '|' {
			result = append(result, '_')
		} else {
			result = append(result, c)
		}
	}
	return string(result)
}
