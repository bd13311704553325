package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	jsoniter "github.com/json-iterator/go"
	"github.com/zeebo/xxh3"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// WebServer holds the HTTP server configuration
type WebServer struct {
	dashboard *Dashboard
	addr      string
}

// NewWebServer creates a new web server instance
func NewWebServer(dashboard *Dashboard, addr string) *WebServer {
	return &WebServer{
		dashboard: dashboard,
		addr:      addr,
	}
}

// APIErrorResponse is the body of every failed API call
type APIErrorResponse struct {
	Success     bool     `json:"success"`
	Error       string   `json:"error"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// APITableResponse is a table returned by the API
type APITableResponse struct {
	Success bool       `json:"success"`
	Site    string     `json:"site,omitempty"`
	Table   *TableView `json:"table"`
}

// Routes builds the HTTP handler
func (ws *WebServer) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", ws.handleIndex)
	r.Get("/healthz", ws.handleHealth)
	r.Get("/logo", ws.handleLogo)
	r.Get("/images/{file}", ws.handleImage)

	r.Route("/api", func(r chi.Router) {
		r.Get("/config", ws.handleGetConfig)
		r.Get("/sites", ws.handleSites)
		r.Get("/views", ws.handleViews)
		r.Get("/render", ws.handleRender)
		r.Get("/images", ws.handleImageList)
		r.Get("/tables/{name}", ws.handleTable)
	})

	r.Route("/export", func(r chi.Router) {
		r.Get("/locations.csv", ws.handleExportLocations)
		r.Get("/report.pdf", ws.handleExportPDF)
		r.Get("/{file}", ws.handleExportTable)
	})

	return r
}

// listen opens the listener and returns the browser URL for it
func (ws *WebServer) listen() (net.Listener, string, error) {
	listener, err := net.Listen("tcp", ws.addr)
	if err != nil {
		return nil, "", err
	}

	actualAddr := listener.Addr().String()
	url := fmt.Sprintf("http://%s", actualAddr)

	// If listening on all interfaces, use localhost for the URL
	if strings.HasPrefix(actualAddr, ":") || strings.HasPrefix(actualAddr, "0.0.0.0:") || strings.HasPrefix(actualAddr, "[::]:") {
		port := actualAddr[strings.LastIndex(actualAddr, ":")+1:]
		url = fmt.Sprintf("http://localhost:%s", port)
	}
	return listener, url, nil
}

// Start starts the web server, opens the browser and blocks
func (ws *WebServer) Start() error {
	listener, url, err := ws.listen()
	if err != nil {
		return err
	}

	log.Printf("Starting web server on %s", listener.Addr())
	log.Printf("Opening %s in your browser...", url)

	go openBrowser(url)

	server := &http.Server{Handler: ws.Routes(), ReadHeaderTimeout: 10 * time.Second}
	return server.Serve(listener)
}

// StartForEmbedded starts the server and returns the URL and a cleanup function.
// Unlike Start(), this does NOT open the browser and does NOT block.
func (ws *WebServer) StartForEmbedded() (url string, cleanup func(), err error) {
	listener, url, err := ws.listen()
	if err != nil {
		return "", nil, err
	}

	log.Printf("Starting embedded web server on %s", listener.Addr())

	server := &http.Server{Handler: ws.Routes(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(listener); err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	cleanup = func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}

	return url, cleanup, nil
}

// handleIndex serves the dashboard page for ?site=&view=
func (ws *WebServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	sel, err := ws.dashboard.ResolveSelection(ctx, query.Get("site"), query.Get("view"))
	if err != nil {
		ws.writeErrorPage(w, err)
		return
	}

	page, err := ws.dashboard.Render(ctx, sel)
	if err != nil {
		ws.writeErrorPage(w, err)
		return
	}

	var buf bytes.Buffer
	if err := WritePageHTML(&buf, pageData{Page: page, ExportLinks: exportLinksFor(sel)}); err != nil {
		http.Error(w, "Failed to render page: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// writeErrorPage renders a page that only carries an error banner
func (ws *WebServer) writeErrorPage(w http.ResponseWriter, err error) {
	status := statusForError(err)
	page := &Page{
		PageTitle: ws.dashboard.Config().PageTitle,
		Views:     AllViews,
		Error:     err.Error(),
		Blocks:    []Block{{Kind: BlockError, Text: err.Error()}},
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := WritePageHTML(w, pageData{Page: page}); err != nil {
		log.Printf("Failed to render error page: %v", err)
	}
}

// exportLinksFor lists the downloads relevant to a selection
func exportLinksFor(sel Selection) []exportLink {
	site := url.QueryEscape(sel.Site)
	var table string
	switch sel.View {
	case ViewScope:
		return []exportLink{
			{Label: "Locations (CSV)", Href: "/export/locations.csv"},
			{Label: "Locations table (XLSX)", Href: "/export/" + TableLocations + ".xlsx"},
		}
	case ViewTLUP:
		table = TableTLUP
	default:
		table = atlupViews[sel.View].table
	}
	return []exportLink{
		{Label: "Site rows (CSV)", Href: "/export/" + table + ".csv?site=" + site},
		{Label: "Site rows (XLSX)", Href: "/export/" + table + ".xlsx?site=" + site},
		{Label: "Full table (XLSX)", Href: "/export/" + table + ".xlsx"},
		{Label: "Site report (PDF)", Href: "/export/report.pdf?site=" + site},
	}
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"loaded":  ws.dashboard.tables.Loaded(),
	})
}

// handleGetConfig returns the current configuration
func (ws *WebServer) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ws.dashboard.Config())
}

func (ws *WebServer) handleSites(w http.ResponseWriter, r *http.Request) {
	sites, err := ws.dashboard.Sites(r.Context())
	if err != nil {
		sendJSONError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "sites": sites})
}

func (ws *WebServer) handleViews(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "views": AllViews})
}

// handleRender returns the structured page for ?site=&view=
func (ws *WebServer) handleRender(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, err := ws.dashboard.Render(r.Context(), Selection{
		Site: query.Get("site"),
		View: View(query.Get("view")),
	})
	if err != nil {
		sendJSONError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleImageList returns the located images of ?site=
func (ws *WebServer) handleImageList(w http.ResponseWriter, r *http.Request) {
	sel, err := ws.dashboard.ResolveSelection(r.Context(), r.URL.Query().Get("site"), "")
	if err != nil {
		sendJSONError(w, err)
		return
	}
	images, err := ws.dashboard.Images().Locate(sel.Site)
	if err != nil {
		sendJSONError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "site": sel.Site, "images": images})
}

// handleTable returns a table, filtered by ?site= when given
func (ws *WebServer) handleTable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	site := r.URL.Query().Get("site")

	t, spec, err := ws.lookupTable(r.Context(), name, site)
	if err != nil {
		sendJSONError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APITableResponse{
		Success: true,
		Site:    site,
		Table:   NewTableView(t, spec.Highlight, 0, site != ""),
	})
}

// lookupTable loads a table and applies the optional site filter
func (ws *WebServer) lookupTable(ctx context.Context, name, site string) (*Table, TableConfig, error) {
	t, err := ws.dashboard.Table(ctx, name)
	if err != nil {
		return nil, TableConfig{}, err
	}
	spec, _ := ws.dashboard.tables.Spec(name)
	if site == "" {
		return t, spec, nil
	}
	filtered, err := t.Filter(spec.Key, site)
	if err != nil {
		return nil, TableConfig{}, err
	}
	return filtered, spec, nil
}

// handleImage serves a survey image from the image directory
func (ws *WebServer) handleImage(w http.ResponseWriter, r *http.Request) {
	p, err := ws.dashboard.Images().Resolve(chi.URLParam(r, "file"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	serveFileWithETag(w, r, p)
}

func (ws *WebServer) handleLogo(w http.ResponseWriter, r *http.Request) {
	logo := ws.dashboard.Config().Logo
	if logo == "" {
		http.NotFound(w, r)
		return
	}
	serveFileWithETag(w, r, logo)
}

// serveFileWithETag serves a file with a content hash ETag
func serveFileWithETag(w http.ResponseWriter, r *http.Request, p string) {
	data, err := os.ReadFile(p)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	info, err := os.Stat(p)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("ETag", `"`+strconv.FormatUint(xxh3.Hash(data), 16)+`"`)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeContent(w, r, path.Base(p), info.ModTime(), bytes.NewReader(data))
}

// handleExportTable writes /export/<table>.csv or .xlsx, filtered by ?site=
func (ws *WebServer) handleExportTable(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "file")
	ext := path.Ext(file)
	name := strings.TrimSuffix(file, ext)
	site := r.URL.Query().Get("site")

	if ext != ".csv" && ext != ".xlsx" {
		http.NotFound(w, r)
		return
	}

	t, spec, err := ws.lookupTable(r.Context(), name, site)
	if err != nil {
		sendJSONError(w, err)
		return
	}

	filename := exportFilename(name, site, ext)
	var buf bytes.Buffer
	switch ext {
	case ".csv":
		err = WriteTableCSV(&buf, t)
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	case ".xlsx":
		err = WriteTableXLSX(&buf, t, spec.Highlight)
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	}
	if err != nil {
		sendJSONError(w, err)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Write(buf.Bytes())
}

// handleExportLocations writes the typed site locations as CSV
func (ws *WebServer) handleExportLocations(w http.ResponseWriter, r *http.Request) {
	t, err := ws.dashboard.Table(r.Context(), TableLocations)
	if err != nil {
		sendJSONError(w, err)
		return
	}
	locations, err := SiteLocationsFromTable(t, ws.dashboard.Config().KeyColumn(TableLocations))
	if err != nil {
		sendJSONError(w, err)
		return
	}
	data, err := MarshalSiteLocationsCSV(locations)
	if err != nil {
		sendJSONError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="locations.csv"`)
	w.Write(data)
}

// handleExportPDF writes the PDF site report for ?site=
func (ws *WebServer) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sel, err := ws.dashboard.ResolveSelection(ctx, r.URL.Query().Get("site"), "")
	if err != nil {
		sendJSONError(w, err)
		return
	}

	data, err := GenerateSitePDFReport(ctx, ws.dashboard, sel.Site)
	if err != nil {
		sendJSONError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename("report", sel.Site, ".pdf")))
	w.Write(data)
}

// exportFilename builds a download name like tlup_A1094_2025-07-01.csv
func exportFilename(name, site, ext string) string {
	parts := []string{name}
	if site != "" {
		parts = append(parts, site)
	}
	parts = append(parts, time.Now().Format("2006-01-02"))
	return sanitizeFilename(strings.Join(parts, "_")) + ext
}

// statusForError maps dashboard errors to HTTP status codes
func statusForError(err error) int {
	var siteErr *UnknownSiteError
	switch {
	case errors.Is(err, ErrUnknownView), errors.As(err, &siteErr), errors.Is(err, ErrUnknownColumn):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnknownTable), errors.Is(err, ErrImageNotFound):
		return http.StatusNotFound
	}
	// Missing or malformed data files
	return http.StatusInternalServerError
}

// sendJSONError sends a JSON error response with a status matching the error
func sendJSONError(w http.ResponseWriter, err error) {
	resp := APIErrorResponse{Success: false, Error: err.Error()}
	var siteErr *UnknownSiteError
	if errors.As(err, &siteErr) {
		resp.Suggestions = siteErr.Suggestions
	}
	writeJSON(w, statusForError(err), resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// openBrowser opens the specified URL in the default browser
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}

	if err := cmd.Start(); err != nil {
		log.Printf("Could not open browser: %v", err)
		log.Printf("Please open %s manually", url)
	}
}
