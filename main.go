package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

func main() {
	// Custom usage message
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Ambiflo site survey dashboard

Browses tower site survey results: site locations on a map, the TLUP table
for a selected site with its RF survey images, and the ATLUP summary,
signal strength and signal quality tables.

PAGES:
  Scope           Logo, title, site location map and locations table
  TLUP            Selected site's TLUP row (Tlup highlighted), survey images
                  ordered by range, then the full table
  ATLUP Summary   Selected site's rows, then all sites
  ATLUP Strength  Signal strength (rsrp) rows, then all data
  ATLUP Quality   Signal quality (rsrq) rows, then all data

Usage:
  %s [options]

Options:
`, os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  %s                              Dashboard in an embedded window
  %s -web                         Web server mode (opens external browser)
  %s -web -addr :8080             Web server on a specific port
  %s -console                     Terminal dashboard
  %s -print -site A1094 -view tlup
                                  Print one page as text
  %s -html -all -out reports      Static HTML pages for every site
  %s -pdf -site A1094             PDF report for one site
  %s -init                        Create config.yaml interactively

Configuration:
  Edit config.yaml to point at the data files. Without a config file the
  built-in defaults are used (tables under ./data, images under ./data/rf).
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0])
	}

	// Command line flags
	configFile := flag.String("config", "config.yaml", "Path to YAML configuration file")
	initMode := flag.Bool("init", false, "Create the configuration file interactively")
	consoleMode := flag.Bool("console", false, "Use terminal interface instead of GUI (default is GUI)")
	webMode := flag.Bool("web", false, "Start web server mode (opens external browser)")
	uiMode := flag.Bool("ui", false, "Start embedded browser mode (webview window)")
	webAddr := flag.String("addr", "", "Web server address (default from config, use :0 for auto port)")
	printMode := flag.Bool("print", false, "Print the selected page as text and exit")
	generateHTML := flag.Bool("html", false, "Generate static HTML pages in a dated folder")
	generatePDF := flag.Bool("pdf", false, "Generate a PDF report for the selected site")
	site := flag.String("site", "", "Site to show (default: first site)")
	view := flag.String("view", "", "Page to show: scope, tlup, summary, strength, quality")
	allSites := flag.Bool("all", false, "With -html, generate pages for every site")
	outDir := flag.String("out", ".", "Output directory for -html and -pdf")
	flag.Parse()

	if *initMode {
		if err := runInit(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
			os.Exit(1)
		}
		return
	}

	config, err := LoadConfigOrDefault(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	for _, problem := range config.Validate() {
		log.Printf("Config: %s", problem)
	}

	d, err := NewDashboard(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	ctx := context.Background()

	// Embedded browser mode
	if *uiMode {
		if err := runEmbeddedUI(d); err != nil {
			fmt.Fprintf(os.Stderr, "Embedded UI error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Web server mode (external browser)
	if *webMode {
		addr := *webAddr
		if addr == "" {
			addr = config.Server.Addr
		}
		server := NewWebServer(d, addr)
		if err := server.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Web server error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *generateHTML || *generatePDF || *printMode {
		if err := runBatch(ctx, d, *site, *view, *outDir, *allSites, *generateHTML, *generatePDF, *printMode); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *consoleMode {
		if err := runConsoleMode(ctx, d, *site, *view); err != nil {
			fmt.Fprintf(os.Stderr, "Console error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Default: GUI mode
	if err := runGUI(d); err != nil {
		fmt.Fprintf(os.Stderr, "GUI error: %v\n", err)
		// Fall back to console mode if GUI fails
		fmt.Println("Falling back to console mode...")
		if err := runConsoleMode(ctx, d, *site, *view); err != nil {
			fmt.Fprintf(os.Stderr, "Console error: %v\n", err)
			os.Exit(1)
		}
	}
}

// runInit builds a configuration interactively and saves it
func runInit(configFile string) error {
	if _, err := os.Stat(configFile); err == nil {
		fmt.Printf("%s already exists and will be overwritten.\n", configFile)
	}
	builder := NewInteractiveConfigBuilder()
	config := builder.BuildConfig()
	if err := builder.SaveConfig(configFile); err != nil {
		return err
	}
	fmt.Printf("\nConfiguration saved to %s\n", configFile)
	for _, problem := range config.Validate() {
		fmt.Printf("  ! %s\n", problem)
	}
	fmt.Println("You can edit this file to adjust settings for future runs.")
	return nil
}

// runConsoleMode runs the terminal dashboard on the requested selection
func runConsoleMode(ctx context.Context, d *Dashboard, site, view string) error {
	sel, err := d.ResolveSelection(ctx, site, view)
	if err != nil {
		return err
	}
	return runConsole(ctx, d, sel)
}

// runBatch handles the non-interactive outputs: -print, -html and -pdf
func runBatch(ctx context.Context, d *Dashboard, site, view, outDir string, all, toHTML, toPDF, toText bool) error {
	sel, err := d.ResolveSelection(ctx, site, view)
	if err != nil {
		return err
	}

	if toText {
		page, err := d.Render(ctx, sel)
		if err != nil {
			return err
		}
		PrintHeader(os.Stdout, d.Config(), sel)
		PrintPage(os.Stdout, page)
	}

	if toHTML {
		sites := []string{sel.Site}
		if all {
			if sites, err = d.Sites(ctx); err != nil {
				return err
			}
		}
		dir, err := GenerateHTMLReports(ctx, d, sites, outDir)
		if err != nil {
			return fmt.Errorf("generating HTML reports: %w", err)
		}
		fmt.Printf("Generated %d site report(s) in %s/\n", len(sites), dir)
		if len(sites) > 0 {
			openBrowser(filepath.Join(dir, sanitizeFilename(sites[0]), sel.View.Slug()+".html"))
		}
	}

	if toPDF {
		data, err := GenerateSitePDFReport(ctx, d, sel.Site)
		if err != nil {
			return fmt.Errorf("generating PDF report: %w", err)
		}
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return err
		}
		path := filepath.Join(outDir, exportFilename("report", sel.Site, ".pdf"))
		if err := os.WriteFile(path, data, 0644); err != nil {
			return err
		}
		fmt.Printf("Generated %s\n", path)
	}

	return nil
}
