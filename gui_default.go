//go:build !console

package main

import (
	"fmt"
	"log"
	"os"

	webview "github.com/webview/webview_go"
)

// runEmbeddedUI starts the web server and opens an embedded browser window
func runEmbeddedUI(d *Dashboard) error {
	ws := NewWebServer(d, "localhost:0")

	// Start server and get URL
	url, cleanup, err := ws.StartForEmbedded()
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	defer cleanup()

	// Create webview window (false = no debug mode)
	w := webview.New(false)
	defer w.Destroy()

	if logo := d.Config().Logo; logo != "" {
		if data, err := os.ReadFile(logo); err == nil {
			SetWindowIcon(w.Window(), data)
		} else {
			log.Printf("Window icon not set: %v", err)
		}
	}

	w.SetTitle(d.Config().PageTitle)
	w.SetSize(1400, 900, webview.HintNone)
	w.Navigate(url)

	// Run blocks until window is closed
	w.Run()

	return nil
}

// runGUI starts the graphical user interface (uses embedded browser)
func runGUI(d *Dashboard) error {
	return runEmbeddedUI(d)
}
