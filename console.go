package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const (
	consoleSidebarWidth  = 28
	consoleMaxTableLines = 16
	consoleLogLines      = 5
)

// consoleUI is the terminal dashboard: a site list and a view list on the
// left, the rendered page on the right, and recent log lines at the bottom.
type consoleUI struct {
	ctx     context.Context
	d       *Dashboard
	app     *tview.Application
	sites   *tview.List
	views   *tview.List
	content *tview.Flex
	logView *tview.TextView
	sel     Selection
}

// runConsole runs the terminal dashboard until the user quits
func runConsole(ctx context.Context, d *Dashboard, sel Selection) error {
	sites, err := d.Sites(ctx)
	if err != nil {
		return err
	}

	ui := &consoleUI{
		ctx:     ctx,
		d:       d,
		app:     tview.NewApplication(),
		sites:   tview.NewList().ShowSecondaryText(false),
		views:   tview.NewList().ShowSecondaryText(false),
		content: tview.NewFlex().SetDirection(tview.FlexRow),
		logView: tview.NewTextView().SetDynamicColors(true).SetWrap(false),
		sel:     sel,
	}

	ui.sites.SetBorder(true).SetTitle("Select Site").SetTitleAlign(tview.AlignLeft)
	for i, s := range sites {
		site := s
		ui.sites.AddItem(tview.Escape(site), "", 0, func() {
			ui.sel.Site = site
			ui.show()
		})
		if site == sel.Site {
			ui.sites.SetCurrentItem(i)
		}
	}

	ui.views.SetBorder(true).SetTitle("Pages").SetTitleAlign(tview.AlignLeft)
	for i, v := range AllViews {
		view := v
		ui.views.AddItem(string(view), "", 0, func() {
			ui.sel.View = view
			ui.show()
		})
		if view == sel.View {
			ui.views.SetCurrentItem(i)
		}
	}

	ui.content.SetBorder(true).SetTitleAlign(tview.AlignLeft)
	ui.logView.SetBorder(true).SetTitle("Log").SetTitleAlign(tview.AlignLeft)
	ui.logView.SetTextColor(tcell.ColorYellow)

	sidebar := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(ui.sites, 0, 3, true).
		AddItem(ui.views, len(AllViews)+2, 0, false)
	body := tview.NewFlex().
		AddItem(sidebar, consoleSidebarWidth, 0, true).
		AddItem(ui.content, 0, 1, false)
	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(body, 0, 1, true).
		AddItem(ui.logView, consoleLogLines+2, 0, false)

	focus := []tview.Primitive{ui.sites, ui.views, ui.content}
	current := 0
	ui.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyTab:
			current = (current + 1) % len(focus)
			ui.app.SetFocus(focus[current])
			return nil
		case tcell.KeyBacktab:
			current = (current + len(focus) - 1) % len(focus)
			ui.app.SetFocus(focus[current])
			return nil
		case tcell.KeyEscape:
			ui.app.Stop()
			return nil
		}
		return event
	})

	// Log lines would corrupt the screen; send them to the log pane instead
	log.SetOutput(newLogPaneWriter(ui.logView, ui.app))
	defer log.SetOutput(os.Stderr)

	ui.show()
	return ui.app.SetRoot(layout, true).SetFocus(ui.sites).Run()
}

// show renders the current selection into the content pane
func (ui *consoleUI) show() {
	ui.content.Clear()
	ui.content.SetTitle(fmt.Sprintf(" %s: %s ", tview.Escape(ui.sel.Site), ui.sel.View))

	page, err := ui.d.Render(ui.ctx, ui.sel)
	if err != nil {
		ui.content.AddItem(textPane("[red]"+tview.Escape(err.Error())), 0, 1, false)
		return
	}
	fillConsoleContent(ui.content, page)
}

// fillConsoleContent adds one primitive per group of page blocks.
// Consecutive text blocks share a text view; tables get a tview.Table each.
func fillConsoleContent(content *tview.Flex, page *Page) {
	var text []string
	flush := func() {
		if len(text) == 0 {
			return
		}
		content.AddItem(textPane(strings.Join(text, "\n")), len(text), 0, false)
		text = nil
	}

	for _, b := range page.Blocks {
		switch b.Kind {
		case BlockHeading:
			text = append(text, "[::b]"+tview.Escape(b.Text)+"[::-]")
		case BlockMarkdown:
			text = append(text, tview.Escape(stripMarkdown(b.Text)))
		case BlockMap:
			text = append(text, fmt.Sprintf("[green]Map:[-] %d sites around %.4f, %.4f",
				len(b.Map.Markers), b.Map.Latitude, b.Map.Longitude))
		case BlockImage:
			line := "[blue]Image:[-] " + tview.Escape(b.Image.URL)
			if b.Image.Caption != "" {
				line += " - " + tview.Escape(b.Image.Caption)
			}
			text = append(text, line)
		case BlockError:
			text = append(text, "[red]"+tview.Escape(b.Text)+"[-]")
		case BlockTable:
			flush()
			height := len(b.Table.Rows) + 1
			if height > consoleMaxTableLines {
				height = consoleMaxTableLines
			}
			content.AddItem(consoleTable(b.Table), height, 0, false)
		}
	}
	flush()
	content.AddItem(tview.NewBox(), 0, 1, false)
}

// consoleTable builds a scrollable table with a fixed header row and index column
func consoleTable(tv *TableView) *tview.Table {
	table := tview.NewTable().SetFixed(1, 1).SetSelectable(false, false)

	table.SetCell(0, 0, tview.NewTableCell("").SetSelectable(false))
	for c, col := range tv.Columns {
		table.SetCell(0, c+1, tview.NewTableCell(col).
			SetAttributes(tcell.AttrBold).
			SetSelectable(false))
	}

	for r, row := range tv.Rows {
		table.SetCell(r+1, 0, tview.NewTableCell(fmt.Sprint(r)).SetTextColor(tcell.ColorGray))
		for c, value := range row {
			cell := tview.NewTableCell(value).SetAlign(tview.AlignRight)
			if c == tv.Highlight {
				cell.SetTextColor(tcell.ColorBlack).SetBackgroundColor(tcell.ColorYellow)
			}
			table.SetCell(r+1, c+1, cell)
		}
	}
	return table
}

func textPane(text string) *tview.TextView {
	tv := tview.NewTextView().SetDynamicColors(true).SetWrap(true)
	tv.SetText(text)
	return tv
}

// logPaneWriter appends log output to a text view from any goroutine.
// Writes never wait on the event loop: text is buffered and at most one
// flush is queued at a time.
type logPaneWriter struct {
	view *tview.TextView
	app  *tview.Application

	mu        sync.Mutex
	pending   strings.Builder
	scheduled bool
}

func newLogPaneWriter(view *tview.TextView, app *tview.Application) *logPaneWriter {
	return &logPaneWriter{view: view, app: app}
}

func (w *logPaneWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending.WriteString(tview.Escape(string(p)))
	if !w.scheduled {
		w.scheduled = true
		go w.app.QueueUpdateDraw(w.flush)
	}
	return len(p), nil
}

// flush moves the buffered text into the view; it runs on the event goroutine
func (w *logPaneWriter) flush() {
	w.mu.Lock()
	text := w.pending.String()
	w.pending.Reset()
	w.scheduled = false
	w.mu.Unlock()

	if text == "" {
		return
	}
	fmt.Fprint(w.view, text)
	w.view.ScrollToEnd()
}
