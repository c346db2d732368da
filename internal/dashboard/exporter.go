package dashboard

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
)

// Grafana grid units to pixels.
const (
	gridUnitWidthPx  = 100
	gridUnitHeightPx = 50
	defaultGridW     = 12
	defaultGridH     = 8
)

// panelTypeRow marks layout containers that have no renderable content.
const panelTypeRow = "row"

const (
	dirPerm  = 0o750
	filePerm = 0o644
)

// ErrNoPanelsRendered indicates every panel render failed.
var ErrNoPanelsRendered = errors.New("no panels could be rendered")

// Exporter writes dashboard snapshots into a static output directory.
type Exporter struct {
	client    *Client
	outputDir string
	logger    *slog.Logger
}

// NewExporter creates an exporter writing into outputDir.
func NewExporter(client *Client, outputDir string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}

	return &Exporter{client: client, outputDir: outputDir, logger: logger}
}

// renderedPanel is one successfully exported panel for the gallery page.
type renderedPanel struct {
	Title    string
	Filename string
}

// Export renders all panels of the dashboard into PNG files and generates an
// index.html gallery. Individual panel failures are logged and skipped; the
// export fails only when nothing was rendered.
func (e *Exporter) Export(ctx context.Context, uid, timeFrom, timeTo string) error {
	dash, err := e.client.DashboardByUID(ctx, uid)
	if err != nil {
		return err
	}

	imagesDir := filepath.Join(e.outputDir, "images")

	mkErr := os.MkdirAll(imagesDir, dirPerm)
	if mkErr != nil {
		return fmt.Errorf("create images directory: %w", mkErr)
	}

	var rendered []renderedPanel

	for _, panel := range dash.Panels {
		if panel.Type == panelTypeRow {
			continue
		}

		width, height := panelPixelSize(panel)

		image, renderErr := e.client.RenderPanel(ctx, uid, panel.ID, width, height, timeFrom, timeTo)
		if renderErr != nil {
			e.logger.Error("panel render failed, skipping",
				slog.Int("panel", panel.ID),
				slog.String("title", panel.Title),
				slog.String("error", renderErr.Error()))

			continue
		}

		filename := fmt.Sprintf("panel_%d.png", panel.ID)

		writeErr := os.WriteFile(filepath.Join(imagesDir, filename), image, filePerm)
		if writeErr != nil {
			e.logger.Error("could not save panel image",
				slog.Int("panel", panel.ID),
				slog.String("error", writeErr.Error()))

			continue
		}

		rendered = append(rendered, renderedPanel{Title: panel.Title, Filename: filename})
	}

	if len(rendered) == 0 {
		return ErrNoPanelsRendered
	}

	return e.writeGallery(dash.Title, rendered, timeFrom, timeTo)
}

// panelPixelSize converts grid units to render pixels, falling back to the
// Grafana default panel size when the layout omits gridPos.
func panelPixelSize(panel Panel) (int, int) {
	gridW := panel.GridPos.W
	if gridW == 0 {
		gridW = defaultGridW
	}

	gridH := panel.GridPos.H
	if gridH == 0 {
		gridH = defaultGridH
	}

	return gridW * gridUnitWidthPx, gridH * gridUnitHeightPx
}

// galleryTemplate is the static snapshot page listing all panel images.
var galleryTemplate = template.Must(template.New("gallery").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}} - Snapshot</title>
<style>
body { font-family: sans-serif; background: #111217; color: #d8d9da; margin: 0; padding: 2rem; }
h1 { font-weight: 500; }
.range { color: #8e8e8e; margin-bottom: 2rem; }
.panel { background: #181b1f; border-radius: 4px; padding: 1rem; margin-bottom: 1.5rem; }
.panel h2 { font-size: 1rem; font-weight: 500; margin: 0 0 0.75rem; }
.panel img { max-width: 100%; border-radius: 2px; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="range">{{.TimeFrom}} &rarr; {{.TimeTo}}</div>
{{range .Panels}}<div class="panel">
<h2>{{.Title}}</h2>
<img src="images/{{.Filename}}" alt="{{.Title}}">
</div>
{{end}}</body>
</html>
`))

// galleryData feeds the gallery template.
type galleryData struct {
	Title    string
	TimeFrom string
	TimeTo   string
	Panels   []renderedPanel
}

// writeGallery renders index.html into the output directory.
func (e *Exporter) writeGallery(title string, panels []renderedPanel, timeFrom, timeTo string) error {
	path := filepath.Join(e.outputDir, "index.html")

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create gallery page: %w", err)
	}
	defer file.Close()

	err = galleryTemplate.Execute(file, galleryData{
		Title:    title,
		TimeFrom: timeFrom,
		TimeTo:   timeTo,
		Panels:   panels,
	})
	if err != nil {
		return fmt.Errorf("render gallery page: %w", err)
	}

	return nil
}
