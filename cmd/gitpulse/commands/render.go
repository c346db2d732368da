package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gitpulse/gitpulse/internal/activity"
	"github.com/gitpulse/gitpulse/internal/config"
	"github.com/gitpulse/gitpulse/internal/export"
)

// activityFileName is the rendered chart page inside the output directory.
const activityFileName = "activity.html"

// ErrNoBulkRecords indicates the bulk file held no commit documents.
var ErrNoBulkRecords = errors.New("bulk file contains no commit records")

// RenderCommand holds the configuration for the render command.
type RenderCommand struct {
	configPath string
	bulkPath   string
	title      string
}

// NewRenderCommand creates and configures the render command.
func NewRenderCommand() *cobra.Command {
	rc := &RenderCommand{}

	cobraCmd := &cobra.Command{
		Use:   "render",
		Short: "Render activity charts from a bulk export",
		Long: `Render reads a previously written Elasticsearch bulk file and writes an
HTML page with per-repository commit and line-delta charts next to it.`,
		RunE: rc.run,
	}

	cobraCmd.Flags().StringVarP(&rc.configPath, "config", "c", DefaultConfigPath, "Path to the configuration file")
	cobraCmd.Flags().StringVar(&rc.bulkPath, "bulk", "", "Bulk file to render (default: <output_directory>/"+export.BulkFileName+")")
	cobraCmd.Flags().StringVar(&rc.title, "title", "Repository Activity", "Page title")

	return cobraCmd
}

func (rc *RenderCommand) run(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(rc.configPath)
	if err != nil {
		return err
	}

	bulkPath := rc.bulkPath
	if bulkPath == "" {
		bulkPath = filepath.Join(cfg.Analysis.OutputDirectory, export.BulkFileName)
	}

	records, err := activity.ReadBulkRecords(bulkPath)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		return fmt.Errorf("%w: %s", ErrNoBulkRecords, bulkPath)
	}

	tallies := activity.TallyByRepository(records)

	outPath := filepath.Join(filepath.Dir(bulkPath), activityFileName)

	file, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create activity page: %w", err)
	}
	defer file.Close()

	err = activity.WriteChartPage(file, tallies, rc.title)
	if err != nil {
		return err
	}

	color.New(color.FgGreen).Fprintf(os.Stdout, "Activity page written to %s (%d repositories, %d commits)\n",
		outPath, len(tallies), len(records))

	return nil
}
