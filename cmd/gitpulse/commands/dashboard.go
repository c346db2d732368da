package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gitpulse/gitpulse/internal/dashboard"
	"github.com/gitpulse/gitpulse/internal/observability"
)

// Grafana connection defaults; flags and environment override them.
const (
	defaultGrafanaURL  = "http://localhost:3000"
	defaultGrafanaUser = "admin"
	defaultTimeFrom    = "now-1y"
	defaultTimeTo      = "now"
	defaultExportDir   = "dashboard-export"
	defaultReadyWait   = 2 * time.Minute
)

// ErrMissingDashboardUID indicates no dashboard was selected for export.
var ErrMissingDashboardUID = errors.New("dashboard UID is required (use --uid or list with --list)")

// DashboardCommand holds the configuration for the dashboard command.
type DashboardCommand struct {
	url       string
	user      string
	password  string
	uid       string
	timeFrom  string
	timeTo    string
	outputDir string
	list      bool
	logJSON   bool
}

// NewDashboardCommand creates the dashboard command with its export subcommand.
func NewDashboardCommand() *cobra.Command {
	dc := &DashboardCommand{}

	cobraCmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Export Grafana dashboard panels as images",
	}

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Render every panel of a dashboard to PNG plus an HTML gallery",
		Long: `Export waits for the Grafana instance to become ready, fetches the
dashboard definition, renders each panel through the image renderer, and
writes the images with an index.html gallery to the output directory.

Credentials fall back to the GRAFANA_URL, GRAFANA_USER, and
GRAFANA_PASSWORD environment variables.`,
		RunE: dc.runExport,
	}

	exportCmd.Flags().StringVar(&dc.url, "url", envOr("GRAFANA_URL", defaultGrafanaURL), "Grafana base URL")
	exportCmd.Flags().StringVar(&dc.user, "user", envOr("GRAFANA_USER", defaultGrafanaUser), "Grafana username")
	exportCmd.Flags().StringVar(&dc.password, "password", os.Getenv("GRAFANA_PASSWORD"), "Grafana password")
	exportCmd.Flags().StringVar(&dc.uid, "uid", "", "Dashboard UID to export")
	exportCmd.Flags().StringVar(&dc.timeFrom, "from", defaultTimeFrom, "Render range start (Grafana time expression)")
	exportCmd.Flags().StringVar(&dc.timeTo, "to", defaultTimeTo, "Render range end (Grafana time expression)")
	exportCmd.Flags().StringVarP(&dc.outputDir, "output", "o", defaultExportDir, "Directory for images and gallery")
	exportCmd.Flags().BoolVar(&dc.list, "list", false, "List available dashboards instead of exporting")
	exportCmd.Flags().BoolVar(&dc.logJSON, "log-json", false, "Emit logs as JSON")

	cobraCmd.AddCommand(exportCmd)

	return cobraCmd
}

func (dc *DashboardCommand) runExport(cmd *cobra.Command, _ []string) error {
	obsCfg := observability.DefaultConfig()
	obsCfg.LogJSON = dc.logJSON

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	ctx := cmd.Context()
	client := dashboard.NewClient(dc.url, dc.user, dc.password)

	err = client.WaitForReady(ctx, defaultReadyWait)
	if err != nil {
		return err
	}

	if dc.list {
		return dc.listDashboards(cmd)
	}

	if dc.uid == "" {
		return ErrMissingDashboardUID
	}

	exporter := dashboard.NewExporter(client, dc.outputDir, providers.Logger)

	err = exporter.Export(ctx, dc.uid, dc.timeFrom, dc.timeTo)
	if err != nil {
		return err
	}

	color.New(color.FgGreen).Fprintf(os.Stdout, "Dashboard export written to %s\n", dc.outputDir)

	return nil
}

// listDashboards prints the UID and title of every visible dashboard.
func (dc *DashboardCommand) listDashboards(cmd *cobra.Command) error {
	client := dashboard.NewClient(dc.url, dc.user, dc.password)

	refs, err := client.SearchDashboards(cmd.Context())
	if err != nil {
		return err
	}

	for _, ref := range refs {
		fmt.Fprintf(os.Stdout, "%s  %s\n", ref.UID, ref.Title)
	}

	return nil
}

// envOr returns the environment value for key, or fallback when unset.
func envOr(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	return value
}
