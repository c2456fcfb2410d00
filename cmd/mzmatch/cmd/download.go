package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"mzmatch/pkg/export"
	"mzmatch/pkg/writer/sqlite"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Export the last-produced result database to CSV",
	Long: `Export a table of an existing result database to a flat CSV file without
re-running the matching. By default the match_results table of the database
recorded by the most recent generate run is exported.

Examples:
  mzmatch download
  mzmatch download --table summary -o identified_compounds.csv`,
	RunE: runDownload,
}

func runDownload(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	dbPath, err := resolveResults(settings.StateFile)
	if err != nil {
		return err
	}

	var table string
	switch exportTable {
	case "results":
		table = sqlite.ResultsTable
	case "summary":
		table = sqlite.SummaryTable
	default:
		return fmt.Errorf("invalid table %q, must be results or summary", exportTable)
	}

	if err := export.ToFile(dbPath, table, outputFile); err != nil {
		return err
	}
	fmt.Printf("Exported %s to %s\n", table, outputFile)
	return nil
}
