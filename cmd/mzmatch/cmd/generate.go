package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mzmatch/pkg/core"
	"mzmatch/pkg/reader/compoundlist"
	"mzmatch/pkg/reader/peaklist"
	"mzmatch/pkg/state"
	"mzmatch/pkg/writer/sqlite"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Identify target compounds from an MS peak list",
	Long: `Match the peaks of a CSV peak list against the compoundlist table of a
target compound database, write the identified result set to an SQLite result
database, and launch the browsing interface over it.

Examples:
  # Match with default tolerances (0.002 Da, 0.5 min) and browse the result
  mzmatch generate -l peaks.csv -d compounds.db

  # Use a 5 ppm mass window and write to a custom output path
  mzmatch generate -l peaks.csv -d compounds.db -m 5 --tolerance-unit ppm -o run42.db

  # Batch mode: skip malformed rows, do not launch the browser
  mzmatch generate -l peaks.csv -d compounds.db --skip-bad-rows --no-serve`,
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	if _, err := os.Stat(peaklistFile); os.IsNotExist(err) {
		return fmt.Errorf("peak list file does not exist: %s", peaklistFile)
	}

	// Load the list of MS peaks
	peakResult, err := peaklist.LoadFile(peaklistFile, settings.BadRowPolicy())
	if err != nil {
		return err
	}
	warnSkipped(peakResult.Skipped)

	// Load the target compound database
	compoundResult, err := compoundlist.LoadFile(databaseFile, settings.BadRowPolicy())
	if err != nil {
		return err
	}
	warnSkipped(compoundResult.Skipped)

	fmt.Printf("Loaded %d peaks and %d target compounds\n",
		len(peakResult.Peaks), len(compoundResult.Compounds))

	// Match every compound against the peak set
	results, err := core.MatchParallel(cmd.Context(), compoundResult.Compounds, peakResult.Peaks,
		settings.Tolerance(), settings.Workers)
	if err != nil {
		return err
	}
	summaries := core.Summarize(results, peakResult.Peaks)
	fmt.Printf("Identified %d target compounds.\n", len(summaries))

	// Persist the result set; the output path is only replaced on success
	writer, err := sqlite.NewWriter(settings.Output, compoundResult.Compounds)
	if err != nil {
		return err
	}
	defer writer.Close()

	if err := writer.WriteResults(results); err != nil {
		return err
	}
	if err := writer.WriteSummaries(summaries); err != nil {
		return err
	}
	if err := writer.Finalize(); err != nil {
		return err
	}
	fmt.Printf("Output: %s\n", settings.Output)

	// Record the artifact so connect/download can find it later
	if err := state.Save(settings.StateFile, settings.Output); err != nil {
		return err
	}

	if noServe {
		return nil
	}
	return serve(settings.Output, settings.Port)
}

func warnSkipped(skipped []*core.RowParseError) {
	for _, rowErr := range skipped {
		fmt.Fprintf(os.Stderr, "Warning: skipped %v\n", rowErr)
	}
}
