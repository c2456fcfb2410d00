// Package cmd provides CLI command implementations
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"mzmatch/pkg/config"
	"mzmatch/pkg/server"
)

var (
	// Shared flags
	configFile string
	port       int
	stateFile  string

	// Generate flags
	peaklistFile  string
	databaseFile  string
	outputFile    string
	massTolerance float64
	toleranceUnit string
	timeTolerance float64
	skipBadRows   bool
	workers       int
	noServe       bool

	// Connect/download flags
	resultsFile string
	exportTable string
)

var rootCmd = &cobra.Command{
	Use:   "mzmatch",
	Short: "mzmatch - LC-MS target compound identification tool",
	Long: `mzmatch matches experimentally observed LC-MS peaks against a reference
list of target/suspect compounds and persists the identified result set to an
SQLite database for browsing and export.

Commands:
- generate: run the peak/compound matching and serve the result browser
- connect:  serve the result browser over the last-produced database
- download: export the last-produced database to a CSV file`,
	Version: "1.0.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML config file (default: ./mzmatch.yaml if present)")
	rootCmd.PersistentFlags().IntVarP(&port, "port", "p", config.DefaultPort, "Port for the result browsing interface")
	rootCmd.PersistentFlags().StringVar(&stateFile, "state-file", config.DefaultStateFile, "Path to the last-run state file")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(downloadCmd)

	// Generate command flags
	generateCmd.Flags().StringVarP(&peaklistFile, "peaklist-file", "l", "", "Path to a CSV file containing the MS peak list (required)")
	generateCmd.Flags().StringVarP(&databaseFile, "database-file", "d", "", "Path to an SQLite database file containing the target compound table (required)")
	generateCmd.Flags().StringVarP(&outputFile, "out", "o", config.DefaultOutput, "Output result database file")
	generateCmd.Flags().Float64VarP(&massTolerance, "mass-tolerance", "m", config.DefaultMassTolerance, "Mass-to-charge ratio tolerance for assigning LC-MS peaks")
	generateCmd.Flags().StringVar(&toleranceUnit, "tolerance-unit", config.DefaultToleranceUnit, "Mass tolerance unit: da (absolute) or ppm")
	generateCmd.Flags().Float64VarP(&timeTolerance, "time-tolerance", "t", config.DefaultTimeTolerance, "Default retention time tolerance for compounds without one")
	generateCmd.Flags().BoolVar(&skipBadRows, "skip-bad-rows", false, "Skip malformed input rows with a warning instead of aborting")
	generateCmd.Flags().IntVar(&workers, "workers", 0, "Number of matching workers (0 = number of CPUs)")
	generateCmd.Flags().BoolVar(&noServe, "no-serve", false, "Do not launch the browsing interface after generating")

	generateCmd.MarkFlagRequired("peaklist-file")
	generateCmd.MarkFlagRequired("database-file")

	// Connect command flags
	connectCmd.Flags().StringVar(&resultsFile, "results", "", "Result database to serve (default: last-produced database)")

	// Download command flags
	downloadCmd.Flags().StringVar(&resultsFile, "results", "", "Result database to export (default: last-produced database)")
	downloadCmd.Flags().StringVarP(&outputFile, "out", "o", "match_results.csv", "Output CSV file")
	downloadCmd.Flags().StringVar(&exportTable, "table", "results", "Table to export: results or summary")
}

// loadSettings merges the config file with any flags set on the command line.
// Flags win over file values, file values over defaults.
func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	settings, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	set := func(name string, apply func()) {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}
	set("port", func() { settings.Port = port })
	set("state-file", func() { settings.StateFile = stateFile })
	set("out", func() { settings.Output = outputFile })
	set("mass-tolerance", func() { settings.MassTolerance = massTolerance })
	set("tolerance-unit", func() { settings.ToleranceUnit = toleranceUnit })
	set("time-tolerance", func() { settings.TimeTolerance = timeTolerance })
	set("skip-bad-rows", func() { settings.SkipBadRows = skipBadRows })
	set("workers", func() { settings.Workers = workers })

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// serve launches the read-only browsing interface and blocks.
func serve(dbPath string, listenPort int) error {
	s, err := server.New(dbPath)
	if err != nil {
		return err
	}

	fmt.Printf("Serving result browser at http://localhost:%d/\n", listenPort)
	fmt.Printf("Result database: %s\n", dbPath)
	return s.Start(listenPort)
}
